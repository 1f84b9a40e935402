package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("media not found")

// Media categories.
const (
	CategoryPhoto = "photo"
	CategoryVideo = "video"
	CategoryAudio = "audio"
	CategoryPlan  = "plan"
	CategoryNote  = "note"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Media struct {
	ID              uuid.UUID
	DossierID       uuid.UUID
	UserID          uuid.UUID
	Category        string
	FileName        string
	ContentType     string
	ObjectKey       string
	SizeBytes       int64
	DurationSeconds *int
	CreatedAt       time.Time
}

const mediaSelectCols = `
	id, dossier_id, user_id, category, file_name, content_type, object_key, size_bytes, duration_seconds, created_at`

func scanMedia(row pgx.Row) (Media, error) {
	var m Media
	err := row.Scan(&m.ID, &m.DossierID, &m.UserID, &m.Category, &m.FileName, &m.ContentType, &m.ObjectKey, &m.SizeBytes, &m.DurationSeconds, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Media{}, ErrNotFound
	}
	if err != nil {
		return Media{}, err
	}
	return m, nil
}

func (r *Repository) Create(ctx context.Context, m Media) (Media, error) {
	return scanMedia(r.pool.QueryRow(ctx, `
		INSERT INTO medias (dossier_id, user_id, category, file_name, content_type, object_key, size_bytes, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING`+mediaSelectCols+`
	`, m.DossierID, m.UserID, m.Category, m.FileName, m.ContentType, m.ObjectKey, m.SizeBytes, m.DurationSeconds))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (Media, error) {
	return scanMedia(r.pool.QueryRow(ctx, `
		SELECT`+mediaSelectCols+`
		FROM medias WHERE id = $1 AND user_id = $2
	`, id, userID))
}

func (r *Repository) ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]Media, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+mediaSelectCols+`
		FROM medias WHERE dossier_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`, dossierID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) (Media, error) {
	return scanMedia(r.pool.QueryRow(ctx, `
		DELETE FROM medias WHERE id = $1 AND user_id = $2
		RETURNING`+mediaSelectCols+`
	`, id, userID))
}
