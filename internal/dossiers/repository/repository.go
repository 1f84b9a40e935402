package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"plombipro_backend/internal/dossiers/domain"
)

var (
	ErrNotFound        = errors.New("dossier not found")
	ErrArtisanNotFound = errors.New("artisan not found")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Dossier struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	ClientFirstName    string
	ClientLastName     string
	ClientPhone        string
	ClientEmail        *string
	AddressStreet      string
	AddressZipCode     string
	AddressCity        string
	Latitude           *float64
	Longitude          *float64
	ProblemCategory    string
	UrgencyLevel       string
	Description        *string
	Status             domain.Status
	AppointmentStatus  domain.AppointmentStatus
	StatusChangedAt    time.Time
	SelectedSlotID     *uuid.UUID
	RelanceEnabled     bool
	RelanceCount       int
	LastRelanceAt      *time.Time
	Source             string
	PublicToken        *string
	PublicTokenExpires *time.Time
	DeletedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const dossierSelectCols = `
	id, user_id, client_first_name, client_last_name, client_phone, client_email,
	address_street, address_zip_code, address_city, latitude, longitude,
	problem_category, urgency_level, description,
	status, appointment_status, status_changed_at, selected_slot_id,
	relance_enabled, relance_count, last_relance_at,
	source, public_token, public_token_expires_at, deleted_at, created_at, updated_at`

func scanDossier(row pgx.Row) (Dossier, error) {
	var d Dossier
	err := row.Scan(
		&d.ID, &d.UserID, &d.ClientFirstName, &d.ClientLastName, &d.ClientPhone, &d.ClientEmail,
		&d.AddressStreet, &d.AddressZipCode, &d.AddressCity, &d.Latitude, &d.Longitude,
		&d.ProblemCategory, &d.UrgencyLevel, &d.Description,
		&d.Status, &d.AppointmentStatus, &d.StatusChangedAt, &d.SelectedSlotID,
		&d.RelanceEnabled, &d.RelanceCount, &d.LastRelanceAt,
		&d.Source, &d.PublicToken, &d.PublicTokenExpires, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dossier{}, ErrNotFound
	}
	return d, err
}

type CreateDossierParams struct {
	UserID          uuid.UUID
	ClientFirstName string
	ClientLastName  string
	ClientPhone     string
	ClientEmail     *string
	AddressStreet   string
	AddressZipCode  string
	AddressCity     string
	Latitude        *float64
	Longitude       *float64
	ProblemCategory string
	UrgencyLevel    string
	Description     *string
	Source          string
}

func (r *Repository) Create(ctx context.Context, params CreateDossierParams) (Dossier, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO dossiers (
			user_id, client_first_name, client_last_name, client_phone, client_email,
			address_street, address_zip_code, address_city, latitude, longitude,
			problem_category, urgency_level, description, status, appointment_status, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING`+dossierSelectCols+`
	`,
		params.UserID, params.ClientFirstName, params.ClientLastName, params.ClientPhone, params.ClientEmail,
		params.AddressStreet, params.AddressZipCode, params.AddressCity, params.Latitude, params.Longitude,
		params.ProblemCategory, params.UrgencyLevel, params.Description,
		domain.StatusNouveau, domain.ApptNone, params.Source,
	)
	d, err := scanDossier(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Dossier{}, ErrArtisanNotFound
		}
		return Dossier{}, err
	}
	return d, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (Dossier, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+dossierSelectCols+`
		FROM dossiers
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID)
	return scanDossier(row)
}

// ListParams filters the dossier list. Zero values mean "no filter".
type ListParams struct {
	UserID uuid.UUID
	Status domain.Status
	Search string
	Limit  int
	Offset int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Dossier, error) {
	query := `SELECT` + dossierSelectCols + ` FROM dossiers WHERE user_id = $1 AND deleted_at IS NULL`
	args := []any{params.UserID}

	if params.Status != "" {
		args = append(args, params.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (client_first_name ILIKE $%d OR client_last_name ILIKE $%d OR client_phone ILIKE $%d OR address_city ILIKE $%d)", n, n, n, n)
	}

	query += " ORDER BY created_at DESC"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Dossier, 0)
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

type UpdateDossierParams struct {
	ClientFirstName string
	ClientLastName  string
	ClientPhone     string
	ClientEmail     *string
	AddressStreet   string
	AddressZipCode  string
	AddressCity     string
	Latitude        *float64
	Longitude       *float64
	ProblemCategory string
	UrgencyLevel    string
	Description     *string
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, userID uuid.UUID, params UpdateDossierParams) (Dossier, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE dossiers SET
			client_first_name = $3, client_last_name = $4, client_phone = $5, client_email = $6,
			address_street = $7, address_zip_code = $8, address_city = $9, latitude = $10, longitude = $11,
			problem_category = $12, urgency_level = $13, description = $14,
			updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING`+dossierSelectCols+`
	`,
		id, userID,
		params.ClientFirstName, params.ClientLastName, params.ClientPhone, params.ClientEmail,
		params.AddressStreet, params.AddressZipCode, params.AddressCity, params.Latitude, params.Longitude,
		params.ProblemCategory, params.UrgencyLevel, params.Description,
	)
	return scanDossier(row)
}

// SetStatus persists a lifecycle transition. Validation against the transition
// table happens in the service layer; this only writes the already-decided state.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, userID uuid.UUID, status domain.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dossiers
		SET status = $3, status_changed_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetAppointmentStatus(ctx context.Context, id uuid.UUID, userID uuid.UUID, status domain.AppointmentStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dossiers
		SET appointment_status = $3, status_changed_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetSelectedSlot(ctx context.Context, id uuid.UUID, slotID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dossiers
		SET selected_slot_id = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, slotID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dossiers
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRelanceEnabled toggles the follow-up reminder flag.
func (r *Repository) SetRelanceEnabled(ctx context.Context, id uuid.UUID, userID uuid.UUID, enabled bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dossiers
		SET relance_enabled = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementRelance bumps relance_count and stamps last_relance_at. This runs
// before the email attempt so the counter reflects attempts, not deliveries.
func (r *Repository) IncrementRelance(ctx context.Context, id uuid.UUID, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		UPDATE dossiers
		SET relance_count = relance_count + 1, last_relance_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING relance_count
	`, id, userID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return count, err
}

// ListRelanceDue returns dossiers with follow-up enabled whose last relance
// (or creation, if never relanced) is older than the cutoff. Terminal dossiers
// are excluded.
func (r *Repository) ListRelanceDue(ctx context.Context, cutoff time.Time) ([]Dossier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+dossierSelectCols+`
		FROM dossiers
		WHERE deleted_at IS NULL
			AND relance_enabled = true
			AND status = 'devis_envoye'
			AND COALESCE(last_relance_at, created_at) < $1
		ORDER BY COALESCE(last_relance_at, created_at) ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Dossier, 0)
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// CountByStatus returns raw per-status counts. The dashboard folding of
// a_qualifier into nouveau is applied in the service layer.
func (r *Repository) CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM dossiers
		WHERE user_id = $1 AND deleted_at IS NULL
		GROUP BY status
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
