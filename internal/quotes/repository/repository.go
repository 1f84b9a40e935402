package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("quote not found")
	ErrTokenExpired = errors.New("signature link expired")
)

// Quote statuses.
const (
	StatusDraft   = "draft"
	StatusSent    = "sent"
	StatusSigned  = "signed"
	StatusRefused = "refused"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Quote struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	DossierID      uuid.UUID
	QuoteNumber    string
	Status         string
	TotalHT        float64
	TotalTVA       float64
	TotalTTC       float64
	SignatureToken *string
	TokenExpiresAt *time.Time
	SentAt         *time.Time
	SignedAt       *time.Time
	SignatureName  *string
	RefusalReason  *string
	SignedPDFKey   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Line struct {
	ID        uuid.UUID
	QuoteID   uuid.UUID
	Position  int
	Label     string
	Quantity  float64
	UnitPrice float64
	VatRate   float64
	Discount  float64
	TotalHT   float64
	TotalTVA  float64
}

// NextQuoteNumber atomically allocates the next per-artisan quote number.
func (r *Repository) NextQuoteNumber(ctx context.Context, userID uuid.UUID) (string, error) {
	var nextNum int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quote_counters (user_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET last_number = quote_counters.last_number + 1
		RETURNING last_number
	`, userID).Scan(&nextNum)
	if err != nil {
		return "", fmt.Errorf("failed to generate quote number: %w", err)
	}
	return fmt.Sprintf("D-%d-%04d", time.Now().Year(), nextNum), nil
}

const quoteSelectCols = `
	id, user_id, dossier_id, quote_number, status, total_ht, total_tva, total_ttc,
	signature_token, signature_token_expires_at, sent_at, signed_at, signature_name,
	refusal_reason, signed_pdf_key, created_at, updated_at`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.UserID, &q.DossierID, &q.QuoteNumber, &q.Status, &q.TotalHT, &q.TotalTVA, &q.TotalTTC,
		&q.SignatureToken, &q.TokenExpiresAt, &q.SentAt, &q.SignedAt, &q.SignatureName,
		&q.RefusalReason, &q.SignedPDFKey, &q.CreatedAt, &q.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	return q, err
}

// CreateWithLines inserts a quote and its lines in one transaction.
func (r *Repository) CreateWithLines(ctx context.Context, quote Quote, lines []Line) (Quote, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Quote{}, err
	}
	defer tx.Rollback(ctx)

	created, err := scanQuote(tx.QueryRow(ctx, `
		INSERT INTO quotes (user_id, dossier_id, quote_number, status, total_ht, total_tva, total_ttc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING`+quoteSelectCols+`
	`, quote.UserID, quote.DossierID, quote.QuoteNumber, quote.Status, quote.TotalHT, quote.TotalTVA, quote.TotalTTC))
	if err != nil {
		return Quote{}, err
	}

	if err := insertLines(ctx, tx, created.ID, lines); err != nil {
		return Quote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Quote{}, err
	}
	return created, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID, lines []Line) error {
	for i, line := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO quote_lines (quote_id, position, label, quantity, unit_price, vat_rate, discount, total_ht, total_tva)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, quoteID, i, line.Label, line.Quantity, line.UnitPrice, line.VatRate, line.Discount, line.TotalHT, line.TotalTVA)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReplaceLines swaps all lines and the stored totals in one transaction.
// Drafts only; callers enforce that.
func (r *Repository) ReplaceLines(ctx context.Context, quoteID uuid.UUID, userID uuid.UUID, lines []Line, totalHT, totalTVA, totalTTC float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE quotes SET total_ht = $3, total_tva = $4, total_ttc = $5, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`, quoteID, userID, totalHT, totalTVA, totalTTC)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quote_lines WHERE quote_id = $1`, quoteID); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, quoteID, lines); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (Quote, error) {
	return scanQuote(r.pool.QueryRow(ctx, `
		SELECT`+quoteSelectCols+`
		FROM quotes WHERE id = $1 AND user_id = $2
	`, id, userID))
}

func (r *Repository) ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+quoteSelectCols+`
		FROM quotes WHERE dossier_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`, dossierID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (r *Repository) ListLines(ctx context.Context, quoteID uuid.UUID) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quote_id, position, label, quantity, unit_price, vat_rate, discount, total_ht, total_tva
		FROM quote_lines WHERE quote_id = $1
		ORDER BY position ASC
	`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Line, 0)
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.QuoteID, &line.Position, &line.Label, &line.Quantity, &line.UnitPrice, &line.VatRate, &line.Discount, &line.TotalHT, &line.TotalTVA); err != nil {
			return nil, err
		}
		items = append(items, line)
	}
	return items, rows.Err()
}

// MarkSent stamps the quote sent and stores its signature token.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, userID uuid.UUID, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes
		SET status = $3, sent_at = now(), signature_token = $4, signature_token_expires_at = $5, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`, id, userID, StatusSent, token, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkSigned(ctx context.Context, id uuid.UUID, signatureName string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes
		SET status = $2, signed_at = now(), signature_name = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, StatusSigned, signatureName, StatusSent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkRefused(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes
		SET status = $2, refusal_reason = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, StatusRefused, reason, StatusSent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetSignedPDFKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE quotes SET signed_pdf_key = $2, updated_at = now() WHERE id = $1
	`, id, key)
	return err
}

// GetBySignatureToken resolves a client signature link, rejecting expired
// tokens on every access.
func (r *Repository) GetBySignatureToken(ctx context.Context, token string) (Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `
		SELECT`+quoteSelectCols+`
		FROM quotes WHERE signature_token = $1
	`, token))
	if err != nil {
		return Quote{}, err
	}
	if q.TokenExpiresAt != nil && q.TokenExpiresAt.Before(time.Now()) {
		return Quote{}, ErrTokenExpired
	}
	return q, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM quotes WHERE id = $1 AND user_id = $2 AND status = $3
	`, id, userID, StatusDraft)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
