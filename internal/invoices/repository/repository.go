package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("invoice not found")
	ErrTokenExpired = errors.New("invoice link expired")
)

// Invoice statuses.
const (
	StatusDraft = "draft"
	StatusSent  = "sent"
	StatusPaid  = "paid"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BillingDetails is the party snapshot frozen on the invoice at creation
// time. Later edits to the profile or dossier never rewrite an issued
// document.
type BillingDetails struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	City    string `json:"city,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	SIRET   string `json:"siret,omitempty"`
	VATID   string `json:"vatId,omitempty"`
}

type Invoice struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	DossierID      uuid.UUID
	QuoteID        *uuid.UUID
	InvoiceNumber  string
	Status         string
	TotalHT        float64
	TotalTVA       float64
	TotalTTC       float64
	DueDate        *time.Time
	PaidAt         *time.Time
	ArtisanDetails BillingDetails
	ClientDetails  BillingDetails
	ViewToken      *string
	TokenExpiresAt *time.Time
	SentAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Line struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Position  int
	Label     string
	Quantity  float64
	UnitPrice float64
	VatRate   float64
	Discount  float64
	TotalHT   float64
	TotalTVA  float64
}

// NextInvoiceNumber atomically allocates the next per-artisan invoice number.
func (r *Repository) NextInvoiceNumber(ctx context.Context, userID uuid.UUID) (string, error) {
	var nextNum int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invoice_counters (user_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET last_number = invoice_counters.last_number + 1
		RETURNING last_number
	`, userID).Scan(&nextNum)
	if err != nil {
		return "", fmt.Errorf("failed to generate invoice number: %w", err)
	}
	return fmt.Sprintf("F-%d-%04d", time.Now().Year(), nextNum), nil
}

const invoiceSelectCols = `
	id, user_id, dossier_id, quote_id, invoice_number, status, total_ht, total_tva, total_ttc,
	due_date, paid_at, artisan_details, client_details, view_token, view_token_expires_at,
	sent_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var artisanJSON, clientJSON []byte
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.DossierID, &inv.QuoteID, &inv.InvoiceNumber, &inv.Status,
		&inv.TotalHT, &inv.TotalTVA, &inv.TotalTTC,
		&inv.DueDate, &inv.PaidAt, &artisanJSON, &clientJSON, &inv.ViewToken, &inv.TokenExpiresAt,
		&inv.SentAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	if len(artisanJSON) > 0 {
		_ = json.Unmarshal(artisanJSON, &inv.ArtisanDetails)
	}
	if len(clientJSON) > 0 {
		_ = json.Unmarshal(clientJSON, &inv.ClientDetails)
	}
	return inv, nil
}

// CreateWithLines inserts an invoice and its lines in one transaction.
func (r *Repository) CreateWithLines(ctx context.Context, invoice Invoice, lines []Line) (Invoice, error) {
	artisanJSON, err := json.Marshal(invoice.ArtisanDetails)
	if err != nil {
		return Invoice{}, err
	}
	clientJSON, err := json.Marshal(invoice.ClientDetails)
	if err != nil {
		return Invoice{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Invoice{}, err
	}
	defer tx.Rollback(ctx)

	created, err := scanInvoice(tx.QueryRow(ctx, `
		INSERT INTO invoices (user_id, dossier_id, quote_id, invoice_number, status,
			total_ht, total_tva, total_ttc, due_date, artisan_details, client_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING`+invoiceSelectCols+`
	`, invoice.UserID, invoice.DossierID, invoice.QuoteID, invoice.InvoiceNumber, invoice.Status,
		invoice.TotalHT, invoice.TotalTVA, invoice.TotalTTC, invoice.DueDate, artisanJSON, clientJSON))
	if err != nil {
		return Invoice{}, err
	}

	for i, line := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, position, label, quantity, unit_price, vat_rate, discount, total_ht, total_tva)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, created.ID, i, line.Label, line.Quantity, line.UnitPrice, line.VatRate, line.Discount, line.TotalHT, line.TotalTVA)
		if err != nil {
			return Invoice{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Invoice{}, err
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `
		SELECT`+invoiceSelectCols+`
		FROM invoices WHERE id = $1 AND user_id = $2
	`, id, userID))
}

func (r *Repository) ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+invoiceSelectCols+`
		FROM invoices WHERE dossier_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`, dossierID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

func (r *Repository) ListLines(ctx context.Context, invoiceID uuid.UUID) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, position, label, quantity, unit_price, vat_rate, discount, total_ht, total_tva
		FROM invoice_lines WHERE invoice_id = $1
		ORDER BY position ASC
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Line, 0)
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.Position, &line.Label, &line.Quantity, &line.UnitPrice, &line.VatRate, &line.Discount, &line.TotalHT, &line.TotalTVA); err != nil {
			return nil, err
		}
		items = append(items, line)
	}
	return items, rows.Err()
}

// MarkSent stamps the invoice sent and stores its view token.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, userID uuid.UUID, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status = $3, sent_at = now(), view_token = $4, view_token_expires_at = $5, updated_at = now()
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

func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status = $3, paid_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = $4
	`, id, userID, StatusPaid, StatusSent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByViewToken resolves a client view link, rejecting expired tokens on
// every access.
func (r *Repository) GetByViewToken(ctx context.Context, token string) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `
		SELECT`+invoiceSelectCols+`
		FROM invoices WHERE view_token = $1
	`, token))
	if err != nil {
		return Invoice{}, err
	}
	if inv.TokenExpiresAt != nil && inv.TokenExpiresAt.Before(time.Now()) {
		return Invoice{}, ErrTokenExpired
	}
	return inv, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM invoices WHERE id = $1 AND user_id = $2 AND status = $3
	`, id, userID, StatusDraft)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
