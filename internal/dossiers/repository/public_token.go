package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTokenExpired distinguishes an expired client link from an unknown one so
// the handler can answer 410 instead of 404.
var ErrTokenExpired = errors.New("client link expired")

// GetByPublicToken resolves a client-facing dossier link. An expired token is
// reported as ErrTokenExpired; an unknown one as ErrNotFound.
func (r *Repository) GetByPublicToken(ctx context.Context, token string) (Dossier, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+dossierSelectCols+`
		FROM dossiers
		WHERE public_token = $1 AND deleted_at IS NULL
	`, token)
	d, err := scanDossier(row)
	if err != nil {
		return Dossier{}, err
	}
	if d.PublicTokenExpires != nil && d.PublicTokenExpires.Before(time.Now()) {
		return Dossier{}, ErrTokenExpired
	}
	return d, nil
}

// SetPublicToken overwrites any existing client link. Regeneration therefore
// invalidates the previous token implicitly.
func (r *Repository) SetPublicToken(ctx context.Context, id uuid.UUID, userID uuid.UUID, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dossiers
		SET public_token = $3, public_token_expires_at = $4, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID, token, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
