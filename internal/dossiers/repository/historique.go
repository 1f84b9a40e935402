package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HistoriqueDetailMaxLen caps the free-text detail column. Callers should use
// TruncateDetail when populating CreateHistoriqueParams.Detail.
const HistoriqueDetailMaxLen = 400

// TruncateDetail trims text to maxLen, appending "..." on overflow.
// Returns nil for blank input.
func TruncateDetail(text string, maxLen int) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen] + "..."
	}
	return &trimmed
}

type HistoriqueEntry struct {
	ID        uuid.UUID
	DossierID uuid.UUID
	UserID    uuid.UUID
	ActorType string
	ActorName string
	Action    string
	Detail    *string
	Metadata  map[string]any
	CreatedAt time.Time
}

type CreateHistoriqueParams struct {
	DossierID uuid.UUID
	UserID    uuid.UUID
	ActorType string
	ActorName string
	Action    string
	Detail    *string
	Metadata  map[string]any
}

// CreateHistoriqueEntry appends one entry to the audit trail. The table is
// append-only: there is no update or delete path anywhere in the codebase.
func (r *Repository) CreateHistoriqueEntry(ctx context.Context, params CreateHistoriqueParams) (HistoriqueEntry, error) {
	metadataJSON, err := json.Marshal(params.Metadata)
	if err != nil {
		return HistoriqueEntry{}, err
	}

	var entry HistoriqueEntry
	err = r.pool.QueryRow(ctx, `
		INSERT INTO historique (dossier_id, user_id, actor_type, actor_name, action, detail, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, dossier_id, user_id, actor_type, actor_name, action, detail, created_at
	`, params.DossierID, params.UserID, params.ActorType, params.ActorName, params.Action, params.Detail, metadataJSON).Scan(
		&entry.ID,
		&entry.DossierID,
		&entry.UserID,
		&entry.ActorType,
		&entry.ActorName,
		&entry.Action,
		&entry.Detail,
		&entry.CreatedAt,
	)
	if err != nil {
		return HistoriqueEntry{}, err
	}
	entry.Metadata = params.Metadata
	return entry, nil
}

// ListHistorique returns the audit trail for a dossier, newest first.
func (r *Repository) ListHistorique(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]HistoriqueEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dossier_id, user_id, actor_type, actor_name, action, detail, metadata, created_at
		FROM historique
		WHERE dossier_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`, dossierID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]HistoriqueEntry, 0)
	for rows.Next() {
		var entry HistoriqueEntry
		var rawMetadata []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.DossierID,
			&entry.UserID,
			&entry.ActorType,
			&entry.ActorName,
			&entry.Action,
			&entry.Detail,
			&rawMetadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(rawMetadata) > 0 {
			_ = json.Unmarshal(rawMetadata, &entry.Metadata)
		}
		items = append(items, entry)
	}
	return items, rows.Err()
}
