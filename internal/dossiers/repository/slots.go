package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrSlotNotFound = errors.New("slot not found")

// Slot is one proposed appointment window. Times are stored as wall-clock
// strings ("09:00") because appointments are always in the artisan's local
// time; the .ics output uses floating local time for the same reason.
type Slot struct {
	ID        uuid.UUID
	DossierID uuid.UUID
	SlotDate  time.Time
	StartTime string
	EndTime   string
	Selected  bool
	CreatedAt time.Time
}

type CreateSlotParams struct {
	DossierID uuid.UUID
	SlotDate  time.Time
	StartTime string
	EndTime   string
}

// ReplaceSlots clears previous proposals and inserts the new batch in one
// transaction. Re-proposing always starts from a clean slate so the client
// never sees stale windows.
func (r *Repository) ReplaceSlots(ctx context.Context, dossierID uuid.UUID, slots []CreateSlotParams) ([]Slot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dossier_slots WHERE dossier_id = $1`, dossierID); err != nil {
		return nil, err
	}

	created := make([]Slot, 0, len(slots))
	for _, params := range slots {
		var slot Slot
		err := tx.QueryRow(ctx, `
			INSERT INTO dossier_slots (dossier_id, slot_date, start_time, end_time)
			VALUES ($1, $2, $3, $4)
			RETURNING id, dossier_id, slot_date, start_time, end_time, selected, created_at
		`, params.DossierID, params.SlotDate, params.StartTime, params.EndTime).Scan(
			&slot.ID, &slot.DossierID, &slot.SlotDate, &slot.StartTime, &slot.EndTime, &slot.Selected, &slot.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		created = append(created, slot)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Repository) ListSlots(ctx context.Context, dossierID uuid.UUID) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dossier_id, slot_date, start_time, end_time, selected, created_at
		FROM dossier_slots
		WHERE dossier_id = $1
		ORDER BY slot_date ASC, start_time ASC
	`, dossierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Slot, 0)
	for rows.Next() {
		var slot Slot
		if err := rows.Scan(&slot.ID, &slot.DossierID, &slot.SlotDate, &slot.StartTime, &slot.EndTime, &slot.Selected, &slot.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, slot)
	}
	return items, rows.Err()
}

func (r *Repository) GetSlot(ctx context.Context, slotID uuid.UUID, dossierID uuid.UUID) (Slot, error) {
	var slot Slot
	err := r.pool.QueryRow(ctx, `
		SELECT id, dossier_id, slot_date, start_time, end_time, selected, created_at
		FROM dossier_slots
		WHERE id = $1 AND dossier_id = $2
	`, slotID, dossierID).Scan(
		&slot.ID, &slot.DossierID, &slot.SlotDate, &slot.StartTime, &slot.EndTime, &slot.Selected, &slot.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Slot{}, ErrSlotNotFound
	}
	return slot, err
}

// MarkSlotSelected flags one slot and clears the flag on its siblings.
func (r *Repository) MarkSlotSelected(ctx context.Context, slotID uuid.UUID, dossierID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE dossier_slots SET selected = false WHERE dossier_id = $1`, dossierID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE dossier_slots SET selected = true WHERE id = $1 AND dossier_id = $2`, slotID, dossierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return tx.Commit(ctx)
}
