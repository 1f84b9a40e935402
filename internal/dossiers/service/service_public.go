package service

import (
	"context"

	"github.com/google/uuid"

	"plombipro_backend/internal/dossiers/domain"
	"plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/events"
)

// GetByToken resolves a client link to its dossier and proposed slots.
// Expired links surface as apperr.Gone on every access.
func (s *Service) GetByToken(ctx context.Context, token string) (repository.Dossier, []repository.Slot, error) {
	d, err := s.repo.GetByPublicToken(ctx, token)
	if err != nil {
		return repository.Dossier{}, nil, mapRepoErr(err)
	}
	slots, err := s.repo.ListSlots(ctx, d.ID)
	if err != nil {
		return repository.Dossier{}, nil, err
	}
	return d, slots, nil
}

// SelectSlotByToken is the client-side half of appointment scheduling: the
// client picks one of the proposed windows through their link.
func (s *Service) SelectSlotByToken(ctx context.Context, token string, slotID uuid.UUID) (repository.Slot, error) {
	d, err := s.repo.GetByPublicToken(ctx, token)
	if err != nil {
		return repository.Slot{}, mapRepoErr(err)
	}

	slot, err := s.repo.GetSlot(ctx, slotID, d.ID)
	if err != nil {
		return repository.Slot{}, mapRepoErr(err)
	}

	if _, err := domain.NextAppointment(d.AppointmentStatus, domain.ApptActionClientSelect); err != nil {
		return repository.Slot{}, mapTransitionErr(err)
	}

	if err := s.repo.MarkSlotSelected(ctx, slotID, d.ID); err != nil {
		return repository.Slot{}, mapRepoErr(err)
	}
	if err := s.repo.SetSelectedSlot(ctx, d.ID, slotID); err != nil {
		return repository.Slot{}, mapRepoErr(err)
	}

	clientName := d.ClientFirstName + " " + d.ClientLastName
	if _, err := s.transitionAppointment(ctx, d, domain.ApptActionClientSelect, ClientActor(clientName), "Créneau choisi par le client"); err != nil {
		return repository.Slot{}, err
	}

	s.eventBus.Publish(ctx, events.SlotSelected{
		BaseEvent:  events.NewBaseEvent(),
		DossierID:  d.ID,
		UserID:     d.UserID,
		SlotID:     slot.ID,
		SlotDate:   slot.SlotDate.Format("2006-01-02"),
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		ClientName: clientName,
	})

	slot.Selected = true
	return slot, nil
}
