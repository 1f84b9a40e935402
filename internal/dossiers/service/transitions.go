package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"plombipro_backend/internal/dossiers/domain"
	"plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/events"
	"plombipro_backend/platform/apperr"
)

func mapTransitionErr(err error) error {
	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		return apperr.Conflict(invalid.Error())
	}
	return err
}

// Transition applies one lifecycle action to a dossier. On success exactly
// one historique entry records the status change; a failure in any
// persistence step aborts the whole transition, so no entry and no
// notification are emitted for it.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, userID uuid.UUID, action domain.Action, actor Actor, detail string) (repository.Dossier, error) {
	d, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Dossier{}, mapRepoErr(err)
	}

	next, err := domain.Next(d.Status, action)
	if err != nil {
		return repository.Dossier{}, mapTransitionErr(err)
	}

	if next != d.Status {
		if err := s.repo.SetStatus(ctx, id, userID, next); err != nil {
			return repository.Dossier{}, mapRepoErr(err)
		}
		if _, err := s.repo.CreateHistoriqueEntry(ctx, repository.CreateHistoriqueParams{
			DossierID: id,
			UserID:    userID,
			ActorType: actor.Type,
			ActorName: actor.Name,
			Action:    repository.ActionStatusChanged,
			Detail:    repository.TruncateDetail(detail, repository.HistoriqueDetailMaxLen),
			Metadata: map[string]any{
				"from":   string(d.Status),
				"to":     string(next),
				"action": string(action),
			},
		}); err != nil {
			return repository.Dossier{}, err
		}

		s.eventBus.Publish(ctx, events.DossierStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			DossierID: id,
			UserID:    userID,
			OldStatus: string(d.Status),
			NewStatus: string(next),
			Action:    string(action),
		})
	}

	// Some lifecycle actions move the appointment axis too: a signed quote
	// puts the dossier in the "appointment to plan" state.
	if apptAction, ok := domain.CausedAppointmentAction(action); ok {
		if _, err := s.transitionAppointment(ctx, d, apptAction, SystemActor(), ""); err != nil {
			return repository.Dossier{}, err
		}
	}

	return s.repo.GetByID(ctx, id, userID)
}

// TransitionAppointment applies one action to the appointment axis.
func (s *Service) TransitionAppointment(ctx context.Context, id uuid.UUID, userID uuid.UUID, action domain.AppointmentAction, actor Actor, detail string) (repository.Dossier, error) {
	d, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Dossier{}, mapRepoErr(err)
	}
	if _, err := s.transitionAppointment(ctx, d, action, actor, detail); err != nil {
		return repository.Dossier{}, err
	}
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) transitionAppointment(ctx context.Context, d repository.Dossier, action domain.AppointmentAction, actor Actor, detail string) (domain.AppointmentStatus, error) {
	next, err := domain.NextAppointment(d.AppointmentStatus, action)
	if err != nil {
		return "", mapTransitionErr(err)
	}
	if next == d.AppointmentStatus {
		return next, nil
	}

	if err := s.repo.SetAppointmentStatus(ctx, d.ID, d.UserID, next); err != nil {
		return "", mapRepoErr(err)
	}
	if _, err := s.repo.CreateHistoriqueEntry(ctx, repository.CreateHistoriqueParams{
		DossierID: d.ID,
		UserID:    d.UserID,
		ActorType: actor.Type,
		ActorName: actor.Name,
		Action:    repository.ActionAppointmentChanged,
		Detail:    repository.TruncateDetail(detail, repository.HistoriqueDetailMaxLen),
		Metadata: map[string]any{
			"from":   string(d.AppointmentStatus),
			"to":     string(next),
			"action": string(action),
		},
	}); err != nil {
		return "", err
	}
	return next, nil
}

type SlotInput struct {
	Date      time.Time
	StartTime string
	EndTime   string
}

// ProposeSlots replaces the dossier's proposed appointment windows and moves
// the appointment axis to slots_proposed. The client is notified with the
// selection link.
func (s *Service) ProposeSlots(ctx context.Context, id uuid.UUID, userID uuid.UUID, inputs []SlotInput, actor Actor) ([]repository.Slot, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("au moins un créneau est requis")
	}
	for _, in := range inputs {
		if in.EndTime <= in.StartTime {
			return nil, apperr.Validation("l'heure de fin doit être après l'heure de début")
		}
	}

	d, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	if _, err := domain.NextAppointment(d.AppointmentStatus, domain.ApptActionProposeSlots); err != nil {
		return nil, mapTransitionErr(err)
	}

	params := make([]repository.CreateSlotParams, 0, len(inputs))
	for _, in := range inputs {
		params = append(params, repository.CreateSlotParams{
			DossierID: id,
			SlotDate:  in.Date,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
		})
	}
	slots, err := s.repo.ReplaceSlots(ctx, id, params)
	if err != nil {
		return nil, err
	}

	if _, err := s.transitionAppointment(ctx, d, domain.ApptActionProposeSlots, actor, fmt.Sprintf("%d créneau(x) proposé(s)", len(slots))); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, events.SlotsProposed{
		BaseEvent:   events.NewBaseEvent(),
		DossierID:   id,
		UserID:      userID,
		SlotCount:   len(slots),
		ClientName:  d.ClientFirstName + " " + d.ClientLastName,
		ClientPhone: d.ClientPhone,
		ClientEmail: emailOrEmpty(d.ClientEmail),
		PublicToken: stringOrEmpty(d.PublicToken),
	})
	return slots, nil
}

func (s *Service) ListSlots(ctx context.Context, id uuid.UUID, userID uuid.UUID) ([]repository.Slot, error) {
	if _, err := s.repo.GetByID(ctx, id, userID); err != nil {
		return nil, mapRepoErr(err)
	}
	return s.repo.ListSlots(ctx, id)
}

// ConfirmAppointment confirms the slot picked by the client. Publishing the
// confirmation event carries everything the notification layer needs for the
// .ics attachment and the reminder.
func (s *Service) ConfirmAppointment(ctx context.Context, id uuid.UUID, userID uuid.UUID, actor Actor) (repository.Dossier, error) {
	d, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Dossier{}, mapRepoErr(err)
	}
	if d.SelectedSlotID == nil {
		return repository.Dossier{}, apperr.Conflict("aucun créneau sélectionné par le client")
	}
	slot, err := s.repo.GetSlot(ctx, *d.SelectedSlotID, id)
	if err != nil {
		return repository.Dossier{}, mapRepoErr(err)
	}

	if _, err := s.transitionAppointment(ctx, d, domain.ApptActionConfirm, actor, "RDV confirmé"); err != nil {
		return repository.Dossier{}, err
	}

	s.eventBus.Publish(ctx, events.AppointmentConfirmed{
		BaseEvent:   events.NewBaseEvent(),
		DossierID:   id,
		UserID:      userID,
		SlotID:      slot.ID,
		SlotDate:    slot.SlotDate.Format("2006-01-02"),
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Address:     fmt.Sprintf("%s, %s %s", d.AddressStreet, d.AddressZipCode, d.AddressCity),
		ClientName:  d.ClientFirstName + " " + d.ClientLastName,
		ClientPhone: d.ClientPhone,
		ClientEmail: emailOrEmpty(d.ClientEmail),
	})

	return s.repo.GetByID(ctx, id, userID)
}
