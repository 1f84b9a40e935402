package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"plombipro_backend/internal/dossiers/domain"
	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/events"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   *dossierrepo.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   dossierrepo.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskRelanceDossier, w.handleRelanceDossier)
	mux.HandleFunc(TaskAppointmentReminder, w.handleAppointmentReminder)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleRelanceDossier resolves the relance through the same path as a manual
// one: the dossiers module subscribes to RelanceDue and counts it before the
// notification layer attempts delivery.
func (w *Worker) handleRelanceDossier(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseRelanceDossierPayload(task)
	if err != nil {
		return err
	}

	dossierID, err := uuid.Parse(payload.DossierID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return err
	}

	return w.bus.PublishSync(ctx, events.RelanceDue{
		BaseEvent: events.NewBaseEvent(),
		DossierID: dossierID,
		UserID:    userID,
	})
}

// handleAppointmentReminder re-checks the dossier before reminding: the
// appointment may have been cancelled or moved since the task was queued.
func (w *Worker) handleAppointmentReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAppointmentReminderPayload(task)
	if err != nil {
		return err
	}

	dossierID, err := uuid.Parse(payload.DossierID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return err
	}
	slotID, err := uuid.Parse(payload.SlotID)
	if err != nil {
		return err
	}

	dossier, err := w.repo.GetByID(ctx, dossierID, userID)
	if err != nil {
		if errors.Is(err, dossierrepo.ErrNotFound) {
			return nil
		}
		return err
	}

	if dossier.AppointmentStatus != domain.ApptRdvConfirmed {
		return nil
	}
	if dossier.SelectedSlotID == nil || *dossier.SelectedSlotID != slotID {
		return nil
	}

	slot, err := w.repo.GetSlot(ctx, slotID, dossierID)
	if err != nil {
		if errors.Is(err, dossierrepo.ErrSlotNotFound) {
			return nil
		}
		return err
	}

	if w.bus == nil {
		return nil
	}

	clientEmail := ""
	if dossier.ClientEmail != nil {
		clientEmail = *dossier.ClientEmail
	}

	w.bus.Publish(ctx, events.AppointmentReminderDue{
		BaseEvent:   events.NewBaseEvent(),
		DossierID:   dossier.ID,
		UserID:      dossier.UserID,
		SlotID:      slot.ID,
		SlotDate:    slot.SlotDate.Format("2006-01-02"),
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Address:     fmt.Sprintf("%s, %s %s", dossier.AddressStreet, dossier.AddressZipCode, dossier.AddressCity),
		ClientName:  dossier.ClientFirstName + " " + dossier.ClientLastName,
		ClientPhone: dossier.ClientPhone,
		ClientEmail: clientEmail,
	})

	return nil
}
