// Package scheduler runs the asynq-backed background jobs: automatic relances
// on quiet dossiers and SMS reminders before confirmed appointments.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"plombipro_backend/internal/events"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
)

// reminderLead is how long before the appointment start the reminder fires.
const reminderLead = 24 * time.Hour

type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
		log:    log,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// RegisterHandlers subscribes the client to appointment confirmations so the
// reminder gets queued the moment the artisan confirms.
func (c *Client) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AppointmentConfirmed{}.EventName(), events.HandlerFunc(c.onAppointmentConfirmed))
}

func (c *Client) onAppointmentConfirmed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AppointmentConfirmed)
	if !ok {
		return nil
	}

	start, err := time.Parse("2006-01-02 15:04", e.SlotDate+" "+e.StartTime)
	if err != nil {
		c.log.Warn("unparseable slot start, reminder skipped", "dossier_id", e.DossierID, "error", err)
		return nil
	}
	runAt := start.Add(-reminderLead)
	if runAt.Before(time.Now()) {
		return nil
	}

	err = c.ScheduleAppointmentReminder(ctx, AppointmentReminderPayload{
		DossierID: e.DossierID.String(),
		UserID:    e.UserID.String(),
		SlotID:    e.SlotID.String(),
	}, runAt)
	if err != nil {
		c.log.Warn("failed to schedule appointment reminder", "dossier_id", e.DossierID, "error", err)
	}
	return nil
}

func (c *Client) ScheduleAppointmentReminder(ctx context.Context, payload AppointmentReminderPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewAppointmentReminderTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
