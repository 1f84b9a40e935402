package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
)

// RelanceDispatcher periodically scans for dossiers whose follow-up is due
// and queues one relance task per dossier. The relance itself runs through
// the worker so a slow send never stalls the scan.
type RelanceDispatcher struct {
	client       *asynq.Client
	queue        string
	repo         *dossierrepo.Repository
	scanInterval time.Duration
	relanceAfter time.Duration
	log          *logger.Logger
}

func NewRelanceDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, scanInterval, relanceAfter time.Duration, log *logger.Logger) (*RelanceDispatcher, error) {
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

	return &RelanceDispatcher{
		client:       asynq.NewClient(opt),
		queue:        queue,
		repo:         dossierrepo.New(pool),
		scanInterval: scanInterval,
		relanceAfter: relanceAfter,
		log:          log,
	}, nil
}

func (d *RelanceDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *RelanceDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-d.relanceAfter)
		due, err := d.repo.ListRelanceDue(ctx, cutoff)
		if err != nil {
			d.log.Warn("relance scan failed", "error", err)
			continue
		}
		if len(due) == 0 {
			continue
		}

		for _, dossier := range due {
			task, err := NewRelanceDossierTask(RelanceDossierPayload{
				DossierID: dossier.ID.String(),
				UserID:    dossier.UserID.String(),
			})
			if err != nil {
				d.log.Warn("failed to build relance task", "dossier_id", dossier.ID, "error", err)
				continue
			}
			if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue)); err != nil {
				d.log.Warn("failed to enqueue relance task", "dossier_id", dossier.ID, "error", err)
			}
		}
		d.log.Info("relance scan complete", "due", len(due))
	}
}
