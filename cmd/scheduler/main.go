package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	authrepo "plombipro_backend/internal/auth/repository"
	"plombipro_backend/internal/dossiers"
	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/email"
	"plombipro_backend/internal/events"
	"plombipro_backend/internal/notification"
	"plombipro_backend/internal/scheduler"
	"plombipro_backend/internal/sms"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/db"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/validator"
)

type artisanEmails struct {
	users *authrepo.Repository
}

func (a artisanEmails) GetEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	emailSender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	smsSender := sms.NewSender(cfg, log)

	val := validator.New()

	// Worker-side wiring: relances resolve through the dossiers module and
	// fan out through the notification handlers, exactly as in the API.
	notificationModule := notification.NewModule(
		emailSender, smsSender,
		dossierrepo.New(pool),
		artisanEmails{users: authrepo.New(pool)},
		cfg.GetAppBaseURL(),
		log,
	)
	notificationModule.RegisterHandlers(eventBus)

	dossiersModule := dossiers.NewModule(pool, val, eventBus, log, cfg)
	dossiersModule.RegisterHandlers(eventBus)

	scanInterval := getDurationEnv("RELANCE_SCAN_INTERVAL", time.Hour)
	relanceAfter := getDurationEnv("RELANCE_AFTER", 72*time.Hour)
	dispatcher, err := scheduler.NewRelanceDispatcher(cfg, pool, scanInterval, relanceAfter, log)
	if err != nil {
		log.Error("failed to initialize relance dispatcher", "error", err)
		panic("failed to initialize relance dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, pool, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
