package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"plombipro_backend/internal/auth"
	authrepo "plombipro_backend/internal/auth/repository"
	"plombipro_backend/internal/billing"
	"plombipro_backend/internal/dossiers"
	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/email"
	"plombipro_backend/internal/events"
	apphttp "plombipro_backend/internal/http"
	"plombipro_backend/internal/http/router"
	"plombipro_backend/internal/invoices"
	"plombipro_backend/internal/media"
	"plombipro_backend/internal/notification"
	"plombipro_backend/internal/quotes"
	"plombipro_backend/internal/scheduler"
	"plombipro_backend/internal/sms"
	"plombipro_backend/internal/storage"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/db"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/validator"
)

// artisanEmails resolves the artisan's own address for notifications that go
// back to the account owner.
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)

	emailSender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	smsSender := sms.NewSender(cfg, log)

	val := validator.New()

	store, err := storage.NewMinIOStore(cfg)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		panic("failed to initialize storage: " + err.Error())
	}
	ensureBucket(ctx, log, store, "dossier-medias", cfg.GetMinioBucketDossierMedias())
	ensureBucket(ctx, log, store, "quote-pdfs", cfg.GetMinioBucketQuotePDFs())
	log.Info("storage initialized",
		"mediaBucket", cfg.GetMinioBucketDossierMedias(),
		"quotePDFBucket", cfg.GetMinioBucketQuotePDFs(),
	)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	users := authrepo.New(pool)

	notificationModule := notification.NewModule(
		emailSender, smsSender,
		dossierrepo.New(pool),
		artisanEmails{users: users},
		cfg.GetAppBaseURL(),
		log,
	)
	notificationModule.RegisterHandlers(eventBus)

	authModule := auth.NewModule(pool, cfg, val, eventBus, log)
	dossiersModule := dossiers.NewModule(pool, val, eventBus, log, cfg)
	dossiersModule.RegisterHandlers(eventBus)
	quotesModule := quotes.NewModule(pool, val, eventBus, log, cfg)
	quotesModule.SetStorageForPDF(store, cfg.GetMinioBucketQuotePDFs())
	invoicesModule := invoices.NewModule(pool, val, eventBus, log, cfg)
	mediaModule := media.NewModule(pool, val, store, cfg.GetMinioBucketDossierMedias(), log)
	billingModule := billing.NewModule(pool, cfg, val, eventBus, log)

	// Queue appointment reminders as soon as confirmations happen.
	if cfg.GetRedisURL() != "" {
		reminderClient, err := scheduler.NewClient(cfg, log)
		if err != nil {
			log.Error("failed to initialize reminder scheduler client", "error", err)
		} else {
			reminderClient.RegisterHandlers(eventBus)
			defer func() { _ = reminderClient.Close() }()
		}
	} else {
		log.Warn("REDIS_URL not configured; appointment reminders disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			dossiersModule,
			quotesModule,
			invoicesModule,
			mediaModule,
			billingModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func ensureBucket(ctx context.Context, log *logger.Logger, store storage.ObjectStore, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
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
