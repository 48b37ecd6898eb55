package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visitor_backend/internal/adapters"
	"visitor_backend/internal/adapters/storage"
	"visitor_backend/internal/appointments"
	apptrepo "visitor_backend/internal/appointments/repository"
	"visitor_backend/internal/approval"
	"visitor_backend/internal/email"
	"visitor_backend/internal/employees"
	"visitor_backend/internal/exports"
	apphttp "visitor_backend/internal/http"
	"visitor_backend/internal/http/router"
	"visitor_backend/internal/notification"
	"visitor_backend/internal/notification/outbox"
	"visitor_backend/internal/realtime"
	"visitor_backend/internal/scheduler"
	"visitor_backend/internal/settings"
	"visitor_backend/internal/sms"
	"visitor_backend/internal/visitors"
	"visitor_backend/internal/whatsapp"
	"visitor_backend/platform/config"
	"visitor_backend/platform/db"
	platformevents "visitor_backend/platform/events"
	"visitor_backend/platform/logger"
	"visitor_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const settingsCacheTTL = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
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

	// Event bus for decoupled communication between modules
	eventBus := platformevents.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	photoStorage := initPhotoStorage(ctx, cfg, log)

	var cipher *settings.Cipher
	if cfg.GetSMTPEncryptionSecret() != "" {
		cipher, err = settings.NewCipher(cfg.GetSMTPEncryptionSecret())
		if err != nil {
			log.Error("failed to initialize settings cipher", "error", err)
			panic("failed to initialize settings cipher: " + err.Error())
		}
	} else {
		log.Warn("SMTP_ENCRYPTION_SECRET not configured; tenants cannot store SMTP passwords")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	outboxRepo := outbox.New(pool)
	approvalModule := approval.NewModule(pool, val, cfg.GetAppBaseURL())
	employeesModule := employees.NewModule(pool, val)
	visitorsModule := visitors.NewModule(pool, photoStorage, cfg.GetMinioBucketVisitorPhotos(), val, log)
	settingsModule := settings.NewModule(pool, val, cipher, settingsCacheTTL, log)

	appointmentsModule := appointments.NewModule(pool, val, appointments.Dependencies{
		Approvals: approvalModule.Registry,
		Intents:   outboxRepo,
		Employees: adapters.NewEmployeeDirectory(employeesModule.Repository),
		Visitors:  adapters.NewVisitorDirectory(visitorsModule.Repository, visitorsModule.Service),
		EventBus:  eventBus,
	}, log)

	notificationModule, err := notification.New(pool, cfg, notification.Dependencies{
		Appointments: apptrepo.New(pool),
		Settings:     settingsModule.Provider,
		Sender:       sender,
		WhatsApp:     whatsapp.NewClient(cfg, log),
		SMS:          sms.NewClient(cfg),
	}, log)
	if err != nil {
		log.Error("failed to initialize notification module", "error", err)
		panic("failed to initialize notification module: " + err.Error())
	}

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	realtimeModule := realtime.NewModule(redisClient, cfg.GetRealtimeRedisChannel(), notificationModule.InAppService(), log)
	realtimeModule.Notifier.RegisterHandlers(eventBus)
	go func() {
		if err := realtimeModule.Run(ctx); err != nil {
			log.Error("realtime fan-out stopped", "error", err)
		}
	}()

	// Without Redis the API delivers the outbox itself; the scheduler binary does it otherwise.
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; delivering notifications in-process and disabling reminders")
		notificationModule.RegisterHandlers(eventBus)
		runner := scheduler.NewLocalOutboxRunner(outboxRepo, eventBus, cfg.GetOutboxPollInterval(), log)
		appointmentsModule.Service.SetOutboxWaker(runner)
		go runner.Run(ctx)
	} else {
		reminderClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize reminder scheduler client", "error", err)
		} else {
			defer func() { _ = reminderClient.Close() }()
			appointmentsModule.Service.SetReminderScheduler(reminderClient, cfg.GetReminderLeadTime(), cfg.GetAppLocation())
		}
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			approvalModule,
			employeesModule,
			visitorsModule,
			settingsModule,
			appointmentsModule,
			notificationModule,
			realtimeModule,
			exports.NewModule(pool, cfg.GetAppLocation()),
		},
	}

	engine := router.New(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initPhotoStorage returns nil when MinIO is not configured; photo uploads are then refused.
func initPhotoStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) visitors.PhotoStorage {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; visitor photo uploads disabled")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketVisitorPhotos()
	if err := withRetry(ctx, log, "ensure visitor-photos bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "visitorPhotosBucket", bucket)
	return storageSvc
}

func initRedis(cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		return nil
	}
	client, err := realtime.NewRedisClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize realtime redis client; realtime stays local", "error", err)
		return nil
	}
	return client
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

	return errors.New(name + ": " + lastErr.Error())
}
