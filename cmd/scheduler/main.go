package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	apptrepo "visitor_backend/internal/appointments/repository"
	"visitor_backend/internal/email"
	"visitor_backend/internal/notification"
	"visitor_backend/internal/notification/outbox"
	"visitor_backend/internal/scheduler"
	"visitor_backend/internal/settings"
	"visitor_backend/internal/sms"
	"visitor_backend/internal/whatsapp"
	"visitor_backend/platform/config"
	"visitor_backend/platform/db"
	platformevents "visitor_backend/platform/events"
	"visitor_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const settingsCacheTTL = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.GetRedisURL() == "" {
		log.Error("REDIS_URL is required for the scheduler; the API delivers notifications in-process without it")
		os.Exit(1)
	}

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

	eventBus := platformevents.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	var cipher *settings.Cipher
	if cfg.GetSMTPEncryptionSecret() != "" {
		cipher, err = settings.NewCipher(cfg.GetSMTPEncryptionSecret())
		if err != nil {
			log.Error("failed to initialize settings cipher", "error", err)
			panic("failed to initialize settings cipher: " + err.Error())
		}
	}
	settingsProvider := settings.NewProvider(settings.NewRepository(pool), cipher, settingsCacheTTL, log)

	notificationModule, err := notification.New(pool, cfg, notification.Dependencies{
		Appointments: apptrepo.New(pool),
		Settings:     settingsProvider,
		Sender:       sender,
		WhatsApp:     whatsapp.NewClient(cfg, log),
		SMS:          sms.NewClient(cfg),
	}, log)
	if err != nil {
		log.Error("failed to initialize notification module", "error", err)
		panic("failed to initialize notification module: " + err.Error())
	}
	notificationModule.RegisterHandlers(eventBus)

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	cleanupInterval := getDurationEnv("OUTBOX_CLEANUP_INTERVAL", time.Hour)
	succeededRetention := time.Duration(getPositiveIntEnv("OUTBOX_SUCCEEDED_RETENTION_DAYS", 7)) * 24 * time.Hour
	failedRetention := time.Duration(getPositiveIntEnv("OUTBOX_FAILED_RETENTION_DAYS", 30)) * 24 * time.Hour
	outboxCleanup := scheduler.NewOutboxCleanup(outbox.New(pool), log, cleanupInterval, succeededRetention, failedRetention)
	go outboxCleanup.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

func getPositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
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
