package scheduler

import (
	"context"
	"fmt"
	"time"

	"visitor_backend/internal/notification/outbox"
	"visitor_backend/platform/config"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultOutboxPollInterval = 2 * time.Second
	outboxClaimBatch          = 50
)

// OutboxClaimer is the slice of the outbox repository the dispatchers use.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// TaskEnqueuer enqueues asynq tasks.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotificationOutboxDispatcher moves claimed outbox records onto the asynq queue.
type NotificationOutboxDispatcher struct {
	client   TaskEnqueuer
	closer   func() error
	queue    string
	repo     OutboxClaimer
	interval time.Duration
	log      *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	return &NotificationOutboxDispatcher{
		client:   client,
		closer:   client.Close,
		queue:    queueName(cfg),
		repo:     outbox.New(pool),
		interval: pollInterval(cfg),
		log:      log,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.closer == nil {
		return nil
	}
	return d.closer()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatchOnce(ctx)
	}
}

func (d *NotificationOutboxDispatcher) dispatchOnce(ctx context.Context) {
	records, err := d.repo.ClaimPending(ctx, outboxClaimBatch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return
	}

	for _, rec := range records {
		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
			OutboxID: rec.ID.String(),
			TenantID: rec.TenantID.String(),
		})
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			continue
		}

		// Delivery is attempted once per channel, so the task itself is never retried.
		_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue), asynq.MaxRetry(0))
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
		}
	}
}

func pollInterval(cfg config.SchedulerConfig) time.Duration {
	if interval := cfg.GetOutboxPollInterval(); interval > 0 {
		return interval
	}
	return defaultOutboxPollInterval
}
