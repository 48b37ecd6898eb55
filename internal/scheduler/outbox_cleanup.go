package scheduler

import (
	"context"
	"time"

	"visitor_backend/platform/logger"
)

const (
	defaultOutboxCleanupInterval = time.Hour
	defaultSucceededRetention    = 7 * 24 * time.Hour
	defaultFailedRetention       = 30 * 24 * time.Hour
	defaultStaleEnqueuedAfter    = 15 * time.Minute
)

// OutboxJanitor is the slice of the outbox repository used for housekeeping.
type OutboxJanitor interface {
	RequeueStale(ctx context.Context, before time.Time) (int64, error)
	DeleteFinishedBefore(ctx context.Context, succeededBefore, failedBefore time.Time) (int64, error)
}

// OutboxCleanup periodically requeues orphaned records and removes old finished ones.
type OutboxCleanup struct {
	repo               OutboxJanitor
	log                *logger.Logger
	interval           time.Duration
	succeededRetention time.Duration
	failedRetention    time.Duration
	staleAfter         time.Duration
	now                func() time.Time
}

func NewOutboxCleanup(repo OutboxJanitor, log *logger.Logger, interval, succeededRetention, failedRetention time.Duration) *OutboxCleanup {
	if interval <= 0 {
		interval = defaultOutboxCleanupInterval
	}
	if succeededRetention <= 0 {
		succeededRetention = defaultSucceededRetention
	}
	if failedRetention <= 0 {
		failedRetention = defaultFailedRetention
	}

	return &OutboxCleanup{
		repo:               repo,
		log:                log,
		interval:           interval,
		succeededRetention: succeededRetention,
		failedRetention:    failedRetention,
		staleAfter:         defaultStaleEnqueuedAfter,
		now:                time.Now,
	}
}

func (c *OutboxCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *OutboxCleanup) cleanup(ctx context.Context) {
	now := c.now()

	requeued, err := c.repo.RequeueStale(ctx, now.Add(-c.staleAfter))
	if err != nil {
		c.log.Warn("outbox requeue failed", "error", err)
	} else if requeued > 0 {
		c.log.Info("outbox requeued stale records", "requeued", requeued)
	}

	deleted, err := c.repo.DeleteFinishedBefore(ctx, now.Add(-c.succeededRetention), now.Add(-c.failedRetention))
	if err != nil {
		c.log.Warn("outbox cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		c.log.Info("outbox cleanup deleted finished records", "deleted", deleted)
	}
}
