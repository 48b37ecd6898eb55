package scheduler

import (
	"context"
	"time"

	"visitor_backend/internal/events"
	"visitor_backend/platform/logger"
)

// LocalOutboxRunner drains the outbox inside the API process when no Redis is configured.
// Claimed records are handed straight to the notification module over the event bus.
type LocalOutboxRunner struct {
	repo     OutboxClaimer
	bus      events.Bus
	interval time.Duration
	log      *logger.Logger
	wake     chan struct{}
}

func NewLocalOutboxRunner(repo OutboxClaimer, bus events.Bus, interval time.Duration, log *logger.Logger) *LocalOutboxRunner {
	if interval <= 0 {
		interval = defaultOutboxPollInterval
	}
	return &LocalOutboxRunner{
		repo:     repo,
		bus:      bus,
		interval: interval,
		log:      log,
		wake:     make(chan struct{}, 1),
	}
}

// Wake asks the runner to poll now instead of waiting for the next tick.
func (r *LocalOutboxRunner) Wake() {
	if r == nil {
		return
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *LocalOutboxRunner) Run(ctx context.Context) {
	if r == nil || r.repo == nil || r.bus == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}
		r.drain(ctx)
	}
}

func (r *LocalOutboxRunner) drain(ctx context.Context) {
	for {
		records, err := r.repo.ClaimPending(ctx, outboxClaimBatch)
		if err != nil {
			r.log.Warn("outbox claim failed", "error", err)
			return
		}
		for _, rec := range records {
			err := r.bus.PublishSync(ctx, events.NotificationOutboxDue{
				BaseEvent: events.NewBaseEvent(),
				OutboxID:  rec.ID,
				TenantID:  rec.TenantID,
			})
			if err != nil {
				r.log.Warn("outbox record handling failed", "outboxId", rec.ID, "error", err)
			}
		}
		if len(records) < outboxClaimBatch {
			return
		}
	}
}
