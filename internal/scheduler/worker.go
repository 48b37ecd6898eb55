package scheduler

import (
	"context"
	"fmt"

	"visitor_backend/internal/events"
	"visitor_backend/platform/config"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server: server,
		mux:    newServeMux(bus),
		bus:    bus,
		log:    log,
	}
	return w, nil
}

func newServeMux(bus events.Bus) *asynq.ServeMux {
	h := taskHandlers{bus: bus}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAppointmentReminder, h.handleAppointmentReminder)
	mux.HandleFunc(TaskNotificationOutboxDue, h.handleNotificationOutboxDue)
	return mux
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

type taskHandlers struct {
	bus events.Bus
}

func (h taskHandlers) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if h.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return h.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
		TenantID:  tenantID,
	})
}

func (h taskHandlers) handleAppointmentReminder(ctx context.Context, task *asynq.Task) error {
	if h.bus == nil {
		return nil
	}

	payload, err := ParseAppointmentReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	apptID, err := uuid.Parse(payload.AppointmentID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return h.bus.PublishSync(ctx, events.AppointmentReminderDue{
		BaseEvent:     events.NewBaseEvent(),
		TenantID:      tenantID,
		AppointmentID: apptID,
		ScheduledAt:   payload.ScheduledAt,
	})
}
