package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"visitor_backend/internal/events"
	"visitor_backend/internal/notification/outbox"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
	err       error
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	return b.err
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeClaimer struct {
	batches [][]outbox.Record
	pending map[uuid.UUID]string
}

func (f *fakeClaimer) ClaimPending(context.Context, int) ([]outbox.Record, error) {
	if len(f.batches) == 0 {
		return nil, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func (f *fakeClaimer) MarkPending(_ context.Context, id uuid.UUID, lastError *string) error {
	if f.pending == nil {
		f.pending = map[uuid.UUID]string{}
	}
	msg := ""
	if lastError != nil {
		msg = *lastError
	}
	f.pending[id] = msg
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func records(n int) []outbox.Record {
	out := make([]outbox.Record, n)
	for i := range out {
		out[i] = outbox.Record{ID: uuid.New(), TenantID: uuid.New(), RunAt: time.Now()}
	}
	return out
}

func TestReminderTaskIDChangesWithSchedule(t *testing.T) {
	id := uuid.New().String()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first := reminderTaskID(AppointmentReminderPayload{AppointmentID: id, ScheduledAt: start})
	same := reminderTaskID(AppointmentReminderPayload{AppointmentID: id, ScheduledAt: start.In(time.FixedZone("x", 3600))})
	moved := reminderTaskID(AppointmentReminderPayload{AppointmentID: id, ScheduledAt: start.Add(time.Hour)})

	if first != same {
		t.Fatalf("expected the same instant to give the same id, got %q and %q", first, same)
	}
	if first == moved {
		t.Fatalf("expected a moved appointment to get a new reminder id")
	}
}

func TestWorkerPublishesOutboxDue(t *testing.T) {
	bus := &recordingBus{}
	outboxID := uuid.New()
	tenantID := uuid.New()
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: outboxID.String(), TenantID: tenantID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (taskHandlers{bus: bus}).handleNotificationOutboxDue(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	evt, ok := bus.published[0].(events.NotificationOutboxDue)
	if !ok || evt.OutboxID != outboxID || evt.TenantID != tenantID {
		t.Fatalf("unexpected event: %#v", bus.published[0])
	}
}

func TestWorkerSkipsRetryOnMalformedPayload(t *testing.T) {
	bus := &recordingBus{}
	task := asynq.NewTask(TaskAppointmentReminder, []byte(`{"appointmentId":"nope","tenantId":"nope"}`))

	err := (taskHandlers{bus: bus}).handleAppointmentReminder(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected nothing to be published")
	}
}

func TestWorkerPublishesReminderDue(t *testing.T) {
	bus := &recordingBus{}
	apptID := uuid.New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	task, err := NewAppointmentReminderTask(AppointmentReminderPayload{
		AppointmentID: apptID.String(),
		TenantID:      uuid.New().String(),
		ScheduledAt:   start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (taskHandlers{bus: bus}).handleAppointmentReminder(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	evt, ok := bus.published[0].(events.AppointmentReminderDue)
	if !ok || evt.AppointmentID != apptID || !evt.ScheduledAt.Equal(start) {
		t.Fatalf("unexpected event: %#v", bus.published[0])
	}
}

func TestDispatcherEnqueuesClaimedRecords(t *testing.T) {
	claimer := &fakeClaimer{batches: [][]outbox.Record{records(3)}}
	enqueuer := &fakeEnqueuer{}
	d := &NotificationOutboxDispatcher{client: enqueuer, queue: "default", repo: claimer, log: logger.NewNop()}

	d.dispatchOnce(context.Background())

	if len(enqueuer.tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(enqueuer.tasks))
	}
	for _, task := range enqueuer.tasks {
		if task.Type() != TaskNotificationOutboxDue {
			t.Fatalf("unexpected task type %q", task.Type())
		}
	}
}

func TestDispatcherReturnsRecordsToPendingWhenEnqueueFails(t *testing.T) {
	batch := records(2)
	claimer := &fakeClaimer{batches: [][]outbox.Record{batch}}
	d := &NotificationOutboxDispatcher{client: &fakeEnqueuer{err: errors.New("redis down")}, repo: claimer, log: logger.NewNop()}

	d.dispatchOnce(context.Background())

	for _, rec := range batch {
		if msg, ok := claimer.pending[rec.ID]; !ok || msg != "redis down" {
			t.Fatalf("expected %s back to pending with the error, got %q (%v)", rec.ID, msg, ok)
		}
	}
}

func TestLocalRunnerDrainsFullBatches(t *testing.T) {
	claimer := &fakeClaimer{batches: [][]outbox.Record{records(outboxClaimBatch), records(2)}}
	bus := &recordingBus{}
	r := NewLocalOutboxRunner(claimer, bus, time.Second, logger.NewNop())

	r.drain(context.Background())

	if len(bus.published) != outboxClaimBatch+2 {
		t.Fatalf("expected %d events, got %d", outboxClaimBatch+2, len(bus.published))
	}
}

func TestLocalRunnerWakeDoesNotBlock(t *testing.T) {
	r := NewLocalOutboxRunner(&fakeClaimer{}, &recordingBus{}, time.Second, logger.NewNop())
	r.Wake()
	r.Wake()
	if len(r.wake) != 1 {
		t.Fatalf("expected a single pending wake-up, got %d", len(r.wake))
	}
}

type fakeJanitor struct {
	staleBefore     time.Time
	succeededBefore time.Time
	failedBefore    time.Time
}

func (f *fakeJanitor) RequeueStale(_ context.Context, before time.Time) (int64, error) {
	f.staleBefore = before
	return 1, nil
}

func (f *fakeJanitor) DeleteFinishedBefore(_ context.Context, succeededBefore, failedBefore time.Time) (int64, error) {
	f.succeededBefore = succeededBefore
	f.failedBefore = failedBefore
	return 2, nil
}

func TestOutboxCleanupCutoffs(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	janitor := &fakeJanitor{}
	c := NewOutboxCleanup(janitor, logger.NewNop(), 0, 24*time.Hour, 48*time.Hour)
	c.now = func() time.Time { return now }

	c.cleanup(context.Background())

	if !janitor.staleBefore.Equal(now.Add(-defaultStaleEnqueuedAfter)) {
		t.Fatalf("unexpected stale cutoff %s", janitor.staleBefore)
	}
	if !janitor.succeededBefore.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected succeeded cutoff %s", janitor.succeededBefore)
	}
	if !janitor.failedBefore.Equal(now.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected failed cutoff %s", janitor.failedBefore)
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:pw@cache.internal:6380/2", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "pw" || opt.DB != 2 || opt.TLSConfig != nil {
		t.Fatalf("unexpected options: %+v", opt)
	}

	opt, err = redisClientOpt("rediss://cache.internal:6380", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure TLS config")
	}
}
