package service

import (
	"context"
	"sync"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/appointments/repository"
	"visitor_backend/internal/approval"
	"visitor_backend/internal/events"
	"visitor_backend/internal/notification/outbox"
	"visitor_backend/internal/scheduler"
	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// world is an in-memory database shared by all fakes. Transactions serialize on txMu,
// which stands in for the row and advisory locks, and restore a snapshot on rollback.
type world struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	state    worldState
	lastList repository.ListParams
}

type worldState struct {
	appts     map[uuid.UUID]domain.Appointment
	links     map[string]approval.Link
	intents   []outbox.Intent
	employees map[uuid.UUID]domain.EmployeeRef
	visitors  map[uuid.UUID]domain.VisitorRef
	admins    map[uuid.UUID]uuid.UUID
}

func newWorld() *world {
	return &world{state: worldState{
		appts:     map[uuid.UUID]domain.Appointment{},
		links:     map[string]approval.Link{},
		employees: map[uuid.UUID]domain.EmployeeRef{},
		visitors:  map[uuid.UUID]domain.VisitorRef{},
		admins:    map[uuid.UUID]uuid.UUID{},
	}}
}

func (s worldState) clone() worldState {
	out := worldState{
		appts:     make(map[uuid.UUID]domain.Appointment, len(s.appts)),
		links:     make(map[string]approval.Link, len(s.links)),
		intents:   append([]outbox.Intent(nil), s.intents...),
		employees: make(map[uuid.UUID]domain.EmployeeRef, len(s.employees)),
		visitors:  make(map[uuid.UUID]domain.VisitorRef, len(s.visitors)),
		admins:    make(map[uuid.UUID]uuid.UUID, len(s.admins)),
	}
	for k, v := range s.appts {
		out.appts[k] = v
	}
	for k, v := range s.links {
		out.links[k] = v
	}
	for k, v := range s.employees {
		out.employees[k] = v
	}
	for k, v := range s.visitors {
		out.visitors[k] = v
	}
	for k, v := range s.admins {
		out.admins[k] = v
	}
	return out
}

type worldTx struct {
	pgx.Tx
	w        *world
	snapshot worldState
	done     bool
}

func (w *world) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	w.txMu.Lock()
	w.mu.Lock()
	snapshot := w.state.clone()
	w.mu.Unlock()
	return &worldTx{w: w, snapshot: snapshot}, nil
}

func (t *worldTx) Commit(context.Context) error {
	t.finish()
	return nil
}

func (t *worldTx) Rollback(context.Context) error {
	if !t.done {
		t.w.mu.Lock()
		t.w.state = t.snapshot
		t.w.mu.Unlock()
	}
	t.finish()
	return nil
}

func (t *worldTx) finish() {
	if !t.done {
		t.done = true
		t.w.txMu.Unlock()
	}
}

// Store

func (w *world) Create(_ context.Context, _ db.DBTX, appt *domain.Appointment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	w.state.appts[appt.ID] = *appt
	return nil
}

func (w *world) GetForUpdate(_ context.Context, _ db.DBTX, tenantID, id uuid.UUID, includeDeleted bool) (*domain.Appointment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	appt, ok := w.state.appts[id]
	if !ok || appt.TenantID != tenantID || (appt.IsDeleted && !includeDeleted) {
		return nil, apperr.NotFound(domain.MsgAppointmentNotFound)
	}
	return &appt, nil
}

func (w *world) Save(_ context.Context, _ db.DBTX, appt *domain.Appointment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.state.appts[appt.ID]; !ok {
		return apperr.NotFound(domain.MsgAppointmentNotFound)
	}
	appt.UpdatedAt = time.Now()
	w.state.appts[appt.ID] = *appt
	return nil
}

func (w *world) LockSlot(context.Context, db.DBTX, string) error { return nil }

func (w *world) HasApprovedInSlot(_ context.Context, _ db.DBTX, employeeID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range w.state.appts {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.EmployeeID == employeeID && a.ScheduledDate.Equal(date) && a.ScheduledTime == clock &&
			a.Status == domain.StatusApproved && !a.IsDeleted {
			return true, nil
		}
	}
	return false, nil
}

func (w *world) SetDeleted(_ context.Context, _ db.DBTX, tenantID, id uuid.UUID, deleted bool, by *uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	appt, ok := w.state.appts[id]
	if !ok || appt.TenantID != tenantID || appt.IsDeleted == deleted {
		return apperr.NotFound(domain.MsgAppointmentNotFound)
	}
	appt.IsDeleted = deleted
	appt.DeletedBy = nil
	appt.DeletedAt = nil
	if deleted {
		now := time.Now()
		appt.DeletedAt = &now
		appt.DeletedBy = by
	}
	w.state.appts[id] = appt
	return nil
}

func (w *world) AdminAccountID(_ context.Context, _ db.DBTX, tenantID uuid.UUID) (*uuid.UUID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.state.admins[tenantID]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (w *world) GetView(_ context.Context, tenantID, id uuid.UUID, includeDeleted bool) (*domain.View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	appt, ok := w.state.appts[id]
	if !ok || appt.TenantID != tenantID || (appt.IsDeleted && !includeDeleted) {
		return nil, apperr.NotFound(domain.MsgAppointmentNotFound)
	}
	return &domain.View{
		Appointment: appt,
		Visitor:     w.state.visitors[appt.VisitorID],
		Employee:    w.state.employees[appt.EmployeeID],
	}, nil
}

func (w *world) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastList = params
	return &repository.ListResult{Items: []domain.View{}, Total: 25, Page: params.Page, Limit: params.Limit, TotalPages: 3}, nil
}

func (w *world) Calendar(context.Context, uuid.UUID, time.Time, time.Time, *uuid.UUID) ([]domain.View, error) {
	return nil, nil
}

func (w *world) Stats(context.Context, uuid.UUID, *time.Time, *time.Time, time.Time, *uuid.UUID) (domain.Stats, error) {
	return domain.Stats{}, nil
}

// approval.Store

func (w *world) FindByAppointment(_ context.Context, _ db.DBTX, appointmentID uuid.UUID) (*approval.Link, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, l := range w.state.links {
		if l.AppointmentID == appointmentID {
			link := l
			return &link, nil
		}
	}
	return nil, nil
}

func (w *world) FindByToken(_ context.Context, _ db.DBTX, token string) (*approval.Link, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l, ok := w.state.links[token]; ok {
		return &l, nil
	}
	return nil, nil
}

func (w *world) InsertIfAbsent(_ context.Context, _ db.DBTX, link approval.Link) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.state.links[link.Token]; ok {
		return false, nil
	}
	for _, l := range w.state.links {
		if l.AppointmentID == link.AppointmentID {
			return false, nil
		}
	}
	w.state.links[link.Token] = link
	return true, nil
}

func (w *world) Claim(_ context.Context, _ db.DBTX, token string) (*approval.Link, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.state.links[token]
	if !ok || l.IsUsed {
		return nil, nil
	}
	l.IsUsed = true
	w.state.links[token] = l
	return &l, nil
}

func (w *world) MarkUsedByAppointment(_ context.Context, _ db.DBTX, appointmentID uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for token, l := range w.state.links {
		if l.AppointmentID == appointmentID {
			l.IsUsed = true
			w.state.links[token] = l
		}
	}
	return nil
}

func (w *world) PublicAppointment(context.Context, uuid.UUID, uuid.UUID) (*approval.PublicAppointment, error) {
	return nil, nil
}

// IntentWriter

func (w *world) InsertIntent(_ context.Context, _ db.DBTX, intent outbox.Intent) (uuid.UUID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.intents = append(w.state.intents, intent)
	return uuid.New(), nil
}

// Directories

type employeeDir struct{ w *world }

func (d employeeDir) FindByID(_ context.Context, _ db.DBTX, tenantID, id uuid.UUID) (*domain.EmployeeRef, error) {
	d.w.mu.Lock()
	defer d.w.mu.Unlock()
	e, ok := d.w.state.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (d employeeDir) FindByAccount(_ context.Context, _ db.DBTX, _ uuid.UUID, accountID uuid.UUID) (*domain.EmployeeRef, error) {
	d.w.mu.Lock()
	defer d.w.mu.Unlock()
	for _, e := range d.w.state.employees {
		if e.AccountID != nil && *e.AccountID == accountID {
			emp := e
			return &emp, nil
		}
	}
	return nil, nil
}

type visitorDir struct{ w *world }

func (d visitorDir) FindByID(_ context.Context, _ db.DBTX, _ uuid.UUID, id uuid.UUID) (*domain.VisitorRef, error) {
	d.w.mu.Lock()
	defer d.w.mu.Unlock()
	v, ok := d.w.state.visitors[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (d visitorDir) FindOrCreate(_ context.Context, _ db.DBTX, _ uuid.UUID, visitor domain.VisitorRef) (*domain.VisitorRef, error) {
	d.w.mu.Lock()
	defer d.w.mu.Unlock()
	for _, v := range d.w.state.visitors {
		if v.Phone == visitor.Phone && v.Email == visitor.Email {
			existing := v
			return &existing, nil
		}
	}
	visitor.ID = uuid.New()
	d.w.state.visitors[visitor.ID] = visitor
	return &visitor, nil
}

// Collaborators

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) statusChanges() []events.AppointmentStatusChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.AppointmentStatusChanged
	for _, e := range b.published {
		if sc, ok := e.(events.AppointmentStatusChanged); ok {
			out = append(out, sc)
		}
	}
	return out
}

type scheduledReminder struct {
	payload scheduler.AppointmentReminderPayload
	runAt   time.Time
}

type fakeReminders struct {
	mu        sync.Mutex
	scheduled []scheduledReminder
}

func (f *fakeReminders) ScheduleAppointmentReminder(_ context.Context, payload scheduler.AppointmentReminderPayload, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, scheduledReminder{payload: payload, runAt: runAt})
	return nil
}

type countingWaker struct {
	mu    sync.Mutex
	count int
}

func (c *countingWaker) Wake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}
