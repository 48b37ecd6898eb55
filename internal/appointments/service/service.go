package service

import (
	"context"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/appointments/repository"
	"visitor_backend/internal/approval"
	"visitor_backend/internal/events"
	"visitor_backend/internal/notification/outbox"
	"visitor_backend/internal/scheduler"
	"visitor_backend/platform/db"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the appointments persistence used by the service.
type Store interface {
	Create(ctx context.Context, q db.DBTX, appt *domain.Appointment) error
	GetForUpdate(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID, includeDeleted bool) (*domain.Appointment, error)
	Save(ctx context.Context, q db.DBTX, appt *domain.Appointment) error
	LockSlot(ctx context.Context, q db.DBTX, slotKey string) error
	HasApprovedInSlot(ctx context.Context, q db.DBTX, employeeID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error)
	SetDeleted(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID, deleted bool, by *uuid.UUID) error
	AdminAccountID(ctx context.Context, q db.DBTX, tenantID uuid.UUID) (*uuid.UUID, error)
	GetView(ctx context.Context, tenantID, id uuid.UUID, includeDeleted bool) (*domain.View, error)
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	Calendar(ctx context.Context, tenantID uuid.UUID, from, to time.Time, employeeID *uuid.UUID) ([]domain.View, error)
	Stats(ctx context.Context, tenantID uuid.UUID, from, to *time.Time, today time.Time, employeeID *uuid.UUID) (domain.Stats, error)
}

// ApprovalLinks issues and retires approval links inside the caller's transaction.
type ApprovalLinks interface {
	Issue(ctx context.Context, q db.DBTX, tenantID, appointmentID uuid.UUID) (approval.Issued, error)
	MarkUsed(ctx context.Context, q db.DBTX, appointmentID uuid.UUID) error
}

// IntentWriter stores notification intents in the caller's transaction.
type IntentWriter interface {
	InsertIntent(ctx context.Context, q db.DBTX, intent outbox.Intent) (uuid.UUID, error)
}

// EmployeeDirectory resolves employees. Lookups return nil when nothing matches.
// A nil q reads outside any transaction.
type EmployeeDirectory interface {
	FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*domain.EmployeeRef, error)
	FindByAccount(ctx context.Context, q db.DBTX, tenantID, accountID uuid.UUID) (*domain.EmployeeRef, error)
}

// VisitorDirectory resolves visitors. FindByID returns nil when nothing matches.
type VisitorDirectory interface {
	FindByID(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID) (*domain.VisitorRef, error)
	FindOrCreate(ctx context.Context, q db.DBTX, tenantID uuid.UUID, visitor domain.VisitorRef) (*domain.VisitorRef, error)
}

// OutboxWaker nudges an in-process outbox runner after a commit.
type OutboxWaker interface {
	Wake()
}

// Service implements the appointment lifecycle.
type Service struct {
	txs               db.TxBeginner
	repo              Store
	conflicts         *ConflictChecker
	links             ApprovalLinks
	intents           IntentWriter
	employees         EmployeeDirectory
	visitors          VisitorDirectory
	eventBus          events.Bus
	reminderScheduler scheduler.ReminderScheduler
	reminderLead      time.Duration
	location          *time.Location
	waker             OutboxWaker
	log               *logger.Logger
	now               func() time.Time
}

// New creates a new appointments service
func New(txs db.TxBeginner, repo Store, links ApprovalLinks, intents IntentWriter, employees EmployeeDirectory, visitors VisitorDirectory, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		txs:       txs,
		repo:      repo,
		conflicts: NewConflictChecker(repo),
		links:     links,
		intents:   intents,
		employees: employees,
		visitors:  visitors,
		eventBus:  eventBus,
		location:  time.UTC,
		log:       log,
		now:       time.Now,
	}
}

// SetReminderScheduler enables reminders for approved appointments, lead before their start in loc.
func (s *Service) SetReminderScheduler(rs scheduler.ReminderScheduler, lead time.Duration, loc *time.Location) {
	s.reminderScheduler = rs
	s.reminderLead = lead
	if loc != nil {
		s.location = loc
	}
}

// SetOutboxWaker sets the runner woken after intents are committed.
func (s *Service) SetOutboxWaker(w OutboxWaker) {
	s.waker = w
}

// partyInfo is what realtime routing and events need about the people involved.
type partyInfo struct {
	adminAccountID    uuid.UUID
	employeeAccountID *uuid.UUID
	visitorName       string
}

func (s *Service) loadParties(ctx context.Context, q db.DBTX, appt *domain.Appointment) (partyInfo, error) {
	var info partyInfo

	adminID, err := s.repo.AdminAccountID(ctx, q, appt.TenantID)
	if err != nil {
		return info, err
	}
	if adminID != nil {
		info.adminAccountID = *adminID
	}

	employee, err := s.employees.FindByID(ctx, q, appt.TenantID, appt.EmployeeID)
	if err != nil {
		return info, err
	}
	if employee != nil {
		info.employeeAccountID = employee.AccountID
	}

	visitor, err := s.visitors.FindByID(ctx, q, appt.TenantID, appt.VisitorID)
	if err != nil {
		return info, err
	}
	if visitor != nil {
		info.visitorName = visitor.Name
	}
	return info, nil
}

func (s *Service) publishCreated(ctx context.Context, actor domain.Actor, appt *domain.Appointment, parties partyInfo) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.AppointmentCreated{
		BaseEvent:         events.NewBaseEvent(),
		TenantID:          appt.TenantID,
		AppointmentID:     appt.ID,
		EmployeeID:        appt.EmployeeID,
		VisitorID:         appt.VisitorID,
		Status:            string(appt.Status),
		Actor:             string(actor),
		AdminAccountID:    parties.adminAccountID,
		EmployeeAccountID: parties.employeeAccountID,
		VisitorName:       parties.visitorName,
		ScheduledDate:     appt.ScheduledDate.Format(domain.DateLayout),
		ScheduledTime:     appt.ScheduledTime,
		ScheduledAt:       s.startsAt(appt),
	})
}

func (s *Service) publishStatusChanged(ctx context.Context, actor domain.Actor, appt *domain.Appointment, oldStatus domain.Status, parties partyInfo, showNotification bool) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.AppointmentStatusChanged{
		BaseEvent:         events.NewBaseEvent(),
		TenantID:          appt.TenantID,
		AppointmentID:     appt.ID,
		OldStatus:         string(oldStatus),
		NewStatus:         string(appt.Status),
		Actor:             string(actor),
		AdminAccountID:    parties.adminAccountID,
		EmployeeAccountID: parties.employeeAccountID,
		VisitorName:       parties.visitorName,
		ScheduledDate:     appt.ScheduledDate.Format(domain.DateLayout),
		ScheduledTime:     appt.ScheduledTime,
		ScheduledAt:       s.startsAt(appt),
		ShowNotification:  showNotification,
	})
}

func (s *Service) publishChanged(ctx context.Context, tenantID, id uuid.UUID, change string) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.AppointmentChanged{
		BaseEvent:     events.NewBaseEvent(),
		TenantID:      tenantID,
		AppointmentID: id,
		Change:        change,
	})
}

func (s *Service) wakeOutbox() {
	if s.waker != nil {
		s.waker.Wake()
	}
}

func (s *Service) startsAt(appt *domain.Appointment) time.Time {
	t, err := appt.StartsAt(s.location)
	if err != nil {
		return time.Time{}
	}
	return t
}

// scheduleReminder plans the visitor reminder of an approved appointment.
// Failures are logged; a missing reminder never fails the operation.
func (s *Service) scheduleReminder(ctx context.Context, appt *domain.Appointment) {
	if s.reminderScheduler == nil || appt.Status != domain.StatusApproved || appt.ReminderSent {
		return
	}

	start := s.startsAt(appt)
	if start.IsZero() {
		return
	}
	runAt := start.Add(-s.reminderLead)
	if !runAt.After(s.now()) {
		return
	}

	err := s.reminderScheduler.ScheduleAppointmentReminder(ctx, scheduler.AppointmentReminderPayload{
		AppointmentID: appt.ID.String(),
		TenantID:      appt.TenantID.String(),
		ScheduledAt:   start,
	}, runAt)
	if err != nil {
		s.log.Warn("failed to schedule appointment reminder", "appointmentId", appt.ID, "error", err)
	}
}
