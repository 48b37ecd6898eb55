package service

import (
	"context"
	"strings"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/appointments/transport"
	"visitor_backend/internal/approval"
	"visitor_backend/internal/events"
	"visitor_backend/internal/notification/outbox"
	"visitor_backend/platform/apperr"
	"visitor_backend/platform/db"
	"visitor_backend/platform/phone"
	"visitor_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	defaultDurationMinutes = 60
	msgNotYourAppointment  = "not authorized to access this appointment"
	msgNoEmployeeRecord    = "no employee record is linked to this account"
	msgLinkOnlyPending     = "Only pending appointments have approval links"
	msgInvalidSchedule     = "scheduledDate and scheduledTime must be a valid date and HH:MM time"
)

// Create books an appointment on behalf of an admin or employee.
func (s *Service) Create(ctx context.Context, caller domain.Caller, req transport.CreateAppointmentRequest) (*transport.CreateAppointmentResponse, error) {
	appt, err := s.draft(caller, req.EmployeeID, req.Purpose, req.ScheduledDate, req.ScheduledTime, req.Duration)
	if err != nil {
		return nil, err
	}
	appt.MeetingRoom = sanitize.TextPtr(nilIfEmpty(req.MeetingRoom))
	appt.Notes = sanitize.TextPtr(nilIfEmpty(req.Notes))
	appt.VehicleNumber = sanitize.TextPtr(nilIfEmpty(req.VehicleNumber))
	appt.VehicleType = sanitize.TextPtr(nilIfEmpty(req.VehicleType))

	return s.create(ctx, caller, appt, req.AutoApprove, func(ctx context.Context, q db.DBTX) (*domain.VisitorRef, error) {
		return s.visitors.FindByID(ctx, q, caller.TenantID, req.VisitorID)
	})
}

// CreatePublic books an appointment requested by a visitor through the public form.
// The visitor is matched by phone or email, or registered on the fly.
func (s *Service) CreatePublic(ctx context.Context, tenantID uuid.UUID, req transport.PublicBookingRequest) (*transport.PublicBookingResponse, error) {
	caller := domain.Caller{Actor: domain.ActorVisitor, TenantID: tenantID}

	phoneNumber := phone.NormalizeE164(req.VisitorPhone)
	if !phone.IsValid(phoneNumber) {
		return nil, apperr.Validation("visitorPhone is not a valid phone number")
	}

	appt, err := s.draft(caller, req.EmployeeID, req.Purpose, req.ScheduledDate, req.ScheduledTime, req.Duration)
	if err != nil {
		return nil, err
	}
	appt.Notes = sanitize.TextPtr(nilIfEmpty(req.Notes))

	visitor := domain.VisitorRef{
		Name:    sanitize.Text(req.VisitorName),
		Email:   strings.ToLower(strings.TrimSpace(req.VisitorEmail)),
		Phone:   phoneNumber,
		Company: sanitize.Text(req.VisitorCompany),
	}
	created, err := s.create(ctx, caller, appt, false, func(ctx context.Context, q db.DBTX) (*domain.VisitorRef, error) {
		return s.visitors.FindOrCreate(ctx, q, tenantID, visitor)
	})
	if err != nil {
		return nil, err
	}
	resp := transport.ToPublicBookingResponse(created.Appointment)
	return &resp, nil
}

func (s *Service) draft(caller domain.Caller, employeeID uuid.UUID, purpose, date, clock string, duration int) (*domain.Appointment, error) {
	scheduledDate, err := parseSchedule(date, clock)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		duration = defaultDurationMinutes
	}
	return &domain.Appointment{
		ID:            uuid.New(),
		TenantID:      caller.TenantID,
		EmployeeID:    employeeID,
		CreatedBy:     caller.AccountID,
		Purpose:       sanitize.Text(purpose),
		ScheduledDate: scheduledDate,
		ScheduledTime: clock,
		Duration:      duration,
	}, nil
}

func (s *Service) create(ctx context.Context, caller domain.Caller, appt *domain.Appointment, autoApprove bool, resolveVisitor func(context.Context, db.DBTX) (*domain.VisitorRef, error)) (*transport.CreateAppointmentResponse, error) {
	var (
		link    *string
		parties partyInfo
		view    domain.View
	)

	err := db.WithTransaction(ctx, s.txs, func(tx pgx.Tx) error {
		employee, err := s.activeEmployee(ctx, tx, caller.TenantID, appt.EmployeeID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, caller, employee.ID); err != nil {
			return err
		}

		visitor, err := resolveVisitor(ctx, tx)
		if err != nil {
			return err
		}
		if visitor == nil {
			return apperr.NotFound(domain.MsgVisitorNotFound)
		}
		appt.VisitorID = visitor.ID
		appt.Status = domain.InitialStatus(caller.Actor, autoApprove)

		if err := s.conflicts.Reserve(ctx, tx, appt.EmployeeID, appt.ScheduledDate, appt.ScheduledTime, nil); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, appt); err != nil {
			return err
		}

		intent := outbox.Intent{
			TenantID:      appt.TenantID,
			AppointmentID: appt.ID,
			Kind:          outbox.IntentCreated,
			Status:        string(appt.Status),
		}
		if appt.Status == domain.StatusPending {
			issued, err := s.links.Issue(ctx, tx, appt.TenantID, appt.ID)
			if err != nil {
				return err
			}
			link = &issued.Link
			intent.ApprovalLink = issued.Link
		}
		if _, err := s.intents.InsertIntent(ctx, tx, intent); err != nil {
			return err
		}

		parties, err = s.loadParties(ctx, tx, appt)
		view = domain.View{Appointment: *appt, Visitor: *visitor, Employee: *employee}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.wakeOutbox()
	s.publishCreated(ctx, caller.Actor, appt, parties)
	s.scheduleReminder(ctx, appt)

	return &transport.CreateAppointmentResponse{
		Appointment:  transport.ToViewResponse(view),
		ApprovalLink: link,
	}, nil
}

// transition describes one status-changing operation.
type transition struct {
	apply            func(appt *domain.Appointment, now time.Time) error
	markLinkUsed     bool
	notifyVisitor    bool
	showNotification bool
}

func approveTransition() transition {
	return transition{
		apply: func(appt *domain.Appointment, _ time.Time) error {
			if err := domain.EnsureCanApprove(appt.Status); err != nil {
				return err
			}
			appt.Status = domain.StatusApproved
			return nil
		},
		markLinkUsed:     true,
		notifyVisitor:    true,
		showNotification: true,
	}
}

func rejectTransition() transition {
	return transition{
		apply: func(appt *domain.Appointment, _ time.Time) error {
			if err := domain.EnsureCanReject(appt.Status); err != nil {
				return err
			}
			appt.Status = domain.StatusRejected
			return nil
		},
		markLinkUsed:     true,
		notifyVisitor:    true,
		showNotification: true,
	}
}

// Approve confirms a pending appointment. The slot is not re-checked here; the
// conflict rule is enforced when appointments are created or rescheduled.
func (s *Service) Approve(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.AppointmentResponse, error) {
	return s.transition(ctx, caller, id, approveTransition())
}

// Reject declines a pending appointment.
func (s *Service) Reject(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.AppointmentResponse, error) {
	return s.transition(ctx, caller, id, rejectTransition())
}

// CheckIn records the visitor's arrival, which also approves the appointment.
func (s *Service) CheckIn(ctx context.Context, caller domain.Caller, req transport.CheckInRequest) (*transport.AppointmentResponse, error) {
	details := domain.CheckInDetails{
		BadgeNumber:       sanitize.TextPtr(nilIfEmpty(req.BadgeNumber)),
		SecurityClearance: req.SecurityClearance,
		SecurityNotes:     sanitize.TextPtr(nilIfEmpty(req.SecurityNotes)),
	}
	return s.transition(ctx, caller, req.AppointmentID, transition{
		apply: func(appt *domain.Appointment, now time.Time) error {
			return appt.CheckIn(now, details)
		},
		markLinkUsed: true,
	})
}

// CheckOut closes the visit whatever the current status is.
func (s *Service) CheckOut(ctx context.Context, caller domain.Caller, req transport.CheckOutRequest) (*transport.AppointmentResponse, error) {
	notes := sanitize.TextPtr(nilIfEmpty(req.Notes))
	return s.transition(ctx, caller, req.AppointmentID, transition{
		apply: func(appt *domain.Appointment, now time.Time) error {
			appt.CheckOut(now, notes)
			return nil
		},
	})
}

// Cancel rejects a pending or approved appointment.
func (s *Service) Cancel(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.AppointmentResponse, error) {
	return s.transition(ctx, caller, id, transition{
		apply: func(appt *domain.Appointment, _ time.Time) error {
			if err := domain.EnsureCanCancel(appt.Status); err != nil {
				return err
			}
			appt.Status = domain.StatusRejected
			return nil
		},
		notifyVisitor:    true,
		showNotification: true,
	})
}

func (s *Service) transition(ctx context.Context, caller domain.Caller, id uuid.UUID, t transition) (*transport.AppointmentResponse, error) {
	var (
		appt      *domain.Appointment
		oldStatus domain.Status
		parties   partyInfo
	)

	err := db.WithTransaction(ctx, s.txs, func(tx pgx.Tx) error {
		var err error
		appt, err = s.repo.GetForUpdate(ctx, tx, caller.TenantID, id, false)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, caller, appt.EmployeeID); err != nil {
			return err
		}

		oldStatus = appt.Status
		parties, err = s.applyTransition(ctx, tx, appt, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, caller.Actor, appt, oldStatus, parties, t)
	resp := transport.ToResponse(*appt)
	return &resp, nil
}

// applyTransition runs the write half of a transition inside tx on a locked row.
func (s *Service) applyTransition(ctx context.Context, tx db.DBTX, appt *domain.Appointment, t transition) (partyInfo, error) {
	if err := t.apply(appt, s.now()); err != nil {
		return partyInfo{}, err
	}
	if err := s.repo.Save(ctx, tx, appt); err != nil {
		return partyInfo{}, err
	}
	if t.markLinkUsed {
		if err := s.links.MarkUsed(ctx, tx, appt.ID); err != nil {
			return partyInfo{}, err
		}
	}
	if t.notifyVisitor {
		_, err := s.intents.InsertIntent(ctx, tx, outbox.Intent{
			TenantID:      appt.TenantID,
			AppointmentID: appt.ID,
			Kind:          outbox.IntentStatusChanged,
			Status:        string(appt.Status),
		})
		if err != nil {
			return partyInfo{}, err
		}
	}
	return s.loadParties(ctx, tx, appt)
}

func (s *Service) afterTransition(ctx context.Context, actor domain.Actor, appt *domain.Appointment, oldStatus domain.Status, parties partyInfo, t transition) {
	if t.notifyVisitor {
		s.wakeOutbox()
	}
	s.publishStatusChanged(ctx, actor, appt, oldStatus, parties, t.showNotification)
	s.scheduleReminder(ctx, appt)
}

// DecideFromLink applies a decision taken through a public approval link.
// It runs inside the registry's transaction, after the token has been claimed.
func (s *Service) DecideFromLink(ctx context.Context, tx db.DBTX, link approval.Link, decision approval.Decision) (func(context.Context), error) {
	appt, err := s.repo.GetForUpdate(ctx, tx, link.TenantID, link.AppointmentID, false)
	if err != nil {
		return nil, err
	}
	if appt.Status != domain.StatusPending {
		return nil, apperr.BadRequest(approval.MsgStatusLocked)
	}

	t := approveTransition()
	if decision == approval.DecisionRejected {
		t = rejectTransition()
	}
	// The registry already claimed the link.
	t.markLinkUsed = false

	oldStatus := appt.Status
	parties, err := s.applyTransition(ctx, tx, appt, t)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) {
		s.afterTransition(ctx, domain.ActorVisitor, appt, oldStatus, parties, t)
	}, nil
}

// Update edits an appointment. Moving it to another employee, date or time re-validates the
// employee and re-runs the slot check.
func (s *Service) Update(ctx context.Context, caller domain.Caller, id uuid.UUID, req transport.UpdateAppointmentRequest) (*transport.AppointmentResponse, error) {
	var (
		appt        *domain.Appointment
		rescheduled bool
	)

	err := db.WithTransaction(ctx, s.txs, func(tx pgx.Tx) error {
		var err error
		appt, err = s.repo.GetForUpdate(ctx, tx, caller.TenantID, id, false)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, caller, appt.EmployeeID); err != nil {
			return err
		}

		rescheduled, err = applyUpdate(appt, req)
		if err != nil {
			return err
		}
		if rescheduled {
			employee, err := s.activeEmployee(ctx, tx, caller.TenantID, appt.EmployeeID)
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, tx, caller, employee.ID); err != nil {
				return err
			}
			if err := s.conflicts.Reserve(ctx, tx, appt.EmployeeID, appt.ScheduledDate, appt.ScheduledTime, &appt.ID); err != nil {
				return err
			}
			appt.ReminderSent = false
		}
		return s.repo.Save(ctx, tx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.publishChanged(ctx, appt.TenantID, appt.ID, events.ChangeUpdated)
	if rescheduled {
		s.scheduleReminder(ctx, appt)
	}
	resp := transport.ToResponse(*appt)
	return &resp, nil
}

// applyUpdate copies the set fields of req onto appt and reports whether the slot moved.
func applyUpdate(appt *domain.Appointment, req transport.UpdateAppointmentRequest) (bool, error) {
	rescheduled := false

	if req.EmployeeID != nil && *req.EmployeeID != appt.EmployeeID {
		appt.EmployeeID = *req.EmployeeID
		rescheduled = true
	}
	if req.ScheduledDate != nil || req.ScheduledTime != nil {
		date := appt.ScheduledDate.Format(domain.DateLayout)
		clock := appt.ScheduledTime
		if req.ScheduledDate != nil {
			date = *req.ScheduledDate
		}
		if req.ScheduledTime != nil {
			clock = *req.ScheduledTime
		}
		parsed, err := parseSchedule(date, clock)
		if err != nil {
			return false, err
		}
		if !parsed.Equal(appt.ScheduledDate) || clock != appt.ScheduledTime {
			rescheduled = true
		}
		appt.ScheduledDate = parsed
		appt.ScheduledTime = clock
	}
	if req.Purpose != nil {
		appt.Purpose = sanitize.Text(*req.Purpose)
	}
	if req.Duration != nil {
		appt.Duration = *req.Duration
	}
	if req.MeetingRoom != nil {
		appt.MeetingRoom = sanitize.TextPtr(nilIfEmpty(req.MeetingRoom))
	}
	if req.Notes != nil {
		appt.Notes = sanitize.TextPtr(nilIfEmpty(req.Notes))
	}
	if req.VehicleNumber != nil {
		appt.VehicleNumber = sanitize.TextPtr(nilIfEmpty(req.VehicleNumber))
	}
	if req.VehicleType != nil {
		appt.VehicleType = sanitize.TextPtr(nilIfEmpty(req.VehicleType))
	}
	return rescheduled, nil
}

// SoftDelete hides an appointment without touching its status.
func (s *Service) SoftDelete(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	err := db.WithTransaction(ctx, s.txs, func(tx pgx.Tx) error {
		appt, err := s.repo.GetForUpdate(ctx, tx, caller.TenantID, id, false)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, caller, appt.EmployeeID); err != nil {
			return err
		}
		return s.repo.SetDeleted(ctx, tx, caller.TenantID, id, true, caller.AccountID)
	})
	if err != nil {
		return err
	}
	s.publishChanged(ctx, caller.TenantID, id, events.ChangeDeleted)
	return nil
}

// Restore brings back a soft-deleted appointment. An approved appointment only comes back
// when its slot is still free.
func (s *Service) Restore(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	err := db.WithTransaction(ctx, s.txs, func(tx pgx.Tx) error {
		appt, err := s.repo.GetForUpdate(ctx, tx, caller.TenantID, id, true)
		if err != nil {
			return err
		}
		if !appt.IsDeleted {
			return apperr.NotFound(domain.MsgAppointmentNotFound)
		}
		if err := s.authorize(ctx, tx, caller, appt.EmployeeID); err != nil {
			return err
		}
		if appt.Status == domain.StatusApproved {
			if err := s.conflicts.Reserve(ctx, tx, appt.EmployeeID, appt.ScheduledDate, appt.ScheduledTime, &appt.ID); err != nil {
				return err
			}
		}
		return s.repo.SetDeleted(ctx, tx, caller.TenantID, id, false, nil)
	})
	if err != nil {
		return err
	}
	s.publishChanged(ctx, caller.TenantID, id, events.ChangeRestored)
	return nil
}

// BulkUpdate applies one lifecycle operation to each id in its own transaction.
func (s *Service) BulkUpdate(ctx context.Context, caller domain.Caller, req transport.BulkUpdateRequest) (*transport.BulkUpdateResponse, error) {
	var op func(id uuid.UUID) error
	switch req.Status {
	case domain.StatusApproved:
		op = func(id uuid.UUID) error {
			_, err := s.Approve(ctx, caller, id)
			return err
		}
	case domain.StatusRejected:
		op = func(id uuid.UUID) error {
			_, err := s.Cancel(ctx, caller, id)
			return err
		}
	case domain.StatusCompleted:
		op = func(id uuid.UUID) error {
			_, err := s.CheckOut(ctx, caller, transport.CheckOutRequest{AppointmentID: id})
			return err
		}
	default:
		return nil, apperr.BadRequest("status must be approved, rejected or completed")
	}

	result := &transport.BulkUpdateResponse{
		Updated: make([]uuid.UUID, 0, len(req.IDs)),
		Failed:  make([]transport.BulkFailure, 0),
	}
	seen := make(map[uuid.UUID]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if err := op(id); err != nil {
			result.Failed = append(result.Failed, transport.BulkFailure{ID: id, Message: failureMessage(err)})
			continue
		}
		result.Updated = append(result.Updated, id)
	}
	return result, nil
}

// IssueApprovalLink returns the approval link of a pending appointment, creating it if needed.
func (s *Service) IssueApprovalLink(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.ApprovalLinkResponse, error) {
	var issued approval.Issued
	err := db.WithTransaction(ctx, s.txs, func(tx pgx.Tx) error {
		appt, err := s.repo.GetForUpdate(ctx, tx, caller.TenantID, id, false)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, caller, appt.EmployeeID); err != nil {
			return err
		}
		if appt.Status != domain.StatusPending {
			return apperr.BadRequest(msgLinkOnlyPending)
		}
		issued, err = s.links.Issue(ctx, tx, appt.TenantID, appt.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &transport.ApprovalLinkResponse{Token: issued.Token, Link: issued.Link}, nil
}

// activeEmployee loads an employee that can host new appointments.
func (s *Service) activeEmployee(ctx context.Context, q db.DBTX, tenantID, employeeID uuid.UUID) (*domain.EmployeeRef, error) {
	employee, err := s.employees.FindByID(ctx, q, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil || employee.IsDeleted {
		return nil, apperr.NotFound(domain.MsgEmployeeNotFound)
	}
	if !employee.Active {
		return nil, apperr.BadRequest(domain.MsgEmployeeInactive)
	}
	return employee, nil
}

// authorize limits employees to appointments they host. Admins and visitors pass.
func (s *Service) authorize(ctx context.Context, q db.DBTX, caller domain.Caller, employeeID uuid.UUID) error {
	if caller.Actor != domain.ActorEmployee {
		return nil
	}
	own, err := s.ownEmployeeID(ctx, q, caller)
	if err != nil {
		return err
	}
	if own != employeeID {
		return apperr.Forbidden(msgNotYourAppointment)
	}
	return nil
}

func (s *Service) ownEmployeeID(ctx context.Context, q db.DBTX, caller domain.Caller) (uuid.UUID, error) {
	if caller.AccountID == nil {
		return uuid.Nil, apperr.Forbidden(msgNoEmployeeRecord)
	}
	employee, err := s.employees.FindByAccount(ctx, q, caller.TenantID, *caller.AccountID)
	if err != nil {
		return uuid.Nil, err
	}
	if employee == nil || employee.IsDeleted {
		return uuid.Nil, apperr.Forbidden(msgNoEmployeeRecord)
	}
	return employee.ID, nil
}

func parseSchedule(date, clock string) (time.Time, error) {
	parsed, err := domain.ParseDate(date)
	if err != nil {
		return time.Time{}, apperr.Validation(msgInvalidSchedule)
	}
	if _, err := domain.StartsAt(parsed, clock, time.UTC); err != nil {
		return time.Time{}, apperr.Validation(msgInvalidSchedule)
	}
	return parsed, nil
}

func failureMessage(err error) string {
	if appErr, ok := apperr.As(err); ok && appErr.Kind != apperr.KindInternal && appErr.Kind != apperr.KindUnknown {
		return appErr.Message
	}
	return "Internal server error"
}

func nilIfEmpty(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
