// Package domain holds the appointment state machine and the value types shared by the
// appointments service, repository and the modules that read appointments.
// Nothing in this package touches the database or the network.
package domain

import (
	"fmt"
	"time"

	"visitor_backend/platform/apperr"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage layout of scheduled dates.
const DateLayout = "2006-01-02"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Actor is the kind of caller behind a lifecycle operation. It drives realtime routing.
type Actor string

const (
	ActorAdmin    Actor = "admin"
	ActorEmployee Actor = "employee"
	ActorVisitor  Actor = "visitor"
)

// Caller identifies who performs an operation.
type Caller struct {
	Actor     Actor
	AccountID *uuid.UUID
	TenantID  uuid.UUID
}

// Appointment is a scheduled meeting between a visitor and an employee.
type Appointment struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	EmployeeID        uuid.UUID
	VisitorID         uuid.UUID
	CreatedBy         *uuid.UUID
	Purpose           string
	ScheduledDate     time.Time
	ScheduledTime     string
	Duration          int
	MeetingRoom       *string
	Notes             *string
	VehicleNumber     *string
	VehicleType       *string
	Status            Status
	CheckInTime       *time.Time
	CheckOutTime      *time.Time
	ActualDuration    *int
	BadgeIssued       bool
	BadgeNumber       *string
	SecurityClearance bool
	SecurityNotes     *string
	EmailSent         bool
	WhatsAppSent      bool
	SMSSent           bool
	ReminderSent      bool
	IsDeleted         bool
	DeletedAt         *time.Time
	DeletedBy         *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EmployeeRef is the slice of an employee the lifecycle needs.
type EmployeeRef struct {
	ID         uuid.UUID
	AccountID  *uuid.UUID
	Name       string
	Email      string
	Phone      string
	Department string
	Active     bool
	IsDeleted  bool
}

// VisitorRef is the slice of a visitor the lifecycle needs.
type VisitorRef struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Phone   string
	Company string
}

// View is an appointment joined with its visitor and employee, as returned by queries.
type View struct {
	Appointment
	Visitor  VisitorRef
	Employee EmployeeRef
}

const (
	MsgOnlyPendingApprove  = "Only pending appointments can be approved"
	MsgOnlyPendingReject   = "Only pending appointments can be rejected"
	MsgOnlyPendingCheckIn  = "Only pending appointments can be checked in"
	MsgCancelCompleted     = "Cannot cancel a completed appointment"
	MsgAlreadyCancelled    = "Appointment is already cancelled"
	MsgSlotTaken           = "Employee already has an approved appointment at this time"
	MsgAppointmentNotFound = "Appointment not found"
	MsgEmployeeNotFound    = "Employee not found"
	MsgEmployeeInactive    = "Employee is not active"
	MsgVisitorNotFound     = "Visitor not found"
)

// EnsureCanApprove allows approval only from pending.
func EnsureCanApprove(s Status) error {
	if s != StatusPending {
		return apperr.BadRequest(MsgOnlyPendingApprove)
	}
	return nil
}

// EnsureCanReject allows rejection only from pending.
func EnsureCanReject(s Status) error {
	if s != StatusPending {
		return apperr.BadRequest(MsgOnlyPendingReject)
	}
	return nil
}

// EnsureCanCheckIn allows check-in only from pending. Checking in approves the visit.
func EnsureCanCheckIn(s Status) error {
	if s != StatusPending {
		return apperr.BadRequest(MsgOnlyPendingCheckIn)
	}
	return nil
}

// EnsureCanCancel rejects cancelling completed or already rejected appointments.
func EnsureCanCancel(s Status) error {
	if !s.Terminal() {
		return nil
	}
	if s == StatusCompleted {
		return apperr.BadRequest(MsgCancelCompleted)
	}
	return apperr.BadRequest(MsgAlreadyCancelled)
}

// InitialStatus is approved only when an admin asks for auto-approval.
func InitialStatus(actor Actor, autoApprove bool) Status {
	if actor == ActorAdmin && autoApprove {
		return StatusApproved
	}
	return StatusPending
}

// ActualDurationMinutes is the whole minutes between check-in and check-out,
// or nil when the visitor never checked in.
func ActualDurationMinutes(checkIn *time.Time, checkOut time.Time) *int {
	if checkIn == nil {
		return nil
	}
	minutes := int(checkOut.Sub(*checkIn) / time.Minute)
	return &minutes
}

// CheckInDetails are the optional security desk fields recorded at check-in.
type CheckInDetails struct {
	BadgeNumber       *string
	SecurityClearance *bool
	SecurityNotes     *string
}

// CheckIn moves a pending appointment to approved and records the visit start.
func (a *Appointment) CheckIn(now time.Time, details CheckInDetails) error {
	if err := EnsureCanCheckIn(a.Status); err != nil {
		return err
	}
	a.Status = StatusApproved
	a.CheckInTime = &now
	if details.BadgeNumber != nil && *details.BadgeNumber != "" {
		a.BadgeIssued = true
		a.BadgeNumber = details.BadgeNumber
	}
	if details.SecurityClearance != nil {
		a.SecurityClearance = *details.SecurityClearance
	}
	if details.SecurityNotes != nil {
		a.SecurityNotes = details.SecurityNotes
	}
	return nil
}

// CheckOut completes the appointment. There is no status precondition.
func (a *Appointment) CheckOut(now time.Time, notes *string) {
	a.Status = StatusCompleted
	a.CheckOutTime = &now
	a.ActualDuration = ActualDurationMinutes(a.CheckInTime, now)
	if notes != nil && *notes != "" {
		a.Notes = notes
	}
}

// SlotKey identifies an employee's time slot for advisory locking.
func SlotKey(employeeID uuid.UUID, date time.Time, clock string) string {
	return fmt.Sprintf("appointment-slot:%s:%s:%s", employeeID, date.Format(DateLayout), clock)
}

// StartsAt combines the scheduled date and clock time in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return StartsAt(a.ScheduledDate, a.ScheduledTime, loc)
}

// StartsAt combines a calendar date and an "HH:MM" clock time in loc.
func StartsAt(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" 15:04", date.Format(DateLayout)+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid scheduled time %q: %w", clock, err)
	}
	return t, nil
}

// ParseDate parses a "2006-01-02" date as a UTC calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// Stats summarises a tenant's appointments.
type Stats struct {
	Total              int
	Pending            int
	Approved           int
	Rejected           int
	Completed          int
	Today              int
	CheckedIn          int
	AvgDurationMinutes float64
}

// DeliveryFlags are per-channel outcomes. A nil field means the channel was not attempted.
type DeliveryFlags struct {
	Email    *bool
	WhatsApp *bool
	SMS      *bool
	Reminder *bool
}

// Empty reports whether no flag is set.
func (f DeliveryFlags) Empty() bool {
	return f.Email == nil && f.WhatsApp == nil && f.SMS == nil && f.Reminder == nil
}
