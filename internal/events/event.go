// Package events defines the appointment events modules exchange over the platform bus.
package events

import (
	"time"

	"visitor_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event     = events.Event
	Bus       = events.Bus
	Handler   = events.Handler
	BaseEvent = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Appointment Domain Events
// =============================================================================

// AppointmentCreated is published after an appointment has been committed.
type AppointmentCreated struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	EmployeeID    uuid.UUID `json:"employeeId"`
	VisitorID     uuid.UUID `json:"visitorId"`
	Status        string    `json:"status"`
	Actor         string    `json:"actor"`
	// AdminAccountID and EmployeeAccountID are the realtime audience candidates.
	AdminAccountID    uuid.UUID  `json:"adminAccountId"`
	EmployeeAccountID *uuid.UUID `json:"employeeAccountId,omitempty"`
	VisitorName       string     `json:"visitorName"`
	ScheduledDate     string     `json:"scheduledDate"`
	ScheduledTime     string     `json:"scheduledTime"`
	ScheduledAt       time.Time  `json:"scheduledAt"`
}

func (e AppointmentCreated) EventName() string { return "appointments.appointment.created" }

// AppointmentStatusChanged is published after a lifecycle transition has been committed.
type AppointmentStatusChanged struct {
	BaseEvent
	TenantID          uuid.UUID  `json:"tenantId"`
	AppointmentID     uuid.UUID  `json:"appointmentId"`
	OldStatus         string     `json:"oldStatus"`
	NewStatus         string     `json:"newStatus"`
	Actor             string     `json:"actor"`
	AdminAccountID    uuid.UUID  `json:"adminAccountId"`
	EmployeeAccountID *uuid.UUID `json:"employeeAccountId,omitempty"`
	VisitorName       string     `json:"visitorName"`
	ScheduledDate     string     `json:"scheduledDate"`
	ScheduledTime     string     `json:"scheduledTime"`
	ScheduledAt       time.Time  `json:"scheduledAt"`
	// ShowNotification is false for check-in and check-out, which only refresh views.
	ShowNotification bool `json:"showNotification"`
}

func (e AppointmentStatusChanged) EventName() string {
	return "appointments.appointment.status_changed"
}

// Change kinds carried by AppointmentChanged.
const (
	ChangeUpdated  = "updated"
	ChangeDeleted  = "deleted"
	ChangeRestored = "restored"
)

// AppointmentChanged is published for edits that do not move the status.
// Subscribers only refresh their views.
type AppointmentChanged struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	Change        string    `json:"change"`
}

func (e AppointmentChanged) EventName() string { return "appointments.appointment.changed" }

// =============================================================================
// Scheduler Events
// =============================================================================

// NotificationOutboxDue is published by the worker when an outbox record is ready to deliver.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
	TenantID uuid.UUID `json:"tenantId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }

// AppointmentReminderDue is published by the worker when a reminder task fires.
type AppointmentReminderDue struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	// ScheduledAt is the start the reminder was planned for.
	ScheduledAt time.Time `json:"scheduledAt"`
}

func (e AppointmentReminderDue) EventName() string { return "appointments.reminder.due" }
