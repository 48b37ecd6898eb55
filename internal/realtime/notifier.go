package realtime

import (
	"context"
	"fmt"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/events"
	"visitor_backend/internal/notification/inapp"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
)

// Recorder persists in-app notifications. It must not fail the caller.
type Recorder interface {
	Record(ctx context.Context, p inapp.RecordParams)
}

// AppointmentPayload is the data event sent to audience rooms.
type AppointmentPayload struct {
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	Actor         string    `json:"actor"`
	Status        string    `json:"status"`
	OldStatus     string    `json:"oldStatus,omitempty"`
	VisitorName   string    `json:"visitorName"`
	ScheduledDate string    `json:"scheduledDate"`
	ScheduledTime string    `json:"scheduledTime"`
}

// RefreshPayload tells dashboards to re-fetch.
type RefreshPayload struct {
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	Reason        string    `json:"reason"`
}

// ToastPayload is the user-visible popup.
type ToastPayload struct {
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	AppointmentID uuid.UUID `json:"appointmentId"`
}

type emission struct {
	kind              Kind
	actor             domain.Actor
	adminID           uuid.UUID
	employeeAccountID *uuid.UUID
	showNotification  bool
	payload           AppointmentPayload
	title             string
	message           string
}

// Notifier turns committed appointment events into realtime emissions.
type Notifier struct {
	transport Transport
	recorder  Recorder
	log       *logger.Logger
}

// NewNotifier creates the notifier. recorder may be nil.
func NewNotifier(transport Transport, recorder Recorder, log *logger.Logger) *Notifier {
	return &Notifier{transport: transport, recorder: recorder, log: log}
}

func (n *Notifier) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AppointmentCreated{}.EventName(), n)
	bus.Subscribe(events.AppointmentStatusChanged{}.EventName(), n)
	bus.Subscribe(events.AppointmentChanged{}.EventName(), n)
}

// Handle never returns an error; emission failures are logged.
func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.AppointmentCreated:
		n.emit(ctx, emission{
			kind:              KindCreated,
			actor:             domain.Actor(e.Actor),
			adminID:           e.AdminAccountID,
			employeeAccountID: e.EmployeeAccountID,
			showNotification:  true,
			payload: AppointmentPayload{
				TenantID:      e.TenantID,
				AppointmentID: e.AppointmentID,
				Actor:         e.Actor,
				Status:        e.Status,
				VisitorName:   e.VisitorName,
				ScheduledDate: e.ScheduledDate,
				ScheduledTime: e.ScheduledTime,
			},
			title:   "New appointment",
			message: fmt.Sprintf("%s on %s at %s", e.VisitorName, e.ScheduledDate, e.ScheduledTime),
		})
	case events.AppointmentStatusChanged:
		n.emit(ctx, emission{
			kind:              KindStatusChange,
			actor:             domain.Actor(e.Actor),
			adminID:           e.AdminAccountID,
			employeeAccountID: e.EmployeeAccountID,
			showNotification:  e.ShowNotification,
			payload: AppointmentPayload{
				TenantID:      e.TenantID,
				AppointmentID: e.AppointmentID,
				Actor:         e.Actor,
				Status:        e.NewStatus,
				OldStatus:     e.OldStatus,
				VisitorName:   e.VisitorName,
				ScheduledDate: e.ScheduledDate,
				ScheduledTime: e.ScheduledTime,
			},
			title:   "Appointment " + e.NewStatus,
			message: fmt.Sprintf("%s on %s at %s is now %s", e.VisitorName, e.ScheduledDate, e.ScheduledTime, e.NewStatus),
		})
	case events.AppointmentChanged:
		n.refresh(ctx, RefreshPayload{TenantID: e.TenantID, AppointmentID: e.AppointmentID, Reason: e.Change})
	default:
		n.log.Warn("unhandled event type", "event", event.EventName())
	}
	return nil
}

func (n *Notifier) emit(ctx context.Context, em emission) {
	for _, accountID := range Audience(em.kind, em.actor, em.adminID, em.employeeAccountID) {
		room := AccountRoom(accountID)
		n.send(ctx, room, EventName(em.kind), em.payload)

		if !em.showNotification {
			continue
		}
		if n.recorder != nil {
			apptID := em.payload.AppointmentID
			n.recorder.Record(ctx, inapp.RecordParams{
				TenantID:      em.payload.TenantID,
				UserID:        accountID,
				Type:          string(em.kind),
				Title:         em.title,
				Message:       em.message,
				AppointmentID: &apptID,
				Metadata:      map[string]any{"status": em.payload.Status, "actor": em.payload.Actor},
			})
		}
		n.send(ctx, room, EventNotification, ToastPayload{
			Type:          string(em.kind),
			Title:         em.title,
			Message:       em.message,
			AppointmentID: em.payload.AppointmentID,
		})
	}

	n.refresh(ctx, RefreshPayload{TenantID: em.payload.TenantID, AppointmentID: em.payload.AppointmentID, Reason: string(em.kind)})
}

func (n *Notifier) refresh(ctx context.Context, payload RefreshPayload) {
	if err := n.transport.EmitBroadcast(ctx, payload.TenantID, EventRefresh, payload); err != nil {
		n.log.Warn("realtime broadcast failed", "event", EventRefresh, "error", err)
	}
}

func (n *Notifier) send(ctx context.Context, room, event string, payload any) {
	if err := n.transport.EmitToRoom(ctx, room, event, payload); err != nil {
		n.log.Warn("realtime emit failed", "room", room, "event", event, "error", err)
	}
}

var _ events.Handler = (*Notifier)(nil)
