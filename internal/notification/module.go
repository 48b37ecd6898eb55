// Package notification delivers appointment notifications from the outbox and serves the in-app inbox.
package notification

import (
	"context"
	"fmt"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/email"
	"visitor_backend/internal/events"
	apphttp "visitor_backend/internal/http"
	"visitor_backend/internal/notification/dispatcher"
	notifhandler "visitor_backend/internal/notification/handler"
	"visitor_backend/internal/notification/inapp"
	"visitor_backend/internal/notification/messages"
	"visitor_backend/internal/notification/outbox"
	"visitor_backend/internal/settings"
	"visitor_backend/internal/sms"
	"visitor_backend/internal/whatsapp"
	"visitor_backend/platform/config"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const invalidOutboxPayloadPrefix = "invalid outbox payload: "

// OutboxStore is the slice of the outbox repository the handler needs.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// Deliverer sends the notifications of one intent.
type Deliverer interface {
	Dispatch(ctx context.Context, intent outbox.Intent) domain.DeliveryFlags
	DispatchReminder(ctx context.Context, tenantID, appointmentID uuid.UUID, scheduledAt time.Time) domain.DeliveryFlags
}

// Settings is what the channels read from the tenant settings provider.
type Settings interface {
	dispatcher.PreferencesSource
	dispatcher.SMTPSource
	dispatcher.WhatsAppSource
}

// Dependencies are the collaborators owned by other modules.
type Dependencies struct {
	Appointments dispatcher.Store
	Settings     Settings
	Sender       email.Sender
	WhatsApp     *whatsapp.Client
	SMS          *sms.Client
}

type Module struct {
	outbox       OutboxStore
	deliverer    Deliverer
	log          *logger.Logger
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
}

// New creates the notification module with its dispatcher and channels.
func New(pool *pgxpool.Pool, cfg config.NotificationConfig, deps Dependencies, log *logger.Logger) (*Module, error) {
	catalog, err := messages.Load()
	if err != nil {
		return nil, fmt.Errorf("load message templates: %w", err)
	}

	channels := []dispatcher.Channel{
		dispatcher.NewEmailChannel(deps.Sender, deps.Settings),
		dispatcher.NewWhatsAppChannel(deps.WhatsApp, deps.Settings, catalog, log),
		dispatcher.NewSMSChannel(deps.SMS, catalog),
	}
	d := dispatcher.New(deps.Appointments, deps.Settings, channels, cfg.GetChannelTimeout(), cfg.GetAppLocation(), log)

	inAppSvc := inapp.NewService(inapp.NewRepository(pool), log)

	return &Module{
		outbox:       outbox.New(pool),
		deliverer:    d,
		log:          log,
		inAppService: inAppSvc,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc),
	}, nil
}

func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the in-app inbox under /api/v1/notifications.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.inAppHandler == nil {
		return
	}

	notifications := ctx.Protected.Group("/notifications")
	m.inAppHandler.RegisterRoutes(notifications)
}

// InAppService exposes the in-app notification service for the realtime notifier.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)
	bus.Subscribe(events.AppointmentReminderDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	case events.AppointmentReminderDue:
		return m.handleAppointmentReminderDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	m.log.Info("processing outbox due event", "outboxId", e.OutboxID, "tenantId", e.TenantID)
	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		}
		return err
	}

	if rec.Kind != outbox.KindAppointment {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	intent, err := rec.Intent()
	if err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		m.log.Warn("outbox record has an invalid payload", "outboxId", rec.ID.String(), "error", err)
		return nil
	}

	flags := m.deliverer.Dispatch(ctx, intent)

	// Delivery outcomes live in the appointment flags; the record itself is done either way.
	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		m.log.Error("failed to mark outbox record succeeded", "outboxId", rec.ID.String(), "error", err)
		return err
	}
	m.log.Info("outbox record processed",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"appointmentId", intent.AppointmentID,
		"emailSent", boolValue(flags.Email),
		"whatsappSent", boolValue(flags.WhatsApp),
		"smsSent", boolValue(flags.SMS),
	)
	return nil
}

func (m *Module) handleAppointmentReminderDue(ctx context.Context, e events.AppointmentReminderDue) error {
	flags := m.deliverer.DispatchReminder(ctx, e.TenantID, e.AppointmentID, e.ScheduledAt)
	if flags.Reminder != nil {
		m.log.Info("appointment reminder processed", "appointmentId", e.AppointmentID, "reminderSent", *flags.Reminder)
	}
	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		m.log.Debug("outbox record already finished; skipping", "outboxId", rec.ID.String(), "status", rec.Status)
		return rec, false, nil
	}
	claimed, err := m.outbox.MarkProcessing(ctx, rec.ID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if !claimed {
		m.log.Debug("outbox record claimed elsewhere; skipping", "outboxId", rec.ID.String())
		return rec, false, nil
	}
	m.log.Debug("outbox record marked processing", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return rec, true, nil
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec outbox.Record) {
	_ = m.outbox.MarkFailed(ctx, rec.ID, fmt.Sprintf("unsupported outbox kind %q", rec.Kind))
	m.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}

func boolValue(b *bool) any {
	if b == nil {
		return "skipped"
	}
	return *b
}

var (
	_ apphttp.Module = (*Module)(nil)
	_ events.Handler = (*Module)(nil)
	_ Settings       = (*settings.Provider)(nil)
	_ Deliverer      = (*dispatcher.Dispatcher)(nil)
)
