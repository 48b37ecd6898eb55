// Package dispatcher fans appointment notifications out to the enabled channels
// and records which channels delivered.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/email"
	"visitor_backend/internal/notification/outbox"
	"visitor_backend/internal/settings"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultAttemptTimeout = 15 * time.Second

// Store reads the appointment view and records delivery outcomes.
type Store interface {
	GetView(ctx context.Context, tenantID, id uuid.UUID, includeDeleted bool) (*domain.View, error)
	UpdateDeliveryFlags(ctx context.Context, tenantID, id uuid.UUID, flags domain.DeliveryFlags) error
}

// PreferencesSource resolves a tenant's notification preferences.
type PreferencesSource interface {
	Preferences(ctx context.Context, tenantID uuid.UUID) (settings.Preferences, error)
}

type Dispatcher struct {
	store    Store
	prefs    PreferencesSource
	channels []Channel
	timeout  time.Duration
	location *time.Location
	log      *logger.Logger
}

// New creates a dispatcher. timeout bounds each channel attempt; loc is where scheduled times live.
func New(store Store, prefs PreferencesSource, channels []Channel, timeout time.Duration, loc *time.Location, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{store: store, prefs: prefs, channels: channels, timeout: timeout, location: loc, log: log}
}

type delivery struct {
	to       Recipient
	category settings.Category
	template email.Template
	content  Content
}

type attempt struct {
	channel  Channel
	delivery delivery
	err      error
}

// Dispatch delivers the notifications of one intent. It never fails; outcomes end up in the
// appointment's delivery flags and the log.
//
// Each channel is attempted at most once per recipient of the transition. A created
// appointment has two recipients, the host and the visitor, so one email channel can be
// attempted twice for it: once per address, never twice for the same address.
func (d *Dispatcher) Dispatch(ctx context.Context, intent outbox.Intent) domain.DeliveryFlags {
	view, err := d.store.GetView(ctx, intent.TenantID, intent.AppointmentID, false)
	if err != nil {
		d.log.Warn("notification skipped: appointment not loadable", "appointmentId", intent.AppointmentID, "error", err)
		return domain.DeliveryFlags{}
	}
	return d.deliver(ctx, intent, view)
}

// DispatchReminder sends the visitor reminder planned for scheduledAt. It is dropped when the
// appointment is no longer approved, was already reminded, or moved since the reminder was planned.
func (d *Dispatcher) DispatchReminder(ctx context.Context, tenantID, appointmentID uuid.UUID, scheduledAt time.Time) domain.DeliveryFlags {
	view, err := d.store.GetView(ctx, tenantID, appointmentID, false)
	if err != nil {
		d.log.Debug("reminder skipped: appointment not loadable", "appointmentId", appointmentID, "error", err)
		return domain.DeliveryFlags{}
	}
	if view.Status != domain.StatusApproved || view.ReminderSent {
		d.log.Debug("reminder skipped", "appointmentId", appointmentID, "status", view.Status, "reminderSent", view.ReminderSent)
		return domain.DeliveryFlags{}
	}
	start, err := view.StartsAt(d.location)
	if err != nil || !start.Equal(scheduledAt) {
		d.log.Debug("reminder skipped: appointment moved", "appointmentId", appointmentID)
		return domain.DeliveryFlags{}
	}

	return d.deliver(ctx, outbox.Intent{
		TenantID:      tenantID,
		AppointmentID: appointmentID,
		Kind:          outbox.IntentReminder,
		Status:        string(view.Status),
	}, view)
}

func (d *Dispatcher) deliver(ctx context.Context, intent outbox.Intent, view *domain.View) domain.DeliveryFlags {
	prefs, err := d.prefs.Preferences(ctx, intent.TenantID)
	if err != nil {
		d.log.Warn("notification skipped: settings not loadable", "tenantId", intent.TenantID, "error", err)
		return domain.DeliveryFlags{}
	}

	var attempts []*attempt
	for _, dl := range plan(intent, view) {
		for _, ch := range d.channels {
			if !prefs.Allows(ch.Name(), dl.category, settings.CategoryAppointment) || !ch.Reaches(dl.to) {
				continue
			}
			attempts = append(attempts, &attempt{channel: ch, delivery: dl})
		}
	}

	var g errgroup.Group
	for _, a := range attempts {
		g.Go(func() error {
			a.err = d.attempt(ctx, intent.TenantID, a)
			return nil
		})
	}
	_ = g.Wait()

	flags := d.flags(intent, attempts)
	if err := d.store.UpdateDeliveryFlags(ctx, intent.TenantID, intent.AppointmentID, flags); err != nil {
		d.log.Error("failed to record delivery flags", "appointmentId", intent.AppointmentID, "error", err)
	}
	return flags
}

func (d *Dispatcher) attempt(ctx context.Context, tenantID uuid.UUID, a *attempt) (err error) {
	actx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s channel panicked: %v", a.channel.Name(), r)
		}
	}()

	return a.channel.Send(actx, tenantID, a.delivery.to, Message{
		Template: string(a.delivery.template),
		Content:  a.delivery.content,
	})
}

// flags sets a flag for every channel really attempted: true when any attempt on it succeeded.
func (d *Dispatcher) flags(intent outbox.Intent, attempts []*attempt) domain.DeliveryFlags {
	delivered := map[settings.Channel]bool{}
	for _, a := range attempts {
		if errors.Is(a.err, ErrUnavailable) {
			continue
		}
		d.log.ChannelDelivery(string(a.channel.Name()), string(a.delivery.template), intent.AppointmentID.String(), a.err)
		delivered[a.channel.Name()] = delivered[a.channel.Name()] || a.err == nil
	}

	var flags domain.DeliveryFlags
	if ok, attempted := delivered[settings.ChannelEmail]; attempted {
		flags.Email = &ok
	}
	if ok, attempted := delivered[settings.ChannelWhatsApp]; attempted {
		flags.WhatsApp = &ok
	}
	if ok, attempted := delivered[settings.ChannelSMS]; attempted {
		flags.SMS = &ok
	}
	if intent.Kind == outbox.IntentReminder && len(delivered) > 0 {
		reminded := false
		for _, ok := range delivered {
			reminded = reminded || ok
		}
		flags.Reminder = &reminded
	}
	return flags
}

// plan picks recipients and templates for an intent.
func plan(intent outbox.Intent, view *domain.View) []delivery {
	employee := Recipient{Name: view.Employee.Name, Email: view.Employee.Email, Phone: view.Employee.Phone}
	visitor := Recipient{Name: view.Visitor.Name, Email: view.Visitor.Email, Phone: view.Visitor.Phone}

	base := Content{
		VisitorName:    view.Visitor.Name,
		VisitorCompany: view.Visitor.Company,
		EmployeeName:   view.Employee.Name,
		Purpose:        view.Purpose,
		Date:           view.ScheduledDate.Format(domain.DateLayout),
		Time:           view.ScheduledTime,
		Status:         intent.Status,
	}
	if view.MeetingRoom != nil {
		base.MeetingRoom = *view.MeetingRoom
	}
	toVisitor := func(tmpl email.Template) delivery {
		content := base
		content.RecipientName = visitor.Name
		return delivery{to: visitor, category: settings.CategoryVisitor, template: tmpl, content: content}
	}

	switch intent.Kind {
	case outbox.IntentCreated:
		request := base
		request.RecipientName = employee.Name
		if intent.Status == string(domain.StatusPending) {
			request.ApprovalURL = intent.ApprovalLink
		}
		out := []delivery{{to: employee, category: settings.CategoryEmployee, template: email.TemplateAppointmentRequest, content: request}}
		switch domain.Status(intent.Status) {
		case domain.StatusPending:
			out = append(out, toVisitor(email.TemplateAppointmentReceived))
		case domain.StatusApproved:
			out = append(out, toVisitor(email.TemplateAppointmentStatus))
		}
		return out
	case outbox.IntentStatusChanged:
		return []delivery{toVisitor(email.TemplateAppointmentStatus)}
	case outbox.IntentReminder:
		return []delivery{toVisitor(email.TemplateAppointmentReminder)}
	default:
		return nil
	}
}
