package dispatcher

import (
	"context"
	"errors"

	"visitor_backend/internal/email"
	"visitor_backend/internal/notification/messages"
	"visitor_backend/internal/settings"
	"visitor_backend/internal/sms"
	"visitor_backend/internal/whatsapp"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrUnavailable means the channel has no provider for the tenant. Such an attempt does not count.
var ErrUnavailable = errors.New("channel unavailable")

// Recipient is one party of an appointment.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Content fills every appointment template.
type Content struct {
	RecipientName  string
	VisitorName    string
	VisitorCompany string
	EmployeeName   string
	Purpose        string
	Date           string
	Time           string
	MeetingRoom    string
	Status         string
	ApprovalURL    string
}

// Message is what a channel delivers.
type Message struct {
	Template string
	Content  Content
}

// Channel delivers a message to one recipient.
type Channel interface {
	Name() settings.Channel
	Reaches(to Recipient) bool
	Send(ctx context.Context, tenantID uuid.UUID, to Recipient, msg Message) error
}

// SMTPSource resolves a tenant's own mail server.
type SMTPSource interface {
	SMTPConfig(ctx context.Context, tenantID uuid.UUID) (*settings.SMTPCredentials, error)
}

// WhatsAppSource resolves a tenant's own WhatsApp device.
type WhatsAppSource interface {
	WhatsAppConfig(ctx context.Context, tenantID uuid.UUID) (*settings.WhatsAppCredentials, error)
}

// EmailChannel prefers the tenant's SMTP server and falls back to the platform sender.
type EmailChannel struct {
	fallback email.Sender
	smtp     SMTPSource
}

// NewEmailChannel creates the email channel. A nil or no-op fallback leaves tenants without SMTP unreachable.
func NewEmailChannel(fallback email.Sender, smtp SMTPSource) *EmailChannel {
	if _, noop := fallback.(email.NoopSender); noop {
		fallback = nil
	}
	return &EmailChannel{fallback: fallback, smtp: smtp}
}

func (c *EmailChannel) Name() settings.Channel { return settings.ChannelEmail }

func (c *EmailChannel) Reaches(to Recipient) bool { return to.Email != "" }

func (c *EmailChannel) Send(ctx context.Context, tenantID uuid.UUID, to Recipient, msg Message) error {
	sender, err := c.sender(ctx, tenantID)
	if err != nil {
		return err
	}
	return sender.SendAppointmentEmail(ctx, to.Email, email.Template(msg.Template), email.AppointmentEmail(msg.Content))
}

func (c *EmailChannel) sender(ctx context.Context, tenantID uuid.UUID) (email.Sender, error) {
	if c.smtp != nil {
		creds, err := c.smtp.SMTPConfig(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if creds != nil {
			return email.NewSMTPSender(creds.Host, creds.Port, creds.Username, creds.Password, creds.FromEmail, creds.FromName), nil
		}
	}
	if c.fallback == nil {
		return nil, ErrUnavailable
	}
	return c.fallback, nil
}

// WhatsAppChannel prefers the tenant's GOWA device and falls back to the platform one.
type WhatsAppChannel struct {
	fallback *whatsapp.Client
	source   WhatsAppSource
	catalog  *messages.Catalog
	log      *logger.Logger
}

func NewWhatsAppChannel(fallback *whatsapp.Client, source WhatsAppSource, catalog *messages.Catalog, log *logger.Logger) *WhatsAppChannel {
	return &WhatsAppChannel{fallback: fallback, source: source, catalog: catalog, log: log}
}

func (c *WhatsAppChannel) Name() settings.Channel { return settings.ChannelWhatsApp }

func (c *WhatsAppChannel) Reaches(to Recipient) bool { return to.Phone != "" }

func (c *WhatsAppChannel) Send(ctx context.Context, tenantID uuid.UUID, to Recipient, msg Message) error {
	client := c.fallback
	if c.source != nil {
		creds, err := c.source.WhatsAppConfig(ctx, tenantID)
		if err != nil {
			return err
		}
		if creds != nil {
			client = whatsapp.NewClientFor(creds.URL, creds.APIKey, creds.DeviceID, c.log)
		}
	}
	if client == nil {
		return ErrUnavailable
	}

	text, err := c.catalog.Render(msg.Template, string(settings.ChannelWhatsApp), msg.Content)
	if err != nil {
		return err
	}
	return client.SendMessage(ctx, to.Phone, text)
}

// SMSChannel sends through the platform SMS gateway.
type SMSChannel struct {
	client  *sms.Client
	catalog *messages.Catalog
}

func NewSMSChannel(client *sms.Client, catalog *messages.Catalog) *SMSChannel {
	return &SMSChannel{client: client, catalog: catalog}
}

func (c *SMSChannel) Name() settings.Channel { return settings.ChannelSMS }

func (c *SMSChannel) Reaches(to Recipient) bool { return to.Phone != "" }

func (c *SMSChannel) Send(ctx context.Context, _ uuid.UUID, to Recipient, msg Message) error {
	if c.client == nil {
		return ErrUnavailable
	}
	text, err := c.catalog.Render(msg.Template, string(settings.ChannelSMS), msg.Content)
	if err != nil {
		return err
	}
	return c.client.Send(ctx, to.Phone, text)
}
