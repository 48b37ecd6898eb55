package email

import (
	"context"
	"net/http"
	"time"

	"visitor_backend/platform/config"
)

// Template names one appointment email.
type Template string

const (
	TemplateAppointmentRequest  Template = "appointment_request"
	TemplateAppointmentReceived Template = "appointment_received"
	TemplateAppointmentStatus   Template = "appointment_status"
	TemplateAppointmentReminder Template = "appointment_reminder"
)

// AppointmentEmail is the content shared by all appointment templates.
type AppointmentEmail struct {
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

type Sender interface {
	SendAppointmentEmail(ctx context.Context, toEmail string, tmpl Template, data AppointmentEmail) error
}

type NoopSender struct{}

func (NoopSender) SendAppointmentEmail(ctx context.Context, toEmail string, tmpl Template, data AppointmentEmail) error {
	return nil
}

// NewSender returns the platform-wide sender: Brevo when email is enabled, otherwise a no-op.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return &BrevoSender{
		apiKey:    cfg.GetBrevoAPIKey(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		endpoint:  brevoEndpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}
