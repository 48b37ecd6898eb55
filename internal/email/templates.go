package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type appointmentEmailData struct {
	baseEmailData
	AppointmentEmail
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// renderAppointment returns the subject and HTML body of an appointment email.
func renderAppointment(tmpl Template, data AppointmentEmail) (string, string, error) {
	var (
		subject string
		base    baseEmailData
	)
	switch tmpl {
	case TemplateAppointmentRequest:
		subject = fmt.Sprintf(subjectAppointmentRequestFmt, data.VisitorName)
		base = baseEmailData{Title: "Appointment request", Heading: "New appointment request"}
		if data.ApprovalURL != "" {
			base.CTALabel = "Review request"
			base.CTAURL = data.ApprovalURL
		}
	case TemplateAppointmentReceived:
		subject = subjectAppointmentReceived
		base = baseEmailData{Title: "Request received", Heading: "We received your request", Subheading: "You will hear from us once it has been reviewed."}
	case TemplateAppointmentStatus:
		subject = fmt.Sprintf(subjectAppointmentStatusFmt, data.Status)
		base = baseEmailData{Title: "Appointment update", Heading: "Your appointment has been " + data.Status}
	case TemplateAppointmentReminder:
		subject = fmt.Sprintf(subjectAppointmentReminderFmt, data.EmployeeName)
		base = baseEmailData{Title: "Appointment reminder", Heading: "See you soon"}
	default:
		return "", "", fmt.Errorf("unknown email template %q", tmpl)
	}

	html, err := renderEmailTemplate(string(tmpl)+".html", appointmentEmailData{baseEmailData: base, AppointmentEmail: data})
	if err != nil {
		return "", "", err
	}
	return subject, html, nil
}
