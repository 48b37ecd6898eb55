package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"visitor_backend/internal/email"
	"visitor_backend/internal/notification/messages"
	"visitor_backend/internal/settings"
	"visitor_backend/internal/whatsapp"
	"visitor_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingSender struct {
	to   string
	tmpl email.Template
	data email.AppointmentEmail
}

func (s *recordingSender) SendAppointmentEmail(_ context.Context, to string, tmpl email.Template, data email.AppointmentEmail) error {
	s.to, s.tmpl, s.data = to, tmpl, data
	return nil
}

type stubSources struct {
	smtp *settings.SMTPCredentials
	wa   *settings.WhatsAppCredentials
	err  error
}

func (s stubSources) SMTPConfig(context.Context, uuid.UUID) (*settings.SMTPCredentials, error) {
	return s.smtp, s.err
}

func (s stubSources) WhatsAppConfig(context.Context, uuid.UUID) (*settings.WhatsAppCredentials, error) {
	return s.wa, s.err
}

func TestEmailChannelFallback(t *testing.T) {
	fallback := &recordingSender{}
	ch := NewEmailChannel(fallback, stubSources{})
	msg := Message{Template: string(email.TemplateAppointmentStatus), Content: Content{Status: "approved"}}

	if err := ch.Send(context.Background(), uuid.New(), Recipient{Email: "lotte@example.com"}, msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fallback.to != "lotte@example.com" || fallback.tmpl != email.TemplateAppointmentStatus || fallback.data.Status != "approved" {
		t.Fatalf("unexpected send %+v", fallback)
	}

	noop := NewEmailChannel(email.NoopSender{}, stubSources{})
	if err := noop.Send(context.Background(), uuid.New(), Recipient{Email: "x@example.com"}, msg); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected a no-op fallback to be unavailable, got %v", err)
	}

	failing := NewEmailChannel(fallback, stubSources{err: errors.New("settings down")})
	if err := failing.Send(context.Background(), uuid.New(), Recipient{Email: "x@example.com"}, msg); err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected settings errors to count as failed attempts, got %v", err)
	}

	if ch.Reaches(Recipient{Phone: "+31612345678"}) {
		t.Fatalf("email cannot reach a recipient without an address")
	}
}

func TestWhatsAppChannelPrefersTenantDevice(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Device-Id") != "tenant-device" {
			t.Errorf("expected the tenant device, got %q", r.Header.Get("X-Device-Id"))
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
	}))
	defer server.Close()

	catalog, err := messages.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	source := stubSources{wa: &settings.WhatsAppCredentials{URL: server.URL, DeviceID: "tenant-device"}}
	ch := NewWhatsAppChannel(nil, source, catalog, logger.NewNop())

	msg := Message{Template: string(email.TemplateAppointmentReminder), Content: Content{RecipientName: "Lotte", EmployeeName: "Sanne", Date: "2026-03-09", Time: "10:00"}}
	if err := ch.Send(context.Background(), uuid.New(), Recipient{Phone: "+31612345678"}, msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["phone"] != "31612345678" || !strings.Contains(body["message"], "Sanne") {
		t.Fatalf("unexpected body %v", body)
	}

	none := NewWhatsAppChannel(nil, stubSources{}, catalog, logger.NewNop())
	if err := none.Send(context.Background(), uuid.New(), Recipient{Phone: "+31612345678"}, msg); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable without any device, got %v", err)
	}

	global := NewWhatsAppChannel(whatsapp.NewClientFor(server.URL, "", "tenant-device", logger.NewNop()), stubSources{}, catalog, logger.NewNop())
	if err := global.Send(context.Background(), uuid.New(), Recipient{Phone: "+31612345678"}, msg); err != nil {
		t.Fatalf("expected the platform device to be used, got %v", err)
	}
}

func TestSMSChannelWithoutGateway(t *testing.T) {
	catalog, _ := messages.Load()
	ch := NewSMSChannel(nil, catalog)
	if err := ch.Send(context.Background(), uuid.New(), Recipient{Phone: "+31612345678"}, Message{Template: "appointment_status"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable without a gateway, got %v", err)
	}
}
