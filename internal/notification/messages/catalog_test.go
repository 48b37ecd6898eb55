package messages

import (
	"strings"
	"testing"
)

type fields struct {
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

func TestDefaultCatalogCoversEveryTemplate(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := fields{RecipientName: "Lotte", VisitorName: "Lotte", EmployeeName: "Sanne", Date: "2026-03-09", Time: "10:00", Status: "approved"}
	for _, name := range []string{"appointment_request", "appointment_received", "appointment_status", "appointment_reminder"} {
		for _, channel := range []string{"whatsapp", "sms"} {
			text, err := catalog.Render(name, channel, data)
			if err != nil {
				t.Fatalf("%s/%s: unexpected error: %v", name, channel, err)
			}
			if !strings.Contains(text, "2026-03-09") {
				t.Fatalf("%s/%s: expected the date in %q", name, channel, text)
			}
		}
	}
}

func TestRenderOptionalParts(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withLink, _ := catalog.Render("appointment_request", "whatsapp", fields{VisitorName: "Lotte", ApprovalURL: "https://desk.example.com/verify/tok"})
	if !strings.Contains(withLink, "https://desk.example.com/verify/tok") {
		t.Fatalf("expected the approval link, got %q", withLink)
	}
	withoutLink, _ := catalog.Render("appointment_request", "whatsapp", fields{VisitorName: "Lotte"})
	if strings.Contains(withoutLink, "Approve or reject") {
		t.Fatalf("did not expect an approval prompt without a link, got %q", withoutLink)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("a: [unclosed")); err == nil {
		t.Fatalf("expected invalid yaml to fail")
	}
	if _, err := Parse([]byte("a:\n  sms: \"{{.Broken\"\n")); err == nil {
		t.Fatalf("expected an invalid template to fail")
	}

	catalog, _ := Parse([]byte("a:\n  sms: \"{{.Missing}}\"\n"))
	if _, err := catalog.Render("a", "sms", map[string]string{}); err == nil {
		t.Fatalf("expected a missing key to fail")
	}
	if _, err := catalog.Render("b", "sms", nil); err == nil {
		t.Fatalf("expected an unknown template to fail")
	}
}
