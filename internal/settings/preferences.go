// Package settings holds per-tenant notification settings and channel credentials.
package settings

// Channel is an outbound notification channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Category groups notifications by who they are about or addressed to.
type Category string

const (
	CategoryVisitor     Category = "visitor"
	CategoryEmployee    Category = "employee"
	CategoryAppointment Category = "appointment"
)

// Overrides switch a channel off (or explicitly on) for one category.
type Overrides map[Category]map[Channel]bool

// Preferences is the resolved notification configuration of a tenant.
type Preferences struct {
	EmailEnabled    bool      `json:"emailEnabled"`
	WhatsAppEnabled bool      `json:"whatsappEnabled"`
	SMSEnabled      bool      `json:"smsEnabled"`
	Overrides       Overrides `json:"categoryOverrides"`
}

// DefaultPreferences applies to tenants that never saved settings.
func DefaultPreferences() Preferences {
	return Preferences{EmailEnabled: true, Overrides: Overrides{}}
}

// ChannelEnabled reports the master switch of ch.
func (p Preferences) ChannelEnabled(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelWhatsApp:
		return p.WhatsAppEnabled
	case ChannelSMS:
		return p.SMSEnabled
	default:
		return false
	}
}

// Allows reports whether ch may carry a message of every given category.
// The master switch wins; an override can only narrow it.
func (p Preferences) Allows(ch Channel, categories ...Category) bool {
	if !p.ChannelEnabled(ch) {
		return false
	}
	for _, category := range categories {
		if enabled, ok := p.Overrides[category][ch]; ok && !enabled {
			return false
		}
	}
	return true
}

// WhatsAppCredentials points at a tenant's own GOWA device.
type WhatsAppCredentials struct {
	URL      string
	APIKey   string
	DeviceID string
}

// SMTPCredentials is a tenant's own outgoing mail server. Password is plaintext once resolved.
type SMTPCredentials struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}
