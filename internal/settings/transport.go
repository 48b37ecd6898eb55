package settings

import "time"

type WhatsAppRequest struct {
	URL      string  `json:"url" validate:"omitempty,url,max=500"`
	APIKey   *string `json:"apiKey" validate:"omitempty,max=500"`
	DeviceID string  `json:"deviceId" validate:"max=200"`
}

type SMTPRequest struct {
	Host      string  `json:"host" validate:"omitempty,hostname|ip,max=255"`
	Port      int     `json:"port" validate:"omitempty,min=1,max=65535"`
	Username  string  `json:"username" validate:"max=255"`
	Password  *string `json:"password" validate:"omitempty,max=500"`
	FromEmail string  `json:"fromEmail" validate:"omitempty,email,max=255"`
	FromName  string  `json:"fromName" validate:"max=200"`
}

// UpdateRequest replaces the notification settings. Omitted credential blocks are kept.
// A nil APIKey or Password keeps the stored secret and an empty one clears it.
type UpdateRequest struct {
	EmailEnabled      bool                       `json:"emailEnabled"`
	WhatsAppEnabled   bool                       `json:"whatsappEnabled"`
	SMSEnabled        bool                       `json:"smsEnabled"`
	CategoryOverrides map[string]map[string]bool `json:"categoryOverrides"`
	WhatsApp          *WhatsAppRequest           `json:"whatsapp"`
	SMTP              *SMTPRequest               `json:"smtp"`
}

type WhatsAppResponse struct {
	URL       string `json:"url"`
	DeviceID  string `json:"deviceId"`
	APIKeySet bool   `json:"apiKeySet"`
}

type SMTPResponse struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	FromEmail   string `json:"fromEmail"`
	FromName    string `json:"fromName"`
	PasswordSet bool   `json:"passwordSet"`
}

// Response never carries secrets.
type Response struct {
	Preferences
	WhatsApp  WhatsAppResponse `json:"whatsapp"`
	SMTP      SMTPResponse     `json:"smtp"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
}

func toResponse(s Settings) Response {
	resp := Response{
		Preferences: s.Preferences,
		WhatsApp: WhatsAppResponse{
			URL:       s.WhatsApp.URL,
			DeviceID:  s.WhatsApp.DeviceID,
			APIKeySet: s.WhatsApp.APIKey != "",
		},
		SMTP: SMTPResponse{
			Host:        s.SMTP.Host,
			Port:        s.SMTP.Port,
			Username:    s.SMTP.Username,
			FromEmail:   s.SMTP.FromEmail,
			FromName:    s.SMTP.FromName,
			PasswordSet: s.SMTP.Password != "",
		},
	}
	if resp.Preferences.Overrides == nil {
		resp.Preferences.Overrides = Overrides{}
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}
