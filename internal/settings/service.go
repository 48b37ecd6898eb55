package settings

import (
	"context"

	"visitor_backend/platform/apperr"
	"visitor_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgEncryptionNotConfigured = "SMTP password encryption is not configured"

// Store is the settings persistence.
type Store interface {
	Reader
	Upsert(ctx context.Context, s Settings) error
}

// Service reads and replaces tenant settings for the admin API.
type Service struct {
	store    Store
	cipher   *Cipher
	provider *Provider
}

func NewService(store Store, cipher *Cipher, provider *Provider) *Service {
	return &Service{store: store, cipher: cipher, provider: provider}
}

func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*Response, error) {
	stored, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	current := Settings{TenantID: tenantID, Preferences: DefaultPreferences()}
	if stored != nil {
		current = *stored
	}
	resp := toResponse(current)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, req UpdateRequest) (*Response, error) {
	overrides, err := parseOverrides(req.CategoryOverrides)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	next := Settings{TenantID: tenantID}
	if stored != nil {
		next = *stored
	}
	next.Preferences = Preferences{
		EmailEnabled:    req.EmailEnabled,
		WhatsAppEnabled: req.WhatsAppEnabled,
		SMSEnabled:      req.SMSEnabled,
		Overrides:       overrides,
	}

	if req.WhatsApp != nil {
		next.WhatsApp.URL = req.WhatsApp.URL
		next.WhatsApp.DeviceID = sanitize.Text(req.WhatsApp.DeviceID)
		if req.WhatsApp.APIKey != nil {
			next.WhatsApp.APIKey = *req.WhatsApp.APIKey
		}
	}

	if req.SMTP != nil {
		next.SMTP.Host = req.SMTP.Host
		next.SMTP.Port = req.SMTP.Port
		next.SMTP.Username = req.SMTP.Username
		next.SMTP.FromEmail = req.SMTP.FromEmail
		next.SMTP.FromName = sanitize.Text(req.SMTP.FromName)
		if req.SMTP.Password != nil {
			sealed, err := s.seal(*req.SMTP.Password)
			if err != nil {
				return nil, err
			}
			next.SMTP.Password = sealed
		}
	}

	if err := s.store.Upsert(ctx, next); err != nil {
		return nil, err
	}
	if s.provider != nil {
		s.provider.Invalidate(tenantID)
	}

	resp := toResponse(next)
	return &resp, nil
}

func (s *Service) seal(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if s.cipher == nil {
		return "", apperr.BadRequest(msgEncryptionNotConfigured)
	}
	return s.cipher.Encrypt(password)
}

// parseOverrides accepts visitor/employee/appointment x email/whatsapp.
func parseOverrides(raw map[string]map[string]bool) (Overrides, error) {
	overrides := Overrides{}
	for rawCategory, byChannel := range raw {
		category := Category(rawCategory)
		switch category {
		case CategoryVisitor, CategoryEmployee, CategoryAppointment:
		default:
			return nil, apperr.Validation("unknown notification category: " + rawCategory)
		}
		for rawChannel, enabled := range byChannel {
			channel := Channel(rawChannel)
			if channel != ChannelEmail && channel != ChannelWhatsApp {
				return nil, apperr.Validation("category overrides support email and whatsapp only")
			}
			if overrides[category] == nil {
				overrides[category] = map[Channel]bool{}
			}
			overrides[category][channel] = enabled
		}
	}
	return overrides, nil
}
