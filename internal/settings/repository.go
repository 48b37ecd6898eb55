package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is the stored row. SMTP.Password holds the sealed value.
type Settings struct {
	TenantID    uuid.UUID
	Preferences Preferences
	WhatsApp    WhatsAppCredentials
	SMTP        SMTPCredentials
	UpdatedAt   time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns nil when the tenant never saved settings.
func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID) (*Settings, error) {
	var (
		s         Settings
		overrides []byte
		waURL     *string
		waKey     *string
		waDevice  *string
		smtpHost  *string
		smtpPort  *int
		smtpUser  *string
		smtpPass  *string
		smtpFrom  *string
		smtpName  *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, email_enabled, whatsapp_enabled, sms_enabled, category_overrides,
			whatsapp_url, whatsapp_api_key, whatsapp_device_id,
			smtp_host, smtp_port, smtp_username, smtp_password, smtp_from_email, smtp_from_name,
			updated_at
		FROM tenant_settings
		WHERE tenant_id = $1
	`, tenantID).Scan(
		&s.TenantID, &s.Preferences.EmailEnabled, &s.Preferences.WhatsAppEnabled, &s.Preferences.SMSEnabled, &overrides,
		&waURL, &waKey, &waDevice,
		&smtpHost, &smtpPort, &smtpUser, &smtpPass, &smtpFrom, &smtpName,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	s.Preferences.Overrides = Overrides{}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &s.Preferences.Overrides); err != nil {
			return nil, fmt.Errorf("failed to decode category overrides: %w", err)
		}
	}
	s.WhatsApp = WhatsAppCredentials{URL: deref(waURL), APIKey: deref(waKey), DeviceID: deref(waDevice)}
	s.SMTP = SMTPCredentials{
		Host:      deref(smtpHost),
		Username:  deref(smtpUser),
		Password:  deref(smtpPass),
		FromEmail: deref(smtpFrom),
		FromName:  deref(smtpName),
	}
	if smtpPort != nil {
		s.SMTP.Port = *smtpPort
	}
	return &s, nil
}

// Upsert replaces the tenant's settings row.
func (r *Repository) Upsert(ctx context.Context, s Settings) error {
	overrides := s.Preferences.Overrides
	if overrides == nil {
		overrides = Overrides{}
	}
	encoded, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("failed to encode category overrides: %w", err)
	}

	var port *int
	if s.SMTP.Port > 0 {
		port = &s.SMTP.Port
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO tenant_settings (
			tenant_id, email_enabled, whatsapp_enabled, sms_enabled, category_overrides,
			whatsapp_url, whatsapp_api_key, whatsapp_device_id,
			smtp_host, smtp_port, smtp_username, smtp_password, smtp_from_email, smtp_from_name,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			whatsapp_enabled = EXCLUDED.whatsapp_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			category_overrides = EXCLUDED.category_overrides,
			whatsapp_url = EXCLUDED.whatsapp_url,
			whatsapp_api_key = EXCLUDED.whatsapp_api_key,
			whatsapp_device_id = EXCLUDED.whatsapp_device_id,
			smtp_host = EXCLUDED.smtp_host,
			smtp_port = EXCLUDED.smtp_port,
			smtp_username = EXCLUDED.smtp_username,
			smtp_password = EXCLUDED.smtp_password,
			smtp_from_email = EXCLUDED.smtp_from_email,
			smtp_from_name = EXCLUDED.smtp_from_name,
			updated_at = now()
	`, s.TenantID, s.Preferences.EmailEnabled, s.Preferences.WhatsAppEnabled, s.Preferences.SMSEnabled, encoded,
		nullable(s.WhatsApp.URL), nullable(s.WhatsApp.APIKey), nullable(s.WhatsApp.DeviceID),
		nullable(s.SMTP.Host), port, nullable(s.SMTP.Username), nullable(s.SMTP.Password),
		nullable(s.SMTP.FromEmail), nullable(s.SMTP.FromName),
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant settings: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
