package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/visitors")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("EMAIL_ENABLED", "false")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_BASE_URL", "https://desk.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetAppBaseURL() != "https://desk.example.com" {
		t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.GetAppBaseURL())
	}
	if cfg.GetReminderLeadTime() != 24*time.Hour {
		t.Fatalf("expected default reminder lead time of 24h, got %s", cfg.GetReminderLeadTime())
	}
	if cfg.GetAppLocation() == nil {
		t.Fatalf("expected a location")
	}
	if cfg.IsMinIOEnabled() {
		t.Fatalf("expected minio to be disabled without an endpoint")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error without DATABASE_URL")
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected wildcard origins with credentials to be rejected")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	if _, err := Load(); err == nil {
		t.Fatalf("expected an invalid timezone to be rejected")
	}
}
