package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/leadflow")
	t.Setenv("EMAIL_ENABLED", "false")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetRateLimitMax() != 3 {
		t.Fatalf("expected rate limit max 3, got %d", cfg.GetRateLimitMax())
	}
	if cfg.GetRateLimitWindow() != 15*time.Minute {
		t.Fatalf("expected 15m window, got %s", cfg.GetRateLimitWindow())
	}
	if cfg.GetDispatchSendInterval() != 100*time.Millisecond {
		t.Fatalf("expected 100ms send interval, got %s", cfg.GetDispatchSendInterval())
	}
	if cfg.GetPhoneDefaultRegion() != "MX" {
		t.Fatalf("expected MX region, got %q", cfg.GetPhoneDefaultRegion())
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadRedisBackendRequiresURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for redis backend without REDIS_URL")
	}
}

func TestLoadEmailProviderValidation(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("EMAIL_PROVIDER", "smtp")
	t.Setenv("SMTP_HOST", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for smtp provider without host")
	}

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM_ADDRESS", "hola@example.com")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetSMTPPort() != 587 {
		t.Fatalf("expected default smtp port 587, got %d", cfg.GetSMTPPort())
	}
}

func TestCORSWildcardEnablesAllowAll(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "https://a.example.com, *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.GetCORSAllowAll() {
		t.Fatal("expected wildcard origin to enable allow-all")
	}
	if len(cfg.GetCORSOrigins()) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.GetCORSOrigins())
	}
}

func TestLoadLockTTLMustOutliveDispatchTimeout(t *testing.T) {
	cases := []struct {
		ttl, timeout string
		wantErr      bool
	}{
		{ttl: "10m", timeout: "5m", wantErr: false},
		{ttl: "5m", timeout: "5m", wantErr: true},
		{ttl: "1m", timeout: "5m", wantErr: true},
	}
	for _, tc := range cases {
		setRequiredEnv(t)
		t.Setenv("DISPATCH_LOCK_TTL", tc.ttl)
		t.Setenv("DISPATCH_TIMEOUT", tc.timeout)

		_, err := Load()
		if (err != nil) != tc.wantErr {
			t.Fatalf("ttl=%s timeout=%s: err=%v, wantErr=%v", tc.ttl, tc.timeout, err, tc.wantErr)
		}
	}
}
