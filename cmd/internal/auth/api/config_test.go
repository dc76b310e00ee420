package authapi

import (
	"testing"
	"time"

	"backoffice/cmd/internal/durable"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg := LoadConfigFromEnv(durable.DefaultCookieOptions())

	if cfg.LoginPath != "/login" || cfg.DefaultRedirect != "/" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.LoginIPBurst != 10 || cfg.LoginIPEvery != 30*time.Second {
		t.Fatalf("unexpected throttle: %+v", cfg)
	}
	if cfg.CSRFCookieName == "" || cfg.CSRFHeaderName == "" {
		t.Fatalf("csrf names must be set")
	}
}

func TestLoadConfigFromEnv_RejectsOffsiteRedirects(t *testing.T) {
	t.Setenv("BACKOFFICE_AUTH_DEFAULT_REDIRECT", "//evil.example.com")
	t.Setenv("BACKOFFICE_LOGIN_PATH", "https://evil.example.com/login")

	cfg := LoadConfigFromEnv(durable.DefaultCookieOptions())
	if cfg.DefaultRedirect != "/" || cfg.LoginPath != "/login" {
		t.Fatalf("expected safe fallbacks, got %+v", cfg)
	}
}

func TestLoadConfigFromEnv_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("BACKOFFICE_AUTH_LOGIN_IP_BURST", "-3")
	t.Setenv("BACKOFFICE_AUTH_LOGIN_IP_EVERY", "soon")

	cfg := LoadConfigFromEnv(durable.DefaultCookieOptions())
	if cfg.LoginIPBurst != 10 || cfg.LoginIPEvery != 30*time.Second {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
