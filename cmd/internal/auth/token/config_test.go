package token

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("BACKOFFICE_TOKEN_ACCESS_TTL", "")
	t.Setenv("BACKOFFICE_TOKEN_REFRESH_TTL", "")
	t.Setenv("BACKOFFICE_PASETO_V4_SECRET_KEY_HEX", "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.AccessTTL != 15*time.Minute || cfg.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected ttls: %+v", cfg)
	}
	if cfg.SecretKeyHex != "" {
		t.Fatalf("expected empty secret")
	}
}

func TestLoadConfigFromEnv_InvalidDurations(t *testing.T) {
	t.Setenv("BACKOFFICE_TOKEN_ACCESS_TTL", "-5m")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative duration, got %v", err)
	}
}

func TestLoadConfigFromEnv_TTLOrder(t *testing.T) {
	t.Setenv("BACKOFFICE_TOKEN_ACCESS_TTL", "2h")
	t.Setenv("BACKOFFICE_TOKEN_REFRESH_TTL", "1h")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig when access outlives refresh, got %v", err)
	}
}
