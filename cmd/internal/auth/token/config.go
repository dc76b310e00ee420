package token

import (
	"os"
	"strings"
	"time"
)

// Config controls token lifetimes and signing.
type Config struct {
	// Issuer is written to and required in the "iss" claim.
	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// ClockSkew is tolerated when checking nbf/exp.
	ClockSkew time.Duration

	// SecretKeyHex is the hex Ed25519 secret key. Empty means an ephemeral key is generated,
	// which invalidates every issued token on restart.
	SecretKeyHex string
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		Issuer:     "backoffice",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ClockSkew:  30 * time.Second,
	}
}

// LoadConfigFromEnv loads token configuration.
//
//   - BACKOFFICE_TOKEN_ISSUER
//   - BACKOFFICE_TOKEN_ACCESS_TTL
//   - BACKOFFICE_TOKEN_REFRESH_TTL
//   - BACKOFFICE_TOKEN_CLOCK_SKEW
//   - BACKOFFICE_PASETO_V4_SECRET_KEY_HEX
//
// Returns ErrConfig when a duration is malformed or the access TTL exceeds the refresh TTL.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("BACKOFFICE_TOKEN_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	var err error
	if cfg.AccessTTL, err = envPositiveDuration("BACKOFFICE_TOKEN_ACCESS_TTL", cfg.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = envPositiveDuration("BACKOFFICE_TOKEN_REFRESH_TTL", cfg.RefreshTTL); err != nil {
		return Config{}, err
	}

	if v := strings.TrimSpace(os.Getenv("BACKOFFICE_TOKEN_CLOCK_SKEW")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.SecretKeyHex = strings.TrimSpace(os.Getenv("BACKOFFICE_PASETO_V4_SECRET_KEY_HEX"))

	if cfg.AccessTTL > cfg.RefreshTTL {
		return Config{}, ErrConfig
	}
	return cfg, nil
}

func envPositiveDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, ErrConfig
	}
	return d, nil
}
