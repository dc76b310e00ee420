package guard

import (
	"os"
	"strings"

	"backoffice/cmd/internal/durable"
)

// Config is built once at startup and shared by every guarded view.
type Config struct {
	// CredentialKey is the durable storage entry whose presence allows a mount.
	CredentialKey string

	// LoginPath is the fixed navigation target for denied mounts.
	LoginPath string

	// ExemptPrefixes bypass the check entirely (static assets).
	ExemptPrefixes []string

	Cookies durable.CookieOptions
}

// LoadConfigFromEnv reads BACKOFFICE_LOGIN_PATH and BACKOFFICE_GUARD_EXEMPT_PREFIXES.
// The credential key and cookie options are owned by the session and durable packages.
func LoadConfigFromEnv(credentialKey string, cookies durable.CookieOptions) Config {
	cfg := Config{
		CredentialKey: credentialKey,
		LoginPath:     "/login",
		Cookies:       cookies,
	}
	if v := strings.TrimSpace(os.Getenv("BACKOFFICE_LOGIN_PATH")); strings.HasPrefix(v, "/") {
		cfg.LoginPath = v
	}
	raw := strings.TrimSpace(os.Getenv("BACKOFFICE_GUARD_EXEMPT_PREFIXES"))
	if raw == "" {
		raw = "/static/"
	}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.ExemptPrefixes = append(cfg.ExemptPrefixes, p)
		}
	}
	return cfg
}
