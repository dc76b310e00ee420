package app

import (
	"errors"

	"backoffice/cmd/internal/auth/token"
	"backoffice/cmd/internal/durable"
)

// ValidateSecurityConfig enforces the startup security policy. It fails fast instead of
// running production with a throwaway signing key or cookies sent over plain HTTP.
func ValidateSecurityConfig(cfg Config, tokens token.Manager, cookies durable.CookieOptions) error {
	if cfg.RequireTokenKey && token.IsEphemeral(tokens) {
		return errors.New("security policy: BACKOFFICE_REQUIRE_TOKEN_KEY=true but BACKOFFICE_PASETO_V4_SECRET_KEY_HEX is missing")
	}
	if cfg.RequireSecureCookies && !cookies.Secure {
		return errors.New("security policy: BACKOFFICE_REQUIRE_SECURE_COOKIES=true but BACKOFFICE_COOKIE_SECURE=false")
	}
	return nil
}
