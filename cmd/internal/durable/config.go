package durable

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// CookieOptions are the attributes applied to every cookie written by Cookies.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite

	// MaxAge bounds how long written entries survive. Zero means a browser-session cookie.
	MaxAge time.Duration
}

// DefaultCookieOptions returns conservative defaults for a same-site dashboard.
func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   7 * 24 * time.Hour,
	}
}

// LoadCookieOptionsFromEnv loads cookie attributes from environment variables.
//
//   - BACKOFFICE_COOKIE_PATH
//   - BACKOFFICE_COOKIE_DOMAIN
//   - BACKOFFICE_COOKIE_SECURE
//   - BACKOFFICE_COOKIE_HTTPONLY
//   - BACKOFFICE_COOKIE_SAMESITE (strict|lax|none|default)
//   - BACKOFFICE_COOKIE_MAX_AGE
func LoadCookieOptionsFromEnv() CookieOptions {
	def := DefaultCookieOptions()

	opts := CookieOptions{
		Path:     envString("BACKOFFICE_COOKIE_PATH", def.Path),
		Domain:   envString("BACKOFFICE_COOKIE_DOMAIN", ""),
		Secure:   envBool("BACKOFFICE_COOKIE_SECURE", def.Secure),
		HTTPOnly: envBool("BACKOFFICE_COOKIE_HTTPONLY", def.HTTPOnly),
		SameSite: parseSameSite(envString("BACKOFFICE_COOKIE_SAMESITE", "lax")),
		MaxAge:   envDuration("BACKOFFICE_COOKIE_MAX_AGE", def.MaxAge),
	}

	// Browsers drop SameSite=None cookies that are not Secure.
	if opts.SameSite == http.SameSiteNoneMode {
		opts.Secure = true
	}
	if !strings.HasPrefix(opts.Path, "/") {
		opts.Path = "/"
	}
	return opts
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}
