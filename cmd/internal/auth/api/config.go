package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"

	"backoffice/cmd/internal/durable"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Login throttle: LoginIPBurst attempts, refilled one per LoginIPEvery, per client IP.
	LoginIPBurst int
	LoginIPEvery time.Duration

	LoginPath       string
	DefaultRedirect string

	CSRFCookieName string
	CSRFFieldName  string
	CSRFHeaderName string

	Cookies durable.CookieOptions
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv(cookies durable.CookieOptions) Config {
	cfg := Config{
		TrustProxy:      envBool("BACKOFFICE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:    envInt64("BACKOFFICE_AUTH_MAX_BODY_BYTES", 64<<10),
		LoginIPBurst:    envInt("BACKOFFICE_AUTH_LOGIN_IP_BURST", 10),
		LoginIPEvery:    envDuration("BACKOFFICE_AUTH_LOGIN_IP_EVERY", 30*time.Second),
		LoginPath:       envString("BACKOFFICE_LOGIN_PATH", "/login"),
		DefaultRedirect: envString("BACKOFFICE_AUTH_DEFAULT_REDIRECT", "/"),
		CSRFCookieName:  envString("BACKOFFICE_AUTH_CSRF_COOKIE_NAME", "csrf_token"),
		CSRFFieldName:   "csrf_token",
		CSRFHeaderName:  envString("BACKOFFICE_AUTH_CSRF_HEADER_NAME", "X-CSRF-Token"),
		Cookies:         cookies,
	}

	if !isLocalPath(cfg.LoginPath) {
		cfg.LoginPath = "/login"
	}
	if !isLocalPath(cfg.DefaultRedirect) {
		cfg.DefaultRedirect = "/"
	}
	return cfg
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

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
