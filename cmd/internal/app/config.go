package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// Config contains the server runtime configuration loaded from environment variables.
//
// Component settings (cookies, tokens, passwords, auth, websocket) are loaded by their own
// packages; Config only owns what the app wires directly.
type Config struct {
	HTTPAddr string

	LogLevel  string
	LogFormat string // json | pretty
	LogColor  bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// If true, guarded views also verify the access token signature and expiry.
	GuardVerifyTokens bool

	MetricsEnabled bool

	// Security policy, enforced by ValidateSecurityConfig.
	RequireTokenKey      bool
	RequireSecureCookies bool

	// Optional admin created at startup when absent.
	SeedAdminUsername string
	SeedAdminEmail    string
	SeedAdminPassword string
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process environment.
// Missing files are skipped and variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("BACKOFFICE_HTTP_ADDR", "127.0.0.1:8080"),

		LogLevel:  EnvString("BACKOFFICE_LOG_LEVEL", "info"),
		LogFormat: EnvString("BACKOFFICE_LOG_FORMAT", "json"),
		LogColor:  EnvBool("BACKOFFICE_LOG_COLOR", true),

		ReadHeaderTimeout: EnvDuration("BACKOFFICE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BACKOFFICE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BACKOFFICE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BACKOFFICE_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("BACKOFFICE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("BACKOFFICE_DATABASE_URL", ""),
		DBSchema:    EnvString("BACKOFFICE_DB_SCHEMA", "backoffice"),
		DBMaxConns:  EnvInt32("BACKOFFICE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("BACKOFFICE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("BACKOFFICE_READINESS_REQUIRE_DB", false),
		GuardVerifyTokens:  EnvBool("BACKOFFICE_GUARD_VERIFY_TOKENS", false),
		MetricsEnabled:     EnvBool("BACKOFFICE_METRICS_ENABLED", true),

		RequireTokenKey:      EnvBool("BACKOFFICE_REQUIRE_TOKEN_KEY", false),
		RequireSecureCookies: EnvBool("BACKOFFICE_REQUIRE_SECURE_COOKIES", false),

		SeedAdminUsername: EnvString("BACKOFFICE_SEED_ADMIN_USERNAME", ""),
		SeedAdminEmail:    EnvString("BACKOFFICE_SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: EnvString("BACKOFFICE_SEED_ADMIN_PASSWORD", ""),
	}
}
