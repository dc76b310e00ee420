package sessionsync

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultAllowedOrigins = "http://localhost,http://127.0.0.1"

// Config holds gateway limits and the origin policy.
type Config struct {
	// DevInsecure disables the websocket library's own origin check.
	DevInsecure bool

	OriginRequired bool
	AllowedOrigins []string

	WriteTimeout    time.Duration
	ReadIdleTimeout time.Duration
	SendQueueSize   int

	HeartbeatEvery   time.Duration
	HeartbeatTimeout time.Duration

	RateEvents int
	RateWindow time.Duration
}

// DefaultConfig returns the secure defaults: origin required, localhost only.
func DefaultConfig() Config {
	return Config{
		OriginRequired:   true,
		AllowedOrigins:   splitCSV(defaultAllowedOrigins),
		WriteTimeout:     defaultWriteTimeout,
		ReadIdleTimeout:  defaultReadIdle,
		SendQueueSize:    defaultSendQueueSize,
		HeartbeatEvery:   heartbeatInterval,
		HeartbeatTimeout: heartbeatTimeout,
		RateEvents:       rateLimitEvents,
		RateWindow:       rateLimitWindow,
	}
}

// LoadConfigFromEnv reads BACKOFFICE_WS_* over DefaultConfig.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		DevInsecure:      envBool("BACKOFFICE_WS_DEV_INSECURE", false),
		OriginRequired:   envBool("BACKOFFICE_WS_ORIGIN_REQUIRED", def.OriginRequired),
		AllowedOrigins:   splitCSV(envString("BACKOFFICE_WS_ALLOWED_ORIGINS", defaultAllowedOrigins)),
		WriteTimeout:     envDuration("BACKOFFICE_WS_WRITE_TIMEOUT", def.WriteTimeout),
		ReadIdleTimeout:  envDuration("BACKOFFICE_WS_READ_IDLE_TIMEOUT", def.ReadIdleTimeout),
		SendQueueSize:    envInt("BACKOFFICE_WS_SEND_QUEUE", def.SendQueueSize),
		HeartbeatEvery:   envDuration("BACKOFFICE_WS_HEARTBEAT_INTERVAL", def.HeartbeatEvery),
		HeartbeatTimeout: envDuration("BACKOFFICE_WS_HEARTBEAT_TIMEOUT", def.HeartbeatTimeout),
		RateEvents:       envInt("BACKOFFICE_WS_RATE_EVENTS", def.RateEvents),
		RateWindow:       envDuration("BACKOFFICE_WS_RATE_WINDOW", def.RateWindow),
	}
	return cfg.normalized()
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadIdleTimeout <= 0 {
		c.ReadIdleTimeout = def.ReadIdleTimeout
	}
	if c.SendQueueSize < minSendQueueSize {
		c.SendQueueSize = minSendQueueSize
	}
	if c.HeartbeatEvery <= 0 {
		c.HeartbeatEvery = def.HeartbeatEvery
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if c.RateEvents <= 0 {
		c.RateEvents = def.RateEvents
	}
	if c.RateWindow <= 0 {
		c.RateWindow = def.RateWindow
	}
	return c
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

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
