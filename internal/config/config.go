// Package config loads the service settings from environment variables.
// Defaults are declared in struct tags and every setting is validated on
// startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Upload         UploadConfig
	Rate           RateLimitConfig
	Security       SecurityConfig
	Logging        LoggingConfig
	Audit          AuditConfig
	Deprovisioning DeprovisioningConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds the graceful drain of in-flight generations.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig limits the exports accepted by the web form and API.
type UploadConfig struct {
	// MaxFileSize applies to each of the five files (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is how many requests may parse and reconcile at once.
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a request waits for a free slot.
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are honored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects /api routes with the X-API-Key header.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig configures the optional run history database. History is
// disabled when URL is empty.
type AuditConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// HistoryLimit caps GET /api/runs.
	HistoryLimit int `env:"AUDIT_HISTORY_LIMIT" default:"50"`
}

// Enabled reports whether a history database is configured.
func (c *AuditConfig) Enabled() bool {
	return c.URL != ""
}

// DeprovisioningConfig holds the organization-specific parts of the
// generated checklist and records.
type DeprovisioningConfig struct {
	Domain       string `env:"DEPROV_DOMAIN" default:"consip.it"`
	Organization string `env:"DEPROV_ORGANIZATION" default:"Consip"`

	// ArchivePath is the share named in the PST extraction step. Empty
	// keeps the built-in path.
	ArchivePath string `env:"DEPROV_ARCHIVE_PATH"`

	// EntitlementPrefixes replace the default bulk-licensing prefixes
	// filtered from the identity record. Items are trimmed, so "o365"
	// covers "o365 ", "o365_" and "o365-" alike.
	EntitlementPrefixes []string `env:"DEPROV_ENTITLEMENT_PREFIXES"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
