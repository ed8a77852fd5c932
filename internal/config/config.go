// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"time"
	"unicode/utf8"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Session    SessionConfig
	Import     ImportConfig
	Export     ExportConfig
	Generation GenerationConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 3m, covers generation)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"3m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 150s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"150s"`
}

// SessionConfig holds in-memory editing session settings.
type SessionConfig struct {
	// CookieName is the name of the session cookie (default: tabledit_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"tabledit_session"`

	// IdleTimeout expires sessions not accessed for this long (default: 2h)
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"2h"`

	// SweepInterval is how often idle sessions are removed (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`

	// MaxSessions caps the number of live sessions (default: 1000)
	MaxSessions int `env:"SESSION_MAX" default:"1000"`

	// SecureCookie sets the Secure attribute on the session cookie (default: false)
	SecureCookie bool `env:"SESSION_SECURE_COOKIE" default:"false"`
}

// ImportConfig holds upload settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`
}

// ExportConfig holds download settings.
type ExportConfig struct {
	// CSVDelimiter is the single-character CSV field separator (default: ;)
	CSVDelimiter string `env:"EXPORT_CSV_DELIMITER" default:";"`
}

// Delimiter returns the CSV delimiter as a rune, or 0 when unset.
func (c *ExportConfig) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// GenerationConfig holds settings for the AI data-generation service.
type GenerationConfig struct {
	// APIKey is the Gemini API key; generation is disabled when empty
	// Supports both GENERATION_API_KEY and GEMINI_API_KEY env vars
	APIKey string `env:"GENERATION_API_KEY" envAlt:"GEMINI_API_KEY"`

	// BaseURL is the Gemini API endpoint (default: https://generativelanguage.googleapis.com)
	BaseURL string `env:"GENERATION_BASE_URL" default:"https://generativelanguage.googleapis.com"`

	// Model is the model used for generation (default: gemini-2.5-flash)
	Model string `env:"GENERATION_MODEL" default:"gemini-2.5-flash"`

	// Timeout bounds one generation including retries (default: 2m)
	Timeout time.Duration `env:"GENERATION_TIMEOUT" default:"2m"`

	// MaxAttempts is the number of tries for a retryable failure (default: 3)
	MaxAttempts int `env:"GENERATION_MAX_ATTEMPTS" default:"3"`

	// MaxConcurrent is the maximum number of parallel generations (default: 4)
	MaxConcurrent int `env:"GENERATION_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a generation slot (default: 10s)
	MaxWaitTime time.Duration `env:"GENERATION_MAX_WAIT_TIME" default:"10s"`
}

// Enabled reports whether a credential is configured.
func (c *GenerationConfig) Enabled() bool {
	return c.APIKey != ""
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// GenerateLimit is requests per minute for the generate endpoint (default: 10)
	GenerateLimit int `env:"RATE_LIMIT_GENERATE" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
