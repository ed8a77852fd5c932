package config

import (
	"strings"
	"testing"
	"time"
)

// envMap returns a lookup over a fixed set of variables.
func envMap(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Session.CookieName != "tabledit_session" {
		t.Errorf("Session.CookieName = %q, want %q", cfg.Session.CookieName, "tabledit_session")
	}
	if cfg.Session.IdleTimeout != 2*time.Hour {
		t.Errorf("Session.IdleTimeout = %v, want %v", cfg.Session.IdleTimeout, 2*time.Hour)
	}
	if cfg.Import.MaxFileSize != 10485760 {
		t.Errorf("Import.MaxFileSize = %d, want %d", cfg.Import.MaxFileSize, 10485760)
	}
	if cfg.Export.Delimiter() != ';' {
		t.Errorf("Export.Delimiter() = %q, want %q", cfg.Export.Delimiter(), ';')
	}
	if cfg.Generation.Enabled() {
		t.Error("Generation.Enabled() = true without an API key")
	}
	if cfg.Generation.MaxConcurrent != 4 {
		t.Errorf("Generation.MaxConcurrent = %d, want %d", cfg.Generation.MaxConcurrent, 4)
	}
	if cfg.Rate.RequestsPerMinute != 300 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 300)
	}
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9191)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"SERVER_PORT":               "9090",
		"GENERATION_MAX_CONCURRENT": "10",
		"EXPORT_CSV_DELIMITER":      ",",
		"LOG_LEVEL":                 "debug",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Generation.MaxConcurrent != 10 {
		t.Errorf("Generation.MaxConcurrent = %d, want %d", cfg.Generation.MaxConcurrent, 10)
	}
	if cfg.Export.Delimiter() != ',' {
		t.Errorf("Export.Delimiter() = %q, want %q", cfg.Export.Delimiter(), ',')
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{"GEMINI_API_KEY": "alt-key"}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Generation.APIKey != "alt-key" {
		t.Errorf("Generation.APIKey = %q, want %q", cfg.Generation.APIKey, "alt-key")
	}
	if !cfg.Generation.Enabled() {
		t.Error("Generation.Enabled() = false with an API key")
	}
}

func TestLoad_PrimaryEnvVarWins(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"GENERATION_API_KEY": "primary",
		"GEMINI_API_KEY":     "alt",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Generation.APIKey != "primary" {
		t.Errorf("Generation.APIKey = %q, want %q", cfg.Generation.APIKey, "primary")
	}
}

func TestLoad_Duration(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"SERVER_READ_TIMEOUT":      "45s",
		"GENERATION_MAX_WAIT_TIME": "1m30s",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Generation.MaxWaitTime != 90*time.Second {
		t.Errorf("Generation.MaxWaitTime = %v, want %v", cfg.Generation.MaxWaitTime, 90*time.Second)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := LoadFrom(envMap(map[string]string{"SESSION_IDLE_TIMEOUT": "forever"}))
	if err == nil {
		t.Fatal("LoadFrom() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "SESSION_IDLE_TIMEOUT") {
		t.Errorf("error should mention SESSION_IDLE_TIMEOUT: %v", err)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"TRUSTED_PROXIES": "10.0.0.0/8, 172.16.0.0/12 , ,192.168.0.0/16",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

// validConfig returns a configuration that passes validation.
func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8080, ShutdownTimeout: time.Second, RequestTimeout: time.Minute},
		Session:    SessionConfig{CookieName: "s", IdleTimeout: time.Hour, SweepInterval: time.Minute, MaxSessions: 10},
		Import:     ImportConfig{MaxFileSize: 1024},
		Export:     ExportConfig{CSVDelimiter: ";"},
		Generation: GenerationConfig{Model: "m", Timeout: time.Minute, MaxAttempts: 1, MaxConcurrent: 1, MaxWaitTime: time.Second},
		Rate:       RateLimitConfig{Enabled: true, RequestsPerMinute: 100, GenerateLimit: 5},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"zero session idle", func(c *Config) { c.Session.IdleTimeout = 0 }, "SESSION_IDLE_TIMEOUT"},
		{"negative max sessions", func(c *Config) { c.Session.MaxSessions = -1 }, "SESSION_MAX"},
		{"zero file size", func(c *Config) { c.Import.MaxFileSize = 0 }, "IMPORT_MAX_FILE_SIZE"},
		{"long delimiter", func(c *Config) { c.Export.CSVDelimiter = ";;" }, "EXPORT_CSV_DELIMITER"},
		{"quote delimiter", func(c *Config) { c.Export.CSVDelimiter = `"` }, "EXPORT_CSV_DELIMITER"},
		{"newline delimiter", func(c *Config) { c.Export.CSVDelimiter = "\n" }, "EXPORT_CSV_DELIMITER"},
		{"zero attempts", func(c *Config) { c.Generation.MaxAttempts = 0 }, "GENERATION_MAX_ATTEMPTS"},
		{"zero generations", func(c *Config) { c.Generation.MaxConcurrent = 0 }, "GENERATION_MAX_CONCURRENT"},
		{"zero generate limit", func(c *Config) { c.Rate.GenerateLimit = 0 }, "RATE_LIMIT_GENERATE"},
		{"api key auth without keys", func(c *Config) { c.Security.RequireAPIKey = true }, "API_KEYS"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %s: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_RateLimitsIgnoredWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Rate = RateLimitConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"localhost", 443, "localhost:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		got := cfg.Addr()
		if got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString_MasksAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Generation.APIKey = "super-secret-key"
	cfg.Security.APIKeys = []string{"client-secret"}

	str := cfg.String()
	if strings.Contains(str, "super-secret-key") || strings.Contains(str, "client-secret") {
		t.Error("String() should mask API keys")
	}
	if !strings.Contains(str, "MASKED") {
		t.Error("String() should contain MASKED placeholder")
	}
}
