package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Port != ":8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.MaxMessageSize != 512 {
		t.Errorf("MaxMessageSize = %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 5 || cfg.RateLimit.RefillInterval != time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.UnauthPolicy != UnauthReject {
		t.Errorf("UnauthPolicy = %q", cfg.UnauthPolicy)
	}
	if cfg.History.Store != StoreMemory {
		t.Errorf("History.Store = %q", cfg.History.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com, https://admin.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("UNAUTH_POLICY", "quarantine")
	t.Setenv("NOTICE_TIMESTAMPS", "true")
	t.Setenv("HISTORY_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/chat.db")
	t.Setenv("HISTORY_QUEUE_SIZE", "4096")
	t.Setenv("AUTH_QUERY_PARAM", "user")

	cfg := FromEnv()

	if cfg.Port != ":9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://chat.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 2048 {
		t.Errorf("MaxMessageSize = %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 10 || cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.UnauthPolicy != UnauthQuarantine {
		t.Errorf("UnauthPolicy = %q", cfg.UnauthPolicy)
	}
	if !cfg.NoticeTimestamps {
		t.Error("NoticeTimestamps not set")
	}
	if cfg.History.Store != StoreSQLite || cfg.History.SQLitePath != "/tmp/chat.db" {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.History.QueueSize != 4096 {
		t.Errorf("History.QueueSize = %d", cfg.History.QueueSize)
	}
	if cfg.Auth.QueryParam != "user" {
		t.Errorf("Auth.QueryParam = %q", cfg.Auth.QueryParam)
	}
}

func TestFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "-3")

	cfg := FromEnv()

	if cfg.MaxMessageSize != 512 {
		t.Errorf("MaxMessageSize = %d, want default", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 5 {
		t.Errorf("RateLimit.Burst = %d, want default", cfg.RateLimit.Burst)
	}
}

func TestLoadAndValidateYAML(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "s3cret")
	yaml := `
port: ":9000"
allowed_origins:
  - "https://chat.example.com"
unauth_policy: quarantine
notice_timestamps: true
rate_limit:
  burst: 20
  refill_interval: 500ms
auth:
  mode: jwt
  jwt_secret: ${TEST_JWT_SECRET}
history:
  store: sqlite
  sqlite_path: relay.db
  queue_size: 64
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate: %v", err)
	}

	if cfg.Port != ":9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Auth.Mode != AuthModeJWT || cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("Auth = %+v, env expansion failed", cfg.Auth)
	}
	if cfg.History.QueueSize != 64 {
		t.Errorf("History.QueueSize = %d", cfg.History.QueueSize)
	}
	if cfg.RateLimit.Burst != 20 || cfg.RateLimit.RefillInterval != 500*time.Millisecond {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	// Unset fields still get defaults.
	if cfg.MaxMessageSize != 512 {
		t.Errorf("MaxMessageSize = %d, want default", cfg.MaxMessageSize)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad unauth policy", func(c *Config) { c.UnauthPolicy = "banhammer" }},
		{"bad store", func(c *Config) { c.History.Store = "tape" }},
		{"postgres without url", func(c *Config) { c.History.Store = StorePostgres }},
		{"jwt without secret", func(c *Config) { c.Auth.Mode = AuthModeJWT }},
		{"bad auth mode", func(c *Config) { c.Auth.Mode = "telepathy" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadAndValidate(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadAndValidate succeeded on a missing file")
	}
}
