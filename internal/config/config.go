// Package config defines runtime configuration for the chat relay, with
// defaults, validation, and environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Unauthenticated-connection policies.
const (
	UnauthReject     = "reject"
	UnauthQuarantine = "quarantine"
)

// Supported history store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Supported identity resolution modes.
const (
	AuthModeQuery = "query"
	AuthModeJWT   = "jwt"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// UnmarshalYAML accepts the refill interval in duration notation ("1s",
// "500ms"), which yaml.v3 does not decode into time.Duration on its own.
func (r *RateLimitConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Burst          int    `yaml:"burst"`
		RefillInterval string `yaml:"refill_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	r.Burst = raw.Burst
	if raw.RefillInterval != "" {
		d, err := time.ParseDuration(raw.RefillInterval)
		if err != nil {
			return fmt.Errorf("parse refill_interval: %w", err)
		}
		r.RefillInterval = d
	}
	return nil
}

// AuthConfig selects how a connection attempt is resolved to an identity.
type AuthConfig struct {
	Mode       string `yaml:"mode"`
	JWTSecret  string `yaml:"jwt_secret"`
	QueryParam string `yaml:"query_param"`
}

// HistoryConfig selects and parameterizes the message history store.
type HistoryConfig struct {
	Store       string `yaml:"store"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
	QueueSize   int    `yaml:"queue_size"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port             string          `yaml:"port"`
	AllowedOrigins   []string        `yaml:"allowed_origins"`
	MaxMessageSize   int64           `yaml:"max_message_size"`
	SendBuffer       int             `yaml:"send_buffer"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
	UnauthPolicy     string          `yaml:"unauth_policy"`
	NoticeTimestamps bool            `yaml:"notice_timestamps"`
	Auth             AuthConfig      `yaml:"auth"`
	History          HistoryConfig   `yaml:"history"`
}

// Default returns a Config populated with default values for all settings.
func Default() *Config {
	return &Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 512,
		SendBuffer:     256,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		UnauthPolicy: UnauthReject,
		Auth: AuthConfig{
			Mode:       AuthModeQuery,
			QueryParam: "username",
		},
		History: HistoryConfig{
			Store:      StoreMemory,
			SQLitePath: "chatrelay.db",
			QueueSize:  1024,
		},
	}
}

func (c *Config) applyDefaults() {
	d := Default()

	if c.Port == "" {
		c.Port = d.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = d.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = d.RateLimit.RefillInterval
	}
	if c.UnauthPolicy == "" {
		c.UnauthPolicy = d.UnauthPolicy
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = d.Auth.Mode
	}
	if c.Auth.QueryParam == "" {
		c.Auth.QueryParam = d.Auth.QueryParam
	}
	if c.History.Store == "" {
		c.History.Store = d.History.Store
	}
	if c.History.SQLitePath == "" {
		c.History.SQLitePath = d.History.SQLitePath
	}
	if c.History.QueueSize <= 0 {
		c.History.QueueSize = d.History.QueueSize
	}
}

// Validate checks the configuration for values that cannot be defaulted away.
func (c *Config) Validate() error {
	switch c.UnauthPolicy {
	case UnauthReject, UnauthQuarantine:
	default:
		return fmt.Errorf("invalid unauth_policy %q (want %q or %q)", c.UnauthPolicy, UnauthReject, UnauthQuarantine)
	}

	switch c.History.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.History.PostgresURL == "" {
			return fmt.Errorf("history store %q requires postgres_url", StorePostgres)
		}
	default:
		return fmt.Errorf("invalid history store %q", c.History.Store)
	}

	switch c.Auth.Mode {
	case AuthModeQuery:
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth mode %q requires jwt_secret", AuthModeJWT)
		}
	default:
		return fmt.Errorf("invalid auth mode %q", c.Auth.Mode)
	}

	return nil
}

// FromEnv returns a Config built from defaults overridden by environment
// variables. Unset or unparseable variables fall back to the defaults.
func FromEnv() *Config {
	cfg := Default()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides the receiver's fields from environment variables.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		c.MaxMessageSize = parseInt64Value(maxSize, c.MaxMessageSize)
	}
	if buf := os.Getenv("SEND_BUFFER"); buf != "" {
		c.SendBuffer = parseIntValue(buf, c.SendBuffer)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		c.RateLimit.Burst = parseIntValue(burst, c.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		c.RateLimit.RefillInterval = parseSecondsValue(interval, c.RateLimit.RefillInterval)
	}
	if policy := os.Getenv("UNAUTH_POLICY"); policy != "" {
		c.UnauthPolicy = policy
	}
	if notice := os.Getenv("NOTICE_TIMESTAMPS"); notice != "" {
		c.NoticeTimestamps = parseBoolValue(notice, c.NoticeTimestamps)
	}
	if mode := os.Getenv("AUTH_MODE"); mode != "" {
		c.Auth.Mode = mode
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if param := os.Getenv("AUTH_QUERY_PARAM"); param != "" {
		c.Auth.QueryParam = param
	}
	if store := os.Getenv("HISTORY_STORE"); store != "" {
		c.History.Store = store
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		c.History.SQLitePath = path
	}
	if url := os.Getenv("POSTGRES_URL"); url != "" {
		c.History.PostgresURL = url
	}
	if size := os.Getenv("HISTORY_QUEUE_SIZE"); size != "" {
		c.History.QueueSize = parseIntValue(size, c.History.QueueSize)
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseInt64Value(value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseBoolValue(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}

func parseSecondsValue(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
