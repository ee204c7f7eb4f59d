// ABOUTME: Configuration loading and parsing for the repfit daemon
// ABOUTME: YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete repfit configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Widgets WidgetsConfig `yaml:"widgets"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// StorageConfig holds the key-value database location
type StorageConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds session signing and lifetime configuration
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"-"`
	ResetTTL   time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SessionTTLRaw string `yaml:"session_ttl"`
	ResetTTLRaw   string `yaml:"reset_ttl"`
}

// WidgetsConfig holds the embedded widget origins and dedupe tuning
type WidgetsConfig struct {
	ChatOrigins   []string      `yaml:"chat_origins"`
	RepBotOrigins []string      `yaml:"repbot_origins"`
	DedupeSpan    time.Duration `yaml:"-"`

	DedupeSpanRaw string `yaml:"dedupe_span"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied before validation.
const (
	DefaultHTTPAddr   = "127.0.0.1:8642"
	DefaultSessionTTL = 24 * time.Hour
	DefaultResetTTL   = 30 * time.Minute
	DefaultDedupeSpan = 5 * time.Second
)

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable
// values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration fields
func parseDurations(cfg *Config) error {
	pairs := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Auth.SessionTTLRaw, &cfg.Auth.SessionTTL, "auth.session_ttl"},
		{cfg.Auth.ResetTTLRaw, &cfg.Auth.ResetTTL, "auth.reset_ttl"},
		{cfg.Widgets.DedupeSpanRaw, &cfg.Widgets.DedupeSpan, "widgets.dedupe_span"},
	}
	for _, p := range pairs {
		if p.raw == "" {
			continue
		}
		d, err := time.ParseDuration(p.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = DefaultSessionTTL
	}
	if c.Auth.ResetTTL == 0 {
		c.Auth.ResetTTL = DefaultResetTTL
	}
	if c.Widgets.DedupeSpan == 0 {
		c.Widgets.DedupeSpan = DefaultDedupeSpan
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.SessionTTL < 0 || c.Auth.ResetTTL < 0 || c.Widgets.DedupeSpan < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}
