// ABOUTME: Configuration loading for the repfit admin CLI.
// ABOUTME: Loads TOML config from an XDG path with environment variable expansion.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Display DisplayConfig `toml:"display"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type DisplayConfig struct {
	// Timezone for grouping exercise records by day. Defaults to Local.
	Timezone string `toml:"timezone"`
}

// configPath returns the admin config location.
// Priority: REPFIT_ADMIN_CONFIG env var > XDG_CONFIG_HOME/repfit/admin.toml > ~/.config/repfit/admin.toml
func configPath() string {
	if envPath := os.Getenv("REPFIT_ADMIN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "admin.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "repfit", "admin.toml")
}

// loadConfig reads config from the given path, expanding environment
// variables. A missing file is not an error; defaults apply.
func loadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		expanded := expandEnvVars(string(data))
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath()
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// defaultStoragePath mirrors the daemon's default database location.
func defaultStoragePath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("data", "repfit.db")
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "repfit", "repfit.db")
}

// location resolves the configured display timezone.
func (c *Config) location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Display.Timezone)
}
