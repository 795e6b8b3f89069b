package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServerURL             string `env:"VOLUMECTL_SERVER_URL,required"`
	APIKey                string `env:"VOLUMECTL_API_KEY"`
	DeviceName            string `env:"VOLUMECTL_DEVICE_NAME"`
	StateDir              string `env:"VOLUMECTL_STATE_DIR"`
	UseKeyring            bool   `env:"VOLUMECTL_USE_KEYRING" envDefault:"false"`
	RequestTimeoutSeconds int    `env:"VOLUMECTL_REQUEST_TIMEOUT_SECONDS" envDefault:"10"`
	SessionRefreshSeconds int    `env:"VOLUMECTL_SESSION_REFRESH_SECONDS" envDefault:"30"`
	LogLevel              string `env:"VOLUMECTL_LOG_LEVEL" envDefault:"warn"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) SessionRefreshInterval() time.Duration {
	return time.Duration(c.SessionRefreshSeconds) * time.Second
}

func (c *Config) Validate() error {
	parsed, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("VOLUMECTL_SERVER_URL is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("VOLUMECTL_SERVER_URL must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("VOLUMECTL_SERVER_URL has no host")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("VOLUMECTL_REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if c.SessionRefreshSeconds <= 0 {
		return fmt.Errorf("VOLUMECTL_SESSION_REFRESH_SECONDS must be positive, got %d", c.SessionRefreshSeconds)
	}
	return nil
}

// ResolveStateDir returns the directory for persisted client state,
// defaulting to $XDG_STATE_HOME/volumectl (~/.local/state/volumectl).
func (c *Config) ResolveStateDir() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "volumectl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "volumectl"), nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
