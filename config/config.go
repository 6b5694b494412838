// Package config loads ledger configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	DBPath      string        `env:"LEDGER_DB_PATH"      envDefault:"library.db"`
	BusyTimeout time.Duration `env:"LEDGER_BUSY_TIMEOUT" envDefault:"5s"`
	MaxRetries  int           `env:"LEDGER_MAX_RETRIES"  envDefault:"3"`
	Log         LogConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LEDGER_LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LEDGER_LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.BusyTimeout <= 0 {
		return fmt.Errorf("busy timeout must be positive, got %s", c.BusyTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", c.MaxRetries)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format)
	}
	return nil
}
