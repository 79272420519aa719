// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/janisto/hello-api/internal/http/routes"
)

// Config holds all runtime settings of the service.
type Config struct {
	Port            int           `env:"PORT"             envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Metrics   MetricsConfig
	RateLimit RateLimitConfig
}

// MetricsConfig controls the Prometheus exposition route.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH"    envDefault:"/metrics"`
}

// RateLimitConfig controls per-client-IP throttling. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"0"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// Load reads an optional .env file, then parses and validates the environment.
// Variables already set in the environment take precedence over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}

	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics path must start with /: %q", c.Metrics.Path)
		}
		if strings.ContainsAny(c.Metrics.Path, "{}*") {
			return fmt.Errorf("metrics path must be a literal path: %q", c.Metrics.Path)
		}
		if routes.Reserved(c.Metrics.Path) {
			return fmt.Errorf("metrics path %q collides with an API route", c.Metrics.Path)
		}
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit rps must not be negative, got %v", c.RateLimit.RPS)
	}
	if c.RateLimit.Enabled() && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1 when limiting is enabled, got %d", c.RateLimit.Burst)
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Enabled reports whether rate limiting is active.
func (c RateLimitConfig) Enabled() bool {
	return c.RPS > 0
}
