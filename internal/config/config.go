// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Load layers a YAML file and HUDDLE_* env vars over those defaults.
// - Errors wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver picks the entity store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file used when StoreDriver is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// AuthSecret signs and verifies HS256 session tokens.
	AuthSecret string `koanf:"auth_secret"`

	// AuthIssuer is the expected token issuer.
	AuthIssuer string `koanf:"auth_issuer"`

	// DigestWindowHours is the look-back window for digests.
	DigestWindowHours int `koanf:"digest_window_hours"`

	// FanoutWorkers bounds concurrent lookups per digest build.
	FanoutWorkers int `koanf:"fanout_workers"`

	// SeedDemo loads a synthetic dataset on start.
	SeedDemo bool `koanf:"seed_demo"`

	// OTelEndpoint is the OTLP/HTTP collector host:port. Empty disables tracing.
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreDriver:       StoreMemory,
		SQLitePath:        "huddle.db",
		AuthIssuer:        "huddle",
		DigestWindowHours: 7 * 24,
		FanoutWorkers:     runtime.NumCPU() * 4,
	}
}

// Window returns the digest window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.DigestWindowHours) * time.Hour
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
	case strings.TrimSpace(c.AuthSecret) == "":
		return fmt.Errorf("%w: auth_secret must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.AuthIssuer) == "":
		return fmt.Errorf("%w: auth_issuer must not be empty", ErrInvalidConfig)
	case c.DigestWindowHours <= 0:
		return fmt.Errorf("%w: digest_window_hours must be positive", ErrInvalidConfig)
	case c.FanoutWorkers <= 0:
		return fmt.Errorf("%w: fanout_workers must be positive", ErrInvalidConfig)
	}
	return nil
}
