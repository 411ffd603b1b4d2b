// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/logreporter-dev/logreporter/internal/reporter/logger"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "LOG_REPORTER_"

// Config holds the application configuration
// See .env.example for more documentation
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":8080"`
	// DatabaseURL selects the PostgreSQL job store. Empty keeps jobs in memory.
	DatabaseURL     string        `env:"DATABASE_URL" envDefault:""`
	Version         string        `env:"VERSION" envDefault:"dev"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Job registry
	JobTTL           time.Duration `env:"JOB_TTL" envDefault:"1h"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m"`
	MaxParallelFiles int           `env:"MAX_PARALLEL_FILES" envDefault:"0"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and parses the prefixed environment.
func Load() (*Config, error) {
	// A missing .env file is the normal case.
	_ = godotenv.Load()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix: EnvPrefix,
	}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the environment parser cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerAddress == "" {
		errs = append(errs, errors.New("SERVER_ADDRESS must not be empty"))
	}
	if c.JobTTL < 0 {
		errs = append(errs, errors.New("JOB_TTL must not be negative"))
	}
	if c.JobTTL > 0 && c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("CLEANUP_INTERVAL must be positive when JOB_TTL is set"))
	}
	if c.MaxParallelFiles < 0 {
		errs = append(errs, errors.New("MAX_PARALLEL_FILES must not be negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// LoggerConfig converts the logging settings. Call after Validate.
func (c *Config) LoggerConfig() logger.Config {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return logger.Config{Level: level, Format: c.LogFormat}
}
