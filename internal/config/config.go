// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Shared registry backend. Either a full URL, or discrete host settings.
	// When neither is set the service runs in single-instance mode with the
	// in-memory registry.
	RedisURL      string `env:"REDIS_URL"`
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT" default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" default:"0"`

	// ConnectionTTL is how long a registry entry lives without being swept.
	ConnectionTTL time.Duration `env:"SSE_CONNECTION_TTL" default:"1h"`
	// SweepInterval is the cadence of the expired-entry cleanup sweep.
	SweepInterval time.Duration `env:"SSE_SWEEP_INTERVAL" default:"5m"`
	// MaxConnectionsPerProject caps local subscribers per project.
	MaxConnectionsPerProject int `env:"SSE_MAX_CONNECTIONS_PER_PROJECT" default:"100"`

	// FragmentsTable is the source table the webhook trigger fires for.
	FragmentsTable string `env:"WEBHOOK_FRAGMENTS_TABLE" default:"fragments"`
	// BroadcastDelay gives just-opened subscriptions time to finish
	// registering before the webhook's broadcast fires.
	BroadcastDelay time.Duration `env:"WEBHOOK_BROADCAST_DELAY" default:"100ms"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.ConnectionTTL <= 0 {
		return fmt.Errorf("SSE_CONNECTION_TTL must be positive, got %s", cfg.ConnectionTTL)
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SSE_SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	if cfg.MaxConnectionsPerProject <= 0 {
		return fmt.Errorf("SSE_MAX_CONNECTIONS_PER_PROJECT must be positive, got %d", cfg.MaxConnectionsPerProject)
	}
	if cfg.FragmentsTable == "" {
		return fmt.Errorf("WEBHOOK_FRAGMENTS_TABLE must not be empty")
	}
	if cfg.BroadcastDelay < 0 {
		return fmt.Errorf("WEBHOOK_BROADCAST_DELAY must not be negative, got %s", cfg.BroadcastDelay)
	}
	if cfg.RedisPort <= 0 || cfg.RedisPort > 65535 {
		return fmt.Errorf("REDIS_PORT must be a valid port, got %d", cfg.RedisPort)
	}
	return nil
}

// EffectiveRedisURL returns the connection URL for the shared registry
// backend, composing one from the discrete host settings when REDIS_URL is
// unset. Returns "" when no backend is configured.
func (c *Config) EffectiveRedisURL() string {
	if c.RedisURL != "" {
		return c.RedisURL
	}
	if c.RedisHost == "" {
		return ""
	}
	auth := ""
	if c.RedisPassword != "" {
		auth = ":" + c.RedisPassword + "@"
	}
	return fmt.Sprintf("redis://%s%s:%d/%d", auth, c.RedisHost, c.RedisPort, c.RedisDB)
}
