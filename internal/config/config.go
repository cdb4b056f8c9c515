// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting for the service.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// DatabaseURL selects the store: a postgres:// URL for lib/pq, any
	// other value is treated as a SQLite file path.
	DatabaseURL string

	// LogLevel is a zerolog level name (trace, debug, info, warn, error).
	LogLevel string

	// LogFormat is one of auto, console, json.
	LogFormat string

	// ReconcileTimeout bounds one reconciliation's store interaction.
	ReconcileTimeout time.Duration

	// ShutdownTimeout bounds graceful server shutdown.
	ShutdownTimeout time.Duration

	// HTTP server timeouts.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "./contactlink.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "auto")
	v.SetDefault("RECONCILE_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("READ_TIMEOUT", "10s")
	v.SetDefault("WRITE_TIMEOUT", "10s")
	v.SetDefault("IDLE_TIMEOUT", "120s")

	return &Config{
		Port:             v.GetString("PORT"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
		ReconcileTimeout: v.GetDuration("RECONCILE_TIMEOUT"),
		ShutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),
		ReadTimeout:      v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:     v.GetDuration("WRITE_TIMEOUT"),
		IdleTimeout:      v.GetDuration("IDLE_TIMEOUT"),
	}
}
