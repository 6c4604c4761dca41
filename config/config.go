// Package config loads the display server configuration from the environment
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	RootPath     string `env:"RD_ROOT_PATH" env-default:"." env-description:"directory holding the database and uploads"`
	ListenAddr   string `env:"RD_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	WebServerURL string `env:"RD_WEBSERVER_URL" env-default:"http://localhost:8080" env-description:"base url the background managers call"`

	PollInterval       time.Duration `env:"RD_POLL_INTERVAL" env-default:"30s"`
	TickInterval       time.Duration `env:"RD_TICK_INTERVAL" env-default:"250ms"`
	LocalScanInterval  time.Duration `env:"RD_LOCAL_SCAN_INTERVAL" env-default:"1m"`
	RemoteSyncInterval time.Duration `env:"RD_REMOTE_SYNC_INTERVAL" env-default:"1h"`
	RemoteSyncTimeout  time.Duration `env:"RD_REMOTE_SYNC_TIMEOUT" env-default:"30m"`

	AWSProfile string `env:"RD_AWS_PROFILE"`
	S3Bucket   string `env:"RD_S3_BUCKET" env-description:"bucket mirrored into uploads/promo, empty disables the mirror"`

	LogLevel  string `env:"RD_LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"RD_LOG_FORMAT" env-default:"text"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("RD_POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("RD_TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	return &cfg, nil
}

// RemoteEnabled reports whether the S3 mirror should run.
func (c *Config) RemoteEnabled() bool {
	return c.S3Bucket != ""
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Usage describes every supported variable.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
