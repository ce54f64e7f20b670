// Package config loads server settings from the environment, optionally
// seeded from a .env.local or .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chirag127/TinyImage/internal/bus"
	"github.com/chirag127/TinyImage/internal/transcode"
	"github.com/chirag127/TinyImage/internal/validate"
)

// Config holds settings shared by the server and the CLI.
type Config struct {
	// Server
	Port    string
	GinMode string // debug, release or test

	// CORSAllowedOrigins is a comma-separated origin list.
	CORSAllowedOrigins string

	// Limits
	MaxFileSize   int64
	MaxBatchFiles int
	MaxPixels     int64

	// Batches
	Workers           int
	SessionTTLMinutes int

	// Events. An empty NATSURL disables publishing.
	NATSURL      string
	EventSubject string

	LogLevel string
}

// Load reads the environment after loading .env.local (or .env) from the
// working directory or its parent, then validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		MaxFileSize:   getEnvAsInt64("MAX_FILE_SIZE", validate.DefaultMaxBytes),
		MaxBatchFiles: getEnvAsInt("MAX_BATCH_FILES", validate.DefaultMaxImages),
		MaxPixels:     getEnvAsInt64("MAX_PIXELS", transcode.DefaultMaxPixels),

		Workers:           getEnvAsInt("WORKERS", 1),
		SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 30),

		NATSURL:      getEnv("NATS_URL", ""),
		EventSubject: getEnv("EVENT_SUBJECT", bus.DefaultSubject),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile() {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err == nil {
			return
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}
	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize)
	}
	if c.MaxBatchFiles < 0 {
		return fmt.Errorf("MAX_BATCH_FILES must not be negative, got %d", c.MaxBatchFiles)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive, got %d", c.SessionTTLMinutes)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.GinMode == "release" && c.CORSAllowedOrigins == "*" {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list explicit origins in release mode")
	}
	return nil
}

// AllowedOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SessionTTL is how long finished batches are kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Limits returns the per-batch validation limits.
func (c *Config) Limits() validate.Limits {
	return validate.Limits{
		MaxBytes:     c.MaxFileSize,
		AllowedTypes: validate.DefaultAllowedTypes(),
		MaxImages:    c.MaxBatchFiles,
	}
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
