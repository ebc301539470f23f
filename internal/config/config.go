// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration.
// Fields are populated from environment variables.
type Config struct {
	// Server settings
	Port       int    // HTTP port to listen on
	Env        string // development, staging, production
	CORSOrigin string // Access-Control-Allow-Origin value

	// Database
	DatabasePath string // Path to SQLite file

	// Calendar
	Timezone string // IANA zone the parish calendar lives in

	// Authentication
	JWTSecret string        // HMAC key for signing tokens
	JWTTTL    time.Duration // Token lifetime

	// Media
	UploadDir       string // Where uploaded files are stored
	UploadMaxMB     int    // Upload size limit in megabytes
	PublicURLPrefix string // URL prefix the uploads are served under

	// Backups
	BackupDir      string // Where backup archives are written
	BackupSchedule string // cron expression, empty disables scheduled backups
	BackupKeep     int    // Number of scheduled backups to retain

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
	LogFile   string // optional rotating log file
}

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// minJWTSecretLen is the shortest secret accepted outside development.
const minJWTSecretLen = 32

// Load reads configuration from environment variables.
// In development, it first loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	// Server settings
	cfg.Port = getEnvInt("PORT", 8080)
	cfg.Env = getEnv("ENV", EnvDevelopment)
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", "*")

	// Database
	cfg.DatabasePath = getEnv("DATABASE_PATH", "./data/parish.db")

	// Calendar
	cfg.Timezone = getEnv("TIMEZONE", "Europe/Moscow")

	// Authentication
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTTTL = getEnvDuration("JWT_TTL", 24*time.Hour)

	// Media
	cfg.UploadDir = getEnv("UPLOAD_DIR", "./uploads")
	cfg.UploadMaxMB = getEnvInt("UPLOAD_MAX_MB", 10)
	cfg.PublicURLPrefix = getEnv("PUBLIC_URL_PREFIX", "/uploads")

	// Backups
	cfg.BackupDir = getEnv("BACKUP_DIR", "./backups")
	cfg.BackupSchedule = getEnv("BACKUP_SCHEDULE", "")
	cfg.BackupKeep = getEnvInt("BACKUP_KEEP", 10)

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []error

	// Validate port range
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	// Validate environment
	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// Valid
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production; got %q", c.Env))
	}

	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH is required"))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q is not a known zone: %w", c.Timezone, err))
	}

	// A signing secret is mandatory everywhere except local development
	if c.Env != EnvDevelopment && len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters outside development", minJWTSecretLen))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL))
	}

	if c.UploadDir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR is required"))
	}
	if c.UploadMaxMB < 1 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_MB must be at least 1, got %d", c.UploadMaxMB))
	}

	if c.BackupDir == "" {
		errs = append(errs, errors.New("BACKUP_DIR is required"))
	}
	if c.BackupSchedule != "" {
		if _, err := cron.ParseStandard(c.BackupSchedule); err != nil {
			errs = append(errs, fmt.Errorf("BACKUP_SCHEDULE %q: %w", c.BackupSchedule, err))
		}
	}
	if c.BackupKeep < 1 {
		errs = append(errs, fmt.Errorf("BACKUP_KEEP must be at least 1, got %d", c.BackupKeep))
	}

	// Validate log level
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", c.LogLevel))
	}

	// Validate log format
	switch c.LogFormat {
	case "json", "text":
		// Valid
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of: json, text; got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Location returns the parish time zone. Validate guarantees it loads;
// UTC is returned for configs that were never validated.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UploadMaxBytes returns the upload limit in bytes.
func (c *Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxMB) << 20
}

// getEnv reads an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration reads an environment variable as a time.Duration.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
