/*
Package config loads server configuration from the environment.

SOURCES (later wins):
  1. Built-in defaults
  2. .env file in the working directory, if present
  3. Process environment
  4. Command-line flags (applied by cmd/server)

VARIABLES:
  PORT                  HTTP port (8080)
  DB_DRIVER             sqlite | postgres (sqlite)
  DB_DSN                SQLite path or PostgreSQL URL (leave.db)
  JWT_SECRET            HS256 secret, required outside development
  JWT_ISSUER            Expected token issuer (leave-engine)
  JWT_TTL               Token lifetime for cmd/devtoken (24h)
  ATTACHMENT_DIR        Root directory for uploads (./storage)
  ATTACHMENT_MAX_BYTES  Upload size limit (5 MiB)
  RATE_LIMIT_RPS        Requests per second per caller (10)
  RATE_LIMIT_BURST      Burst per caller (20)
  CORS_ORIGINS          Comma-separated allowed origins
  PROVISION_INTERVAL    Year-start provisioning interval, 0 disables (0)
  BOOTSTRAP_ADMIN_ID    Admin user created at startup if missing
  BOOTSTRAP_ADMIN_NAME  Display name for that admin (Administrator)
  LOG_LEVEL             debug | info | warn | error (info)
  APP_ENV               development | production (development)
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	DBDriver          string
	DBDSN             string
	JWTSecret         string
	JWTIssuer         string
	JWTTTL            time.Duration
	AttachmentDir     string
	AttachmentMaxSize int64
	RateLimitRPS      float64
	RateLimitBurst    int
	CORSOrigins       []string
	ProvisionInterval time.Duration
	BootstrapAdminID  string
	BootstrapAdmin    string
	LogLevel          string
	AppEnv            string
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Port:              GetEnvAsInt("PORT", 8080),
		DBDriver:          GetEnv("DB_DRIVER", "sqlite"),
		DBDSN:             GetEnv("DB_DSN", "leave.db"),
		JWTSecret:         GetEnv("JWT_SECRET", ""),
		JWTIssuer:         GetEnv("JWT_ISSUER", "leave-engine"),
		JWTTTL:            GetEnvAsDuration("JWT_TTL", 24*time.Hour),
		AttachmentDir:     GetEnv("ATTACHMENT_DIR", "./storage"),
		AttachmentMaxSize: int64(GetEnvAsInt("ATTACHMENT_MAX_BYTES", 5<<20)),
		RateLimitRPS:      GetEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:    GetEnvAsInt("RATE_LIMIT_BURST", 20),
		CORSOrigins:       GetEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		ProvisionInterval: GetEnvAsDuration("PROVISION_INTERVAL", 0),
		BootstrapAdminID:  GetEnv("BOOTSTRAP_ADMIN_ID", ""),
		BootstrapAdmin:    GetEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		AppEnv:            GetEnv("APP_ENV", "development"),
	}
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// =============================================================================
// ENV HELPERS
// =============================================================================

// GetEnv returns the variable or fallback when unset.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func GetEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func GetEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(GetEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

// GetEnvAsDuration accepts Go durations ("90s", "1h") or plain seconds.
func GetEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func GetEnvAsList(key string, fallback []string) []string {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
