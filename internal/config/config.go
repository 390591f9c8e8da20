package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"hatchery_backend/pkg/utils"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Feed      FeedConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port               string
	GinMode            string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
}

// LogConfig selects the zerolog level and writer.
type LogConfig struct {
	Level  string
	Pretty bool
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	SchemaPath   string
	ApplySchema  bool
	MaxOpenConns int
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// FeedConfig holds feed inventory options.
type FeedConfig struct {
	LowStockThresholdKg decimal.Decimal
}

// SchedulerConfig holds the digest job settings.
type SchedulerConfig struct {
	Enabled    bool
	DigestCron string
}

// DSN builds a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	threshold, err := decimal.NewFromString(utils.Getenv("LOW_FEED_STOCK_KG", "50"))
	if err != nil {
		return nil, fmt.Errorf("LOW_FEED_STOCK_KG must be a number: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               utils.Getenv("PORT", "8080"),
			GinMode:            utils.Getenv("GIN_MODE", "debug"),
			CORSAllowedOrigins: splitList(utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
			RequestTimeout:     utils.GetenvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  utils.Getenv("LOG_LEVEL", "info"),
			Pretty: utils.GetenvBool("LOG_PRETTY", true),
		},
		Database: DatabaseConfig{
			Host:         utils.Getenv("DB_HOST", "localhost"),
			Port:         utils.Getenv("DB_PORT", "5432"),
			User:         utils.Getenv("DB_USER", "postgres"),
			Password:     utils.Getenv("DB_PASSWORD", "postgres"),
			Name:         utils.Getenv("DB_NAME", "hatchery"),
			SSLMode:      utils.Getenv("DB_SSLMODE", "disable"),
			SchemaPath:   os.Getenv("DB_SCHEMA_PATH"),
			ApplySchema:  utils.GetenvBool("DB_APPLY_SCHEMA", true),
			MaxOpenConns: utils.GetenvInt("DB_MAX_OPEN_CONNS", 25),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  utils.GetenvDuration("JWT_TTL", 12*time.Hour),
		},
		Feed: FeedConfig{
			LowStockThresholdKg: threshold,
		},
		Scheduler: SchedulerConfig{
			Enabled:    utils.GetenvBool("SCHEDULER_ENABLED", true),
			DigestCron: utils.Getenv("DIGEST_CRON", "0 6 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("PORT must be provided")
	}
	if c.Database.MaxOpenConns <= 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.Auth.JWTSecret == "" {
		if c.Server.GinMode != "debug" {
			return errors.New("JWT_SECRET must be provided outside debug mode")
		}
		c.Auth.JWTSecret = "hatchery-dev-secret"
	}
	if c.Feed.LowStockThresholdKg.IsNegative() {
		return errors.New("LOW_FEED_STOCK_KG must not be negative")
	}
	if c.Scheduler.Enabled && strings.TrimSpace(c.Scheduler.DigestCron) == "" {
		return errors.New("DIGEST_CRON must be provided when the scheduler is enabled")
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
