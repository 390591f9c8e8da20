package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var configKeys = []string{
	"PORT", "GIN_MODE", "CORS_ALLOWED_ORIGINS", "REQUEST_TIMEOUT", "LOG_LEVEL", "LOG_PRETTY",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_SCHEMA_PATH",
	"DB_APPLY_SCHEMA", "DB_MAX_OPEN_CONNS", "JWT_SECRET", "JWT_TTL", "LOW_FEED_STOCK_KG",
	"SCHEDULER_ENABLED", "DIGEST_CRON",
}

// unsetConfigEnv clears every key Load reads; the original values come back when the test ends.
func unsetConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.GinMode != "debug" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Fatalf("expected 30s timeout got %s", cfg.Server.RequestTimeout)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 1 || cfg.Server.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %v", cfg.Server.CORSAllowedOrigins)
	}
	if !cfg.Feed.LowStockThresholdKg.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected a 50 kg threshold got %s", cfg.Feed.LowStockThresholdKg)
	}
	if cfg.Auth.JWTSecret != "hatchery-dev-secret" {
		t.Fatalf("expected the development secret in debug mode")
	}
	if cfg.Auth.TokenTTL != 12*time.Hour || cfg.Database.MaxOpenConns != 25 {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Auth, cfg.Database)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.DigestCron != "0 6 * * *" {
		t.Fatalf("unexpected scheduler config %+v", cfg.Scheduler)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	unsetConfigEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"PORT=9090",
		"GIN_MODE=release",
		"JWT_SECRET=from-file",
		"LOW_FEED_STOCK_KG=12.5",
		"CORS_ALLOWED_ORIGINS=https://a.example, https://b.example",
		"DIGEST_CRON=30 5 * * 1",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Auth.JWTSecret != "from-file" {
		t.Fatalf("values from the file were not applied: %+v %+v", cfg.Server, cfg.Auth)
	}
	if !cfg.Feed.LowStockThresholdKg.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected threshold 12.5 got %s", cfg.Feed.LowStockThresholdKg)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 2 || cfg.Server.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Scheduler.DigestCron != "30 5 * * 1" {
		t.Fatalf("unexpected cron %q", cfg.Scheduler.DigestCron)
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	unsetConfigEnv(t)
	t.Setenv("LOW_FEED_STOCK_KG", "plenty")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected an error for a non-numeric threshold")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080", GinMode: "release"},
			Database:  DatabaseConfig{MaxOpenConns: 10},
			Auth:      AuthConfig{JWTSecret: "secret"},
			Feed:      FeedConfig{LowStockThresholdKg: decimal.NewFromInt(50)},
			Scheduler: SchedulerConfig{Enabled: true, DigestCron: "0 6 * * *"},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]func(c *Config){
		"missing port":           func(c *Config) { c.Server.Port = "" },
		"no connections":         func(c *Config) { c.Database.MaxOpenConns = 0 },
		"release without key":    func(c *Config) { c.Auth.JWTSecret = "" },
		"negative threshold":     func(c *Config) { c.Feed.LowStockThresholdKg = decimal.NewFromInt(-1) },
		"scheduler without cron": func(c *Config) { c.Scheduler.DigestCron = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}

	var nilConfig *Config
	if err := nilConfig.Validate(); err == nil {
		t.Fatalf("expected an error for a nil config")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "hatchery", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=hatchery sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}
