package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"hatchery_backend/internal/config"
	"hatchery_backend/pkg/utils"
)

//go:embed schema.sql
var embeddedSchema string

// Connect opens the Postgres pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	utils.LogInfo("Successfully connected to the database", map[string]interface{}{
		"host": cfg.Host,
		"name": cfg.Name,
	})
	return db, nil
}

// Schema returns the DDL to apply: the file at schemaPath when set, the embedded schema otherwise.
func Schema(schemaPath string) (string, error) {
	if schemaPath == "" {
		return embeddedSchema, nil
	}
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return "", fmt.Errorf("could not read schema file %s: %w", schemaPath, err)
	}
	return string(content), nil
}

// ApplySchema executes the schema script. It is idempotent.
func ApplySchema(ctx context.Context, db *sql.DB, schemaPath string) error {
	script, err := Schema(schemaPath)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("could not execute schema script: %w", err)
	}
	source := schemaPath
	if source == "" {
		source = "embedded"
	}
	utils.LogInfo("Database schema applied", map[string]interface{}{"source": source})
	return nil
}
