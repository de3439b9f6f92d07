package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/property-booking/logger"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the idempotent schema. It waits up to 30 seconds for the
// database to accept connections.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	logger.InfoLogger.Info("Applying database schema")
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		logger.ErrorLogger.Errorf("Failed to apply schema: %v", err)
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.InfoLogger.Info("Database schema is up to date")
	return nil
}
