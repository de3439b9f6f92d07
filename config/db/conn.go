package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/property-booking/config"
	"github.com/joy095/property-booking/logger"
)

// Connect builds the pgx pool from the process configuration. The caller
// owns the returned pool and must Close it on shutdown.
func Connect(ctx context.Context, c *config.Config) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		logger.ErrorLogger.Errorf("Unable to parse DATABASE_URL: %v", err)
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}

	cfg.MaxConns = c.DBMaxConns
	cfg.MinConns = c.DBMinConns
	cfg.MaxConnLifetime = c.DBConnLifetime
	cfg.MaxConnIdleTime = c.DBConnIdleTime

	start := time.Now()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		logger.ErrorLogger.Errorf("Database connection error: %v", err)
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	// Don't block startup on a cold database; Migrate will wait for it.
	go func() {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pingCancel()

		if err := pool.Ping(pingCtx); err != nil {
			logger.WarnLogger.Warnf("Database cold start or unreachable: %v", err)
		} else {
			logger.InfoLogger.Infof("Database ready (ping ok in %v)", time.Since(start))
		}
	}()

	logger.InfoLogger.Info("Connected to PostgreSQL pool (async ping).")
	return pool, nil
}

// Close releases the pool.
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
		logger.InfoLogger.Info("Disconnected from PostgreSQL.")
	}
}
