package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/joy095/property-booking/logger"
	"github.com/redis/go-redis/v9"
)

// Connect returns a client for redisURL, or nil when no URL is configured.
// Redis is optional: without it the assignment lock falls back to an
// in-process lock and rate limiting is disabled.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		logger.WarnLogger.Warn("REDIS_URL not set; distributed locking and rate limiting are disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.InfoLogger.Info("Connected to Redis")
	return client, nil
}

// Close closes the client if one was created.
func Close(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.ErrorLogger.Errorf("Error closing Redis connection: %v", err)
		return
	}
	logger.InfoLogger.Info("Redis connection closed")
}
