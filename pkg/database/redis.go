package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/config"
)

// NewRedisClient creates the response-cache client. Returns nil (and no error)
// when Redis is not configured; callers treat a nil client as "caching off".
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
