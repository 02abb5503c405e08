package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"resource-portal-go/internal/config"
	"resource-portal-go/pkg/log"
)

// OpenRedis creates a Redis client and checks it with a PING.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	log.Info("Redis client connected")
	return rdb, nil
}
