package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to address and pings it once.
func NewRedisClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address, // e.g., "localhost:6379"
		Password: password,
		DB:       db,
		PoolSize: 100,

		ContextTimeoutEnabled: true,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", address, err)
	}

	return client, nil
}
