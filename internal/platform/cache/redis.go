package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client from a bare address or a redis:// URL and
// verifies the connection.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(Options(addr))

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Options turns addr into client options. URLs carry password and database.
func Options(addr string) *redis.Options {
	if opts, err := redis.ParseURL(addr); err == nil {
		return opts
	}
	return &redis.Options{Addr: addr}
}
