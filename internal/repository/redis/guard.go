// Package redis implements the cycle-close idempotency guard on Redis so
// retries are deduplicated across processes.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect creates a client and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*goredis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("redis connection established", zap.String("addr", addr), zap.Int("db", db))
	return client, nil
}

// IdempotencyGuard reserves keys with SET NX and a TTL.
type IdempotencyGuard struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewIdempotencyGuard returns a guard whose reservations expire after ttl.
func NewIdempotencyGuard(client *goredis.Client, prefix string, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{client: client, prefix: prefix, ttl: ttl}
}

// Reserve reports false when key is already held.
func (g *IdempotencyGuard) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", key, err)
	}
	return ok, nil
}

// Release frees key.
func (g *IdempotencyGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
