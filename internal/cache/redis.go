package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "erp-assistant:"

// Redis is a cache backed by a Redis server.
type Redis struct {
	rdb        *redis.Client
	defaultTTL time.Duration
}

// NewRedis connects to the server at url (redis://...) and verifies it with PING.
func NewRedis(ctx context.Context, url string, defaultTTL time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisWithClient(rdb, defaultTTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *redis.Client, defaultTTL time.Duration) *Redis {
	return &Redis{rdb: rdb, defaultTTL: defaultTTL}
}

// Get returns a cached value.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	return data, true, nil
}

// Set stores value with ttl, or the default TTL when ttl <= 0.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.rdb.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
