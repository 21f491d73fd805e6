package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces applied event keys in a shared Redis
const DefaultKeyPrefix = "commercesync:applied:"

// RedisAppliedCache implements AppliedEventCache using SETNX with expiry,
// so every instance behind the load balancer shares the replay guard
type RedisAppliedCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisOptions configures the Redis connection of the cache
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// NewRedisAppliedCache connects to Redis and verifies the connection with a
// PING bounded by ctx and DialTimeout
func NewRedisAppliedCache(ctx context.Context, opts RedisOptions) (*RedisAppliedCache, error) {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dialTimeout,
		MaxRetries:  -1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return NewRedisAppliedCacheWithClient(client, opts.KeyPrefix), nil
}

// NewRedisAppliedCacheWithClient wraps an existing client
func NewRedisAppliedCacheWithClient(client *redis.Client, keyPrefix string) *RedisAppliedCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisAppliedCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkApplied sets the key only if absent
func (c *RedisAppliedCache) MarkApplied(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = integration.DefaultAppliedEventTTL
	}
	ok, err := c.client.SetNX(ctx, c.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as applied: %w", err)
	}
	return ok, nil
}

// IsApplied reports whether the key exists
func (c *RedisAppliedCache) IsApplied(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check applied event: %w", err)
	}
	return n > 0, nil
}

// Ping checks the Redis connection
func (c *RedisAppliedCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisAppliedCache) Close() error {
	return c.client.Close()
}

var _ integration.AppliedEventCache = (*RedisAppliedCache)(nil)
