package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisExactCache implements ExactCache on Redis, so several processes can
// share completions.
type RedisExactCache struct {
	client   *redis.Client
	prefix   string
	maxBytes int
}

type RedisConfig struct {
	Prefix        string
	MaxEntryBytes int // default DefaultMaxEntryBytes
}

func NewRedisExactCache(client *redis.Client, config RedisConfig) *RedisExactCache {
	if config.MaxEntryBytes <= 0 {
		config.MaxEntryBytes = DefaultMaxEntryBytes
	}
	return &RedisExactCache{
		client:   client,
		prefix:   config.Prefix,
		maxBytes: config.MaxEntryBytes,
	}
}

func (c *RedisExactCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get returns (nil, false, err) on Redis errors; callers treat that as a miss.
func (c *RedisExactCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("context error: %w", err)
	}

	res, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	return res, true, nil
}

// Set stores value with ttl. A ttl <= 0 is a no-op.
func (c *RedisExactCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if ttl <= 0 {
		return nil
	}
	if err := checkEntrySize(value, c.maxBytes); err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Ping checks the connection; the provider calls it once at start-up.
func (c *RedisExactCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (c *RedisExactCache) Close() error {
	return c.client.Close()
}
