package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Backend       string        // memory (default) or redis
	TTL           time.Duration // entry lifetime
	Prefix        string        // redis key prefix
	Cleanup       time.Duration // memory janitor interval
	MaxEntries    int           // memory only
	MaxEntryBytes int           // both backends
}

// NewExactCache builds the configured backend. redisClient is only used for
// the redis backend and must then be non-nil.
func NewExactCache(cfg Config, redisClient *redis.Client) (ExactCache, error) {
	switch cfg.Backend {
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("cache: redis backend requires a client")
		}
		return NewRedisExactCache(redisClient, RedisConfig{
			Prefix:        cfg.Prefix,
			MaxEntryBytes: cfg.MaxEntryBytes,
		}), nil
	case "", BackendMemory:
		return NewMemoryExactCache(MemoryConfig{
			CleanupInterval: cfg.Cleanup,
			MaxEntries:      cfg.MaxEntries,
			MaxEntryBytes:   cfg.MaxEntryBytes,
		}), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}

// NewRedisClient connects from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
