package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"simple-openai-go/internal/metrics"
	"simple-openai-go/pkg/logging/logging"
)

// LoggingExactCache wraps an ExactCache with logging + metrics.
type LoggingExactCache struct {
	inner  ExactCache
	logger *zap.Logger
}

// NewLoggingExactCache returns a cache that logs each access at debug level
// (errors at error level) and counts hits. A nil logger falls back to the
// one carried by the request context.
func NewLoggingExactCache(inner ExactCache, logger *zap.Logger) *LoggingExactCache {
	return &LoggingExactCache{inner: inner, logger: logger}
}

// Inner returns the wrapped cache.
func (c *LoggingExactCache) Inner() ExactCache { return c.inner }

func (c *LoggingExactCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
		metrics.ExactHitsTotal.Inc()
	}

	fields := append(keyFields(key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Duration("latency", time.Since(start)),
	)

	if err != nil {
		c.log(ctx).Error("exact_cache_get", append(fields, zap.Error(err))...)
	} else {
		c.log(ctx).Debug("exact_cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingExactCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)

	fields := append(keyFields(key),
		zap.Int("bytes", len(value)),
		zap.Duration("ttl", ttl),
		zap.Duration("latency", time.Since(start)),
	)

	switch {
	case errors.Is(err, ErrEntryTooLarge):
		c.log(ctx).Debug("exact_cache_skip", append(fields, zap.Error(err))...)
	case err != nil:
		c.log(ctx).Error("exact_cache_set", append(fields, zap.Error(err))...)
	default:
		c.log(ctx).Debug("exact_cache_set", fields...)
	}

	return err
}

func (c *LoggingExactCache) log(ctx context.Context) *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.FromContext(ctx)
}

func keyFields(key string) []zap.Field {
	k, ok := ParseExactCacheKey(key)
	if !ok {
		return []zap.Field{zap.String("cache_key", key)}
	}
	return []zap.Field{
		zap.String("user_id", k.UserID),
		zap.String("model_id", k.ModelID),
		zap.String("version_id", k.VersionID),
		zap.String("hash", k.Hash),
	}
}
