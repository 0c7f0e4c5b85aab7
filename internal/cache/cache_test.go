package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"simple-openai-go/internal/metrics"
	"simple-openai-go/pkg/domain/chat"
)

func TestBuildExactCacheKey(t *testing.T) {
	t.Parallel()

	req := chat.NewRequest("gpt-4o", chat.User("hi"))
	req.User = "team:a"

	k1, err := BuildExactCacheKeyFromChatRequest(req, "v1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	k2, _ := BuildExactCacheKeyFromChatRequest(req, "v1")
	if k1 != k2 {
		t.Fatalf("expected stable key, got %v and %v", k1, k2)
	}
	if !strings.HasPrefix(k1.String(), "exact:team_a:gpt-4o:v1:") {
		t.Fatalf("unexpected key %s", k1)
	}
	if _, ok := ParseExactCacheKey(k1.String()); !ok {
		t.Fatalf("key %s must parse back", k1)
	}

	temp := 0.5
	req.Temperature = &temp
	k3, _ := BuildExactCacheKeyFromChatRequest(req, "v1")
	if k3.Hash == k1.Hash {
		t.Fatalf("expected a different hash when the body changes")
	}
}

func TestLoggingExactCacheCountsHits(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	mem := NewMemoryExactCache(MemoryConfig{})
	defer mem.Close()
	c := NewLoggingExactCache(mem, zap.New(core))

	ctx := context.Background()
	key := ExactCacheKey{UserID: "u", ModelID: "m", VersionID: "v", Hash: "h"}.String()

	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatalf("expected miss on empty cache")
	}
	before := testutil.ToFloat64(metrics.ExactHitsTotal)
	if err := c.Set(ctx, key, []byte("{}"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); !ok {
		t.Fatalf("expected hit after Set")
	}
	if got := testutil.ToFloat64(metrics.ExactHitsTotal); got < before+1 {
		t.Fatalf("expected hit counter to grow, before %v after %v", before, got)
	}

	entries := logs.FilterMessage("exact_cache_get").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 get log entries, got %d", len(entries))
	}
	if got := entries[1].ContextMap()["cache_result"]; got != "hit" {
		t.Fatalf("expected hit in second entry, got %v", got)
	}
	if got := entries[1].ContextMap()["model_id"]; got != "m" {
		t.Fatalf("expected parsed model id, got %v", got)
	}
}

func TestNewExactCache(t *testing.T) {
	t.Parallel()

	c, err := NewExactCache(Config{}, nil)
	if err != nil {
		t.Fatalf("memory default: %v", err)
	}
	if mem, ok := c.(*MemoryExactCache); !ok {
		t.Fatalf("expected memory cache, got %T", c)
	} else {
		mem.Close()
	}

	if _, err := NewExactCache(Config{Backend: BackendRedis}, nil); err == nil {
		t.Fatalf("expected error for redis without client")
	}
	if _, err := NewExactCache(Config{Backend: "memcached"}, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestRedisKeyPrefix(t *testing.T) {
	t.Parallel()

	client, err := NewRedisClient("redis://localhost:6379/0")
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	c := NewRedisExactCache(client, RedisConfig{Prefix: "simpleopenai"})
	if got := c.key("exact:a"); got != "simpleopenai:exact:a" {
		t.Fatalf("unexpected key %q", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Fatalf("expected context error before touching redis")
	}

	small := NewRedisExactCache(client, RedisConfig{MaxEntryBytes: 4})
	if err := small.Set(context.Background(), "k", []byte("12345"), time.Minute); !errors.Is(err, ErrEntryTooLarge) {
		t.Fatalf("expected ErrEntryTooLarge before touching redis, got %v", err)
	}
}

func TestParseExactCacheKey(t *testing.T) {
	t.Parallel()

	want := ExactCacheKey{UserID: "u", ModelID: "gpt-4o", VersionID: "v2", Hash: "abc"}
	got, ok := ParseExactCacheKey(want.String())
	if !ok || got != want {
		t.Fatalf("expected %+v, got %+v (ok=%v)", want, got, ok)
	}

	for _, bad := range []string{"", "exact:a:b:c", "semantic:a:b:c:d", "exact:a:b:c:"} {
		if _, ok := ParseExactCacheKey(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
