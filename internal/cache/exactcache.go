package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultMaxEntryBytes bounds one stored completion. Replies carrying
// generated audio are the large ones; anything above this is not cached.
const DefaultMaxEntryBytes = 1 << 20

// ErrEntryTooLarge is returned by Set when the encoded reply exceeds the
// backend's per-entry limit. Nothing is stored.
var ErrEntryTooLarge = errors.New("cache: entry too large")

// ExactCacheKey names one chat completion reply. Requests share an entry
// only when user, model, version and request hash all match.
type ExactCacheKey struct {
	UserID    string
	ModelID   string
	VersionID string
	Hash      string // sha256 of the request's wire encoding
}

// String renders exact:<user>:<model>:<version>:<hash>.
func (k ExactCacheKey) String() string {
	return fmt.Sprintf("exact:%s:%s:%s:%s", k.UserID, k.ModelID, k.VersionID, k.Hash)
}

// ParseExactCacheKey is the inverse of ExactCacheKey.String.
func ParseExactCacheKey(s string) (ExactCacheKey, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 || parts[0] != "exact" || parts[4] == "" {
		return ExactCacheKey{}, false
	}
	return ExactCacheKey{
		UserID:    parts[1],
		ModelID:   parts[2],
		VersionID: parts[3],
		Hash:      parts[4],
	}, true
}

// ExactCache stores encoded chat completions by exact request key.
// Get reports a miss as (nil, false, nil). Set with ttl <= 0 stores nothing.
type ExactCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func checkEntrySize(value []byte, limit int) error {
	if limit > 0 && len(value) > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrEntryTooLarge, len(value), limit)
	}
	return nil
}
