package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryConfig sizes a MemoryExactCache.
type MemoryConfig struct {
	CleanupInterval time.Duration // janitor period, default 5m
	MaxEntries      int           // default 1024
	MaxEntryBytes   int           // default DefaultMaxEntryBytes
}

func (c MemoryConfig) withDefaults() MemoryConfig {
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1024
	}
	if c.MaxEntryBytes <= 0 {
		c.MaxEntryBytes = DefaultMaxEntryBytes
	}
	return c
}

type memoryEntry struct {
	reply     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool { return !now.Before(e.expiresAt) }

// MemoryExactCache keeps completions for one process. When full, a new key
// displaces the entry closest to expiry. A background janitor drops expired
// entries; Close stops it.
type MemoryExactCache struct {
	cfg MemoryConfig

	mu      sync.RWMutex
	entries map[string]memoryEntry

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryExactCache(cfg MemoryConfig) *MemoryExactCache {
	cfg = cfg.withDefaults()
	c := &MemoryExactCache{
		cfg:     cfg,
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *MemoryExactCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if now := time.Now(); e.expired(now) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expired(now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.reply, true, nil
}

// Set stores a copy of reply. A ttl <= 0 removes the key instead.
func (c *MemoryExactCache) Set(_ context.Context, key string, reply []byte, ttl time.Duration) error {
	if ttl <= 0 {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil
	}
	if err := checkEntrySize(reply, c.cfg.MaxEntryBytes); err != nil {
		return err
	}

	now := time.Now()
	e := memoryEntry{reply: append([]byte(nil), reply...), expiresAt: now.Add(ttl)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.cfg.MaxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = e
	return nil
}

// evictLocked drops every expired entry, or failing that the one that
// would expire first.
func (c *MemoryExactCache) evictLocked(now time.Time) {
	var (
		victim string
		soonest time.Time
	)
	removed := false
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed = true
			continue
		}
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	if !removed && victim != "" {
		delete(c.entries, victim)
	}
}

func (c *MemoryExactCache) janitor() {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.entries {
				if e.expired(now) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Close stops the janitor. It is safe to call more than once.
func (c *MemoryExactCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// Len counts stored entries, expired or not.
func (c *MemoryExactCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
