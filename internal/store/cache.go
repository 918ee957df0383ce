package store

import (
	"sync"
	"time"
)

// TTLCache is a read-mostly cache with time-based invalidation, keyed by
// store id. There is deliberately no per-key build coordination: concurrent
// requests may race to rebuild an expired entry and the last writer wins.
// Rebuilds are idempotent and cheap next to an oracle call, so serializing
// them would only add latency. The map itself is guarded so concurrent
// access stays race-free.
type TTLCache[V any] struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value    V
	loadedAt time.Time
}

// NewTTLCache creates a cache whose entries expire ttl after being stored.
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{ttl: ttl, entries: make(map[string]cacheEntry[V])}
}

// Get returns the cached value for key if present and fresh.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Since(e.loadedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key with a fresh load time.
func (c *TTLCache[V]) Put(key string, value V) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: value, loadedAt: time.Now()}
	c.mu.Unlock()
}
