// Package cache provides a small in-memory TTL cache with an injectable
// clock so expiry can be tested deterministically.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL caches values for a fixed duration keyed by string.
type TTL[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	clock   func() time.Time
}

// NewTTL creates a cache whose entries expire after ttl. A nil clock
// defaults to time.Now. A non-positive ttl disables caching entirely,
// which keeps call sites free of conditionals.
func NewTTL[V any](ttl time.Duration, clock func() time.Time) *TTL[V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTL[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached value for key if it has not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.clock().Before(cached.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return cached.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *TTL[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock().Add(c.ttl)}
}

// Delete removes key from the cache.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops all expired entries. Long-lived caches with churn can call
// this periodically so abandoned keys do not accumulate.
func (c *TTL[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	for key, cached := range c.entries {
		if !now.Before(cached.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of entries currently stored, expired or not.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
