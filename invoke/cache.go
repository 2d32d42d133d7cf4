package invoke

import (
	"sync"
	"time"
)

// Cache is a TTL result cache keyed by tool name plus serialized arguments.
// It is safe for concurrent use and may be shared across Invoker instances
// or runs; the caller owns its lifetime.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key if present and unexpired.
// Expired entries are removed on lookup.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

// Set stores value under key with the given time-to-live.
// Non-positive TTLs are ignored.
func (c *Cache) Set(key, value string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// Len returns the number of entries, including any not yet evicted expired
// ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
