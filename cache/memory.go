package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an unbounded in-memory cache. Entries never expire; they are
// dropped only by Delete or Clear.
type MemoryCache[V any] struct {
	store *gocache.Cache
}

// NewMemoryCache creates an empty unbounded cache.
func NewMemoryCache[V any]() *MemoryCache[V] {
	return &MemoryCache[V]{
		// No expiration and no janitor goroutine.
		store: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value from the cache. Returns (zero, false) on miss.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	var zero V

	raw, found := c.store.Get(key)
	if !found {
		return zero, false
	}

	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a value. Concurrent writers for the same key race; the last one wins.
func (c *MemoryCache[V]) Set(key string, value V) {
	c.store.Set(key, value, gocache.NoExpiration)
}

// Delete removes a value from the cache. Idempotent - no effect on miss.
func (c *MemoryCache[V]) Delete(key string) {
	c.store.Delete(key)
}

// Clear drops every entry.
func (c *MemoryCache[V]) Clear() {
	c.store.Flush()
}

// Len returns the number of entries.
func (c *MemoryCache[V]) Len() int {
	return c.store.ItemCount()
}

// Ensure MemoryCache implements Cache
var _ Cache[string] = (*MemoryCache[string])(nil)
