package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// FIFOCache is a bounded cache that evicts in insertion order: once Len
// exceeds the capacity the oldest inserted key is dropped, regardless of how
// recently it was read. Re-setting an existing key keeps its position.
//
// Reads go through a sync.Map and never wait on the insert+evict critical
// section.
type FIFOCache[V any] struct {
	capacity int
	entries  sync.Map // string -> V

	mu        sync.Mutex
	order     *list.List
	index     map[string]*list.Element
	evictions atomic.Int64
}

// NewFIFOCache creates a bounded cache. Capacity values below one are raised to one.
func NewFIFOCache[V any](capacity int) *FIFOCache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &FIFOCache[V]{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Get retrieves a value from the cache. Returns (zero, false) on miss.
func (c *FIFOCache[V]) Get(key string) (V, bool) {
	var zero V

	raw, ok := c.entries.Load(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a value and evicts the oldest entries past capacity.
func (c *FIFOCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Store(key, value)
	if _, exists := c.index[key]; exists {
		return
	}
	c.index[key] = c.order.PushBack(key)

	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		oldKey := oldest.Value.(string)
		c.order.Remove(oldest)
		delete(c.index, oldKey)
		c.entries.Delete(oldKey)
		c.evictions.Add(1)
	}
}

// Delete removes a value from the cache. Idempotent - no effect on miss.
func (c *FIFOCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.order.Remove(elem)
		delete(c.index, key)
	}
	c.entries.Delete(key)
}

// Clear drops every entry.
func (c *FIFOCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Clear()
	c.order.Init()
	c.index = make(map[string]*list.Element)
}

// Len returns the number of entries.
func (c *FIFOCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the configured bound.
func (c *FIFOCache[V]) Capacity() int {
	return c.capacity
}

// Evictions returns how many entries were dropped for capacity since creation.
func (c *FIFOCache[V]) Evictions() int64 {
	return c.evictions.Load()
}

// Keys returns the current keys, oldest first.
func (c *FIFOCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(string))
	}
	return keys
}

// Ensure FIFOCache implements Cache
var _ Cache[string] = (*FIFOCache[string])(nil)
