package cache

import "sync/atomic"

// Entry is a memoized lookup. OK=false records a cached miss.
type Entry[V any] struct {
	Value V
	OK    bool
}

// ComputeFunc produces the value for a key on a cache miss.
// Returning ok=false reports that no value exists.
type ComputeFunc[V any] func() (V, bool)

// Stats contains lookup statistics for a Loader.
type Stats struct {
	Hits      int64
	Misses    int64
	Entries   int
	Evictions int64
}

// Loader memoizes a compute function behind a Cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent misses for the same key
//     may both compute; the last write wins, so compute must be idempotent.
//   - Misses: stored only when the policy sets CacheMisses.
type Loader[V any] struct {
	cache  Cache[Entry[V]]
	policy Policy
	hits   atomic.Int64
	misses atomic.Int64
}

// NewLoader creates a loader whose storage is selected by policy.
func NewLoader[V any](policy Policy) *Loader[V] {
	return &Loader[V]{
		cache:  New[Entry[V]](policy),
		policy: policy,
	}
}

// Load returns the cached result for key, computing and storing it on miss.
func (l *Loader[V]) Load(key string, compute ComputeFunc[V]) (V, bool) {
	return l.LoadCommit(key, compute, nil)
}

// LoadCommit is Load with the store step handed to commit, which calls
// store to keep the computed result or returns without calling it to drop
// it. The result is returned to the caller either way. A nil commit always
// stores.
func (l *Loader[V]) LoadCommit(key string, compute ComputeFunc[V], commit func(store func())) (V, bool) {
	if cached, ok := l.cache.Get(key); ok {
		l.hits.Add(1)
		return cached.Value, cached.OK
	}
	l.misses.Add(1)

	value, ok := compute()
	if ok || l.policy.CacheMisses {
		store := func() { l.cache.Set(key, Entry[V]{Value: value, OK: ok}) }
		if commit == nil {
			store()
		} else {
			commit(store)
		}
	}
	return value, ok
}

// Peek returns the cached entry without computing. The second result reports
// whether the key is present at all (including as a cached miss).
func (l *Loader[V]) Peek(key string) (Entry[V], bool) {
	return l.cache.Get(key)
}

// Store records a value directly.
func (l *Loader[V]) Store(key string, value V) {
	l.cache.Set(key, Entry[V]{Value: value, OK: true})
}

// Clear drops every memoized entry.
func (l *Loader[V]) Clear() {
	l.cache.Clear()
}

// Len returns the number of memoized entries, including cached misses.
func (l *Loader[V]) Len() int {
	return l.cache.Len()
}

// Stats returns current lookup statistics.
func (l *Loader[V]) Stats() Stats {
	s := Stats{
		Hits:    l.hits.Load(),
		Misses:  l.misses.Load(),
		Entries: l.cache.Len(),
	}
	if f, ok := l.cache.(interface{ Evictions() int64 }); ok {
		s.Evictions = f.Evictions()
	}
	return s
}
