package cache

// DefaultFluidCapacity is the bound used for contained-fluid lookups.
const DefaultFluidCapacity = 20

// Policy configures caching behavior.
type Policy struct {
	// MaxEntries bounds the cache with insertion-order eviction.
	// If zero, the cache is unbounded.
	MaxEntries int

	// CacheMisses stores negative results so a repeated miss does not
	// re-run the compute function.
	CacheMisses bool
}

// DefaultPolicy returns the default caching policy.
// MaxEntries: unbounded, CacheMisses: false
func DefaultPolicy() Policy {
	return Policy{}
}

// BoundedPolicy returns a policy capped at n entries that also caches misses.
func BoundedPolicy(n int) Policy {
	return Policy{
		MaxEntries:  n,
		CacheMisses: true,
	}
}

// Bounded returns true if the policy caps the number of entries.
func (p Policy) Bounded() bool {
	return p.MaxEntries > 0
}

// New creates the cache implementation selected by the policy.
func New[V any](p Policy) Cache[V] {
	if p.Bounded() {
		return NewFIFOCache[V](p.MaxEntries)
	}
	return NewMemoryCache[V]()
}
