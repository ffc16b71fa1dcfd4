package cache

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache is the interface for content-keyed caches.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Overwrite: Set is last-writer-wins; no read-modify-write is implied.
// - Errors: Get never errors; it returns (zero, false) on miss.
type Cache[V any] interface {
	// Get retrieves a cached value. Returns (zero, false) on miss.
	Get(key string) (V, bool)

	// Set stores a value, replacing any previous value for key.
	Set(key string, value V)

	// Delete removes a cached value. Idempotent - no effect on miss.
	Delete(key string)

	// Clear drops every entry.
	Clear()

	// Len returns the number of entries currently held.
	Len() int
}

// ValidateKey checks if a key is valid for caching or persistence.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
