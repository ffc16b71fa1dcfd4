package persist

import (
	"context"
	"sync"
)

// MemoryStore keeps maps in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]any
	closed bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]any)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key string) (map[string]any, error) {
	if err := validate(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	m, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, key string, values map[string]any) error {
	if err := validate(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.data[key] = clone(values)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
