package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/itemops/cache"
	"github.com/jonwraymond/itemops/item"
)

// Sentinel errors for persistence operations.
var (
	ErrNotFound       = errors.New("persist: key not found")
	ErrClosed         = errors.New("persist: store is closed")
	ErrUnknownBackend = errors.New("persist: unknown backend")
	ErrMissingPath    = errors.New("persist: path is required")
)

// Store loads and saves flat maps under string keys.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Ownership: maps passed to Save and returned from Load are copies; the
//     caller may mutate them freely.
//   - Errors: Load returns ErrNotFound for missing keys.
type Store interface {
	Load(ctx context.Context, key string) (map[string]any, error)
	Save(ctx context.Context, key string, values map[string]any) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Config selects and configures a store.
type Config struct {
	Backend string `mapstructure:"backend" default:"memory"`
	Path    string `mapstructure:"path"`
}

// Open creates the store named by cfg.Backend.
func Open(cfg Config, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w for %s backend", ErrMissingPath, cfg.Backend)
		}
		return NewFileStore(cfg.Path)
	case BackendBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w for %s backend", ErrMissingPath, cfg.Backend)
		}
		return OpenBadger(BadgerConfig{Path: cfg.Path, SyncWrites: true}, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func validate(key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

func clone(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return map[string]any(item.Record(m).Clone())
}
