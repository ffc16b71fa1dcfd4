package persist

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/itemops/resilience"
)

func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "state", "itemops.yaml"))
			require.NoError(t, err)
			return s
		},
		"badger": func(t *testing.T) Store {
			s, err := OpenBadger(BadgerConfig{InMemory: true})
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			_, err := s.Load(ctx, "collapsibleitems")
			require.ErrorIs(t, err, ErrNotFound)

			state := map[string]any{"group-a": true, "group-b": false}
			require.NoError(t, s.Save(ctx, "collapsibleitems", state))

			got, err := s.Load(ctx, "collapsibleitems")
			require.NoError(t, err)
			require.Equal(t, state, got)

			// Returned maps are copies.
			got["group-a"] = false
			again, err := s.Load(ctx, "collapsibleitems")
			require.NoError(t, err)
			require.Equal(t, true, again["group-a"])

			// Overwrite replaces the whole map.
			require.NoError(t, s.Save(ctx, "collapsibleitems", map[string]any{"group-c": true}))
			got, err = s.Load(ctx, "collapsibleitems")
			require.NoError(t, err)
			require.Equal(t, map[string]any{"group-c": true}, got)

			// Keys are independent.
			require.NoError(t, s.Save(ctx, "other", map[string]any{"x": "y"}))
			got, err = s.Load(ctx, "collapsibleitems")
			require.NoError(t, err)
			require.Len(t, got, 1)
		})
	}
}

func TestStore_InvalidKey(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			_, err := s.Load(context.Background(), "")
			require.Error(t, err)
			require.Error(t, s.Save(context.Background(), "bad\nkey", map[string]any{}))
		})
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Load(context.Background(), "k")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Save(context.Background(), "k", nil), ErrClosed)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	ctx := context.Background()

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "collapsibleitems", map[string]any{"g": true}))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := second.Load(ctx, "collapsibleitems")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"g": true}, got)
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0o600))
	ctx := context.Background()

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = s.Load(ctx, "collapsibleitems")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	// Saving recovers the file.
	require.NoError(t, s.Save(ctx, "collapsibleitems", map[string]any{"g": false}))
	got, err := s.Load(ctx, "collapsibleitems")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"g": false}, got)
}

func TestBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "collapsibleitems", map[string]any{"g": true}))
	require.NoError(t, s.Close())

	reopened, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Load(ctx, "collapsibleitems")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"g": true}, got)
}

func TestBadgerStore_SaveRunsThroughRetry(t *testing.T) {
	var attempts atomic.Int32
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		RetryIf: func(error) bool {
			attempts.Add(1)
			return true
		},
	})

	s, err := OpenBadger(BadgerConfig{InMemory: true}, WithRetry(retry))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Save(context.Background(), "collapsibleitems", map[string]any{"g": true})
	require.ErrorIs(t, err, ErrClosed)
	require.Equal(t, int32(3), attempts.Load())
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"default", Config{}, nil},
		{"memory", Config{Backend: BackendMemory}, nil},
		{"file", Config{Backend: BackendFile, Path: filepath.Join(dir, "s.yaml")}, nil},
		{"badger", Config{Backend: BackendBadger, Path: filepath.Join(dir, "db")}, nil},
		{"file without path", Config{Backend: BackendFile}, ErrMissingPath},
		{"badger without path", Config{Backend: BackendBadger}, ErrMissingPath},
		{"unknown", Config{Backend: "redis"}, ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, s.Close())
		})
	}
}
