package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/resilience"
)

// BadgerConfig holds configuration for a BadgerDB-backed store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// Option configures optional store collaborators.
type Option func(*options)

type options struct {
	logger observe.Logger
	retry  *resilience.Retry
}

// WithLogger routes BadgerDB's internal logging through logger.
func WithLogger(logger observe.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRetry overrides the retry policy applied to conflicting writes.
func WithRetry(r *resilience.Retry) Option {
	return func(o *options) { o.retry = r }
}

// BadgerStore keeps each key as a YAML-encoded value in BadgerDB.
type BadgerStore struct {
	db   *badger.DB
	exec *resilience.Executor
}

// badgerLogger adapts observe.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger observe.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...))
}

// OpenBadger opens a BadgerDB store.
func OpenBadger(cfg BadgerConfig, opts ...Option) (*BadgerStore, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var bopts badger.Options
	if cfg.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, ErrMissingPath
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("persist: create database directory %s: %w", cfg.Path, err)
		}
		bopts = badger.DefaultOptions(cfg.Path)
	}
	bopts = bopts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if o.logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: o.logger.With(observe.Field{Key: "component", Value: "badger"})})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("persist: open badger database: %w", err)
	}

	retry := o.retry
	if retry == nil {
		retry = resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 5 * time.Millisecond,
			RetryIf:      func(err error) bool { return errors.Is(err, badger.ErrConflict) },
		})
	}

	return &BadgerStore{db: db, exec: resilience.NewExecutor(resilience.WithRetry(retry))}, nil
}

// Load implements Store.
func (s *BadgerStore) Load(_ context.Context, key string) (map[string]any, error) {
	if err := validate(key); err != nil {
		return nil, err
	}

	var out map[string]any
	err := s.db.View(func(txn *badger.Txn) error {
		it, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return it.Value(func(val []byte) error {
			return yaml.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, ErrClosed
	}
	if err != nil {
		return nil, err
	}
	return clone(out), nil
}

// Save implements Store. Transaction conflicts are retried and a panic
// inside the write transaction comes back as an error.
func (s *BadgerStore) Save(ctx context.Context, key string, values map[string]any) error {
	if err := validate(key); err != nil {
		return err
	}

	data, err := yaml.Marshal(clone(values))
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", key, err)
	}

	err = s.exec.Execute(ctx, func(context.Context) error {
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(key), data)
		})
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
