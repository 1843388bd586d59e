// Package kvstore is the session storage abstraction. The loader keeps a
// single flag in it (fonts-loaded); backends range from an in-process map to
// SQLite and NATS JetStream key-value buckets.
package kvstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
)

// ErrUnavailable is returned by a store that cannot be used at all, the way
// disabled browser session storage throws on access.
var ErrUnavailable = errors.StorageError("session storage unavailable").Build()

// Store is a string key-value store.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.StoreMemory, "":
		store = NewMemory()
	case config.StoreDisabled:
		store = Disabled{}
	case config.StoreSQLite:
		store, err = NewSQLite(ctx, cfg.Path)
	case config.StoreNATS:
		store, err = NewNATS(ctx, cfg.NATSURL, cfg.Bucket)
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown store backend %q", cfg.Backend)).Build()
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("Session store opened", logfields.Backend(string(cfg.Backend)))
	return store, nil
}

// Memory is an in-process store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Close() error { return nil }

// Disabled fails every operation with ErrUnavailable.
type Disabled struct{}

func (Disabled) Get(context.Context, string) (string, bool, error) { return "", false, ErrUnavailable }
func (Disabled) Set(context.Context, string, string) error         { return ErrUnavailable }
func (Disabled) Close() error                                      { return nil }

// Scoped prefixes every key with a session id so one backend can hold many
// sessions. Closing a scoped store does not close the backend.
func Scoped(store Store, session string) Store {
	if session == "" {
		return store
	}
	return &scoped{store: store, prefix: session + "."}
}

type scoped struct {
	store  Store
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Close() error { return nil }
