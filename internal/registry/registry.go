// Package registry maps names to capabilities that are built on first use.
//
// Template decorators, block decorators and delayed modules are registered by
// name at startup. A factory runs at most once per entry; its value or error
// is cached for every later Resolve.
package registry

import (
	"context"
	"sort"
	"sync"

	"git.home.luguber.info/inful/pageboot/internal/errors"
)

// ErrNotRegistered is returned by Resolve for unknown names.
var ErrNotRegistered = errors.NotFoundError("capability not registered").Build()

// Factory builds a capability.
type Factory[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	once    sync.Once
	factory Factory[T]
	value   T
	err     error
}

// Registry is a named set of lazily built capabilities. It is safe for
// concurrent use.
type Registry[T any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]*entry[T]
}

// New returns an empty registry. kind names the capability in errors.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: make(map[string]*entry[T])}
}

// Register adds or replaces the factory for name.
func (r *Registry[T]) Register(name string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry[T]{factory: factory}
}

// RegisterValue registers an already built capability.
func (r *Registry[T]) RegisterValue(name string, value T) {
	r.Register(name, func(context.Context) (T, error) { return value, nil })
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the capability for name, building it on first use.
func (r *Registry[T]) Resolve(ctx context.Context, name string) (T, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, ErrNotRegistered.WithContext("kind", r.kind).WithContext("name", name)
	}
	e.once.Do(func() {
		e.value, e.err = e.factory(ctx)
		if e.err != nil {
			e.err = errors.WrapError(e.err, errors.CategoryRuntime, "failed to initialize "+r.kind).
				WithContext("name", name).
				Build()
		}
	})
	return e.value, e.err
}
