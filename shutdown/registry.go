// Package shutdown runs ordered cleanup when the CLI exits or is
// interrupted.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Func releases one resource.
type Func func(ctx context.Context) error

// Cleanup priorities. Lower values run first.
const (
	PriorityPipeline = 10
	PriorityDatabase = 30
	PriorityLogger   = 90
)

type entry struct {
	name     string
	priority int
	fn       Func
}

// Registry holds cleanup functions and runs them once, in priority order.
type Registry struct {
	mu      sync.Mutex
	entries []entry
	done    bool
}

// Register adds fn. Entries with equal priority run in registration order.
// Registering after Run is a no-op.
func (r *Registry) Register(name string, priority int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.entries = append(r.entries, entry{name: name, priority: priority, fn: fn})
}

// Names returns the registered names in run order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := r.sorted()
	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

// Run calls every function even if some fail and joins their errors.
// Subsequent calls return nil.
func (r *Registry) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return nil
	}
	r.done = true
	sorted := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, e := range sorted {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

// sorted must be called with mu held.
func (r *Registry) sorted() []entry {
	out := slices.Clone(r.entries)
	slices.SortStableFunc(out, func(a, b entry) int { return a.priority - b.priority })
	return out
}
