package serializer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// QueueDepth is the buffered channel capacity given to every serializer's
// task queue. Tasks beyond this depth block the caller of Push until the
// consumer catches up. The distributor's hash-fallback paths check the
// overload signal before pushing; its dialog- and transaction-affinity
// paths push without that check, so for them this capacity is the only
// bound before Push blocks the transport thread.
const QueueDepth = 256

// Registry is the process-wide set of live, named serializers and the
// coarse overload signal derived from them.
type Registry struct {
	highWaterMark int

	mu     sync.RWMutex
	byName map[string]*Serializer

	overCount atomic.Int32
}

// NewRegistry creates a registry whose overload signal trips once any
// single serializer's queue depth exceeds highWaterMark.
func NewRegistry(highWaterMark int) *Registry {
	return &Registry{
		highWaterMark: highWaterMark,
		byName:        make(map[string]*Serializer),
	}
}

// Create registers a new serializer under name and starts its consumer
// goroutine. Returns an error if the name is already taken.
func (r *Registry) Create(name string) (*Serializer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("serializer: name %q already registered", name)
	}

	s := &Serializer{
		name:     name,
		tasks:    make(chan func(context.Context), QueueDepth),
		done:     make(chan struct{}),
		registry: r,
	}
	s.refs.Store(1)
	s.wg.Add(1)
	go s.run()

	r.byName[name] = s
	return s, nil
}

// ByName looks up a serializer and bumps its reference count on success,
// the discipline the transaction-affinity path uses to re-acquire a
// serializer by name.
func (r *Registry) ByName(name string) (*Serializer, bool) {
	r.mu.RLock()
	s, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.Acquire(), true
}

// Overloaded reports the process-wide overload signal: true when at least
// one live serializer's queue depth exceeds the configured high-water
// mark.
func (r *Registry) Overloaded() bool {
	return r.overCount.Load() > 0
}

func (r *Registry) remove(s *Serializer) {
	r.mu.Lock()
	if cur, ok := r.byName[s.name]; ok && cur == s {
		delete(r.byName, s.name)
	}
	r.mu.Unlock()
}

// Names returns the names of every currently-registered serializer, for
// diagnostics (the admin HTTP surface uses this).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}
