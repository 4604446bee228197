// Package serializer implements the named, single-consumer FIFO task
// queues the distributor uses to give every dialog, transaction, and
// out-of-dialog conversation a stable processing lane. A Serializer is
// reference counted and looked up by name; a process-wide Registry tracks
// the set of live serializers and the coarse overload signal.
package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

type ctxKey struct{}

// CurrentName returns the name of the serializer currently running the
// task on this goroutine, or "" if called outside a serializer task.
func CurrentName(ctx context.Context) string {
	name, _ := ctx.Value(ctxKey{}).(string)
	return name
}

// Serializer is a named FIFO task queue with exactly one consumer
// goroutine drawn from the process at creation time (not pooled across
// serializers — each serializer owns its own worker goroutine).
type Serializer struct {
	name string

	refs atomic.Int32

	tasks chan func(ctx context.Context)
	done  chan struct{}
	wg    sync.WaitGroup

	mu         sync.Mutex
	depth      int
	overBudget bool

	registry *Registry
}

// Name returns the serializer's stable name.
func (s *Serializer) Name() string { return s.name }

// Acquire bumps the reference count and returns the same serializer, so
// each dispatch path holds its own reference for the span of its use.
func (s *Serializer) Acquire() *Serializer {
	s.refs.Add(1)
	return s
}

// Release drops a reference. When the last reference is dropped the
// serializer stops its worker and removes itself from the registry.
func (s *Serializer) Release() {
	if s.refs.Add(-1) > 0 {
		return
	}
	close(s.done)
	s.wg.Wait()
	s.registry.remove(s)
}

// Push enqueues a task to run on this serializer's single consumer, in
// arrival order. Returns an error if the serializer is shutting down.
func (s *Serializer) Push(task func(ctx context.Context)) error {
	select {
	case <-s.done:
		return fmt.Errorf("serializer: %q is shutting down", s.name)
	default:
	}

	s.enter()
	select {
	case s.tasks <- task:
		return nil
	case <-s.done:
		s.leave()
		return fmt.Errorf("serializer: %q is shutting down", s.name)
	}
}

// Depth returns the number of tasks currently queued or running.
func (s *Serializer) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

func (s *Serializer) enter() {
	s.mu.Lock()
	s.depth++
	if !s.overBudget && s.depth > s.registry.highWaterMark {
		s.overBudget = true
		s.registry.overCount.Add(1)
	}
	s.mu.Unlock()
}

func (s *Serializer) leave() {
	s.mu.Lock()
	s.depth--
	if s.overBudget && s.depth <= s.registry.highWaterMark {
		s.overBudget = false
		s.registry.overCount.Add(-1)
	}
	s.mu.Unlock()
}

func (s *Serializer) run() {
	defer s.wg.Done()
	for {
		select {
		case task := <-s.tasks:
			s.runOne(task)
		case <-s.done:
			// Drain whatever is already queued before exiting so a
			// release during heavy load does not silently drop work.
			for {
				select {
				case task := <-s.tasks:
					s.runOne(task)
				default:
					return
				}
			}
		}
	}
}

func (s *Serializer) runOne(task func(ctx context.Context)) {
	defer s.leave()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Default().Error("serializer task panicked", "serializer", s.name, "panic", rec)
		}
	}()
	ctx := context.WithValue(context.Background(), ctxKey{}, s.name)
	task(ctx)
}
