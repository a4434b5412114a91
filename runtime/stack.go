package runtime

import (
	"context"
	"sync"
)

// disposer is one entry on a Stack: release is run during Dispose, under a
// mask (a pending abort does not cut disposal short), and always run even
// if an earlier disposer panicked or failed. A panic in a release is
// recovered and discarded, and a returned error is dropped; neither is
// re-raised or reported to the caller of Dispose.
type disposer[D any] struct {
	release Task[D, struct{}]
}

// Stack is a runner's AsyncDisposableStack: an ordered list of
// deferred/adopted resources released LIFO when the runner disposes, the
// same way deferred function calls unwind within a single goroutine.
type Stack[D any] struct {
	owner *Runner[D]

	mu       sync.Mutex
	entries  []disposer[D]
	disposed bool
}

// NewStack constructs an empty stack owned by r.
func NewStack[D any](r *Runner[D]) *Stack[D] {
	return &Stack[D]{owner: r}
}

// Disposed reports whether Dispose has already run (successfully or not).
func (s *Stack[D]) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Defer registers task to run, under a mask, during disposal. Panics if the
// stack has already disposed.
func (s *Stack[D]) Defer(task Task[D, struct{}]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		panic("runtime: Defer called on a disposed Stack")
	}
	s.entries = append(s.entries, disposer[D]{release: task})
}

// Use acquires a self-cleaning resource and registers its Close for
// disposal. For resources whose teardown is a separate function, reach for
// Adopt instead.
func (s *Stack[D]) Use(acquire Task[D, Closer]) (Closer, error) {
	res, err := acquire(s.owner)
	if err != nil {
		return nil, err
	}
	s.Defer(func(r *Runner[D]) (struct{}, error) {
		return struct{}{}, res.Close()
	})
	return res, nil
}

// Closer is anything Use can register for teardown.
type Closer interface {
	Close() error
}

// Adopt acquires a resource via acquire and registers release to run (with
// the acquired value in closure) during disposal, LIFO with every other
// entry on the stack.
func Adopt[D any, T any](s *Stack[D], acquire Task[D, T], release func(T) error) (T, error) {
	val, err := acquire(s.owner)
	if err != nil {
		var zero T
		return zero, err
	}
	s.Defer(func(r *Runner[D]) (struct{}, error) {
		return struct{}{}, release(val)
	})
	return val, nil
}

// Move transfers ownership of every entry on s to a new, empty stack, and
// clears s — used when a resource needs to outlive the runner that
// originally acquired it (e.g. handing a listener off to a sibling).
func (s *Stack[D]) Move() *Stack[D] {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := &Stack[D]{owner: s.owner, entries: s.entries}
	s.entries = nil
	return moved
}

// Dispose runs every registered entry in reverse registration order,
// under a mask, even if earlier entries error or panic. Safe to call more
// than once; only the first call does anything, and a later call returns at
// once even while the first is still running releases.
func (s *Stack[D]) Dispose(ctx context.Context) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	// Releases run under a mask: a pending abort on the owner must not make
	// cleanup bail out half way.
	s.owner.enterMask()
	defer s.owner.exitMask()

	for i := len(entries) - 1; i >= 0; i-- {
		func() {
			defer func() {
				_ = recover()
			}()
			_, _ = entries[i].release(s.owner)
		}()
	}
}
