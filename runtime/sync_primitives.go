package runtime

import (
	"context"
	"sync"
)

// Deferred is a single-assignment future: exactly one of Resolve/Reject
// settles it, and every Await call (past, present, future) observes the same
// outcome. Disposing an unsettled Deferred settles every waiter with
// DeferredDisposedError.
type Deferred[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	value   T
	err     error
	settled bool
}

// NewDeferred returns an unsettled Deferred.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Resolve settles the Deferred with value. Reports whether this call was
// the one that settled it; a second call (Resolve or Reject) is a no-op
// returning false.
func (d *Deferred[T]) Resolve(value T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return false
	}
	d.settled = true
	d.value = value
	close(d.done)
	return true
}

// Reject settles the Deferred with err. Reports whether this call was the
// one that settled it.
func (d *Deferred[T]) Reject(err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return false
	}
	d.settled = true
	d.err = err
	close(d.done)
	return true
}

// Dispose settles an unsettled Deferred with DeferredDisposedError.
func (d *Deferred[T]) Dispose() {
	_ = d.Reject(&DeferredDisposedError{})
}

// Await blocks until the Deferred settles or ctx is done.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.value, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Gate is a reusable open/closed signal: any number of waiters block on
// Wait until the gate opens, and every waiter present at Open time (plus any
// arriving after) proceeds immediately once open.
type Gate struct {
	mu   sync.Mutex
	open bool
	ch   chan struct{}
}

// NewGate returns a closed Gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Open opens the gate, releasing every current and future waiter. Idempotent.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return
	}
	g.open = true
	close(g.ch)
}

// Close closes a previously opened gate so future Wait calls block again.
// Waiters already released by a prior Open are unaffected.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return
	}
	g.open = false
	g.ch = make(chan struct{})
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Semaphore bounds concurrent access to a resource with a fixed permit
// count, implemented as a buffered channel of tokens — the same idiom a
// concurrency-limited fan-out uses to cap parallel workers.
type Semaphore struct {
	tokens   chan struct{}
	mu       sync.Mutex
	disposed bool
}

// NewSemaphore returns a Semaphore with n permits.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		panic("runtime: NewSemaphore requires a positive permit count")
	}
	s := &Semaphore{tokens: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

// Acquire blocks until a permit is available, ctx is done, or the semaphore
// is disposed. After disposal it returns SemaphoreDisposedError at once,
// even if permits remain.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return &SemaphoreDisposedError{}
	}
	select {
	case _, ok := <-s.tokens:
		if !ok {
			return &SemaphoreDisposedError{}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit. Releasing more permits than were ever acquired
// is a programmer error and panics, mirroring a negative WaitGroup counter.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	select {
	case s.tokens <- struct{}{}:
	default:
		panic("runtime: Semaphore.Release called without a matching Acquire")
	}
}

// Dispose wakes every blocked Acquire with SemaphoreDisposedError. Safe to
// call more than once.
func (s *Semaphore) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	close(s.tokens)
}

// WithPermit acquires one permit from s, runs task against r, and releases
// the permit when the task settles, error or not. Acquisition observes r's
// cancellation: an aborted waiter leaves the queue without ever holding a
// permit.
func WithPermit[D any, T any](r *Runner[D], s *Semaphore, task Task[D, T]) (T, error) {
	if err := s.Acquire(r.Context()); err != nil {
		var zero T
		return zero, err
	}
	defer s.Release()
	return task(r)
}

// Mutex is a Semaphore of size one, exposed under the names a lock's callers
// expect.
type Mutex struct {
	sem *Semaphore
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{sem: NewSemaphore(1)}
}

// Lock blocks until the mutex is acquired, ctx is done, or the mutex is
// disposed.
func (m *Mutex) Lock(ctx context.Context) error { return m.sem.Acquire(ctx) }

// Unlock releases the mutex.
func (m *Mutex) Unlock() { m.sem.Release() }

// Dispose wakes every blocked Lock with SemaphoreDisposedError.
func (m *Mutex) Dispose() { m.sem.Dispose() }
