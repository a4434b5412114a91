package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// FiberState is the lifecycle stage of a fiber: the handle returned by
// Run for a spawned task.
type FiberState int32

const (
	// FiberRunning is the state from spawn until the task body returns (or
	// abort is requested and cleanup begins).
	FiberRunning FiberState = iota
	// FiberCompleting is entered the instant an abort is requested or the
	// task body has returned but disposal of its runner's stack is still
	// draining.
	FiberCompleting
	// FiberCompleted is the terminal state: Result/Outcome are available
	// and the owning runner has been detached from its parent.
	FiberCompleted
)

func (s FiberState) String() string {
	switch s {
	case FiberRunning:
		return "running"
	case FiberCompleting:
		return "completing"
	case FiberCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Fiber is the handle a caller receives from Run. It owns exactly one child
// runner (the runner the task body observes as its own r) and settles
// exactly once, exposing both Result (the externally-visible outcome, which
// is always an AbortError when the fiber was aborted) and Outcome (what the
// task body itself returned or panicked with).
type Fiber[D any, T any] struct {
	id     uuid.UUID
	runner *Runner[D]

	state atomic.Int32

	settleOnce sync.Once
	done       chan struct{}

	result    T
	resultErr error

	outcome    T
	outcomeErr error

	panicVal any
}

// ID returns the fiber's identifier, shared with its owning runner.
func (f *Fiber[D, T]) ID() uuid.UUID { return f.id }

// State returns the fiber's current lifecycle stage.
func (f *Fiber[D, T]) State() FiberState { return FiberState(f.state.Load()) }

// Runner returns the child runner this fiber's task body executes against.
func (f *Fiber[D, T]) Runner() *Runner[D] { return f.runner }

// Abort requests cancellation of this fiber's runner tree. Idempotent: only
// the first call's reason is recorded.
func (f *Fiber[D, T]) Abort(reason any) {
	f.runner.requestAbort(reason)
}

// Await blocks until the fiber settles or ctx is done, whichever comes
// first. A panic recovered from the task body re-panics here, in the
// awaiting goroutine, once the fiber has settled.
func (f *Fiber[D, T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	if f.panicVal != nil {
		panic(f.panicVal)
	}
	return f.result, f.resultErr
}

// Outcome returns what the task body itself produced, ignoring whether the
// fiber was externally aborted. Must only be called after the fiber has
// settled (e.g. following Await).
func (f *Fiber[D, T]) Outcome() (T, error) {
	if f.panicVal != nil {
		panic(f.panicVal)
	}
	return f.outcome, f.outcomeErr
}

// Dispose requests abort and waits for settlement, returning the same pair
// Await would.
func (f *Fiber[D, T]) Dispose(ctx context.Context) (T, error) {
	f.Abort(ErrRunnerClosing)
	return f.Await(ctx)
}

// transition advances the fiber's state monotonically: running →
// completing → completed, never backward, so a late abort request can't
// regress an already-completed fiber.
func (f *Fiber[D, T]) transition(s FiberState) {
	for {
		cur := f.state.Load()
		if cur >= int32(s) {
			return
		}
		if f.state.CompareAndSwap(cur, int32(s)) {
			break
		}
	}
	f.runner.emitEvent(Event{Kind: EventStateChanged, RunnerID: f.runner.ID().String(), State: s})
}

// settle records the task's outcome, computes the externally-visible
// result, and closes done. aborted/reason are sampled by the caller before
// subtree teardown, so a normal completion is never misreported as aborted
// by the cleanup's own bookkeeping. Guarded by settleOnce.
func (f *Fiber[D, T]) settle(outcome T, outcomeErr error, panicVal any, aborted bool, reason any) {
	f.settleOnce.Do(func() {
		f.outcome, f.outcomeErr = outcome, outcomeErr
		f.panicVal = panicVal

		if aborted {
			var zero T
			f.result, f.resultErr = zero, &AbortError{Reason: reason}
		} else {
			f.result, f.resultErr = outcome, outcomeErr
		}

		f.transition(FiberCompleted)
		close(f.done)
	})
}
