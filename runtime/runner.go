// Package runtime implements a structured-concurrency tree: a hierarchy of
// runners and the fibers they spawn, with tree-propagated cancellation,
// mask-scoped unabortable sections, and deterministic snapshotting.
//
// A Runner[D] is the capability handle a task body receives. Spawning a task
// (Run) creates a child runner and a Fiber[D,T] wrapping it; aborting a
// runner propagates to every descendant; disposing a runner drains its
// AsyncDisposableStack in reverse registration order before the runner is
// considered gone.
package runtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task is a unit of work a runner executes. Its argument is the runner
// created specifically for this invocation: children it spawns, resources it
// defers, and the mask it enters are all scoped to this one task's lifetime.
type Task[D any, T any] func(r *Runner[D]) (T, error)

// runnerState mirrors FiberState but belongs to the runner itself (distinct
// from the owning fiber, since the root runner has no owning fiber at all).
type runnerState int32

const (
	runnerRunning runnerState = iota
	runnerCompleting
	runnerCompleted
)

// Runner is the capability object threaded through a tree of tasks. It
// carries injected dependencies (time, randomness, console, user deps D),
// the cancellation signal shared with its descendants, a mask depth that can
// suppress the signal's effective visibility, a resource disposal stack, and
// bookkeeping for children and structural events.
type Runner[D any] struct {
	id     uuid.UUID
	parent *Runner[D]

	deps    D
	timeDep Time
	random  Random
	randBy  RandomBytes
	console Console
	cfg     *RunnerConfig
	metrics metricsSink

	mu               sync.Mutex
	childrenCond     *sync.Cond
	state            runnerState
	children         []*Runner[D]
	concurrency      int64
	mask             int32
	requestIsClosed  bool
	requestReason    any
	effectiveClosed  bool
	requestCh        chan struct{}
	effectiveCh      chan struct{}
	onAbortListeners map[int]func(reason any)
	nextListenerID   int
	onEvent          func(Event)

	ctx        context.Context
	cancelFunc context.CancelFunc

	stack *Stack[D]

	version         int64
	snapshotCache   *Snapshot
	snapshotVersion int64
}

// metricsSink is the narrow surface runner.go needs from metrics.Collector,
// kept as an interface here so the runtime package has no import-time
// dependency on the metrics package's concrete type.
type metricsSink interface {
	IncFiberSpawned()
	IncFiberCompleted()
	IncFiberAborted()
	IncFiberPanicked()
	IncRaceLoss()
	IncAllAbort()
	IncTimeoutFired()
	IncConcurrencyCap()
	IncRetryAttempt()
	IncRetrySuccess()
	IncRetryExhausted()
	IncRepeatRun()
	IncScheduleStep()
	IncScheduleDone()
}

// RootOptions configures a newly constructed root Runner.
type RootOptions[D any] struct {
	Deps        D
	Time        Time
	Random      Random
	RandomBytes RandomBytes
	Console     Console
	Config      *RunnerConfig
	Metrics     metricsSink
}

// NewRoot constructs the root of a runner tree. Production callers supply
// SystemTime/CryptoRandom/CryptoRandomBytes; tests supply runtimetest's
// deterministic doubles instead.
func NewRoot[D any](opts RootOptions[D]) *Runner[D] {
	if opts.Time == nil {
		opts.Time = SystemTime{}
	}
	if opts.Random == nil {
		opts.Random = NewCryptoRandom()
	}
	if opts.RandomBytes == nil {
		opts.RandomBytes = CryptoRandomBytes{}
	}
	if opts.Config == nil {
		opts.Config = NewRunnerConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner[D]{
		id:               newID(opts.RandomBytes),
		deps:             opts.Deps,
		timeDep:          opts.Time,
		random:           opts.Random,
		randBy:           opts.RandomBytes,
		console:          opts.Console,
		cfg:              opts.Config,
		metrics:          opts.Metrics,
		concurrency:      opts.Config.Concurrency.Load(),
		requestCh:        make(chan struct{}),
		effectiveCh:      make(chan struct{}),
		onAbortListeners: make(map[int]func(reason any)),
		ctx:              ctx,
		cancelFunc:       cancel,
	}
	r.stack = NewStack(r)
	return r
}

// ID returns the runner's identifier.
func (r *Runner[D]) ID() uuid.UUID { return r.id }

// Parent returns the spawning runner, or nil for the root.
func (r *Runner[D]) Parent() *Runner[D] { return r.parent }

// Deps returns the user-supplied dependency bundle.
func (r *Runner[D]) Deps() D { return r.deps }

// Time returns the injected Time capability.
func (r *Runner[D]) Time() Time { return r.timeDep }

// RandomSource returns the injected Random capability.
func (r *Runner[D]) RandomSource() Random { return r.random }

// RandomBytesSource returns the injected RandomBytes capability.
func (r *Runner[D]) RandomBytesSource() RandomBytes { return r.randBy }

// Console returns the injected logging capability, or nil if none was
// supplied.
func (r *Runner[D]) Console() Console { return r.console }

// Context returns a context.Context derived from this runner's cancellation
// signal, for interop with stdlib/third-party APIs that expect one (e.g.
// Time.Sleep). The context is cancelled when the runner's raw abort signal
// is requested, independent of mask state: mask only affects what a task
// body observes via Aborted(), not what blocking I/O sees.
func (r *Runner[D]) Context() context.Context { return r.ctx }

// Stack returns the runner's AsyncDisposableStack, for registering
// resources to be released (LIFO, under a mask) when the runner disposes.
func (r *Runner[D]) Stack() *Stack[D] { return r.stack }

// Defer registers task to run during disposal, LIFO with other deferred and
// adopted resources. Shorthand for Stack().Defer(task).
func (r *Runner[D]) Defer(task Task[D, struct{}]) {
	r.stack.Defer(task)
}

// Children returns a snapshot slice of currently active child runners.
func (r *Runner[D]) Children() []*Runner[D] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Runner[D], len(r.children))
	copy(out, r.children)
	return out
}

// Concurrency returns the cap currently in effect for siblings spawned by
// combinators (All, AllSettled, Map, MapSettled) running against this
// runner.
func (r *Runner[D]) Concurrency() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.concurrency
}

// setConcurrency overrides the cap and returns a restore func; used by
// WithConcurrency so nested calls compose by save/restore rather than by
// clobbering an ancestor's cap.
func (r *Runner[D]) setConcurrency(n int64) (restore func()) {
	r.mu.Lock()
	prev := r.concurrency
	r.concurrency = n
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.concurrency = prev
		r.mu.Unlock()
	}
}

// ---- cancellation ----------------------------------------------------

// Aborted reports the effective (mask-filtered) cancellation state: true iff
// the raw signal has been requested AND the mask depth is zero.
func (r *Runner[D]) Aborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requestIsClosed && r.mask == 0
}

// Done returns a channel closed when the effective signal trips (mirrors
// Aborted, as a channel for select statements).
func (r *Runner[D]) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.effectiveCh
}

func (r *Runner[D]) requestClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requestIsClosed
}

func (r *Runner[D]) abortReason() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requestReason
}

// requestAbort requests cancellation of this runner and every descendant.
// Idempotent: only the first caller's reason sticks.
func (r *Runner[D]) requestAbort(reason any) {
	r.mu.Lock()
	if r.requestIsClosed {
		r.mu.Unlock()
		return
	}
	r.requestIsClosed = true
	r.requestReason = reason
	close(r.requestCh)
	maskZero := r.mask == 0
	if maskZero && !r.effectiveClosed {
		r.effectiveClosed = true
		close(r.effectiveCh)
	}
	listeners := make([]func(any), 0, len(r.onAbortListeners))
	for _, cb := range r.onAbortListeners {
		listeners = append(listeners, cb)
	}
	children := make([]*Runner[D], len(r.children))
	copy(children, r.children)
	r.mu.Unlock()

	r.cancelFunc()
	r.bumpVersion()

	for _, cb := range listeners {
		cb(reason)
	}
	for _, c := range children {
		c.requestAbort(reason)
	}
}

// Abort is the public entry point a task body (or caller) uses to cancel a
// runner's subtree.
func (r *Runner[D]) Abort(reason any) { r.requestAbort(reason) }

// OnAbort registers cb to run when abort is requested. If abort has already
// been requested, cb is invoked immediately (synchronously, before OnAbort
// returns) instead of being registered. The returned unregister func removes
// a still-pending listener; it is a no-op once the runner has settled or the
// listener already fired.
func (r *Runner[D]) OnAbort(cb func(reason any)) (unregister func()) {
	r.mu.Lock()
	if r.requestIsClosed {
		reason := r.requestReason
		r.mu.Unlock()
		cb(reason)
		return func() {}
	}
	id := r.nextListenerID
	r.nextListenerID++
	r.onAbortListeners[id] = cb
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.onAbortListeners, id)
		r.mu.Unlock()
	}
}

// ---- mask -------------------------------------------------------------

func (r *Runner[D]) enterMask() int32 {
	r.mu.Lock()
	r.mask++
	// The effective signal untrips while masked: Done() hands out a fresh
	// open channel, re-closed by exitMask if the raw request is still
	// outstanding when the mask drops back to zero.
	if r.effectiveClosed {
		r.effectiveCh = make(chan struct{})
		r.effectiveClosed = false
	}
	m := r.mask
	r.mu.Unlock()
	r.bumpVersion()
	return m
}

// exitMask decrements the mask and, if it reaches zero while abort has
// already been requested, trips the effective signal.
func (r *Runner[D]) exitMask() {
	r.mu.Lock()
	r.mask--
	if r.mask == 0 && r.requestIsClosed && !r.effectiveClosed {
		r.effectiveClosed = true
		close(r.effectiveCh)
	}
	r.mu.Unlock()
	r.bumpVersion()
}

func (r *Runner[D]) maskDepth() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mask
}

// Unabortable runs task against the same runner with the effective abort
// signal suppressed for its duration: Aborted() reports false throughout,
// regardless of whether the raw signal has been (or becomes) requested. The
// fiber that owns this runner still surfaces an AbortError to its own
// caller if the runner was externally aborted, independent of what task
// itself returns.
func Unabortable[D any, T any](r *Runner[D], task Task[D, T]) (T, error) {
	r.enterMask()
	defer r.exitMask()
	return task(r)
}

// RestoreFunc temporarily re-exposes the raw signal within an
// UnabortableMask scope, for the rare task that needs to observe
// cancellation even while nominally unabortable (e.g. to bail out of an
// otherwise-unbounded retry loop).
type RestoreFunc[D any, T any] func(inner Task[D, T]) (T, error)

// UnabortableMask is the builder form of Unabortable: builder receives a
// restore function that, when called, temporarily drops the mask by one
// level for the duration of inner. Calling restore after builder has
// returned (i.e. outside the scope that produced it) panics.
func UnabortableMask[D any, T any](r *Runner[D], builder func(restore RestoreFunc[D, T]) (T, error)) (T, error) {
	baseDepth := r.enterMask() - 1
	defer r.exitMask()

	restore := func(inner Task[D, T]) (T, error) {
		r.mu.Lock()
		if r.mask != baseDepth+1 {
			r.mu.Unlock()
			panic(&errFatalRestore{msg: "runtime: restore invoked outside its creating UnabortableMask scope"})
		}
		r.mask = baseDepth
		if r.mask == 0 && r.requestIsClosed && !r.effectiveClosed {
			r.effectiveClosed = true
			close(r.effectiveCh)
		}
		r.mu.Unlock()

		out, err := inner(r)

		r.mu.Lock()
		r.mask = baseDepth + 1
		if r.effectiveClosed {
			r.effectiveCh = make(chan struct{})
			r.effectiveClosed = false
		}
		r.mu.Unlock()

		return out, err
	}

	return builder(restore)
}

// ---- events -------------------------------------------------------------

// OnEvent installs the single structural-event listener for this runner. It
// observes this runner's own events plus every descendant's, bubbled up in
// causal order along any one path. Only takes effect if events are enabled
// on the root RunnerConfig.
func (r *Runner[D]) OnEvent(cb func(Event)) {
	r.mu.Lock()
	r.onEvent = cb
	r.mu.Unlock()
}

func (r *Runner[D]) emitEvent(ev Event) {
	if !r.cfg.EventsEnabled.Load() {
		return
	}
	r.mu.Lock()
	cb := r.onEvent
	parent := r.parent
	r.mu.Unlock()
	if cb != nil {
		cb(ev)
	}
	if parent != nil {
		parent.emitEvent(ev)
	}
}

// ---- spawning -------------------------------------------------------------

func (r *Runner[D]) childRunner() *Runner[D] {
	child := &Runner[D]{
		id:               newID(r.randBy),
		parent:           r,
		deps:             r.deps,
		timeDep:          r.timeDep,
		random:           r.random,
		randBy:           r.randBy,
		console:          r.console,
		cfg:              r.cfg,
		metrics:          r.metrics,
		concurrency:      r.Concurrency(),
		requestCh:        make(chan struct{}),
		effectiveCh:      make(chan struct{}),
		onAbortListeners: make(map[int]func(reason any)),
	}
	child.ctx, child.cancelFunc = context.WithCancel(r.ctx)
	child.stack = NewStack(child)
	return child
}

func (r *Runner[D]) addChild(c *Runner[D]) {
	r.mu.Lock()
	r.children = append(r.children, c)
	r.mu.Unlock()
	r.bumpVersion()
	r.emitEvent(Event{Kind: EventChildAdded, RunnerID: r.ID().String(), ChildID: c.ID().String()})
}

func (r *Runner[D]) removeChild(c *Runner[D]) {
	r.mu.Lock()
	for i, ch := range r.children {
		if ch == c {
			r.children = append(r.children[:i], r.children[i+1:]...)
			break
		}
	}
	if r.childrenCond != nil {
		r.childrenCond.Broadcast()
	}
	r.mu.Unlock()
	r.bumpVersion()
	r.emitEvent(Event{Kind: EventChildRemoved, RunnerID: r.ID().String(), ChildID: c.ID().String()})
}

// awaitChildren blocks until every child runner has settled and detached.
// Disposal waits here even for unabortable children that refuse to yield.
func (r *Runner[D]) awaitChildren() {
	r.mu.Lock()
	for len(r.children) > 0 {
		if r.childrenCond == nil {
			r.childrenCond = sync.NewCond(&r.mu)
		}
		r.childrenCond.Wait()
	}
	r.mu.Unlock()
}

func (r *Runner[D]) markState(s runnerState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.bumpVersion()
}

func (r *Runner[D]) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == runnerRunning
}

// State reports the runner's lifecycle stage, expressed on the same scale
// as the owning fiber's state.
func (r *Runner[D]) State() FiberState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return FiberState(r.state)
}

// root walks the parent chain to the tree's root runner.
func (r *Runner[D]) root() *Runner[D] {
	cur := r
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Daemon spawns task on the tree's root runner rather than on r, detaching
// it from r's scope: the fiber keeps running after r's own task settles and
// is only aborted when the root disposes. Callers that want structured
// awaiting use Run; Daemon is the explicit opt-out.
func Daemon[D any, T any](r *Runner[D], task Task[D, T]) *Fiber[D, T] {
	return Run(r.root(), task)
}

// Run spawns task as a child of r: a new child Runner is created and handed
// to task, and a Fiber[D,T] wrapping that child is returned immediately
// without blocking on completion. If r is not running (it is disposing or
// already disposed), the task is never invoked and the returned fiber is
// already settled with an AbortError wrapping ErrRunnerClosing.
func Run[D any, T any](r *Runner[D], task Task[D, T]) *Fiber[D, T] {
	if !r.isRunning() {
		f := &Fiber[D, T]{id: newID(r.randBy), runner: r, done: make(chan struct{})}
		var zero T
		f.outcome, f.outcomeErr = zero, &AbortError{Reason: ErrRunnerClosing}
		f.result, f.resultErr = zero, &AbortError{Reason: ErrRunnerClosing}
		f.state.Store(int32(FiberCompleted))
		close(f.done)
		return f
	}

	child := r.childRunner()
	r.addChild(child)
	if r.metrics != nil {
		r.metrics.IncFiberSpawned()
	}

	f := &Fiber[D, T]{id: child.id, runner: child, done: make(chan struct{})}

	// Abort propagation to the child itself rides the children slice walk in
	// requestAbort; this listener only moves the fiber's visible state to
	// completing the instant cancellation is requested.
	child.OnAbort(func(any) { f.transition(FiberCompleting) })

	// A runner aborted before this spawn had no child to walk; hand the
	// request down directly so the new subtree still observes it.
	if r.requestClosed() {
		child.requestAbort(r.abortReason())
	}

	go func() {
		var out T
		var err error
		defer func() {
			rec := recover()
			aborted := child.requestClosed()
			reason := child.abortReason()

			child.markState(runnerCompleting)
			f.transition(FiberCompleting)

			// Orphaned grandchildren are aborted with the closing sentinel
			// and awaited: a fiber never settles while its subtree is live,
			// even when the subtree refuses to yield.
			for _, gc := range child.Children() {
				gc.requestAbort(ErrRunnerClosing)
			}
			child.awaitChildren()

			child.stack.Dispose(child.ctx)

			child.markState(runnerCompleted)
			child.cancelFunc()
			r.removeChild(child)

			var zero T
			if rec != nil {
				if r.metrics != nil {
					r.metrics.IncFiberPanicked()
				}
				f.settle(zero, nil, rec, aborted, reason)
				return
			}
			if r.metrics != nil {
				if aborted {
					r.metrics.IncFiberAborted()
				} else {
					r.metrics.IncFiberCompleted()
				}
			}
			f.settle(out, err, nil, aborted, reason)
		}()

		out, err = task(child)
	}()

	return f
}

// Dispose requests abort of r's subtree, awaits every child, then drains the
// stack in reverse registration order. Intended for the root runner at
// program shutdown; descendants are disposed automatically when their owning
// fiber settles. The stack drains only once: a later call does not run it
// again, and a call that overlaps a disposal still in progress returns
// without waiting for that disposal's releases to finish.
func (r *Runner[D]) Dispose(ctx context.Context) {
	r.requestAbort(ErrRunnerClosing)
	r.markState(runnerCompleting)
	r.awaitChildren()
	r.stack.Dispose(ctx)
	r.markState(runnerCompleted)
}
