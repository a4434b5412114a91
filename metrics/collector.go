// Package metrics provides in-process metrics collection for a runtime tree.
//
// The Collector accumulates counters for the lifetime of a root runner. The
// runtime package consumes it through a narrow interface rather than by
// import, so this stays a leaf package.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot. Safe to read concurrently after creation.
type Snapshot struct {
	// Fiber lifecycle.
	FibersSpawned   int64
	FibersCompleted int64
	FibersAborted   int64
	FibersPanicked  int64

	// Combinators.
	RaceLosses      int64
	AllAborts       int64
	TimeoutsFired   int64
	ConcurrencyCaps int64 // times a child waited for a WithConcurrency slot

	// Retry / Repeat.
	RetryAttempts  int64
	RetrySuccesses int64
	RetryExhausted int64
	RepeatRuns     int64

	// Schedule.
	ScheduleSteps int64
	ScheduleDone  int64

	// Dimension, set once at construction.
	Label string
}

// Collector accumulates metrics for one root runner's lifetime.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe so
// a possibly-nil *Collector can be threaded through the runtime unconditionally.
type Collector struct {
	mu sync.Mutex

	fibersSpawned   int64
	fibersCompleted int64
	fibersAborted   int64
	fibersPanicked  int64

	raceLosses      int64
	allAborts       int64
	timeoutsFired   int64
	concurrencyCaps int64

	retryAttempts  int64
	retrySuccesses int64
	retryExhausted int64
	repeatRuns     int64

	scheduleSteps int64
	scheduleDone  int64

	label string
}

// NewCollector creates a Collector labeled for a particular runner tree
// (e.g. the root runner's ID), purely to disambiguate snapshots when several
// collectors are compared side by side.
func NewCollector(label string) *Collector {
	return &Collector{label: label}
}

// --- Fiber lifecycle ---

func (c *Collector) IncFiberSpawned() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fibersSpawned++
	c.mu.Unlock()
}

func (c *Collector) IncFiberCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fibersCompleted++
	c.mu.Unlock()
}

func (c *Collector) IncFiberAborted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fibersAborted++
	c.mu.Unlock()
}

func (c *Collector) IncFiberPanicked() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fibersPanicked++
	c.mu.Unlock()
}

// --- Combinators ---

func (c *Collector) IncRaceLoss() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.raceLosses++
	c.mu.Unlock()
}

func (c *Collector) IncAllAbort() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.allAborts++
	c.mu.Unlock()
}

func (c *Collector) IncTimeoutFired() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.timeoutsFired++
	c.mu.Unlock()
}

func (c *Collector) IncConcurrencyCap() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.concurrencyCaps++
	c.mu.Unlock()
}

// --- Retry / Repeat ---

func (c *Collector) IncRetryAttempt() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retryAttempts++
	c.mu.Unlock()
}

func (c *Collector) IncRetrySuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retrySuccesses++
	c.mu.Unlock()
}

func (c *Collector) IncRetryExhausted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retryExhausted++
	c.mu.Unlock()
}

func (c *Collector) IncRepeatRun() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.repeatRuns++
	c.mu.Unlock()
}

// --- Schedule ---

func (c *Collector) IncScheduleStep() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scheduleSteps++
	c.mu.Unlock()
}

func (c *Collector) IncScheduleDone() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scheduleDone++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		FibersSpawned:   c.fibersSpawned,
		FibersCompleted: c.fibersCompleted,
		FibersAborted:   c.fibersAborted,
		FibersPanicked:  c.fibersPanicked,

		RaceLosses:      c.raceLosses,
		AllAborts:       c.allAborts,
		TimeoutsFired:   c.timeoutsFired,
		ConcurrencyCaps: c.concurrencyCaps,

		RetryAttempts:  c.retryAttempts,
		RetrySuccesses: c.retrySuccesses,
		RetryExhausted: c.retryExhausted,
		RepeatRuns:     c.repeatRuns,

		ScheduleSteps: c.scheduleSteps,
		ScheduleDone:  c.scheduleDone,

		Label: c.label,
	}
}
