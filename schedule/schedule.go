// Package schedule implements the lazy, stateful retry/repeat policy
// algebra: a Schedule is a builder that, given deps, produces a Step — a
// stateful closure that on each call decides the next output and delay, or
// signals that it has nothing further to offer.
//
// Schedule values are pure and reusable: calling the same Schedule against
// deps twice produces two independent Steps whose internal counters,
// timers, and accumulators never share state. This is what lets a Schedule
// be built once (e.g. the value RetryStrategyAWS returns) and handed to many
// unrelated Retry/Repeat calls.
package schedule

import (
	"errors"
	"time"
)

// ErrDone is returned by a Step once the schedule has no further steps to
// offer. Combinators and callers test for it with errors.Is; it is never
// wrapped inside another error type.
var ErrDone = errors.New("schedule: done")

// Deps is the capability set every Schedule needs: a clock for elapsed-time
// bookkeeping (MaxElapsed, During, Fixed, Windowed, ResetAfter, Compensate)
// and a uniform random source for Jitter. Production callers satisfy this
// with the runner's injected Time/Random; tests satisfy it with
// runtimetest's virtual clock and seeded PRNG.
type Deps interface {
	// Now returns the current instant.
	Now() time.Time
	// NextRandom returns a uniform float64 in [0,1).
	NextRandom() float64
}

// Step is a schedule's stateful per-call decision. Given the latest input
// (a failing task's error for Retry, a succeeding task's value for
// Repeat), it returns the next output and delay, or ErrDone once the
// schedule is exhausted.
type Step[Out, In any] func(in In) (out Out, delay time.Duration, err error)

// Schedule builds a fresh Step from deps. Each call to a Schedule value
// allocates new closed-over state; two Steps built from the same Schedule
// never observe each other's progress.
type Schedule[Out, In any] func(deps Deps) Step[Out, In]
