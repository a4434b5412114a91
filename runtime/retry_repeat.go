package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/justapithecus/fiberflow/schedule"
)

// runnerDeps adapts a *Runner's injected Time and Random dependencies to
// schedule.Deps, so a Schedule built for Retry/Repeat draws its clock and
// jitter from the same sources the rest of the runner tree uses.
type runnerDeps[D any] struct {
	r *Runner[D]
}

func (d runnerDeps[D]) Now() time.Time      { return d.r.Time().Now() }
func (d runnerDeps[D]) NextRandom() float64 { return d.r.RandomSource().Next() }

// RetryOptions configures Retry's attempt-gating and observability hooks.
type RetryOptions struct {
	// Retryable decides whether a given failure should be retried. nil
	// defaults to "retry everything". An AbortError is never retried
	// regardless of what Retryable reports; the predicate only sees
	// non-abort failures.
	Retryable func(error) bool
	// OnRetry, if set, is invoked after a failed attempt and before the
	// schedule's delay is slept, with the 1-based attempt number that just
	// failed, the delay about to be taken, and the error that triggered it.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func defaultRetryable(error) bool { return true }

// Retry runs task against r, retrying on failure per sched until it
// succeeds, sched is exhausted, or a failure is not Retryable. Each attempt
// runs as a child fiber of r, so Aborting r stops retrying immediately. On
// exhaustion Retry returns RetryError wrapping the last failure.
func Retry[D any, T any, SOut any](r *Runner[D], task Task[D, T], sched schedule.Schedule[SOut, error], opts RetryOptions) (T, error) {
	retryable := opts.Retryable
	if retryable == nil {
		retryable = defaultRetryable
	}

	step := sched(runnerDeps[D]{r: r})
	attempt := 0
	var lastErr error

	for {
		attempt++
		if r.Aborted() {
			var zero T
			return zero, &AbortError{Reason: r.abortReason()}
		}

		fiber := Run(r, task)
		val, err := fiber.Await(context.Background())
		if err == nil {
			if r.metrics != nil {
				r.metrics.IncRetrySuccess()
			}
			return val, nil
		}
		lastErr = err
		if r.metrics != nil {
			r.metrics.IncRetryAttempt()
		}

		// An aborted attempt stops the loop unconditionally, before the
		// caller's Retryable is even consulted.
		var abortErr *AbortError
		if errors.As(err, &abortErr) {
			var zero T
			return zero, err
		}
		if !retryable(err) {
			var zero T
			return zero, err
		}

		_, delay, stepErr := step(err)
		if r.metrics != nil {
			if stepErr != nil {
				r.metrics.IncScheduleDone()
			} else {
				r.metrics.IncScheduleStep()
			}
		}
		if stepErr != nil {
			if r.metrics != nil {
				r.metrics.IncRetryExhausted()
			}
			var zero T
			return zero, &RetryError{Cause: lastErr, Attempts: attempt}
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, delay, err)
		}

		if sleepErr := Sleep(r, delay); sleepErr != nil {
			var zero T
			return zero, sleepErr
		}
	}
}

// RepeatOptions configures Repeat's continuation-gating and observability
// hooks.
type RepeatOptions[T any] struct {
	// Repeatable decides whether a succeeding value should trigger another
	// run. nil defaults to "always repeat" (the schedule alone decides when
	// to stop).
	Repeatable func(T) bool
	// OnRepeat, if set, is invoked after a successful run and before the
	// schedule's delay is slept, with the 1-based run number that just
	// completed, the delay about to be taken, and the value produced.
	OnRepeat func(attempt int, delay time.Duration, value T)
}

// Repeat runs task against r repeatedly on success, driven by sched, until
// the schedule is exhausted, task fails, or Repeatable rejects a value.
// Repeat returns the last successful value (or the triggering failure).
func Repeat[D any, T any, SOut any](r *Runner[D], task Task[D, T], sched schedule.Schedule[SOut, T], opts RepeatOptions[T]) (T, error) {
	repeatable := opts.Repeatable
	if repeatable == nil {
		repeatable = func(T) bool { return true }
	}

	step := sched(runnerDeps[D]{r: r})
	attempt := 0
	var last T

	for {
		attempt++
		if r.Aborted() {
			var zero T
			return zero, &AbortError{Reason: r.abortReason()}
		}

		fiber := Run(r, task)
		val, err := fiber.Await(context.Background())
		if err != nil {
			return last, err
		}
		last = val
		if r.metrics != nil {
			r.metrics.IncRepeatRun()
		}

		if !repeatable(val) {
			return last, nil
		}

		_, delay, stepErr := step(val)
		if r.metrics != nil {
			if stepErr != nil {
				r.metrics.IncScheduleDone()
			} else {
				r.metrics.IncScheduleStep()
			}
		}
		if stepErr != nil {
			return last, nil
		}

		if opts.OnRepeat != nil {
			opts.OnRepeat(attempt, delay, val)
		}

		if sleepErr := Sleep(r, delay); sleepErr != nil {
			return last, sleepErr
		}
	}
}
