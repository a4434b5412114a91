package schedule

import (
	"errors"
	"math"
	"time"
)

// Take returns a schedule that emits at most n successful steps from s;
// the (n+1)-th call returns ErrDone without invoking s again.
func Take[Out, In any](s Schedule[Out, In], n int) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		count := 0
		return func(in In) (Out, time.Duration, error) {
			var zero Out
			if count >= n {
				return zero, 0, ErrDone
			}
			out, delay, err := inner(in)
			if err != nil {
				return zero, 0, err
			}
			count++
			return out, delay, nil
		}
	}
}

// MaxElapsed returns a schedule that returns ErrDone once the wall-clock
// time since the schedule was built reaches d, regardless of how many
// steps s itself has left to offer.
func MaxElapsed[Out, In any](s Schedule[Out, In], d time.Duration) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		start := deps.Now()
		return func(in In) (Out, time.Duration, error) {
			var zero Out
			if deps.Now().Sub(start) >= d {
				return zero, 0, ErrDone
			}
			return inner(in)
		}
	}
}

// MaxDelay caps every delay s emits at m.
func MaxDelay[Out, In any](s Schedule[Out, In], m time.Duration) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				return out, delay, err
			}
			if delay > m {
				delay = m
			}
			return out, delay, nil
		}
	}
}

// Jitter multiplies every delay s emits by 1 − f + 2·f·rand(), clamped at
// 0. f = 0.5 (the conventional default) spreads delay ∈
// [0.5·delay, 1.5·delay]; f = 1 spreads delay ∈ [0, 2·delay].
func Jitter[Out, In any](s Schedule[Out, In], f float64) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				return out, delay, err
			}
			factor := 1 - f + 2*f*deps.NextRandom()
			jittered := time.Duration(math.Round(float64(delay) * factor))
			if jittered < 0 {
				jittered = 0
			}
			return out, jittered, nil
		}
	}
}

// Delayed replaces only the first delay s emits with d; every subsequent
// delay passes through unchanged.
func Delayed[Out, In any](s Schedule[Out, In], d time.Duration) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		first := true
		return func(in In) (Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				return out, delay, err
			}
			if first {
				first = false
				return out, d, nil
			}
			return out, delay, nil
		}
	}
}

// ModifyDelay transforms every delay s emits through g.
func ModifyDelay[Out, In any](s Schedule[Out, In], g func(time.Duration) time.Duration) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				return out, delay, err
			}
			return out, g(delay), nil
		}
	}
}

// AddDelay adds a fixed k to every delay s emits. Sugar over ModifyDelay.
func AddDelay[Out, In any](s Schedule[Out, In], k time.Duration) Schedule[Out, In] {
	return ModifyDelay(s, func(d time.Duration) time.Duration { return d + k })
}

// Compensate subtracts the wall-clock time elapsed since the previous step
// call from each emitted delay, clamped at 0 — so a slow caller (one that
// takes time between steps) sleeps less to stay on the schedule's original
// cadence.
func Compensate[Out, In any](s Schedule[Out, In]) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		var last time.Time
		first := true
		return func(in In) (Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				return out, delay, err
			}
			now := deps.Now()
			if !first {
				delay -= now.Sub(last)
				if delay < 0 {
					delay = 0
				}
			}
			first = false
			last = now
			return out, delay, nil
		}
	}
}

// ResetAfter rebuilds s's inner step from scratch whenever the wall-clock
// gap since the previous step call reaches d. Only the inner step is
// rebuilt: any sibling transformer wrapping this one (e.g. an outer
// MaxElapsed) keeps its own independent clock running from the original
// build, it is not reset alongside s.
func ResetAfter[Out, In any](s Schedule[Out, In], d time.Duration) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		var last time.Time
		first := true
		return func(in In) (Out, time.Duration, error) {
			now := deps.Now()
			if !first && now.Sub(last) >= d {
				inner = s(deps)
			}
			first = false
			last = now
			return inner(in)
		}
	}
}

// MapSchedule transforms s's output through f; the emitted delay is
// unchanged.
func MapSchedule[Out, Mapped, In any](s Schedule[Out, In], f func(Out) Mapped) Schedule[Mapped, In] {
	return func(deps Deps) Step[Mapped, In] {
		inner := s(deps)
		return func(in In) (Mapped, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				var zero Mapped
				return zero, delay, err
			}
			return f(out), delay, nil
		}
	}
}

// FoldSchedule accumulates s's outputs through op, starting from zero, and
// emits the running accumulator in place of s's own output.
func FoldSchedule[Out, Acc, In any](s Schedule[Out, In], zero Acc, op func(Acc, Out) Acc) Schedule[Acc, In] {
	return func(deps Deps) Step[Acc, In] {
		inner := s(deps)
		acc := zero
		return func(in In) (Acc, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				var z Acc
				return z, delay, err
			}
			acc = op(acc, out)
			return acc, delay, nil
		}
	}
}

// Repetitions counts s's steps, starting from 0: a fold from -1 that
// increments on every step regardless of s's own output.
func Repetitions[Out, In any](s Schedule[Out, In]) Schedule[int, In] {
	return FoldSchedule(s, -1, func(acc int, _ Out) int { return acc + 1 })
}

// Delays replaces s's output with its own emitted delay.
func Delays[Out, In any](s Schedule[Out, In]) Schedule[time.Duration, In] {
	return func(deps Deps) Step[time.Duration, In] {
		inner := s(deps)
		return func(in In) (time.Duration, time.Duration, error) {
			_, delay, err := inner(in)
			if err != nil {
				return 0, delay, err
			}
			return delay, delay, nil
		}
	}
}

// Passthrough is the identity schedule: it emits its own input back as
// output with no delay, forever.
func Passthrough[In any]() Schedule[In, In] {
	return func(Deps) Step[In, In] {
		return func(in In) (In, time.Duration, error) {
			return in, 0, nil
		}
	}
}

// PassthroughWith wraps s so that it emits its own input as output, while
// taking its delay (and exhaustion) from s.
func PassthroughWith[Out, In any](s Schedule[Out, In]) Schedule[In, In] {
	return func(deps Deps) Step[In, In] {
		inner := s(deps)
		return func(in In) (In, time.Duration, error) {
			_, delay, err := inner(in)
			if err != nil {
				var zero In
				return zero, delay, err
			}
			return in, delay, nil
		}
	}
}

// WhileScheduleInput continues stepping s only while pred(in) holds;
// the first input that fails the predicate returns ErrDone without
// invoking s, since the input alone (not s's state) decides the outcome.
func WhileScheduleInput[Out, In any](s Schedule[Out, In], pred func(In) bool) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			if !pred(in) {
				var zero Out
				return zero, 0, ErrDone
			}
			return inner(in)
		}
	}
}

// UntilScheduleInput stops as soon as pred(in) holds: that input itself
// returns ErrDone, without invoking s.
func UntilScheduleInput[Out, In any](s Schedule[Out, In], pred func(In) bool) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			if pred(in) {
				var zero Out
				return zero, 0, ErrDone
			}
			return inner(in)
		}
	}
}

// WhileScheduleOutput continues while pred holds on s's emitted output.
// s is always stepped first, so the first emission is always evaluated by
// pred (never short-circuited on the strength of prior state alone); once
// pred(out) fails, that call returns ErrDone and the failing output is
// discarded.
func WhileScheduleOutput[Out, In any](s Schedule[Out, In], pred func(Out) bool) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				var zero Out
				return zero, 0, err
			}
			if !pred(out) {
				var zero Out
				return zero, 0, ErrDone
			}
			return out, delay, nil
		}
	}
}

// UntilScheduleOutput stops once pred holds on s's emitted output. s is
// always stepped first (the first emission is always evaluated); the call
// whose output satisfies pred returns ErrDone and discards that output.
func UntilScheduleOutput[Out, In any](s Schedule[Out, In], pred func(Out) bool) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				var zero Out
				return zero, 0, err
			}
			if pred(out) {
				var zero Out
				return zero, 0, ErrDone
			}
			return out, delay, nil
		}
	}
}

// TapScheduleOutput invokes fn with every output s emits, without changing
// the schedule's result.
func TapScheduleOutput[Out, In any](s Schedule[Out, In], fn func(Out)) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err == nil {
				fn(out)
			}
			return out, delay, err
		}
	}
}

// TapScheduleInput invokes fn with every input the schedule receives,
// before stepping s, without changing the schedule's result.
func TapScheduleInput[Out, In any](s Schedule[Out, In], fn func(In)) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		inner := s(deps)
		return func(in In) (Out, time.Duration, error) {
			fn(in)
			return inner(in)
		}
	}
}

// isDone reports whether err is (or wraps) ErrDone.
func isDone(err error) bool {
	return errors.Is(err, ErrDone)
}
