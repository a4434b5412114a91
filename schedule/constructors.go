package schedule

import (
	"math"
	"time"
)

// Forever emits 0, 1, 2, … with no delay and never exhausts.
func Forever[In any]() Schedule[int, In] {
	return func(Deps) Step[int, In] {
		n := 0
		return func(In) (int, time.Duration, error) {
			out := n
			n++
			return out, 0, nil
		}
	}
}

// Once emits a single 0 with no delay, then returns ErrDone on every
// subsequent call.
func Once[In any]() Schedule[int, In] {
	return func(Deps) Step[int, In] {
		used := false
		return func(In) (int, time.Duration, error) {
			if used {
				return 0, 0, ErrDone
			}
			used = true
			return 0, 0, nil
		}
	}
}

// Recurs emits 0, …, n-1 with no delay, then ErrDone.
func Recurs[In any](n int) Schedule[int, In] {
	return func(Deps) Step[int, In] {
		i := 0
		return func(In) (int, time.Duration, error) {
			if i >= n {
				return 0, 0, ErrDone
			}
			out := i
			i++
			return out, 0, nil
		}
	}
}

// Spaced emits a constant delay d forever, with output equal to the delay.
func Spaced[In any](d time.Duration) Schedule[time.Duration, In] {
	return func(Deps) Step[time.Duration, In] {
		return func(In) (time.Duration, time.Duration, error) {
			return d, d, nil
		}
	}
}

// Exponential emits base·factor^(n-1) for attempt n = 1, 2, …, with output
// equal to the emitted delay. factor <= 0 is treated as the conventional
// default of 2.
func Exponential[In any](base time.Duration, factor float64) Schedule[time.Duration, In] {
	if factor <= 0 {
		factor = 2
	}
	return func(Deps) Step[time.Duration, In] {
		n := 0
		return func(In) (time.Duration, time.Duration, error) {
			n++
			delay := time.Duration(math.Round(float64(base) * math.Pow(factor, float64(n-1))))
			return delay, delay, nil
		}
	}
}

// Linear emits base·n for attempt n = 1, 2, …, with output equal to the
// emitted delay.
func Linear[In any](base time.Duration) Schedule[time.Duration, In] {
	return func(Deps) Step[time.Duration, In] {
		n := 0
		return func(In) (time.Duration, time.Duration, error) {
			n++
			delay := base * time.Duration(n)
			return delay, delay, nil
		}
	}
}

// Fibonacci emits initial·fib(n) for attempt n = 1, 2, … (fib(1)=fib(2)=1),
// with output equal to the emitted delay.
func Fibonacci[In any](initial time.Duration) Schedule[time.Duration, In] {
	return func(Deps) Step[time.Duration, In] {
		prev, cur := int64(0), int64(1)
		return func(In) (time.Duration, time.Duration, error) {
			fibN := cur
			prev, cur = cur, prev+cur
			delay := initial * time.Duration(fibN)
			return delay, delay, nil
		}
	}
}

// Fixed emits 0, 1, … aligned to windows of interval starting at the
// schedule's first step: if the caller is behind schedule (the previous
// step's work overran the window), the delay is clamped to 0 rather than
// stacking up catch-up sleeps.
func Fixed[In any](interval time.Duration) Schedule[int, In] {
	return func(deps Deps) Step[int, In] {
		var start time.Time
		started := false
		n := 0
		return func(In) (int, time.Duration, error) {
			now := deps.Now()
			if !started {
				start = now
				started = true
			}
			n++
			target := start.Add(interval * time.Duration(n))
			delay := target.Sub(now)
			if delay < 0 {
				delay = 0
			}
			return n - 1, delay, nil
		}
	}
}

// Windowed emits 0, 1, … and always sleeps until the next window boundary,
// even if the caller is behind schedule — unlike Fixed, a missed window is
// never collapsed to a zero delay.
func Windowed[In any](interval time.Duration) Schedule[int, In] {
	return func(deps Deps) Step[int, In] {
		var start time.Time
		started := false
		n := 0
		return func(In) (int, time.Duration, error) {
			now := deps.Now()
			if !started {
				start = now
				started = true
			}
			n++
			elapsedWindows := now.Sub(start) / interval
			boundary := start.Add(interval * (elapsedWindows + 1))
			delay := boundary.Sub(now)
			return n - 1, delay, nil
		}
	}
}

// Elapsed emits the wall-clock duration since the schedule was built, with
// no delay between steps.
func Elapsed[In any]() Schedule[time.Duration, In] {
	return func(deps Deps) Step[time.Duration, In] {
		start := deps.Now()
		return func(In) (time.Duration, time.Duration, error) {
			return deps.Now().Sub(start), 0, nil
		}
	}
}

// During emits the wall-clock elapsed duration with no delay until it
// exceeds d, then returns ErrDone.
func During[In any](d time.Duration) Schedule[time.Duration, In] {
	return func(deps Deps) Step[time.Duration, In] {
		start := deps.Now()
		return func(In) (time.Duration, time.Duration, error) {
			elapsed := deps.Now().Sub(start)
			if elapsed > d {
				return 0, 0, ErrDone
			}
			return elapsed, 0, nil
		}
	}
}

// Always emits v forever with no delay.
func Always[V, In any](v V) Schedule[V, In] {
	return func(Deps) Step[V, In] {
		return func(In) (V, time.Duration, error) {
			return v, 0, nil
		}
	}
}

// Unfold emits seed, then f(seed), then f(f(seed)), … forever with no
// delay.
func Unfold[S, In any](seed S, f func(S) S) Schedule[S, In] {
	return func(Deps) Step[S, In] {
		state := seed
		first := true
		return func(In) (S, time.Duration, error) {
			if first {
				first = false
				return state, 0, nil
			}
			state = f(state)
			return state, 0, nil
		}
	}
}
