package schedule

import "time"

// Sequence steps through schedules in order: s1 until it returns ErrDone,
// then s2, and so on. ErrDone is only returned once every schedule has been
// exhausted. A schedule that has fully exhausted this way never restarts:
// once Sequence itself returns ErrDone, every subsequent call returns
// ErrDone again without re-entering s1.
func Sequence[Out, In any](schedules ...Schedule[Out, In]) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		steps := make([]Step[Out, In], len(schedules))
		for i, s := range schedules {
			steps[i] = s(deps)
		}
		idx := 0
		exhausted := false
		return func(in In) (Out, time.Duration, error) {
			var zero Out
			if exhausted {
				return zero, 0, ErrDone
			}
			for idx < len(steps) {
				out, delay, err := steps[idx](in)
				if err == nil {
					return out, delay, nil
				}
				if !isDone(err) {
					return zero, 0, err
				}
				idx++
			}
			exhausted = true
			return zero, 0, ErrDone
		}
	}
}

// Pair is the paired output Intersect emits.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Intersect steps a and b together every call: the result is ErrDone as
// soon as either is done, and otherwise pairs their outputs with a delay
// equal to the larger of the two.
func Intersect[A, B, In any](a Schedule[A, In], b Schedule[B, In]) Schedule[Pair[A, B], In] {
	return func(deps Deps) Step[Pair[A, B], In] {
		sa := a(deps)
		sb := b(deps)
		return func(in In) (Pair[A, B], time.Duration, error) {
			var zero Pair[A, B]
			oa, da, erra := sa(in)
			ob, db, errb := sb(in)
			if erra != nil {
				return zero, 0, erra
			}
			if errb != nil {
				return zero, 0, errb
			}
			delay := da
			if db > delay {
				delay = db
			}
			return Pair[A, B]{First: oa, Second: ob}, delay, nil
		}
	}
}

// Union steps a and b together every call: the result is ErrDone only once
// both are done. Otherwise it takes the delay and output of whichever
// has the smaller delay, ties favoring a; if exactly one is done, the other
// carries the result alone.
func Union[Out, In any](a Schedule[Out, In], b Schedule[Out, In]) Schedule[Out, In] {
	return func(deps Deps) Step[Out, In] {
		sa := a(deps)
		sb := b(deps)
		return func(in In) (Out, time.Duration, error) {
			var zero Out
			oa, da, erra := sa(in)
			if erra != nil && !isDone(erra) {
				return zero, 0, erra
			}
			ob, db, errb := sb(in)
			if errb != nil && !isDone(errb) {
				return zero, 0, errb
			}
			doneA := erra != nil
			doneB := errb != nil
			switch {
			case doneA && doneB:
				return zero, 0, ErrDone
			case doneA:
				return ob, db, nil
			case doneB:
				return oa, da, nil
			case db < da:
				return ob, db, nil
			default:
				return oa, da, nil
			}
		}
	}
}

// WhenInput is a curried selector: WhenInput(pred, alt) returns a function
// that, applied to base, yields a schedule stepping alt whenever pred holds
// on the current input and base otherwise. Both branches are built once
// and keep independent state across the life of the returned schedule.
func WhenInput[Out, In any](pred func(In) bool, alt Schedule[Out, In]) func(base Schedule[Out, In]) Schedule[Out, In] {
	return func(base Schedule[Out, In]) Schedule[Out, In] {
		return func(deps Deps) Step[Out, In] {
			sBase := base(deps)
			sAlt := alt(deps)
			return func(in In) (Out, time.Duration, error) {
				if pred(in) {
					return sAlt(in)
				}
				return sBase(in)
			}
		}
	}
}
