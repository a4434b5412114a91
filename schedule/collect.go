package schedule

import "time"

// CollectAll accumulates every output s emits into a growing slice, itself
// emitted as the schedule's own output on every call.
func CollectAll[Out, In any](s Schedule[Out, In]) Schedule[[]Out, In] {
	return func(deps Deps) Step[[]Out, In] {
		inner := s(deps)
		var acc []Out
		return func(in In) ([]Out, time.Duration, error) {
			out, delay, err := inner(in)
			if err != nil {
				return nil, 0, err
			}
			acc = append(acc, out)
			cp := make([]Out, len(acc))
			copy(cp, acc)
			return cp, delay, nil
		}
	}
}

// CollectWhile collects s's outputs while pred holds, per
// WhileScheduleOutput's evaluate-then-check contract.
func CollectWhile[Out, In any](s Schedule[Out, In], pred func(Out) bool) Schedule[[]Out, In] {
	return CollectAll(WhileScheduleOutput(s, pred))
}

// CollectUntil collects s's outputs until pred holds, per
// UntilScheduleOutput's evaluate-then-check contract.
func CollectUntil[Out, In any](s Schedule[Out, In], pred func(Out) bool) Schedule[[]Out, In] {
	return CollectAll(UntilScheduleOutput(s, pred))
}
