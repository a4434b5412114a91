package schedule

import "time"

// RetryStrategyAWS is an exponential-backoff preset of two steps (two
// retries after the first attempt) starting at 100ms (factor 2), capped at
// 20s, with full jitter (f=1). Built fresh on every call so independent Retry/Repeat calls never share attempt state.
func RetryStrategyAWS[In any]() Schedule[time.Duration, In] {
	base := Exponential[In](100*time.Millisecond, 2)
	taken := Take(base, 2)
	capped := MaxDelay(taken, 20*time.Second)
	return Jitter(capped, 1)
}
