package runtime_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/justapithecus/fiberflow/runtime"
	"github.com/justapithecus/fiberflow/runtimetest"
)

func newTestRootAndClock(t *testing.T) (*runtime.Runner[struct{}], *runtimetest.VirtualClock) {
	t.Helper()
	clock := runtimetest.NewVirtualClock(time.Unix(0, 0))
	r := runtime.NewRoot(runtime.RootOptions[struct{}]{
		Deps:   struct{}{},
		Time:   clock,
		Random: runtimetest.NewSeededRandom(1),
	})
	return r, clock
}

// waitForSleepers blocks until at least n goroutines are parked on the
// virtual clock, so a subsequent Advance can't race past registration.
func waitForSleepers(t *testing.T, clock *runtimetest.VirtualClock, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for clock.PendingSleepers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d clock sleepers (have %d)", n, clock.PendingSleepers())
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func TestRace_FirstArrivalWins(t *testing.T) {
	r := newTestRoot(t)
	fast := func(cr *runtime.Runner[struct{}]) (string, error) { return "fast", nil }
	slow := func(cr *runtime.Runner[struct{}]) (string, error) {
		<-cr.Done()
		return "slow", &runtime.AbortError{Reason: cr.Context().Err()}
	}
	val, err := runtime.Race(r, fast, slow)
	if err != nil || val != "fast" {
		t.Fatalf("Race = (%q, %v), want (\"fast\", nil)", val, err)
	}
}

func TestRace_LoserObservesRaceLostReason(t *testing.T) {
	r := newTestRoot(t)
	loserReason := make(chan any, 1)
	fast := func(cr *runtime.Runner[struct{}]) (string, error) { return "fast", nil }
	slow := func(cr *runtime.Runner[struct{}]) (string, error) {
		cr.OnAbort(func(reason any) { loserReason <- reason })
		<-cr.Done()
		return "", &runtime.AbortError{Reason: cr.Context().Err()}
	}
	val, err := runtime.Race(r, fast, slow)
	if err != nil || val != "fast" {
		t.Fatalf("Race = (%q, %v), want (\"fast\", nil)", val, err)
	}
	select {
	case reason := <-loserReason:
		if _, ok := reason.(*runtime.RaceLostError); !ok {
			t.Fatalf("loser abort reason = %T, want *RaceLostError", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("loser never observed its abort reason")
	}
}

func TestAll_CollectsInOrder(t *testing.T) {
	r := newTestRoot(t)
	a := func(cr *runtime.Runner[struct{}]) (int, error) { return 1, nil }
	b := func(cr *runtime.Runner[struct{}]) (int, error) { return 2, nil }
	c := func(cr *runtime.Runner[struct{}]) (int, error) { return 3, nil }
	vals, err := runtime.All(r, a, b, c)
	if err != nil {
		t.Fatalf("All err = %v, want nil", err)
	}
	if vals[0] != 1 || vals[1] != 2 || vals[2] != 3 {
		t.Fatalf("vals = %v, want [1 2 3]", vals)
	}
}

func TestAll_FailFastAbortsSiblings(t *testing.T) {
	r := newTestRoot(t)
	failErr := errors.New("boom")
	aborted := make(chan any, 1)
	started := make(chan struct{})
	a := func(cr *runtime.Runner[struct{}]) (int, error) {
		<-started
		return 0, failErr
	}
	b := func(cr *runtime.Runner[struct{}]) (int, error) {
		cr.OnAbort(func(reason any) { aborted <- reason })
		close(started)
		<-cr.Done()
		return 0, &runtime.AbortError{Reason: cr.Context().Err()}
	}
	_, err := runtime.WithConcurrency(r, 2, func(cr *runtime.Runner[struct{}]) (struct{}, error) {
		_, allErr := runtime.All(cr, a, b)
		return struct{}{}, allErr
	})
	if !errors.Is(err, failErr) {
		t.Fatalf("err = %v, want failErr", err)
	}
	select {
	case reason := <-aborted:
		if _, ok := reason.(*runtime.AllAbortError); !ok {
			t.Fatalf("sibling abort reason = %T, want *AllAbortError", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("sibling was never aborted")
	}
}

func TestAll_SequentialByDefault(t *testing.T) {
	r := newTestRoot(t)

	var mu sync.Mutex
	var order []string
	logTask := func(name string) runtime.Task[struct{}, int] {
		return func(cr *runtime.Runner[struct{}]) (int, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return 0, nil
		}
	}
	_, err := runtime.All(r, logTask("a"), logTask("b"), logTask("c"))
	if err != nil {
		t.Fatalf("All err = %v, want nil", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v, want [a b c]", order)
	}
}

func TestWithConcurrency_AdmitsInInputOrder(t *testing.T) {
	r := newTestRoot(t)

	var mu sync.Mutex
	var log []string
	gate := runtime.NewGate()
	task := func(n int) runtime.Task[struct{}, int] {
		return func(cr *runtime.Runner[struct{}]) (int, error) {
			mu.Lock()
			log = append(log, fmt.Sprintf("start %d", n))
			started := len(log)
			mu.Unlock()
			if started <= 2 {
				if err := gate.Wait(cr.Context()); err != nil {
					return 0, err
				}
			}
			return n, nil
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := runtime.WithConcurrency(r, 2, func(cr *runtime.Runner[struct{}]) (struct{}, error) {
			_, allErr := runtime.All(cr, task(1), task(2), task(3), task(4))
			return struct{}{}, allErr
		})
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(log)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first two tasks never started")
		}
		time.Sleep(100 * time.Microsecond)
	}
	mu.Lock()
	if len(log) != 2 {
		mu.Unlock()
		t.Fatalf("started = %d immediately after spawn, want exactly 2", len(log))
	}
	firstTwo := map[string]bool{log[0]: true, log[1]: true}
	mu.Unlock()
	if !firstTwo["start 1"] || !firstTwo["start 2"] {
		t.Fatalf("first admitted = %v, want tasks 1 and 2 (input order)", firstTwo)
	}

	gate.Open()
	if err := <-done; err != nil {
		t.Fatalf("All err = %v, want nil", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(log) != 4 {
		t.Fatalf("started = %d total, want 4", len(log))
	}
}

func TestAllSettled_NeverAbortsSiblings(t *testing.T) {
	r := newTestRoot(t)
	failErr := errors.New("boom")
	a := func(cr *runtime.Runner[struct{}]) (int, error) { return 0, failErr }
	b := func(cr *runtime.Runner[struct{}]) (int, error) { return 7, nil }
	out := runtime.AllSettled(r, a, b)
	if out[0].Err == nil || !errors.Is(out[0].Err, failErr) {
		t.Fatalf("out[0].Err = %v, want failErr", out[0].Err)
	}
	if out[1].Err != nil || out[1].Value != 7 {
		t.Fatalf("out[1] = %+v, want {7 nil}", out[1])
	}
}

func TestAny_FirstSuccessWins(t *testing.T) {
	r := newTestRoot(t)
	failErr := errors.New("boom")
	a := func(cr *runtime.Runner[struct{}]) (int, error) { return 0, failErr }
	b := func(cr *runtime.Runner[struct{}]) (int, error) { return 9, nil }
	val, err := runtime.Any(r, a, b)
	if err != nil || val != 9 {
		t.Fatalf("Any = (%d, %v), want (9, nil)", val, err)
	}
}

func TestAny_AllFailReturnsLastInInputOrder(t *testing.T) {
	r := newTestRoot(t)
	e1 := errors.New("e1")
	e2 := errors.New("e2")
	slowFail := func(cr *runtime.Runner[struct{}]) (int, error) {
		if err := runtime.YieldNow(cr); err != nil {
			return 0, err
		}
		return 0, e1
	}
	fastFail := func(cr *runtime.Runner[struct{}]) (int, error) { return 0, e2 }
	_, err := runtime.Any(r, slowFail, fastFail)
	if !errors.Is(err, e2) {
		t.Fatalf("err = %v, want e2 (the error of the last task in input order)", err)
	}
}

func TestTimeout_FiresOnSlowTask(t *testing.T) {
	r, clock := newTestRootAndClock(t)
	task := func(cr *runtime.Runner[struct{}]) (int, error) {
		<-cr.Done()
		return 0, &runtime.AbortError{Reason: cr.Context().Err()}
	}
	done := make(chan error, 1)
	go func() {
		_, err := runtime.Timeout(r, time.Millisecond, task)
		done <- err
	}()
	waitForSleepers(t, clock, 1)
	clock.Advance(time.Millisecond)

	err := <-done
	var timeoutErr *runtime.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}
}

func TestTimeout_UnabortableTaskDoesNotDelayReturn(t *testing.T) {
	r, clock := newTestRootAndClock(t)
	release := make(chan struct{})
	task := func(cr *runtime.Runner[struct{}]) (int, error) {
		return runtime.Unabortable(cr, func(ir *runtime.Runner[struct{}]) (int, error) {
			<-release
			return 7, nil
		})
	}
	done := make(chan error, 1)
	go func() {
		_, err := runtime.Timeout(r, time.Millisecond, task)
		done <- err
	}()
	waitForSleepers(t, clock, 1)
	clock.Advance(time.Millisecond)

	select {
	case err := <-done:
		var timeoutErr *runtime.TimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("err = %v, want *TimeoutError", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout blocked on an unabortable task")
	}
	close(release)
}

func TestTimeout_SucceedsWithinDeadline(t *testing.T) {
	r := newTestRoot(t)
	task := func(cr *runtime.Runner[struct{}]) (int, error) { return 5, nil }
	val, err := runtime.Timeout(r, time.Second, task)
	if err != nil || val != 5 {
		t.Fatalf("Timeout = (%d, %v), want (5, nil)", val, err)
	}
}

func TestMap_BoundedConcurrency(t *testing.T) {
	r := newTestRoot(t)

	items := []int{1, 2, 3, 4, 5}
	var inFlight, maxInFlight int
	var mu sync.Mutex
	fn := func(cr *runtime.Runner[struct{}], item int) (int, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return item * 2, nil
	}

	_, err := runtime.WithConcurrency(r, 2, func(cr *runtime.Runner[struct{}]) (struct{}, error) {
		vals, mapErr := runtime.Map(cr, items, fn)
		if mapErr != nil {
			return struct{}{}, mapErr
		}
		if len(vals) != len(items) {
			t.Fatalf("got %d results, want %d", len(vals), len(items))
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Map err = %v, want nil", err)
	}
	if maxInFlight > 2 {
		t.Fatalf("maxInFlight = %d, want <= 2", maxInFlight)
	}
}

func TestMapSettled_CollectsAllOutcomes(t *testing.T) {
	r := newTestRoot(t)
	items := []int{1, 2, 3}
	fn := func(cr *runtime.Runner[struct{}], item int) (int, error) {
		if item == 2 {
			return 0, errors.New("bad item")
		}
		return item, nil
	}
	out := runtime.MapSettled(r, items, fn)
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if out[1].Err == nil {
		t.Fatal("out[1].Err = nil, want an error")
	}
	if out[0].Value != 1 || out[2].Value != 3 {
		t.Fatalf("out = %+v", out)
	}
}
