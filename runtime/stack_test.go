package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/justapithecus/fiberflow/runtime"
)

func TestStack_DisposesLIFO(t *testing.T) {
	r := newTestRoot(t)
	var order []string
	record := func(name string) runtime.Task[struct{}, struct{}] {
		return func(cr *runtime.Runner[struct{}]) (struct{}, error) {
			order = append(order, name)
			return struct{}{}, nil
		}
	}
	s := r.Stack()
	s.Defer(record("r1"))
	s.Defer(record("r2"))
	s.Defer(record("r3"))
	s.Dispose(context.Background())

	if len(order) != 3 || order[0] != "r3" || order[1] != "r2" || order[2] != "r1" {
		t.Fatalf("order = %v, want [r3 r2 r1]", order)
	}
	if !s.Disposed() {
		t.Fatal("Disposed() = false after Dispose")
	}
}

func TestStack_LIFOHoldsOnEveryExitPath(t *testing.T) {
	r := newTestRoot(t)
	var order []string
	f := runtime.Run(r, func(cr *runtime.Runner[struct{}]) (int, error) {
		for _, name := range []string{"a", "b", "c"} {
			name := name
			cr.Defer(func(ir *runtime.Runner[struct{}]) (struct{}, error) {
				order = append(order, name)
				return struct{}{}, nil
			})
		}
		return 0, errors.New("failing exit path")
	})
	_, _ = f.Await(context.Background())

	if len(order) != 3 || order[0] != "c" || order[1] != "b" || order[2] != "a" {
		t.Fatalf("order = %v, want [c b a] even on the error path", order)
	}
}

func TestStack_FailingReleaseDoesNotSkipEarlierEntries(t *testing.T) {
	r := newTestRoot(t)
	var released []string
	s := r.Stack()
	release := func(name string) runtime.Task[struct{}, struct{}] {
		return func(cr *runtime.Runner[struct{}]) (struct{}, error) {
			released = append(released, name)
			return struct{}{}, nil
		}
	}
	s.Defer(release("a"))
	s.Defer(release("b"))
	s.Defer(func(cr *runtime.Runner[struct{}]) (struct{}, error) {
		released = append(released, "c")
		panic("release of c blew up")
	})
	s.Dispose(context.Background())

	if len(released) != 3 || released[0] != "c" || released[1] != "b" || released[2] != "a" {
		t.Fatalf("released = %v, want [c b a]: b and a still release after c's panic", released)
	}
}

type closeRecorder struct {
	name string
	log  *[]string
}

func (c *closeRecorder) Close() error {
	*c.log = append(*c.log, c.name)
	return nil
}

func TestStack_UseRegistersCloseLIFOWithOtherEntries(t *testing.T) {
	r := newTestRoot(t)
	var order []string
	s := r.Stack()

	s.Defer(func(cr *runtime.Runner[struct{}]) (struct{}, error) {
		order = append(order, "deferred")
		return struct{}{}, nil
	})
	res, err := s.Use(func(cr *runtime.Runner[struct{}]) (runtime.Closer, error) {
		return &closeRecorder{name: "used", log: &order}, nil
	})
	if err != nil || res == nil {
		t.Fatalf("Use = (%v, %v), want the acquired resource", res, err)
	}
	s.Dispose(context.Background())

	if len(order) != 2 || order[0] != "used" || order[1] != "deferred" {
		t.Fatalf("order = %v, want [used deferred]: Use closes LIFO with other entries", order)
	}
}

func TestStack_UseAcquireFailureRegistersNothing(t *testing.T) {
	r := newTestRoot(t)
	acquireErr := errors.New("acquire failed")
	var order []string
	s := r.Stack()

	res, err := s.Use(func(cr *runtime.Runner[struct{}]) (runtime.Closer, error) {
		return nil, acquireErr
	})
	if !errors.Is(err, acquireErr) || res != nil {
		t.Fatalf("Use = (%v, %v), want (nil, acquireErr)", res, err)
	}
	s.Dispose(context.Background())
	if len(order) != 0 {
		t.Fatalf("order = %v, want no registered cleanup after a failed acquire", order)
	}
}

func TestAdopt_SkipsReleaseWhenAcquireFails(t *testing.T) {
	r := newTestRoot(t)
	acquireErr := errors.New("acquire failed")
	releaseRan := false

	_, err := runtime.Adopt(r.Stack(),
		func(cr *runtime.Runner[struct{}]) (int, error) { return 0, acquireErr },
		func(int) error { releaseRan = true; return nil },
	)
	if !errors.Is(err, acquireErr) {
		t.Fatalf("err = %v, want acquireErr", err)
	}
	r.Stack().Dispose(context.Background())
	if releaseRan {
		t.Fatal("release ran despite a failed acquire")
	}
}

func TestAdopt_ReleasesAcquiredValue(t *testing.T) {
	r := newTestRoot(t)
	var releasedWith int
	val, err := runtime.Adopt(r.Stack(),
		func(cr *runtime.Runner[struct{}]) (int, error) { return 99, nil },
		func(v int) error { releasedWith = v; return nil },
	)
	if err != nil || val != 99 {
		t.Fatalf("Adopt = (%d, %v), want (99, nil)", val, err)
	}
	r.Stack().Dispose(context.Background())
	if releasedWith != 99 {
		t.Fatalf("release saw %d, want the acquired value 99", releasedWith)
	}
}

func TestMove_TransfersPendingCleanups(t *testing.T) {
	r := newTestRoot(t)
	var order []string
	src := runtime.NewStack(r)
	src.Defer(func(cr *runtime.Runner[struct{}]) (struct{}, error) {
		order = append(order, "moved")
		return struct{}{}, nil
	})

	dst := src.Move()
	src.Dispose(context.Background())
	if len(order) != 0 {
		t.Fatalf("source still owned cleanups after Move: %v", order)
	}
	dst.Dispose(context.Background())
	if len(order) != 1 || order[0] != "moved" {
		t.Fatalf("order = %v, want [moved]", order)
	}
}

func TestDefer_RunsDuringAbortedDisposal(t *testing.T) {
	r := newTestRoot(t)
	cleanupRan := make(chan struct{})
	f := runtime.Run(r, func(cr *runtime.Runner[struct{}]) (int, error) {
		cr.Defer(func(ir *runtime.Runner[struct{}]) (struct{}, error) {
			close(cleanupRan)
			return struct{}{}, nil
		})
		<-cr.Done()
		return 0, &runtime.AbortError{Reason: cr.Context().Err()}
	})
	f.Abort(errors.New("external"))
	_, _ = f.Await(context.Background())

	select {
	case <-cleanupRan:
	default:
		t.Fatal("deferred cleanup did not run on the abort path")
	}
}
