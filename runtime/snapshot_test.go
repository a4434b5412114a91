package runtime_test

import (
	"context"
	"testing"

	"github.com/justapithecus/fiberflow/runtime"
)

func TestSnapshot_IdempotentWhileUnchanged(t *testing.T) {
	r := newTestRoot(t)
	s1 := r.Snapshot()
	s2 := r.Snapshot()
	if s1 != s2 {
		t.Fatal("Snapshot() returned a new value with no structural change")
	}
}

func TestSnapshot_InvalidatedBySpawnAndSettle(t *testing.T) {
	r := newTestRoot(t)
	before := r.Snapshot()

	started := make(chan struct{})
	release := make(chan struct{})
	f := runtime.Run(r, func(cr *runtime.Runner[struct{}]) (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	<-started

	during := r.Snapshot()
	if during == before {
		t.Fatal("snapshot unchanged after a child was added")
	}
	if len(during.Children) != 1 {
		t.Fatalf("children in snapshot = %d, want 1", len(during.Children))
	}

	close(release)
	if _, err := f.Await(context.Background()); err != nil {
		t.Fatalf("Await err = %v", err)
	}
	after := r.Snapshot()
	if after == during {
		t.Fatal("snapshot unchanged after the child settled")
	}
	if len(after.Children) != 0 {
		t.Fatalf("children in snapshot = %d, want 0", len(after.Children))
	}
}

func TestSnapshot_UnchangedSiblingSharesReference(t *testing.T) {
	r := newTestRoot(t)

	idleStarted := make(chan struct{})
	idleRelease := make(chan struct{})
	idle := runtime.Run(r, func(cr *runtime.Runner[struct{}]) (int, error) {
		close(idleStarted)
		<-idleRelease
		return 0, nil
	})
	<-idleStarted

	busyStarted := make(chan struct{})
	busyRelease := make(chan struct{})
	busy := runtime.Run(r, func(cr *runtime.Runner[struct{}]) (int, error) {
		close(busyStarted)
		<-busyRelease
		return 0, nil
	})
	<-busyStarted

	before := r.Snapshot()
	if len(before.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(before.Children))
	}
	idleSnap := before.Children[0]

	close(busyRelease)
	if _, err := busy.Await(context.Background()); err != nil {
		t.Fatalf("busy Await err = %v", err)
	}

	after := r.Snapshot()
	if after == before {
		t.Fatal("parent snapshot unchanged after a child settled")
	}
	if len(after.Children) != 1 || after.Children[0] != idleSnap {
		t.Fatal("unchanged sibling's snapshot was rebuilt instead of shared by reference")
	}

	close(idleRelease)
	_, _ = idle.Await(context.Background())
}

func TestSnapshotCodec_RoundTrip(t *testing.T) {
	orig := &runtime.Snapshot{
		ID:    "root",
		State: runtime.FiberRunning,
		Children: []*runtime.Snapshot{
			{ID: "a", State: runtime.FiberCompleted},
			{ID: "b", State: runtime.FiberCompleting, Mask: 1, Aborted: false, Children: []*runtime.Snapshot{
				{ID: "b1", State: runtime.FiberRunning},
			}},
		},
	}

	encoded, err := runtime.EncodeSnapshot(orig)
	if err != nil {
		t.Fatalf("Encode err = %v", err)
	}
	decoded, err := runtime.DecodeSnapshot(encoded)
	if err != nil {
		t.Fatalf("Decode err = %v", err)
	}

	if decoded.ID != "root" || len(decoded.Children) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	b := decoded.Children[1]
	if b.ID != "b" || b.State != runtime.FiberCompleting || b.Mask != 1 || len(b.Children) != 1 {
		t.Fatalf("decoded child = %+v", b)
	}
	if b.Children[0].ID != "b1" {
		t.Fatalf("decoded grandchild = %+v", b.Children[0])
	}
}
