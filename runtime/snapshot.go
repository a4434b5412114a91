package runtime

// Snapshot is an immutable point-in-time view of a runner and its subtree.
// Two Snapshot calls against a runner whose subtree has not structurally
// changed (no child added/removed, no state/mask transition anywhere below
// it) return the identical *Snapshot pointer — callers may rely on
// reference equality to skip re-rendering unchanged branches.
type Snapshot struct {
	ID       string
	State    FiberState
	Mask     int32
	Aborted  bool
	Children []*Snapshot
}

// Snapshot builds (or returns the cached) immutable view of r's subtree.
func (r *Runner[D]) Snapshot() *Snapshot {
	r.mu.Lock()
	version := r.version
	cached := r.snapshotCache
	cachedVersion := r.snapshotVersion
	children := make([]*Runner[D], len(r.children))
	copy(children, r.children)
	state := FiberState(r.state)
	mask := r.mask
	aborted := r.requestIsClosed && r.mask == 0
	id := r.id.String()
	r.mu.Unlock()

	if cached != nil && cachedVersion == version {
		return cached
	}

	childSnapshots := make([]*Snapshot, len(children))
	for i, c := range children {
		childSnapshots[i] = c.Snapshot()
	}

	snap := &Snapshot{
		ID:       id,
		State:    state,
		Mask:     mask,
		Aborted:  aborted,
		Children: childSnapshots,
	}

	r.mu.Lock()
	r.snapshotCache = snap
	r.snapshotVersion = version
	r.mu.Unlock()

	return snap
}

// bumpVersion invalidates the cached snapshot for r and every ancestor,
// since a structural or state change anywhere in a subtree changes the
// snapshot of every runner above it too.
func (r *Runner[D]) bumpVersion() {
	for cur := r; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		cur.version++
		cur.mu.Unlock()
	}
}
