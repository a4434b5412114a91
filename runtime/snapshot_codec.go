package runtime

import "github.com/vmihailenco/msgpack/v5"

// snapshotWire is the on-the-wire shape for Snapshot, kept separate from
// Snapshot itself so the public type can stay free of msgpack struct tags.
type snapshotWire struct {
	ID       string         `msgpack:"id"`
	State    int32          `msgpack:"state"`
	Mask     int32          `msgpack:"mask"`
	Aborted  bool           `msgpack:"aborted"`
	Children []snapshotWire `msgpack:"children"`
}

func toWire(s *Snapshot) snapshotWire {
	w := snapshotWire{
		ID:      s.ID,
		State:   int32(s.State),
		Mask:    s.Mask,
		Aborted: s.Aborted,
	}
	if len(s.Children) > 0 {
		w.Children = make([]snapshotWire, len(s.Children))
		for i, c := range s.Children {
			w.Children[i] = toWire(c)
		}
	}
	return w
}

func fromWire(w snapshotWire) *Snapshot {
	s := &Snapshot{
		ID:      w.ID,
		State:   FiberState(w.State),
		Mask:    w.Mask,
		Aborted: w.Aborted,
	}
	if len(w.Children) > 0 {
		s.Children = make([]*Snapshot, len(w.Children))
		for i, c := range w.Children {
			s.Children[i] = fromWire(c)
		}
	}
	return s
}

// EncodeSnapshot serializes a Snapshot tree to msgpack, for golden-file tests
// and debug dumps.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return msgpack.Marshal(toWire(s))
}

// DecodeSnapshot deserializes bytes produced by EncodeSnapshot back into a
// Snapshot tree.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var w snapshotWire
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return fromWire(w), nil
}
