package runtime

import (
	"io"

	"github.com/google/uuid"
)

// randReader adapts a RandomBytes dependency to io.Reader so uuid.NewRandomFromReader
// can draw fiber/runner IDs through it. This is what keeps IDs reproducible
// under runtimetest's seeded RandomBytes implementation.
type randReader struct {
	src RandomBytes
}

func (r randReader) Read(p []byte) (int, error) {
	b := r.src.Next(len(p))
	n := copy(p, b)
	if n < len(p) {
		return n, io.ErrShortBuffer
	}
	return n, nil
}

// newID draws a fresh UUIDv4 through the given RandomBytes dependency.
func newID(src RandomBytes) uuid.UUID {
	id, err := uuid.NewRandomFromReader(randReader{src: src})
	if err != nil {
		// uuid.NewRandomFromReader only fails if the reader errors; our
		// adapter never returns a non-nil error with n == len(p), and a
		// short read is a programmer error in the supplied RandomBytes.
		panic("runtime: RandomBytes produced insufficient entropy for an id: " + err.Error())
	}
	return id
}
