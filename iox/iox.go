// Package iox provides small I/O cleanup helpers shared by the CLI and
// tests.
package iox

import "io"

// DiscardClose closes c, dropping the error. For defer sites where a close
// failure has no actionable recovery:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc adapts c to a no-argument cleanup function, the shape
// t.Cleanup and b.Cleanup expect:
//
//	t.Cleanup(iox.CloseFunc(conn))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr invokes fn and drops its error. For non-Close cleanup calls
// (Flush, Sync) at defer sites:
//
//	defer iox.DiscardErr(w.Flush)
func DiscardErr(fn func() error) { _ = fn() }

// CloseAll closes every c in order, returning the first error encountered
// while still closing the rest.
func CloseAll(cs ...io.Closer) error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
