package runtime

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"sync/atomic"
	"time"
)

// Time is the external time capability a runner relies on for Sleep and for
// reading the current instant. Production code uses SystemTime; tests use
// runtimetest.VirtualClock so that timing-sensitive scenarios are
// deterministic.
type Time interface {
	// Now returns the current instant.
	Now() time.Time
	// Sleep blocks until d has elapsed or ctx is done, whichever comes
	// first. Returns ctx.Err() on cancellation, nil otherwise.
	Sleep(ctx context.Context, d time.Duration) error
}

// Random is a uniform [0,1) generator, used by jitter and any schedule that
// needs randomness. Seeded deterministically under test.
type Random interface {
	Next() float64
}

// RandomBytes generates n random bytes, used for fiber/runner ID material.
type RandomBytes interface {
	Next(n int) []byte
}

// Console is the structured logger dependency a runner absorbs as
// run.Console. *log.Logger satisfies this interface directly.
type Console interface {
	Log(message string, fields map[string]any)
	Warn(message string, fields map[string]any)
	Error(message string, fields map[string]any)
	Enabled() bool
}

// RunnerConfig carries the runtime-only references a runner tree shares:
// whether event emission is enabled (read on every emit), and the
// concurrency cap the root starts with (read once, by NewRoot).
type RunnerConfig struct {
	EventsEnabled *atomic.Bool
	Concurrency   *atomic.Int64
}

// NewRunnerConfig returns a RunnerConfig with events disabled and
// concurrency defaulted to 1, so sibling fan-out is sequential unless a
// WithConcurrency scope raises the cap.
func NewRunnerConfig() *RunnerConfig {
	cfg := &RunnerConfig{
		EventsEnabled: &atomic.Bool{},
		Concurrency:   &atomic.Int64{},
	}
	cfg.Concurrency.Store(1)
	return cfg
}

// SystemTime is the production Time implementation backed by the host clock.
type SystemTime struct{}

func (SystemTime) Now() time.Time { return time.Now() }

func (SystemTime) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CryptoRandom is the production Random implementation, backed by
// math/rand/v2 seeded from crypto/rand so successive processes don't share a
// PRNG stream.
type CryptoRandom struct {
	src *mrand.Rand
}

// NewCryptoRandom returns a CryptoRandom seeded from the OS CSPRNG.
func NewCryptoRandom() *CryptoRandom {
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	s1 := binary.LittleEndian.Uint64(seed[0:8])
	s2 := binary.LittleEndian.Uint64(seed[8:16])
	return &CryptoRandom{src: mrand.New(mrand.NewPCG(s1, s2))}
}

func (c *CryptoRandom) Next() float64 { return c.src.Float64() }

// CryptoRandomBytes is the production RandomBytes implementation, backed
// directly by crypto/rand.
type CryptoRandomBytes struct{}

func (CryptoRandomBytes) Next(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}
