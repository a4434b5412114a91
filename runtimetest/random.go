package runtimetest

import (
	"encoding/binary"
	"math/rand/v2"
)

// SeededRandom is a runtime.Random implementation seeded deterministically,
// so tests can assert on jitter/backoff outcomes without nondeterminism.
type SeededRandom struct {
	src *rand.Rand
}

// NewSeededRandom creates a deterministic random source from seed.
func NewSeededRandom(seed uint64) *SeededRandom {
	return &SeededRandom{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns a uniform float64 in [0,1).
func (r *SeededRandom) Next() float64 {
	return r.src.Float64()
}

// SeededRandomBytes is a runtime.RandomBytes implementation seeded
// deterministically, producing repeatable ID material in tests.
type SeededRandomBytes struct {
	src *rand.Rand
}

// NewSeededRandomBytes creates a deterministic byte source from seed.
func NewSeededRandomBytes(seed uint64) *SeededRandomBytes {
	return &SeededRandomBytes{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns n deterministic bytes.
func (r *SeededRandomBytes) Next(n int) []byte {
	out := make([]byte, n)
	var buf [8]byte
	for i := 0; i < n; i += 8 {
		binary.LittleEndian.PutUint64(buf[:], r.src.Uint64())
		copy(out[i:], buf[:])
	}
	return out
}
