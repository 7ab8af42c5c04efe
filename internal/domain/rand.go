package domain

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync/atomic"
)

// SeededRandFactory returns a source-of-randomness factory for pipeline
// invocations. Seed 0 means non-deterministic: every invocation draws a
// fresh seed from the OS. Any other seed makes runs reproducible; each
// invocation derives its own stream so files in a batch do not share state
// regardless of scheduling order.
func SeededRandFactory(seed int64) func() *mrand.Rand {
	if seed == 0 {
		return func() *mrand.Rand {
			var buf [8]byte
			if _, err := rand.Read(buf[:]); err != nil {
				// Fall back to a fixed stream rather than failing the run.
				return mrand.New(mrand.NewSource(1))
			}

			return mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(buf[:]))))
		}
	}

	var counter atomic.Int64

	return func() *mrand.Rand {
		return mrand.New(mrand.NewSource(seed + counter.Add(1) - 1))
	}
}
