// Package randutil derives reproducible random sources for dealing.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed. Both PCG
// state words are derived from the one seed so that a single integer in
// config or on the command line reproduces a whole game's deals.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Pick returns the seed to use and a source built from it. A zero seed means
// "not configured" and is replaced by the current time.
func Pick(seed int64) (int64, *rand.Rand) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return seed, New(seed)
}

// splitmix64 finaliser
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
