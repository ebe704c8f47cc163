// Package entropy provides the single seedable random source a simulation run
// draws from. Every stochastic choice in a run (graph rewiring, agent
// weights, placement, activation order, exploration, mobility) goes through
// one Source so that a seed reproduces the run exactly.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source is a seeded generator owned by exactly one simulation run.
// It is not safe for concurrent use; the simulation is single-threaded.
type Source struct {
	*mrand.Rand
	seed int64
}

// NewSource creates a source seeded once. A zero seed is replaced by a
// crypto-random one so that "no seed configured" still yields a recordable
// seed.
func NewSource(seed int64) *Source {
	if seed == 0 {
		seed = RandomSeed()
	}
	return &Source{
		Rand: mrand.New(mrand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed this source was created with.
func (s *Source) Seed() int64 {
	return s.seed
}

// RandomSeed draws a non-zero seed from crypto/rand.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
