package core

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
)

// RandSource provides random number generation for bid selection.
// This interface enables dependency injection for deterministic testing.
type RandSource interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int
}

// cryptoRandSource wraps crypto/rand for production use
type cryptoRandSource struct{}

// Intn returns a cryptographically secure random integer in [0, n).
// Panics if n <= 0 (programmer error).
func (cryptoRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("cryptoRandSource.Intn: n must be positive, got %d", n))
	}
	// rand.Int does not error when using rand.Reader
	// https://pkg.go.dev/crypto/rand#Int
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(nBig.Int64())
}

// seededRandSource is a reproducible PCG-backed source.
type seededRandSource struct {
	rng *mrand.Rand
}

func (s *seededRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("seededRandSource.Intn: n must be positive, got %d", n))
	}
	return s.rng.IntN(n)
}

// defaultRandSource provides a cryptographically secure random source for production
var defaultRandSource RandSource = cryptoRandSource{}

// NewRandSource returns a per-session random source. A zero seed selects the
// crypto/rand backed source; any other seed yields a reproducible sequence.
func NewRandSource(seed uint64) RandSource {
	if seed == 0 {
		return defaultRandSource
	}
	return &seededRandSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// shufflePairs shuffles pairs in place using Fisher-Yates.
func shufflePairs(pairs []BidUtilPair, randSource RandSource) {
	for k := len(pairs) - 1; k > 0; k-- {
		// Pick a random index from 0 to k (inclusive)
		randIdx := randSource.Intn(k + 1)
		pairs[k], pairs[randIdx] = pairs[randIdx], pairs[k]
	}
}
