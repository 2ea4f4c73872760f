package hachimi

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"
	"sync"
)

// RandSource yields uniform integers in [0, n). *math/rand/v2.Rand
// satisfies it.
type RandSource interface {
	IntN(n int) int
}

// CryptoRand draws from crypto/rand and falls back to math/rand/v2 if the
// system source fails.
type CryptoRand struct{}

// IntN returns a uniform integer in [0, n).
func (CryptoRand) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return mathrand.IntN(n)
	}
	return int(v.Int64())
}

// lockedRand serializes access to a source that may not be safe for
// concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	src RandSource
}

func (l *lockedRand) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}
