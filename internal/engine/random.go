package engine

import (
	"math/rand/v2"
	"sync"

	"fxrate_go/internal/domain"
)

// systemSource draws from the runtime-seeded global generator. Safe for concurrent use.
type systemSource struct{}

func (systemSource) NormFloat64() float64 { return rand.NormFloat64() }
func (systemSource) Float64() float64     { return rand.Float64() }

// SystemSource returns the nondeterministic production source.
func SystemSource() domain.RandomSource {
	return systemSource{}
}

// lockedSource serializes access to a source that is not goroutine-safe.
type lockedSource struct {
	mu  sync.Mutex
	src domain.RandomSource
}

func (l *lockedSource) NormFloat64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.NormFloat64()
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// Locked wraps src so it can be shared across goroutines.
func Locked(src domain.RandomSource) domain.RandomSource {
	if _, ok := src.(systemSource); ok {
		return src
	}
	return &lockedSource{src: src}
}

// SeededSource returns a reproducible source. Not goroutine-safe on its own.
func SeededSource(seed uint64) domain.RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform maps a [0,1) draw onto [lo, hi).
func uniform(src domain.RandomSource, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}
