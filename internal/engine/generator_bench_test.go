package engine

import (
	"testing"
)

// BenchmarkGenerator_Year measures one year of simulated history.
func BenchmarkGenerator_Year(b *testing.B) {
	gen := NewGenerator(SeededSource(1)).WithClock(fixedClock)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		gen.Generate("USD", 365)
	}
}

// BenchmarkGenerator_LockedSource measures the mutex overhead of a shared source.
func BenchmarkGenerator_LockedSource(b *testing.B) {
	gen := NewGenerator(Locked(SeededSource(1))).WithClock(fixedClock)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		gen.Generate("USD", 365)
	}
}
