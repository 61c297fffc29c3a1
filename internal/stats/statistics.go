// Package stats reduces rate/volume series into display metrics. Everything here is
// pure: no I/O, no randomness.
package stats

import (
	"math"

	"fxrate_go/internal/domain"
)

// Calculate reduces a series into a snapshot. The series must be time-ordered;
// its first and last points define the period start and end. An empty series
// yields a snapshot with HasData false.
func Calculate(series domain.Series) domain.StatisticsSnapshot {
	if series.Empty() {
		return domain.StatisticsSnapshot{}
	}

	rates := series.Rates()
	current := rates[len(rates)-1]
	previous := current
	if len(rates) > 1 {
		previous = rates[0]
	}

	minRate, maxRate := minMax(rates)
	change := current - previous

	snap := domain.StatisticsSnapshot{
		HasData:       true,
		Current:       current,
		Change:        change,
		ChangePercent: percent(change, previous),
		Min:           minRate,
		Max:           maxRate,
		Mean:          Mean(rates),
		Volatility:    StdDev(rates),
		Trend:         domain.TrendOf(current, previous),
	}

	if volumes := series.Volumes(); len(volumes) > 0 {
		snap.Volume = volumeStats(volumes)
	}

	return snap
}

func volumeStats(volumes []float64) *domain.VolumeStats {
	current := volumes[len(volumes)-1]
	previous := current
	if len(volumes) > 1 {
		previous = volumes[0]
	}
	minVol, maxVol := minMax(volumes)
	total := Sum(volumes)
	change := current - previous

	return &domain.VolumeStats{
		Current:       current,
		Total:         total,
		Avg:           total / float64(len(volumes)),
		Max:           maxVol,
		Min:           minVol,
		Change:        change,
		ChangePercent: percent(change, previous),
		Trend:         domain.TrendOf(current, previous),
	}
}

// Sum adds up values.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Mean is the arithmetic mean; 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// StdDev is the sample standard deviation (n-1 denominator). Fewer than two
// values have no spread and return 0.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

// percent returns change/base*100, or 0 when base is zero.
func percent(change, base float64) float64 {
	if base == 0 {
		return 0
	}
	return change / base * 100
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
