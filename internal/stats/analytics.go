package stats

import (
	"fxrate_go/internal/domain"
)

// VolumeLevel buckets today's volume against the period average.
type VolumeLevel string

const (
	VolumeHigh   VolumeLevel = "high"
	VolumeMedium VolumeLevel = "medium"
	VolumeLow    VolumeLevel = "low"
)

// MovingAverage returns the trailing simple moving average of the rates.
// Result i corresponds to series point i+window-1. Returns nil when the window
// does not fit the series.
func MovingAverage(series domain.Series, window int) []float64 {
	n := series.Len()
	if window <= 0 || window > n {
		return nil
	}

	out := make([]float64, 0, n-window+1)
	var sum float64
	for i, p := range series.Points {
		sum += p.Rate
		if i >= window {
			sum -= series.Points[i-window].Rate
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// Normalize expresses every rate as percent change from the first point.
func Normalize(series domain.Series) []float64 {
	if series.Empty() || series.First().Rate == 0 {
		return nil
	}
	start := series.First().Rate
	out := make([]float64, series.Len())
	for i, p := range series.Points {
		out[i] = (p.Rate/start - 1) * 100
	}
	return out
}

// LevelOf classifies a snapshot's current volume: above 120% of the average is
// high, below 80% is low. Snapshots without volume are medium.
func LevelOf(snap domain.StatisticsSnapshot) VolumeLevel {
	v := snap.Volume
	if v == nil {
		return VolumeMedium
	}
	switch {
	case v.Current > v.Avg*1.2:
		return VolumeHigh
	case v.Current < v.Avg*0.8:
		return VolumeLow
	default:
		return VolumeMedium
	}
}

// DayChange compares a live rate to the second-to-last stored point, the way the
// current-rates table shows a one-day move. ok is false with fewer than two points.
func DayChange(series domain.Series, current float64) (change, changePercent float64, ok bool) {
	if series.Len() < 2 {
		return 0, 0, false
	}
	prev := series.Points[series.Len()-2].Rate
	change = current - prev
	return change, percent(change, prev), true
}
