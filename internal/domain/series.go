package domain

import (
	"sort"
	"time"
)

// RateObservation is one (currency, timestamp) point. Volume is nil when the
// row came from a store without a volume column or with a NULL volume.
type RateObservation struct {
	Currency  string    `json:"currency"`
	Rate      float64   `json:"rate"`
	Volume    *float64  `json:"volume,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HasVolume reports whether the observation carries a volume value.
func (o RateObservation) HasVolume() bool {
	return o.Volume != nil
}

// VolumeOrZero returns the volume, or 0 when absent.
func (o RateObservation) VolumeOrZero() float64 {
	if o.Volume == nil {
		return 0
	}
	return *o.Volume
}

// Float returns a pointer to v. Handy for building observations.
func Float(v float64) *float64 {
	return &v
}

// Series is a time-ordered run of observations for one currency.
type Series struct {
	Currency  string            `json:"currency"`
	Points    []RateObservation `json:"points"`
	Generated bool              `json:"generated"` // true when produced by the simulator
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Points) }

// Empty reports whether the series has no points.
func (s Series) Empty() bool { return len(s.Points) == 0 }

// First returns the earliest point. Callers must check Empty first.
func (s Series) First() RateObservation { return s.Points[0] }

// Last returns the latest point. Callers must check Empty first.
func (s Series) Last() RateObservation { return s.Points[len(s.Points)-1] }

// Rates returns the rate column.
func (s Series) Rates() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Rate
	}
	return out
}

// Volumes returns the volume values that are present, in time order.
func (s Series) Volumes() []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Volume != nil {
			out = append(out, *p.Volume)
		}
	}
	return out
}

// HasAnyVolume reports whether at least one point carries a volume.
func (s Series) HasAnyVolume() bool {
	for _, p := range s.Points {
		if p.Volume != nil {
			return true
		}
	}
	return false
}

// MissingVolume reports whether any point lacks a volume.
func (s Series) MissingVolume() bool {
	for _, p := range s.Points {
		if p.Volume == nil {
			return true
		}
	}
	return false
}

// SortByTime orders points ascending by timestamp, keeping equal stamps stable.
func (s *Series) SortByTime() {
	sort.SliceStable(s.Points, func(i, j int) bool {
		return s.Points[i].Timestamp.Before(s.Points[j].Timestamp)
	})
}

// Span returns the first and last timestamps. Both are zero for an empty series.
func (s Series) Span() (time.Time, time.Time) {
	if s.Empty() {
		return time.Time{}, time.Time{}
	}
	return s.First().Timestamp, s.Last().Timestamp
}
