package domain

import (
	"context"
	"time"
)

// ObservationStore is the durable history of observed and generated rates.
type ObservationStore interface {
	Save(rates map[string]float64, volumes map[string]float64) int
	SaveSeries(series Series) int
	Query(currency string, start, end time.Time) (Series, error)
}

// RandomSource supplies the draws used by the simulators. Production code uses a
// nondeterministic source; tests substitute a fixed sequence.
type RandomSource interface {
	// NormFloat64 returns a standard normal draw (mean 0, stddev 1).
	NormFloat64() float64
	// Float64 returns a uniform draw in [0, 1).
	Float64() float64
}

// RateSource provides current TWD-quoted rates for the supported currencies.
type RateSource interface {
	FetchRates(ctx context.Context) (map[string]float64, RateOrigin)
}

// RateOrigin tells whether rates came from a live endpoint or were simulated.
type RateOrigin string

const (
	OriginLive      RateOrigin = "live"
	OriginSimulated RateOrigin = "simulated"
)
