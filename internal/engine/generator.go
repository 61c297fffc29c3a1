package engine

import (
	"math"
	"time"

	"fxrate_go/internal/domain"
)

const (
	seasonalAmplitude = 0.001
	reversionStrength = 0.001
	floorRatio        = 0.5
	ceilingRatio      = 2.0
	daysPerYear       = 365
)

// Generator simulates daily rate/volume history for currencies without stored data.
// The walk is multiplicative, mean-reverting toward the baseline rate, with a slow
// annual cycle, and clamped to [0.5, 2.0] x baseline.
type Generator struct {
	src domain.RandomSource
	now func() time.Time
}

// NewGenerator creates a generator drawing from src. A nil src uses SystemSource.
func NewGenerator(src domain.RandomSource) *Generator {
	if src == nil {
		src = SystemSource()
	}
	return &Generator{src: src, now: time.Now}
}

// WithClock overrides the generator's notion of "today". Used by tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Source returns the random source the generator draws from.
func (g *Generator) Source() domain.RandomSource {
	return g.src
}

// Generate returns days+1 daily points ending now, oldest first. Unknown
// currencies and days < 1 produce an empty series.
func (g *Generator) Generate(currency string, days int) domain.Series {
	series := domain.Series{Currency: currency, Generated: true}

	profile, ok := domain.LookupCurrency(currency)
	if !ok || days < 1 {
		return series
	}

	end := g.now()
	start := end.AddDate(0, 0, -days)
	base := profile.BaselineRate
	rate := base

	series.Points = make([]domain.RateObservation, 0, days+1)
	for i := 0; i <= days; i++ {
		day := start.AddDate(0, 0, i)

		randomChange := g.src.NormFloat64() * profile.Volatility
		seasonal := math.Sin(2*math.Pi*float64(i)/daysPerYear) * seasonalAmplitude
		reversion := (base - rate) * reversionStrength

		change := randomChange + seasonal + reversion
		rate *= 1 + change
		rate = clamp(rate, base*floorRatio, base*ceilingRatio)

		volume := DailyVolume(profile.BaselineVolume, change, day, g.src)

		series.Points = append(series.Points, domain.RateObservation{
			Currency:  currency,
			Rate:      rate,
			Volume:    domain.Float(volume),
			Timestamp: day,
		})
	}

	return series
}

// SimulatedRates returns a current-rate map with each baseline nudged by up to +-3%.
// Used when every live endpoint fails.
func SimulatedRates(src domain.RandomSource) map[string]float64 {
	if src == nil {
		src = SystemSource()
	}
	rates := make(map[string]float64)
	for _, p := range domain.Profiles() {
		rates[p.Code] = p.BaselineRate * (1 + uniform(src, -0.03, 0.03))
	}
	return rates
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
