package service

import (
	"log/slog"
	"time"

	"fxrate_go/internal/domain"
	"fxrate_go/internal/engine"
	"fxrate_go/internal/infra"
)

// Volume periods accepted by GetVolumeData.
const (
	PeriodToday     = "today"
	PeriodSevenDays = "7_days"
	PeriodTwoWeeks  = "14_days"
	PeriodMonth     = "1_month"
)

var periodDays = map[string]int{
	PeriodToday:     1,
	PeriodSevenDays: 7,
	PeriodTwoWeeks:  14,
	PeriodMonth:     30,
}

// PeriodDays maps a volume period to a day count. Unknown periods are 7 days.
func PeriodDays(period string) int {
	if d, ok := periodDays[period]; ok {
		return d
	}
	return 7
}

// HistoryService answers "N days of history for currency X" from the store when
// it has data and from the generator when it does not.
type HistoryService struct {
	store            domain.ObservationStore
	gen              *engine.Generator
	clock            func() time.Time
	persistGenerated bool
	metrics          *infra.Metrics
}

// NewHistoryService creates a resolver over store. A nil store always simulates.
func NewHistoryService(store domain.ObservationStore, gen *engine.Generator) *HistoryService {
	if gen == nil {
		gen = engine.NewGenerator(nil)
	}
	return &HistoryService{
		store:   store,
		gen:     gen,
		clock:   time.Now,
		metrics: infra.GlobalMetrics,
	}
}

// WithClock overrides the wall clock used for windows and live volumes.
func (s *HistoryService) WithClock(now func() time.Time) *HistoryService {
	s.clock = now
	s.gen.WithClock(now)
	return s
}

// WithPersistGenerated makes simulated series get written back to the store.
func (s *HistoryService) WithPersistGenerated(on bool) *HistoryService {
	s.persistGenerated = on
	return s
}

// WithMetrics redirects counters away from infra.GlobalMetrics.
func (s *HistoryService) WithMetrics(m *infra.Metrics) *HistoryService {
	s.metrics = m
	return s
}

// GetHistoricalData returns the series for [now-days, now], oldest first.
// Stored rows win; missing volumes are backfilled from the hour-of-day model.
// With no stored rows, or when the store fails, a generated series is returned.
// Only an unknown currency yields an empty series. days below 1 is treated as 1.
func (s *HistoryService) GetHistoricalData(currency string, days int) domain.Series {
	if !domain.IsSupported(currency) {
		return domain.Series{Currency: currency}
	}
	if days < 1 {
		days = 1
	}

	now := s.clock()
	start := now.AddDate(0, 0, -days)

	if s.store != nil {
		series, err := s.store.Query(currency, start, now)
		switch {
		case err != nil:
			slog.Warn("History query failed, simulating", slog.String("currency", currency), slog.Any("error", err))
		case !series.Empty():
			s.backfillVolumes(&series, now)
			return series
		}
	}

	return s.generate(currency, days)
}

// GetVolumeData resolves a symbolic period and delegates to GetHistoricalData.
func (s *HistoryService) GetVolumeData(currency, period string) domain.Series {
	return s.GetHistoricalData(currency, PeriodDays(period))
}

func (s *HistoryService) generate(currency string, days int) domain.Series {
	series := s.gen.Generate(currency, days)
	s.metrics.RecordSeriesGenerated()

	if s.persistGenerated && s.store != nil {
		n := s.store.SaveSeries(series)
		slog.Debug("Persisted generated series", slog.String("currency", currency), slog.Int("rows", n))
	}
	return series
}

// backfillVolumes fills each missing volume independently with a live-model draw.
func (s *HistoryService) backfillVolumes(series *domain.Series, now time.Time) {
	profile, ok := domain.LookupCurrency(series.Currency)
	if !ok {
		return
	}

	src := s.gen.Source()
	filled := 0
	for i := range series.Points {
		if series.Points[i].HasVolume() {
			continue
		}
		series.Points[i].Volume = domain.Float(engine.LiveVolume(profile.BaselineVolume, now, src))
		filled++
	}
	s.metrics.RecordVolumesBackfilled(filled)
}

// RecordRates persists a rate snapshot at the current instant. A nil volumes map
// draws every volume from the hour-of-day model; a non-nil map missing a currency
// stores 0 for it. Returns the number of rows written.
func (s *HistoryService) RecordRates(rates map[string]float64, volumes map[string]float64) int {
	if s.store == nil || len(rates) == 0 {
		return 0
	}

	if volumes == nil {
		volumes = s.LiveVolumes(rates)
	}

	return s.store.Save(rates, volumes)
}

// LiveVolumes draws an hour-of-day volume for every supported currency in rates.
func (s *HistoryService) LiveVolumes(rates map[string]float64) map[string]float64 {
	now := s.clock()
	src := s.gen.Source()
	volumes := make(map[string]float64, len(rates))
	for _, code := range domain.SupportedCurrencies() {
		if _, ok := rates[code]; !ok {
			continue
		}
		p, _ := domain.LookupCurrency(code)
		volumes[code] = engine.LiveVolume(p.BaselineVolume, now, src)
	}
	return volumes
}
