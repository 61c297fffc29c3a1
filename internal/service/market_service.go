package service

import (
	"context"
	"sort"

	"fxrate_go/internal/domain"
	"fxrate_go/internal/stats"

	"golang.org/x/sync/errgroup"
)

const (
	overviewWorkers = 4
	topMovers       = 5
)

// CurrencyStats pairs a currency with its snapshot over the requested window.
type CurrencyStats struct {
	Currency string                    `json:"currency"`
	Snapshot domain.StatisticsSnapshot `json:"snapshot"`
}

// MarketOverview summarizes every supported currency over one window.
type MarketOverview struct {
	Days             int             `json:"days"`
	Stats            []CurrencyStats `json:"stats"` // display order
	Gainers          int             `json:"gainers"`
	Losers           int             `json:"losers"`
	AvgChangePercent float64         `json:"avg_change_percent"`
	TopGainers       []CurrencyStats `json:"top_gainers"`
	TopLosers        []CurrencyStats `json:"top_losers"`
	ByVolatility     []CurrencyStats `json:"by_volatility"`
	ByVolume         []CurrencyStats `json:"by_volume"` // only currencies with volume
}

// ComparedSeries is one currency's line in a comparison, rebased to percent change.
type ComparedSeries struct {
	Currency   string                    `json:"currency"`
	Series     domain.Series             `json:"series"`
	Normalized []float64                 `json:"normalized"`
	Snapshot   domain.StatisticsSnapshot `json:"snapshot"`
}

// MarketService builds cross-currency views on top of HistoryService.
// The history generator's random source must be safe for concurrent use.
type MarketService struct {
	history *HistoryService
}

// NewMarketService creates a new MarketService instance
func NewMarketService(history *HistoryService) *MarketService {
	return &MarketService{history: history}
}

// Snapshot resolves history for one currency and reduces it.
func (s *MarketService) Snapshot(currency string, days int) domain.StatisticsSnapshot {
	return stats.Calculate(s.history.GetHistoricalData(currency, days))
}

// Overview computes snapshots for every supported currency and ranks them.
func (s *MarketService) Overview(ctx context.Context, days int) (*MarketOverview, error) {
	if days < 1 {
		return nil, domain.ErrInvalidDays
	}

	codes := domain.SupportedCurrencies()
	results := make([]CurrencyStats, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewWorkers)
	for i, code := range codes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = CurrencyStats{Currency: code, Snapshot: s.Snapshot(code, days)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ov := &MarketOverview{Days: days}
	var changeSum float64
	for _, r := range results {
		if !r.Snapshot.HasData {
			continue
		}
		ov.Stats = append(ov.Stats, r)
		changeSum += r.Snapshot.ChangePercent
		switch r.Snapshot.Trend {
		case domain.TrendUp:
			ov.Gainers++
		case domain.TrendDown:
			ov.Losers++
		}
	}
	if len(ov.Stats) == 0 {
		return ov, nil
	}
	ov.AvgChangePercent = changeSum / float64(len(ov.Stats))

	byChange := rankBy(ov.Stats, func(a, b CurrencyStats) bool {
		return a.Snapshot.ChangePercent > b.Snapshot.ChangePercent
	})
	ov.TopGainers = head(byChange, topMovers)
	ov.TopLosers = head(reversed(byChange), topMovers)

	ov.ByVolatility = rankBy(ov.Stats, func(a, b CurrencyStats) bool {
		return a.Snapshot.Volatility > b.Snapshot.Volatility
	})

	var withVolume []CurrencyStats
	for _, r := range ov.Stats {
		if r.Snapshot.Volume != nil {
			withVolume = append(withVolume, r)
		}
	}
	ov.ByVolume = rankBy(withVolume, func(a, b CurrencyStats) bool {
		return a.Snapshot.Volume.Total > b.Snapshot.Volume.Total
	})

	return ov, nil
}

// Compare returns rebased series for each supported code, in the order given.
// Unknown codes and duplicates are skipped.
func (s *MarketService) Compare(ctx context.Context, codes []string, days int) ([]ComparedSeries, error) {
	if days < 1 {
		return nil, domain.ErrInvalidDays
	}

	seen := make(map[string]bool, len(codes))
	out := make([]ComparedSeries, 0, len(codes))
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !domain.IsSupported(code) || seen[code] {
			continue
		}
		seen[code] = true

		series := s.history.GetHistoricalData(code, days)
		out = append(out, ComparedSeries{
			Currency:   code,
			Series:     series,
			Normalized: stats.Normalize(series),
			Snapshot:   stats.Calculate(series),
		})
	}
	return out, nil
}

func rankBy(in []CurrencyStats, less func(a, b CurrencyStats) bool) []CurrencyStats {
	out := make([]CurrencyStats, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func reversed(in []CurrencyStats) []CurrencyStats {
	out := make([]CurrencyStats, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func head(in []CurrencyStats, n int) []CurrencyStats {
	if len(in) < n {
		n = len(in)
	}
	return in[:n]
}
