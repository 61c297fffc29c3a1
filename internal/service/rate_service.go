package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fxrate_go/internal/domain"
	"fxrate_go/internal/stats"
)

// boardLookbackDays is the history window used to judge day change and volume level.
const boardLookbackDays = 7

// CurrentRate is one line of the current-rates board.
type CurrentRate struct {
	Code          string            `json:"code"`
	Name          string            `json:"name"`
	Rate          float64           `json:"rate"`
	Change        float64           `json:"change"`
	ChangePercent float64           `json:"change_percent"`
	HasChange     bool              `json:"has_change"`
	Volume        float64           `json:"volume"`
	Level         stats.VolumeLevel `json:"volume_level"`
}

// RateService keeps the latest fetched rates and records every refresh.
type RateService struct {
	mu        sync.RWMutex
	source    domain.RateSource
	history   *HistoryService
	board     map[string]*CurrentRate
	origin    domain.RateOrigin
	updatedAt time.Time
}

// NewRateService creates a new RateService instance
func NewRateService(source domain.RateSource, history *HistoryService) *RateService {
	return &RateService{
		source:  source,
		history: history,
		board:   make(map[string]*CurrentRate),
	}
}

// Refresh fetches current rates, records them with live volumes and rebuilds
// the board. Returns where the rates came from.
func (s *RateService) Refresh(ctx context.Context) domain.RateOrigin {
	rates, origin := s.source.FetchRates(ctx)
	volumes := s.history.LiveVolumes(rates)

	written := s.history.RecordRates(rates, volumes)
	slog.Info("Rates recorded",
		slog.String("origin", string(origin)),
		slog.Int("currencies", len(rates)),
		slog.Int("rows", written),
	)

	board := make(map[string]*CurrentRate, len(rates))
	for code, rate := range rates {
		if !domain.IsSupported(code) {
			continue
		}
		line := &CurrentRate{
			Code:   code,
			Name:   domain.DisplayName(code),
			Rate:   rate,
			Volume: volumes[code],
		}

		series := s.history.GetHistoricalData(code, boardLookbackDays)
		line.Change, line.ChangePercent, line.HasChange = stats.DayChange(series, rate)
		line.Level = stats.LevelOf(stats.Calculate(series))

		board[code] = line
	}

	s.mu.Lock()
	s.board = board
	s.origin = origin
	s.updatedAt = time.Now()
	s.mu.Unlock()

	return origin
}

// GetAllData returns the board in currency display order.
func (s *RateService) GetAllData() []CurrentRate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]CurrentRate, 0, len(s.board))
	for _, code := range domain.SupportedCurrencies() {
		if line, ok := s.board[code]; ok {
			result = append(result, *line)
		}
	}
	return result
}

// GetData returns the board line for a specific currency
func (s *RateService) GetData(code string) (CurrentRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	line, ok := s.board[code]
	if !ok {
		return CurrentRate{}, false
	}
	return *line, true
}

// Rates returns a copy of the latest rates, TWD per unit.
func (s *RateService) Rates() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.board))
	for code, line := range s.board {
		out[code] = line.Rate
	}
	return out
}

// Converter returns a converter over the latest rates.
func (s *RateService) Converter() *domain.Converter {
	return domain.NewConverter(s.Rates())
}

// Origin returns where the latest rates came from and when they were fetched.
func (s *RateService) Origin() (domain.RateOrigin, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origin, s.updatedAt
}
