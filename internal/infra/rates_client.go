package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fxrate_go/internal/domain"
)

// ratesResponse is the shared shape of the USD-based "latest" endpoints.
type ratesResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// RatesClient fetches current TWD-quoted rates, trying each endpoint in order.
type RatesClient struct {
	urls       []string
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
	fallback   func() map[string]float64
	metrics    *Metrics
}

// NewRatesClient creates a client with default endpoints and timeouts.
// fallback supplies rates when every endpoint fails; nil falls back to baselines.
func NewRatesClient(fallback func() map[string]float64) *RatesClient {
	return &RatesClient{
		urls:       append([]string(nil), DefaultRateURLs...),
		maxRetries: 2,
		backoff:    time.Second,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		fallback: fallback,
		metrics:  GlobalMetrics,
	}
}

// NewRatesClientWithConfig creates a client from the api.rates config section.
func NewRatesClientWithConfig(cfg *Config, fallback func() map[string]float64) *RatesClient {
	client := NewRatesClient(fallback)
	if len(cfg.API.Rates.URLs) > 0 {
		client.urls = append([]string(nil), cfg.API.Rates.URLs...)
	}
	if cfg.API.Rates.TimeoutSec > 0 {
		client.httpClient.Timeout = time.Duration(cfg.API.Rates.TimeoutSec) * time.Second
	}
	if cfg.API.Rates.MaxRetries >= 0 {
		client.maxRetries = cfg.API.Rates.MaxRetries
	}
	return client
}

// FetchRates returns TWD per unit of each supported currency. It never returns an
// empty map: when every endpoint fails the fallback rates are returned with
// domain.OriginSimulated.
func (c *RatesClient) FetchRates(ctx context.Context) (map[string]float64, domain.RateOrigin) {
	start := time.Now()

	for _, url := range c.urls {
		rates, err := c.fetchWithRetry(ctx, url)
		if err == nil {
			c.metrics.RecordFetch(time.Since(start).Nanoseconds(), false)
			slog.Debug("Rates fetched", slog.String("url", url), slog.Int("currencies", len(rates)))
			return rates, domain.OriginLive
		}
		slog.Warn("Rate endpoint failed", slog.String("url", url), slog.Any("error", err))
		if ctx.Err() != nil {
			break
		}
	}

	slog.Warn("All rate endpoints failed, using simulated rates")
	c.metrics.RecordFetch(time.Since(start).Nanoseconds(), true)
	return c.simulated(), domain.OriginSimulated
}

func (c *RatesClient) simulated() map[string]float64 {
	if c.fallback != nil {
		if rates := c.fallback(); len(rates) > 0 {
			return rates
		}
	}
	rates := make(map[string]float64)
	for _, p := range domain.Profiles() {
		rates[p.Code] = p.BaselineRate
	}
	return rates
}

// fetchWithRetry fetches one endpoint with exponential backoff between attempts.
func (c *RatesClient) fetchWithRetry(ctx context.Context, url string) (map[string]float64, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Exponential backoff: 1x, 2x, 4x
			delay := c.backoff * time.Duration(1<<uint(i-1))
			slog.Info("Retrying rate fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		rates, err := c.doFetch(ctx, url)
		if err == nil {
			return rates, nil
		}
		lastErr = err
		if !domain.IsRetriable(err) {
			return nil, err
		}
		slog.Warn("Rate fetch attempt failed", slog.Int("attempt", i+1), slog.Any("error", err))
	}
	return nil, lastErr
}

func (c *RatesClient) doFetch(ctx context.Context, url string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewFatalNetworkError("build request", err)
	}

	// Add browser-like User-Agent to avoid bot detection
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("get "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewNetworkError("get "+url, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError("read "+url, err)
	}

	var data ratesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, domain.NewFatalNetworkError("decode "+url, err)
	}

	rates, err := toTWDBase(data.Rates)
	if err != nil {
		return nil, domain.NewFatalNetworkError("convert "+url, err)
	}
	return rates, nil
}

// toTWDBase converts USD-based quotes into TWD per unit of each supported currency.
func toTWDBase(usdRates map[string]float64) (map[string]float64, error) {
	twdPerUSD, ok := usdRates[domain.BaseCurrency]
	if !ok || twdPerUSD <= 0 {
		return nil, errors.Join(domain.ErrNoRates, fmt.Errorf("missing %s quote", domain.BaseCurrency))
	}

	rates := map[string]float64{"USD": twdPerUSD}
	for code, perUSD := range usdRates {
		if code == "USD" || !domain.IsSupported(code) || perUSD <= 0 {
			continue
		}
		rates[code] = twdPerUSD / perUSD
	}
	return rates, nil
}
