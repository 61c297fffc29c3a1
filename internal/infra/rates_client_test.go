package infra

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fxrate_go/internal/domain"
)

func newTestClient(urls ...string) *RatesClient {
	c := NewRatesClient(func() map[string]float64 { return map[string]float64{"USD": 30.0} })
	c.urls = urls
	c.backoff = time.Millisecond
	c.metrics = &Metrics{}
	return c
}

func ratesHandler(rates map[string]float64) http.HandlerFunc {
	body, _ := json.Marshal(ratesResponse{Base: "USD", Rates: rates})
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

func TestRatesClient_FetchRates(t *testing.T) {
	server := httptest.NewServer(ratesHandler(map[string]float64{
		"TWD": 32.0,
		"EUR": 0.8,
		"JPY": 160.0,
		"XXX": 2.0, // not supported
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rates, origin := client.FetchRates(context.Background())

	if origin != domain.OriginLive {
		t.Fatalf("origin = %s, want live", origin)
	}
	if rates["USD"] != 32.0 {
		t.Errorf("USD = %f, want 32", rates["USD"])
	}
	if math.Abs(rates["EUR"]-40.0) > 1e-9 {
		t.Errorf("EUR = %f, want 40", rates["EUR"])
	}
	if math.Abs(rates["JPY"]-0.2) > 1e-9 {
		t.Errorf("JPY = %f, want 0.2", rates["JPY"])
	}
	if _, ok := rates["XXX"]; ok {
		t.Error("unsupported currency should be dropped")
	}
	if _, ok := rates["TWD"]; ok {
		t.Error("base currency should not be quoted against itself")
	}
}

func TestRatesClient_SecondEndpoint(t *testing.T) {
	// First endpoint answers without a TWD quote.
	first := httptest.NewServer(ratesHandler(map[string]float64{"EUR": 0.9}))
	defer first.Close()
	second := httptest.NewServer(ratesHandler(map[string]float64{"TWD": 31.0}))
	defer second.Close()

	rates, origin := newTestClient(first.URL, second.URL).FetchRates(context.Background())
	if origin != domain.OriginLive || rates["USD"] != 31.0 {
		t.Errorf("expected rates from second endpoint, got %v (%s)", rates, origin)
	}
}

func TestRatesClient_RetryOnFailure(t *testing.T) {
	var callCount atomic.Int32
	ok := ratesHandler(map[string]float64{"TWD": 32.0})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		ok(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, origin := client.FetchRates(context.Background())
	if origin != domain.OriginLive {
		t.Fatal("fetch should succeed after retries")
	}
	if callCount.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount.Load())
	}
}

func TestRatesClient_FallbackWhenAllFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rates, origin := client.FetchRates(context.Background())

	if origin != domain.OriginSimulated {
		t.Fatalf("origin = %s, want simulated", origin)
	}
	if len(rates) == 0 {
		t.Fatal("fallback must never be empty")
	}
	if client.metrics.Snapshot().FetchFallbacks != 1 {
		t.Error("expected fallback to be counted")
	}
}

func TestRatesClient_BaselineFallback(t *testing.T) {
	client := NewRatesClient(nil)
	client.urls = nil

	rates, origin := client.FetchRates(context.Background())
	if origin != domain.OriginSimulated {
		t.Fatalf("origin = %s, want simulated", origin)
	}
	if len(rates) != len(domain.Profiles()) {
		t.Errorf("expected a rate for every currency, got %d", len(rates))
	}
}

func TestRatesClient_MalformedBodyNotRetried(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, origin := newTestClient(server.URL).FetchRates(context.Background())
	if origin != domain.OriginSimulated {
		t.Error("malformed body should fall back")
	}
	if callCount.Load() != 1 {
		t.Errorf("decode errors should not be retried, got %d calls", callCount.Load())
	}
}
