package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchBarsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	f := NewHTTPBars(BarOptions{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second}, noopLogger())
	if _, err := f.FetchBars(context.Background(), "BTCUSD", "30min", 10*24*time.Hour); err != ErrDataUnavailable {
		t.Fatalf("empty series should yield ErrDataUnavailable, got %v", err)
	}
}

func TestFetchBarsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPBars(BarOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := f.FetchBars(context.Background(), "AAPL", "1hour", 24*time.Hour); err == nil {
		t.Fatal("HTTP 403 should surface an error")
	}
}

func TestFetchBarsChronologicalOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/historical-chart/30min/BTCUSD") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apikey") != "k" {
			t.Error("apikey query parameter missing")
		}
		// Newest-first, the provider's native order.
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"date": "2024-06-04 11:00:00", "open": 2.0, "high": 2.5, "low": 1.9, "close": 2.2, "volume": 900.0},
			{"date": "2024-06-04 10:30:00", "open": 1.8, "high": 2.1, "low": 1.7, "close": 2.0, "volume": 800.0},
			{"date": "2024-06-04 10:00:00", "open": 1.5, "high": 1.9, "low": 1.4, "close": 1.8, "volume": 700.0},
		})
	}))
	defer srv.Close()

	f := NewHTTPBars(BarOptions{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second}, noopLogger())
	bars, err := f.FetchBars(context.Background(), "BTCUSD", "30min", 24*time.Hour)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			t.Fatalf("bars must be chronological: %v then %v", bars[i-1].Time, bars[i].Time)
		}
	}
	if bars[0].Close != 1.8 {
		t.Fatalf("oldest bar should come first, got close %f", bars[0].Close)
	}
}

func TestFetchBarsSkipsBadTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"date": "not-a-date", "close": 1.0},
			{"date": "2024-06-04 10:00:00", "open": 1.5, "high": 1.9, "low": 1.4, "close": 1.8, "volume": 700.0},
		})
	}))
	defer srv.Close()

	f := NewHTTPBars(BarOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	bars, err := f.FetchBars(context.Background(), "AAPL", "1hour", 24*time.Hour)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected the malformed row to be dropped, got %d bars", len(bars))
	}
}
