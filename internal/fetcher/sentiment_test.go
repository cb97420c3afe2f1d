package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHeadlinePolarity(t *testing.T) {
	cases := []struct {
		title string
		want  float64
	}{
		{"Shares surge to record high after earnings beat", 1},
		{"Company warns of weak quarter, shares plunge", -1},
		{"Quarterly report published on schedule", 0},
		{"Stock jumps despite lawsuit", 1.0 / 3.0},
	}

	for _, tc := range cases {
		if got := HeadlinePolarity(tc.title); got != tc.want {
			t.Errorf("HeadlinePolarity(%q) = %f, want %f", tc.title, got, tc.want)
		}
	}
}

func TestFetchSentimentWithoutAPIKey(t *testing.T) {
	f := NewHTTPSentiment(SentimentOptions{}, noopLogger())
	offset, err := f.FetchSentiment(context.Background(), "AAPL")
	if err != nil || offset != 0 {
		t.Fatalf("no API key should mean a silent zero offset, got %f, %v", offset, err)
	}
}

func TestFetchSentimentPositiveHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tickers") != "AAPL" {
			t.Errorf("tickers query missing: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"title": "Shares surge after record profit"},
			{"title": "Analysts upgrade on strong growth"},
			{"title": "Stock rises to new high"},
		})
	}))
	defer srv.Close()

	f := NewHTTPSentiment(SentimentOptions{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second}, noopLogger())
	offset, err := f.FetchSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if offset <= 0 {
		t.Fatalf("uniformly positive headlines should give a positive offset, got %f", offset)
	}
	if offset > 0.2 {
		t.Fatalf("offset must stay within bounds, got %f", offset)
	}
}

func TestFetchSentimentEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	f := NewHTTPSentiment(SentimentOptions{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second}, noopLogger())
	offset, err := f.FetchSentiment(context.Background(), "AAPL")
	if err != nil || offset != 0 {
		t.Fatalf("empty feed should give zero offset, got %f, %v", offset, err)
	}
}

func TestFetchCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("priceLowerThan") == "" || q.Get("marketCapLowerThan") == "" {
			t.Errorf("screener criteria missing: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"symbol": "TINY", "companyName": "Tiny Corp With A Very Long Name Indeed"},
			{"symbol": "", "companyName": "Nameless"},
			{"symbol": "SMOL", "companyName": "Smol Inc"},
		})
	}))
	defer srv.Close()

	f := NewHTTPScreener(ScreenerOptions{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second, Sessions: []string{"nyse"}}, noopLogger())
	assets, err := f.FetchCandidates(context.Background(), 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 candidates (blank symbol dropped), got %d", len(assets))
	}
	if len(assets[0].Name) > 20 {
		t.Errorf("names should be truncated to 20 characters, got %q", assets[0].Name)
	}
	for _, a := range assets {
		if a.Class != "MICRO_CAP" {
			t.Errorf("candidates should carry the micro-cap class hint, got %s", a.Class)
		}
		if len(a.Sessions) != 1 || a.Sessions[0] != "nyse" {
			t.Errorf("candidates should inherit the gating session, got %v", a.Sessions)
		}
	}
}

func TestFetchCandidatesWithoutAPIKey(t *testing.T) {
	f := NewHTTPScreener(ScreenerOptions{}, noopLogger())
	assets, err := f.FetchCandidates(context.Background(), 3)
	if err != nil || assets != nil {
		t.Fatalf("no API key should mean no candidates, got %v, %v", assets, err)
	}
}
