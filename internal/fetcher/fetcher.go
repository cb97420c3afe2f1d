package fetcher

import (
	"context"
	"errors"
	"time"

	"signal-scanner/internal/market"
)

// ErrDataUnavailable reports an empty or unusably short provider response.
var ErrDataUnavailable = errors.New("fetcher: no data available")

// BarFetcher retrieves a chronological OHLCV series for one symbol.
type BarFetcher interface {
	FetchBars(ctx context.Context, symbol, interval string, lookback time.Duration) ([]market.PriceBar, error)
}

// SentimentFetcher scores recent headlines into a small probability offset.
type SentimentFetcher interface {
	FetchSentiment(ctx context.Context, symbol string) (float64, error)
}

// CandidateFetcher discovers additional symbols worth scanning this cycle.
type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, limit int) ([]market.Asset, error)
}
