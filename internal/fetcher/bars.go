package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/market"
)

const barTimeLayout = "2006-01-02 15:04:05"

// BarOptions parameterise the historical-chart fetcher.
type BarOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// HTTPBars fetches intraday OHLCV series from an FMP-compatible API.
type HTTPBars struct {
	opts    BarOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHTTPBars constructs a bar fetcher.
func NewHTTPBars(opts BarOptions, logger zerolog.Logger) *HTTPBars {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://financialmodelingprep.com"
	}

	return &HTTPBars{
		opts:    opts,
		logger:  logger.With().Str("component", "bar_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type barResponse struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// FetchBars retrieves bars for the symbol covering the lookback window and
// returns them in chronological order.
func (f *HTTPBars) FetchBars(ctx context.Context, symbol, interval string, lookback time.Duration) ([]market.PriceBar, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if interval == "" {
		interval = "1hour"
	}

	from := time.Now().UTC().Add(-lookback)
	endpoint := fmt.Sprintf("%s/api/v3/historical-chart/%s/%s", f.baseURL, url.PathEscape(interval), url.PathEscape(symbol))

	query := url.Values{}
	query.Set("from", from.Format("2006-01-02"))
	if f.opts.APIKey != "" {
		query.Set("apikey", f.opts.APIKey)
	}

	payload, err := f.get(ctx, endpoint+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var rows []barResponse
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("decode bars for %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return nil, ErrDataUnavailable
	}

	bars := make([]market.PriceBar, 0, len(rows))
	for _, row := range rows {
		ts, parseErr := time.Parse(barTimeLayout, row.Date)
		if parseErr != nil {
			f.logger.Debug().Str("symbol", symbol).Str("date", row.Date).Msg("skipping bar with unparsable timestamp")
			continue
		}
		bars = append(bars, market.PriceBar{
			Time:   ts,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	if len(bars) == 0 {
		return nil, ErrDataUnavailable
	}

	// The provider returns newest-first.
	market.SortBars(bars)
	return bars, nil
}

func (f *HTTPBars) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider responded %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}

var _ BarFetcher = (*HTTPBars)(nil)
