package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/market"
)

// ScreenerOptions parameterise the micro-cap candidate screener.
type ScreenerOptions struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxPrice     float64
	MaxMarketCap int64
	MinVolume    int64
	// Sessions are attached to every discovered asset for cycle gating.
	Sessions []string
}

// HTTPScreener discovers low-priced, high-volume candidates from an
// FMP-compatible stock screener endpoint.
type HTTPScreener struct {
	opts    ScreenerOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHTTPScreener constructs a screener fetcher.
func NewHTTPScreener(opts ScreenerOptions, logger zerolog.Logger) *HTTPScreener {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.MaxPrice <= 0 {
		opts.MaxPrice = 3
	}
	if opts.MaxMarketCap <= 0 {
		opts.MaxMarketCap = 500_000_000
	}
	if opts.MinVolume <= 0 {
		opts.MinVolume = 5_000_000
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://financialmodelingprep.com"
	}

	return &HTTPScreener{
		opts:    opts,
		logger:  logger.With().Str("component", "screener_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type screenerItem struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
}

// FetchCandidates returns up to limit micro-cap assets matching the
// screener criteria.
func (f *HTTPScreener) FetchCandidates(ctx context.Context, limit int) ([]market.Asset, error) {
	if f.opts.APIKey == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	query := url.Values{}
	query.Set("marketCapLowerThan", strconv.FormatInt(f.opts.MaxMarketCap, 10))
	query.Set("priceLowerThan", strconv.FormatFloat(f.opts.MaxPrice, 'f', -1, 64))
	query.Set("volumeMoreThan", strconv.FormatInt(f.opts.MinVolume, 10))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("apikey", f.opts.APIKey)

	endpoint := fmt.Sprintf("%s/api/v3/stock-screener?%s", f.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

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
		return nil, fmt.Errorf("screener responded %d", resp.StatusCode)
	}

	var items []screenerItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode screener response: %w", err)
	}

	assets := make([]market.Asset, 0, limit)
	for _, item := range items {
		if item.Symbol == "" {
			continue
		}
		name := item.CompanyName
		if name == "" {
			name = item.Symbol
		}
		if len(name) > 20 {
			name = name[:20]
		}
		assets = append(assets, market.Asset{
			Symbol:   item.Symbol,
			Name:     name,
			Class:    market.ClassMicroCap,
			Sessions: f.opts.Sessions,
		})
		if len(assets) == limit {
			break
		}
	}
	return assets, nil
}

var _ CandidateFetcher = (*HTTPScreener)(nil)
