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
)

// SentimentOptions parameterise the headline sentiment fetcher.
type SentimentOptions struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxHeadlines int
	// Weight scales raw average polarity into a probability offset.
	Weight float64
	// MaxOffset bounds the returned offset symmetrically around zero.
	MaxOffset float64
}

// HTTPSentiment scores stock-news headlines with a small polarity lexicon.
type HTTPSentiment struct {
	opts    SentimentOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHTTPSentiment constructs a sentiment fetcher.
func NewHTTPSentiment(opts SentimentOptions, logger zerolog.Logger) *HTTPSentiment {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.MaxHeadlines <= 0 {
		opts.MaxHeadlines = 3
	}
	if opts.Weight == 0 {
		opts.Weight = 0.08
	}
	if opts.MaxOffset <= 0 {
		opts.MaxOffset = 0.2
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://financialmodelingprep.com"
	}

	return &HTTPSentiment{
		opts:    opts,
		logger:  logger.With().Str("component", "sentiment_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type newsItem struct {
	Title string `json:"title"`
}

// FetchSentiment averages headline polarity for the symbol into a bounded
// offset. A missing API key, an empty feed, or any transport failure all
// resolve to zero so the evaluation loop stays unaffected.
func (f *HTTPSentiment) FetchSentiment(ctx context.Context, symbol string) (float64, error) {
	if f.opts.APIKey == "" {
		return 0, nil
	}

	query := url.Values{}
	query.Set("tickers", symbol)
	query.Set("limit", "5")
	query.Set("apikey", f.opts.APIKey)

	endpoint := fmt.Sprintf("%s/api/v3/stock_news?%s", f.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("news endpoint responded %d", resp.StatusCode)
	}

	var items []newsItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return 0, fmt.Errorf("decode news for %s: %w", symbol, err)
	}
	if len(items) == 0 {
		return 0, nil
	}
	if len(items) > f.opts.MaxHeadlines {
		items = items[:f.opts.MaxHeadlines]
	}

	total := 0.0
	for _, item := range items {
		total += HeadlinePolarity(item.Title)
	}
	offset := total / float64(len(items)) * f.opts.Weight

	return clampOffset(offset, f.opts.MaxOffset), nil
}

func clampOffset(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

// positiveWords and negativeWords form a deliberately small financial
// headline lexicon; polarity only needs to nudge the probability.
var positiveWords = map[string]struct{}{
	"beat": {}, "beats": {}, "bullish": {}, "buy": {}, "gain": {}, "gains": {},
	"growth": {}, "high": {}, "jump": {}, "jumps": {}, "profit": {}, "rally": {},
	"record": {}, "rise": {}, "rises": {}, "soar": {}, "soars": {}, "strong": {},
	"surge": {}, "surges": {}, "up": {}, "upgrade": {}, "upgraded": {}, "win": {},
}

var negativeWords = map[string]struct{}{
	"bearish": {}, "crash": {}, "cut": {}, "cuts": {}, "decline": {}, "declines": {},
	"down": {}, "downgrade": {}, "downgraded": {}, "drop": {}, "drops": {},
	"fall": {}, "falls": {}, "fraud": {}, "lawsuit": {}, "loss": {}, "losses": {},
	"low": {}, "miss": {}, "misses": {}, "plunge": {}, "plunges": {}, "sell": {},
	"slump": {}, "tumble": {}, "tumbles": {}, "warn": {}, "warns": {}, "weak": {},
}

// HeadlinePolarity scores a headline in [-1, 1] from its sentiment-bearing
// tokens.
func HeadlinePolarity(title string) float64 {
	tokens := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	pos, neg := 0, 0
	for _, tok := range tokens {
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}

	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

var _ SentimentFetcher = (*HTTPSentiment)(nil)
