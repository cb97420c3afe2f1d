package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/alerting"
	"signal-scanner/internal/calendar"
	"signal-scanner/internal/gate"
	"signal-scanner/internal/market"
	"signal-scanner/internal/model"
	"signal-scanner/internal/scheduler"
	"signal-scanner/internal/storage"
)

func risingBars(n int) []market.PriceBar {
	bars := make([]market.PriceBar, n)
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100.0 + float64(i)
		bars[i] = market.PriceBar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10_000,
		}
	}
	return bars
}

type staticBars struct {
	bars  map[string][]market.PriceBar
	calls map[string]int
	fail  map[string]error
}

func newStaticBars() *staticBars {
	return &staticBars{
		bars:  make(map[string][]market.PriceBar),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (f *staticBars) FetchBars(ctx context.Context, symbol, interval string, lookback time.Duration) ([]market.PriceBar, error) {
	f.calls[symbol]++
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

type captureNotifier struct {
	notes []alerting.Notification
	texts []string
}

func (n *captureNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	n.notes = append(n.notes, note)
	return nil
}

func (n *captureNotifier) NotifyText(ctx context.Context, text string) error {
	n.texts = append(n.texts, text)
	return nil
}

type captureStore struct {
	signals []storage.SignalRecord
	cycles  []storage.CycleRecord
}

func (s *captureStore) InsertSignal(ctx context.Context, r storage.SignalRecord) (storage.SignalRecord, error) {
	s.signals = append(s.signals, r)
	return r, nil
}

func (s *captureStore) ListRecentSignals(ctx context.Context, limit int) ([]storage.SignalRecord, error) {
	return s.signals, nil
}

func (s *captureStore) ListSignalsBetween(ctx context.Context, from, to time.Time) ([]storage.SignalRecord, error) {
	return s.signals, nil
}

func (s *captureStore) CountSignalsSince(ctx context.Context, since time.Time) (int64, error) {
	return int64(len(s.signals)), nil
}

func (s *captureStore) InsertCycle(ctx context.Context, r storage.CycleRecord) (storage.CycleRecord, error) {
	s.cycles = append(s.cycles, r)
	return r, nil
}

func (s *captureStore) LatestCycle(ctx context.Context) (*storage.CycleRecord, error) {
	if len(s.cycles) == 0 {
		return nil, nil
	}
	return &s.cycles[len(s.cycles)-1], nil
}

func testCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New([]calendar.SessionConfig{
		{ID: "nyse", Timezone: "America/New_York", Open: "09:30", Close: "16:00", Holidays: "us"},
		{ID: "bvc", Timezone: "America/Bogota", Open: "09:00", Close: "16:00"},
		{ID: "crypto", AlwaysOpen: true},
	})
	if err != nil {
		t.Fatalf("calendar.New: %v", err)
	}
	return cal
}

// permissivePolicies pass on a rising series: the probability bar is low
// and the quorum tolerates the overbought RSI and flat relative volume.
func permissivePolicies() map[market.AssetClass]gate.Policy {
	p := gate.Policy{
		ProbabilityThreshold: 0.5,
		RSIMin:               35,
		RSIMax:               65,
		MinRelVolume:         1.3,
		Quorum:               2,
	}
	return map[market.AssetClass]gate.Policy{market.ClassDefault: p}
}

func newTestService(t *testing.T, bars *staticBars, notifier *captureNotifier, store *captureStore, universe []market.Asset) *Service {
	t.Helper()
	return New(
		Options{
			Pacing:            time.Millisecond,
			PrimarySession:    "nyse",
			SecondarySessions: []string{"bvc"},
		},
		testCalendar(t),
		bars,
		nil,
		nil,
		notifier,
		store,
		store,
		model.New(model.DefaultConfig(), zerolog.Nop()),
		universe,
		permissivePolicies(),
		nil,
		nil,
		zerolog.Nop(),
	)
}

func TestCycleEmitsSignalOnRisingSeries(t *testing.T) {
	bars := newStaticBars()
	bars.bars["BTC-USD"] = risingBars(60)

	notifier := &captureNotifier{}
	store := &captureStore{}
	universe := []market.Asset{{Symbol: "BTC-USD", Name: "Bitcoin", Class: market.ClassCrypto}}

	svc := newTestService(t, bars, notifier, store, universe)

	if _, err := svc.Cycle(context.Background(), 1); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.Asset.Symbol != "BTC-USD" {
		t.Fatalf("notification symbol = %s", note.Asset.Symbol)
	}
	if note.Probability <= 0.5 {
		t.Fatalf("notification probability = %f, want > 0.5", note.Probability)
	}

	if len(store.signals) != 1 {
		t.Fatalf("got %d stored signals, want 1", len(store.signals))
	}
	if store.signals[0].Symbol != "BTC-USD" {
		t.Fatalf("stored symbol = %s", store.signals[0].Symbol)
	}
	if len(store.cycles) != 1 {
		t.Fatalf("got %d cycle records, want 1", len(store.cycles))
	}
	if got := store.cycles[0].SignalsEmitted; got != 1 {
		t.Fatalf("cycle record signals = %d, want 1", got)
	}
}

func TestCycleDeduplicatesSymbols(t *testing.T) {
	bars := newStaticBars()
	bars.bars["BTC-USD"] = risingBars(60)

	notifier := &captureNotifier{}
	store := &captureStore{}
	universe := []market.Asset{
		{Symbol: "BTC-USD", Name: "Bitcoin", Class: market.ClassCrypto},
		{Symbol: "BTC-USD", Name: "Bitcoin duplicate", Class: market.ClassCrypto},
	}

	svc := newTestService(t, bars, notifier, store, universe)

	if _, err := svc.Cycle(context.Background(), 1); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if bars.calls["BTC-USD"] != 1 {
		t.Fatalf("fetched BTC-USD %d times, want 1", bars.calls["BTC-USD"])
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifier.notes))
	}
}

func TestCycleIsolatesAssetFailures(t *testing.T) {
	bars := newStaticBars()
	bars.bars["ETH-USD"] = risingBars(60)
	bars.fail["BTC-USD"] = errors.New("provider timeout")

	notifier := &captureNotifier{}
	store := &captureStore{}
	universe := []market.Asset{
		{Symbol: "BTC-USD", Class: market.ClassCrypto},
		{Symbol: "ETH-USD", Class: market.ClassCrypto},
	}

	svc := newTestService(t, bars, notifier, store, universe)

	if _, err := svc.Cycle(context.Background(), 1); err != nil {
		t.Fatalf("Cycle returned %v, want nil when one asset survives", err)
	}
	if len(notifier.notes) != 1 || notifier.notes[0].Asset.Symbol != "ETH-USD" {
		t.Fatalf("expected a single ETH-USD notification, got %+v", notifier.notes)
	}
	if store.cycles[0].AssetsFailed != 1 {
		t.Fatalf("cycle record failures = %d, want 1", store.cycles[0].AssetsFailed)
	}
}

func TestCycleFailsWhenAllAssetsFail(t *testing.T) {
	bars := newStaticBars()
	bars.fail["BTC-USD"] = errors.New("provider timeout")

	svc := newTestService(t, bars, &captureNotifier{}, &captureStore{},
		[]market.Asset{{Symbol: "BTC-USD", Class: market.ClassCrypto}})

	if _, err := svc.Cycle(context.Background(), 1); err == nil {
		t.Fatal("Cycle returned nil, want error when every asset fails")
	}
}

func TestWaitHintFollowsSessions(t *testing.T) {
	svc := newTestService(t, newStaticBars(), &captureNotifier{}, &captureStore{}, nil)

	cases := []struct {
		name string
		at   time.Time
		want scheduler.WaitHint
	}{
		// 2024-06-04 is a Tuesday. 14:00 UTC is 10:00 in New York.
		{"primary open", time.Date(2024, 6, 4, 14, 0, 0, 0, time.UTC), scheduler.WaitPrimary},
		// 20:30 UTC: New York 16:30 (closed), Bogota 15:30 (open).
		{"only secondary open", time.Date(2024, 6, 4, 20, 30, 0, 0, time.UTC), scheduler.WaitSecondary},
		// 02:00 UTC: both closed.
		{"no session open", time.Date(2024, 6, 4, 2, 0, 0, 0, time.UTC), scheduler.WaitOffHours},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.waitHint(tc.at); got != tc.want {
				t.Fatalf("waitHint(%s) = %s, want %s", tc.at, got, tc.want)
			}
		})
	}
}

type staticScreener struct {
	assets []market.Asset
	calls  int
}

func (f *staticScreener) FetchCandidates(ctx context.Context, limit int) ([]market.Asset, error) {
	f.calls++
	return f.assets, nil
}

func TestScreenerRunsEveryNthCycle(t *testing.T) {
	bars := newStaticBars()
	bars.bars["PNY"] = risingBars(60)

	screener := &staticScreener{assets: []market.Asset{{Symbol: "PNY", Class: market.ClassMicroCap}}}

	svc := newTestService(t, bars, &captureNotifier{}, &captureStore{}, nil)
	svc.screener = screener
	svc.opts.ScreenerEvery = 3

	at := time.Now()
	for n := 1; n <= 6; n++ {
		svc.eligibleAssets(context.Background(), n, at)
	}
	if screener.calls != 2 {
		t.Fatalf("screener fetched %d times over 6 cycles, want 2", screener.calls)
	}

	// Candidates persist between refreshes.
	assets := svc.eligibleAssets(context.Background(), 7, at)
	found := false
	for _, a := range assets {
		if a.Symbol == "PNY" {
			found = true
		}
	}
	if !found {
		t.Fatal("cached screener candidate missing from scan list")
	}
}
