package model

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/market"
)

func risingBars(n int) []market.PriceBar {
	bars := make([]market.PriceBar, n)
	start := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	for i := range bars {
		c := 100.0 + float64(i)
		bars[i] = market.PriceBar{
			Time:   start.Add(time.Duration(i) * 30 * time.Minute),
			Open:   c - 0.5,
			High:   c + 0.5,
			Low:    c - 1.0,
			Close:  c,
			Volume: 10_000,
		}
	}
	return bars
}

// choppyBars alternates direction so both label classes appear.
func choppyBars(n int) []market.PriceBar {
	bars := risingBars(n)
	for i := range bars {
		if i%2 == 1 {
			bars[i].Close = bars[i-1].Close - 0.4
			bars[i].High = bars[i].Close + 1
			bars[i].Low = bars[i].Close - 1
		}
	}
	return bars
}

func newTestModel() *Model {
	return New(DefaultConfig(), zerolog.Nop())
}

func TestRisingSeriesEstimatesAboveHalf(t *testing.T) {
	m := newTestModel()
	est := m.Estimate(risingBars(60), market.ClassDefault, 0)

	if est.Neutral {
		t.Fatal("a 60-bar series should produce a real fit, not a neutral fallback")
	}
	if est.Base <= 0.5 {
		t.Fatalf("strictly rising series should score above 0.5 before adjustment, got %f", est.Base)
	}
	if est.Final <= 0.5 {
		t.Fatalf("final probability should stay above 0.5, got %f", est.Final)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	m := newTestModel()
	bars := choppyBars(120)

	first := m.Estimate(bars, market.ClassCrypto, 0.05)
	for i := 0; i < 3; i++ {
		again := m.Estimate(bars, market.ClassCrypto, 0.05)
		if again != first {
			t.Fatalf("estimate must be deterministic under a fixed seed: %+v != %+v", again, first)
		}
	}
}

func TestShortSeriesSoftFailsToNeutral(t *testing.T) {
	m := newTestModel()
	for _, n := range []int{0, 10, 49} {
		est := m.Estimate(risingBars(n), market.ClassDefault, 0)
		if !est.Neutral || est.Final != 0.5 {
			t.Errorf("%d bars: expected neutral 0.5, got %+v", n, est)
		}
	}
}

func TestClassMultiplierApplied(t *testing.T) {
	m := newTestModel()
	bars := risingBars(80)

	base := m.Estimate(bars, market.ClassCommodity, 0)
	damped := m.Estimate(bars, market.ClassMicroCap, 0)

	if base.Multiplier != 1.0 {
		t.Fatalf("commodity multiplier should be 1.0, got %f", base.Multiplier)
	}
	if damped.Multiplier != 0.90 {
		t.Fatalf("micro-cap multiplier should be 0.90, got %f", damped.Multiplier)
	}
	if damped.Base != base.Base {
		t.Fatalf("base probability must not depend on asset class")
	}
}

func TestFinalProbabilityClamped(t *testing.T) {
	m := newTestModel()
	bars := risingBars(80)

	high := m.Estimate(bars, market.ClassCrypto, 0.3)
	if high.Final > 1.0 {
		t.Fatalf("final probability exceeded 1.0: %f", high.Final)
	}

	low := m.Estimate(bars, market.ClassMicroCap, -2.0)
	if low.Final < 0.0 {
		t.Fatalf("final probability below 0.0: %f", low.Final)
	}
}

func TestZeroSentimentTolerated(t *testing.T) {
	m := newTestModel()
	est := m.Estimate(risingBars(60), market.ClassDefault, 0)
	if est.Sentiment != 0 {
		t.Fatalf("zero offset should pass through unchanged, got %f", est.Sentiment)
	}
}
