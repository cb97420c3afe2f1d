package features

import (
	"errors"
	"math"
	"time"

	"signal-scanner/internal/market"
)

// Indicator parameters mirror the common defaults the scanner was tuned
// with; they are fixed rather than configurable.
const (
	rsiPeriod   = 14
	macdFast    = 12
	macdSlow    = 26
	macdSmooth  = 9
	smaShortLen = 20
	smaLongLen  = 50
	bbPeriod    = 20
	bbWidth     = 2.0
	volPeriod   = 20
	rocShortLen = 5
	rocLongLen  = 10
	adxLen      = 14
	emaShortLen = 12
	emaLongLen  = 26
)

// MinBars is the minimum series length before any feature row exists; it is
// driven by the longest lookback (the 50-period moving average).
const MinBars = smaLongLen

// ErrInsufficientHistory reports a series too short for the indicator set.
var ErrInsufficientHistory = errors.New("features: insufficient history")

// Bollinger band position labels.
const (
	BandOverbought = "overbought"
	BandOversold   = "oversold"
	BandNormal     = "normal"
)

// Trend direction labels.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
)

// Vector is the full indicator set for a single bar.
type Vector struct {
	BarIndex int
	Time     time.Time
	Close    float64
	Volume   float64

	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	SMA20      float64
	SMA50      float64
	EMA12      float64
	EMA26      float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	RelVolume  float64
	ROC5       float64
	ROC10      float64
	ADX        float64
}

// TrendLabel classifies the trend from the moving averages. Strict mode
// additionally requires the short average above the long one.
func (v Vector) TrendLabel(strict bool) string {
	bullish := v.Close > v.SMA20
	if strict {
		bullish = bullish && v.SMA20 > v.SMA50
	}
	if bullish {
		return TrendBullish
	}
	return TrendBearish
}

// MACDLabel classifies the MACD line against its signal line.
func (v Vector) MACDLabel() string {
	if v.MACD > v.MACDSignal {
		return TrendBullish
	}
	return TrendBearish
}

// BollingerLabel positions the close relative to the bands.
func (v Vector) BollingerLabel() string {
	switch {
	case v.Close > v.BBUpper:
		return BandOverbought
	case v.Close < v.BBLower:
		return BandOversold
	default:
		return BandNormal
	}
}

// Series computes the indicator set over the whole bar series and returns
// one row per bar that has full lookback history. Bars must be ordered
// chronologically.
func Series(bars []market.PriceBar) ([]Vector, error) {
	if len(bars) < MinBars {
		return nil, ErrInsufficientHistory
	}

	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	rsiVals := rsi(closes, rsiPeriod)
	macdLine, macdSig, macdHist := macdSeries(closes, macdFast, macdSlow, macdSmooth)
	sma20 := rollingMean(closes, smaShortLen)
	sma50 := rollingMean(closes, smaLongLen)
	ema12 := ema(closes, emaShortLen)
	ema26 := ema(closes, emaLongLen)
	bbMid := rollingMean(closes, bbPeriod)
	bbSD := rollingStdDev(closes, bbPeriod)
	relVol := relativeVolume(volumes, volPeriod)
	roc5 := rateOfChange(closes, rocShortLen)
	roc10 := rateOfChange(closes, rocLongLen)
	adxVals := adx(highs, lows, closes, adxLen)

	rows := make([]Vector, 0, n-MinBars+1)
	for i := 0; i < n; i++ {
		v := Vector{
			BarIndex:   i,
			Time:       bars[i].Time,
			Close:      closes[i],
			Volume:     volumes[i],
			RSI:        rsiVals[i],
			MACD:       macdLine[i],
			MACDSignal: macdSig[i],
			MACDHist:   macdHist[i],
			SMA20:      sma20[i],
			SMA50:      sma50[i],
			EMA12:      ema12[i],
			EMA26:      ema26[i],
			BBUpper:    bbMid[i] + bbWidth*bbSD[i],
			BBMiddle:   bbMid[i],
			BBLower:    bbMid[i] - bbWidth*bbSD[i],
			RelVolume:  relVol[i],
			ROC5:       roc5[i],
			ROC10:      roc10[i],
			ADX:        adxVals[i],
		}
		if v.complete() {
			rows = append(rows, v)
		}
	}

	if len(rows) == 0 {
		return nil, ErrInsufficientHistory
	}
	return rows, nil
}

// Compute returns the feature vector for the most recent bar.
func Compute(bars []market.PriceBar) (Vector, error) {
	rows, err := Series(bars)
	if err != nil {
		return Vector{}, err
	}
	return rows[len(rows)-1], nil
}

func (v Vector) complete() bool {
	for _, f := range []float64{
		v.RSI, v.MACD, v.MACDSignal, v.MACDHist,
		v.SMA20, v.SMA50, v.EMA12, v.EMA26,
		v.BBUpper, v.BBMiddle, v.BBLower,
		v.RelVolume, v.ROC5, v.ROC10, v.ADX,
	} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
