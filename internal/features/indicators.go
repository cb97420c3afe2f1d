package features

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Indicator helpers compute a full series and leave math.NaN in positions
// that lack enough lookback. Callers align them by bar index.

func rollingMean(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		mean, err := stats.Mean(stats.Float64Data(values[i-period+1 : i+1]))
		if err != nil {
			continue
		}
		out[i] = mean
	}
	return out
}

func rollingStdDev(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		sd, err := stats.StandardDeviationPopulation(stats.Float64Data(values[i-period+1 : i+1]))
		if err != nil {
			continue
		}
		out[i] = sd
	}
	return out
}

// ema seeds from the first sample and applies the recursive smoothing from
// there. Seeding from an SMA instead would start the line at its exact
// steady-state lag, which on a constant-slope series collapses the MACD
// line and its signal into a permanent tie.
func ema(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}

	k := 2.0 / (float64(period) + 1.0)
	prev := values[0]
	out[0] = prev
	for i := 1; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// rsi implements Wilder's RSI; a lossless window reports 100.
func rsi(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if len(closes) < period+1 {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

func macdSeries(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	fastEMA := ema(closes, fast)
	slowEMA := ema(closes, slow)

	line = nanSeries(len(closes))
	for i := range closes {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// Signal line is an EMA over the defined portion of the MACD line.
	sig = nanSeries(len(closes))
	start := slow - 1
	if start < len(closes) {
		sigPart := ema(line[start:], signal)
		for i, v := range sigPart {
			sig[start+i] = v
		}
	}

	hist = nanSeries(len(closes))
	for i := range closes {
		if !math.IsNaN(line[i]) && !math.IsNaN(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return line, sig, hist
}

// relativeVolume divides each bar's volume by the trailing mean; a zero mean
// yields 1.0 so thin series never divide by zero.
func relativeVolume(volumes []float64, period int) []float64 {
	out := nanSeries(len(volumes))
	means := rollingMean(volumes, period)
	for i := period - 1; i < len(volumes); i++ {
		if means[i] == 0 {
			out[i] = 1.0
			continue
		}
		out[i] = volumes[i] / means[i]
	}
	return out
}

func rateOfChange(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	for i := period; i < len(closes); i++ {
		prev := closes[i-period]
		if prev == 0 {
			continue
		}
		out[i] = (closes[i] - prev) / prev * 100.0
	}
	return out
}

// adx implements Wilder's average directional index. Values appear from
// index 2*period onward.
func adx(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSeries(n)
	if n < 2*period+1 {
		return out
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = math.Max(highs[i]-lows[i], math.Max(
			math.Abs(highs[i]-closes[i-1]),
			math.Abs(lows[i]-closes[i-1]),
		))
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := nanSeries(n)
	dx[period] = dxValue(smPlus, smMinus, smTR)
	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dx[i] = dxValue(smPlus, smMinus, smTR)
	}

	var seed float64
	for i := period; i < 2*period; i++ {
		seed += dx[i]
	}
	seed /= float64(period)
	out[2*period] = (seed*float64(period-1) + dx[2*period]) / float64(period)
	for i := 2*period + 1; i < n; i++ {
		out[i] = (out[i-1]*float64(period-1) + dx[i]) / float64(period)
	}
	return out
}

func dxValue(plus, minus, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	diPlus := 100.0 * plus / tr
	diMinus := 100.0 * minus / tr
	sum := diPlus + diMinus
	if sum == 0 {
		return 0
	}
	return 100.0 * math.Abs(diPlus-diMinus) / sum
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
