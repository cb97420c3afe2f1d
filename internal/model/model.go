package model

import (
	"math/rand"

	"github.com/rs/zerolog"

	"signal-scanner/internal/features"
	"signal-scanner/internal/market"
)

// Config tunes the per-cycle classifier fit.
type Config struct {
	Trees         int     `mapstructure:"trees"`
	MaxDepth      int     `mapstructure:"max_depth"`
	Seed          int64   `mapstructure:"seed"`
	TrainFraction float64 `mapstructure:"train_fraction"`
	MinRows       int     `mapstructure:"min_rows"`
	PredictTail   int     `mapstructure:"predict_tail"`
}

// DefaultConfig returns the tuning the scanner ships with.
func DefaultConfig() Config {
	return Config{
		Trees:         100,
		MaxDepth:      8,
		Seed:          42,
		TrainFraction: 0.85,
		MinRows:       10,
		PredictTail:   3,
	}
}

// forwardOffset: a bar is labeled positive when the close two bars ahead
// exceeds the close one bar ahead.
const forwardOffset = 2

// minLabeledRows is the floor on usable training rows before the fit is
// considered degenerate.
const minLabeledRows = 8

// classMultipliers compensate known per-class model bias.
var classMultipliers = map[market.AssetClass]float64{
	market.ClassCrypto:         1.05,
	market.ClassCommodity:      1.0,
	market.ClassRegionalEquity: 0.95,
	market.ClassMicroCap:       0.90,
	market.ClassFund:           1.0,
	market.ClassDefault:        1.0,
}

// Estimate is a calibrated directional probability for the trailing bars.
type Estimate struct {
	Base       float64
	Multiplier float64
	Sentiment  float64
	Final      float64
	// Neutral marks a soft-failed fit that fell back to 0.5.
	Neutral bool
}

// Model fits a short-lived classifier per evaluation; it holds no state
// between calls beyond configuration.
type Model struct {
	cfg    Config
	logger zerolog.Logger
}

// New constructs a Model.
func New(cfg Config, logger zerolog.Logger) *Model {
	if cfg.Trees <= 0 {
		cfg = DefaultConfig()
	}
	return &Model{cfg: cfg, logger: logger.With().Str("component", "model").Logger()}
}

// Estimate fits the ensemble on the bar history and returns the adjusted
// probability for the most recent bars. Every failure mode soft-fails to a
// neutral 0.5 so the caller's per-asset loop never aborts on a bad fit.
func (m *Model) Estimate(bars []market.PriceBar, class market.AssetClass, sentiment float64) Estimate {
	rows, err := features.Series(bars)
	if err != nil {
		m.logger.Debug().Err(err).Msg("feature preparation failed; neutral estimate")
		return neutralEstimate()
	}
	if len(rows) < m.cfg.MinRows {
		m.logger.Debug().Int("rows", len(rows)).Msg("too few feature rows; neutral estimate")
		return neutralEstimate()
	}

	X := make([][]float64, len(rows))
	for i, row := range rows {
		X[i] = featureColumns(row)
	}

	// Rows near the series tail have no forward label and are excluded
	// from training, but still receive predictions.
	var labeled int
	y := make([]int, 0, len(rows))
	for _, row := range rows {
		bi := row.BarIndex
		if bi+forwardOffset >= len(bars) {
			break
		}
		label := 0
		if bars[bi+forwardOffset].Close > bars[bi+forwardOffset-1].Close {
			label = 1
		}
		y = append(y, label)
		labeled++
	}
	if labeled < minLabeledRows {
		m.logger.Debug().Int("labeled", labeled).Msg("degenerate training table; neutral estimate")
		return neutralEstimate()
	}

	// Chronological split, no shuffling: labels depend on time.
	trainN := int(float64(labeled) * m.cfg.TrainFraction)
	if trainN < minLabeledRows/2 {
		trainN = labeled
	}

	rng := rand.New(rand.NewSource(m.cfg.Seed))
	f := fitForest(X[:trainN], y[:trainN], forestConfig{
		trees:    m.cfg.Trees,
		maxDepth: m.cfg.MaxDepth,
		minLeaf:  2,
	}, rng)

	tail := m.cfg.PredictTail
	if tail <= 0 || tail > len(X) {
		tail = len(X)
	}
	base := 0.0
	for _, row := range X[len(X)-tail:] {
		base += f.predict(row)
	}
	base /= float64(tail)

	multiplier, ok := classMultipliers[class]
	if !ok {
		multiplier = 1.0
	}

	final := clamp01(base*multiplier + sentiment)
	return Estimate{
		Base:       base,
		Multiplier: multiplier,
		Sentiment:  sentiment,
		Final:      final,
	}
}

func featureColumns(v features.Vector) []float64 {
	return []float64{
		v.RSI,
		v.MACD,
		v.MACDHist,
		v.SMA20,
		v.SMA50,
		v.RelVolume,
		v.ROC10,
		v.ADX,
	}
}

func neutralEstimate() Estimate {
	return Estimate{Base: 0.5, Multiplier: 1.0, Final: 0.5, Neutral: true}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
