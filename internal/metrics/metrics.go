package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes scanner counters over Prometheus.
type Recorder struct {
	cyclesTotal     prometheus.Counter
	assetsEvaluated prometheus.Counter
	assetFailures   *prometheus.CounterVec
	signalsEmitted  *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	lastProbability *prometheus.GaugeVec
}

// New registers and returns the scanner metric set.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigscan_cycles_total",
			Help: "Total number of completed scan cycles",
		}),
		assetsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigscan_assets_evaluated_total",
			Help: "Total number of asset evaluations attempted",
		}),
		assetFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigscan_asset_failures_total",
				Help: "Total number of failed asset evaluations",
			},
			[]string{"symbol"},
		),
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigscan_signals_emitted_total",
				Help: "Total number of high probability signals emitted",
			},
			[]string{"symbol", "class"},
		),
		cycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigscan_cycle_duration_seconds",
			Help:    "Duration of complete scan cycles in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		lastProbability: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigscan_last_probability",
				Help: "Last estimated rise probability per symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordCycle records one finished cycle and its wall time.
func (r *Recorder) RecordCycle(seconds float64) {
	if r == nil {
		return
	}
	r.cyclesTotal.Inc()
	r.cycleDuration.Observe(seconds)
}

// RecordEvaluation records one attempted asset evaluation.
func (r *Recorder) RecordEvaluation() {
	if r == nil {
		return
	}
	r.assetsEvaluated.Inc()
}

// RecordFailure records a failed evaluation for a symbol.
func (r *Recorder) RecordFailure(symbol string) {
	if r == nil {
		return
	}
	r.assetFailures.WithLabelValues(symbol).Inc()
}

// RecordSignal records an emitted signal.
func (r *Recorder) RecordSignal(symbol, class string) {
	if r == nil {
		return
	}
	r.signalsEmitted.WithLabelValues(symbol, class).Inc()
}

// RecordProbability records the last estimate for a symbol.
func (r *Recorder) RecordProbability(symbol string, p float64) {
	if r == nil {
		return
	}
	r.lastProbability.WithLabelValues(symbol).Set(p)
}
