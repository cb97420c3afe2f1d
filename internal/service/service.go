package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/alerting"
	"signal-scanner/internal/calendar"
	"signal-scanner/internal/features"
	"signal-scanner/internal/fetcher"
	"signal-scanner/internal/gate"
	"signal-scanner/internal/market"
	"signal-scanner/internal/metrics"
	"signal-scanner/internal/model"
	"signal-scanner/internal/scheduler"
	"signal-scanner/internal/storage"
)

// IntervalSpec is the per-class bar request shape.
type IntervalSpec struct {
	Interval string
	Lookback time.Duration
}

// Options tune the scan cycle.
type Options struct {
	// Pacing is the delay inserted between consecutive asset evaluations
	// to stay under provider rate limits.
	Pacing time.Duration
	// ScreenerEvery fetches fresh micro-cap candidates every Nth cycle.
	ScreenerEvery int
	ScreenerLimit int
	// ScreenerSession gates candidate discovery to an open session.
	ScreenerSession string
	// PrimarySession selects the shortest wait tier while open.
	PrimarySession string
	// SecondarySessions select the middle tier when the primary is closed.
	SecondarySessions []string
}

// Service runs the per-cycle pipeline: select assets, fetch, estimate,
// gate, alert, persist.
type Service struct {
	opts      Options
	cal       *calendar.Calendar
	bars      fetcher.BarFetcher
	sentiment fetcher.SentimentFetcher
	screener  fetcher.CandidateFetcher
	notifier  alerting.Notifier
	signals   storage.SignalStore
	cycles    storage.CycleStore
	model     *model.Model
	universe  []market.Asset
	policies  map[market.AssetClass]gate.Policy
	intervals map[market.AssetClass]IntervalSpec
	rec       *metrics.Recorder
	logger    zerolog.Logger

	// candidates survive between screener refreshes so discovered symbols
	// keep getting scanned on intermediate cycles.
	candidates []market.Asset
}

// New assembles a Service. notifier, screener, sentiment and the stores
// may be nil when the corresponding boundary is disabled.
func New(
	opts Options,
	cal *calendar.Calendar,
	bars fetcher.BarFetcher,
	sentiment fetcher.SentimentFetcher,
	screener fetcher.CandidateFetcher,
	notifier alerting.Notifier,
	signals storage.SignalStore,
	cycles storage.CycleStore,
	mdl *model.Model,
	universe []market.Asset,
	policies map[market.AssetClass]gate.Policy,
	intervals map[market.AssetClass]IntervalSpec,
	rec *metrics.Recorder,
	logger zerolog.Logger,
) *Service {
	if opts.Pacing <= 0 {
		opts.Pacing = 1500 * time.Millisecond
	}
	if opts.ScreenerEvery <= 0 {
		opts.ScreenerEvery = 3
	}
	if opts.ScreenerLimit <= 0 {
		opts.ScreenerLimit = 10
	}
	return &Service{
		opts:      opts,
		cal:       cal,
		bars:      bars,
		sentiment: sentiment,
		screener:  screener,
		notifier:  notifier,
		signals:   signals,
		cycles:    cycles,
		model:     mdl,
		universe:  universe,
		policies:  policies,
		intervals: intervals,
		rec:       rec,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

var _ scheduler.CycleFunc = (*Service)(nil).Cycle

// Announce sends the startup banner through the notifier, best effort.
func (s *Service) Announce(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyText(ctx, text); err != nil {
		s.logger.Warn().Err(err).Msg("startup announcement failed")
	}
}

// Cycle runs one full scan pass and reports the wait tier for the next.
func (s *Service) Cycle(ctx context.Context, n int) (scheduler.WaitHint, error) {
	started := time.Now()
	hint := s.waitHint(started)

	assets := s.eligibleAssets(ctx, n, started)
	if len(assets) == 0 {
		s.logger.Info().Int("cycle", n).Msg("no eligible assets this cycle")
		s.recordCycle(ctx, started, 0, 0, 0)
		return hint, nil
	}

	var evaluated, failed, emitted int
	for i, asset := range assets {
		if i > 0 {
			if err := sleepCtx(ctx, s.opts.Pacing); err != nil {
				return hint, err
			}
		}
		if ctx.Err() != nil {
			return hint, ctx.Err()
		}

		evaluated++
		s.rec.RecordEvaluation()

		fired, err := s.evaluateAsset(ctx, asset)
		if err != nil {
			failed++
			s.rec.RecordFailure(asset.Symbol)
			s.logger.Warn().Err(err).Str("symbol", asset.Symbol).Msg("evaluation failed; skipping asset")
			continue
		}
		if fired {
			emitted++
		}
	}

	s.recordCycle(ctx, started, evaluated, failed, emitted)

	s.logger.Info().
		Int("cycle", n).
		Int("evaluated", evaluated).
		Int("failed", failed).
		Int("signals", emitted).
		Dur("took", time.Since(started)).
		Msg("cycle finished")

	if evaluated > 0 && failed == evaluated {
		return hint, errors.New("all asset evaluations failed")
	}
	return hint, nil
}

// waitHint maps session state to the scheduler tier.
func (s *Service) waitHint(at time.Time) scheduler.WaitHint {
	if s.opts.PrimarySession != "" && s.cal.IsSessionOpen(s.opts.PrimarySession, at) {
		return scheduler.WaitPrimary
	}
	if s.cal.AnyOpen(s.opts.SecondarySessions, at) && len(s.opts.SecondarySessions) > 0 {
		return scheduler.WaitSecondary
	}
	return scheduler.WaitOffHours
}

// eligibleAssets builds this cycle's scan list: open-session universe
// members plus screener candidates, deduplicated by symbol.
func (s *Service) eligibleAssets(ctx context.Context, cycle int, at time.Time) []market.Asset {
	assets := make([]market.Asset, 0, len(s.universe)+len(s.candidates))
	for _, a := range s.universe {
		if a.AlwaysEligible() || s.cal.AnyOpen(a.Sessions, at) {
			assets = append(assets, a)
		}
	}

	if s.screener != nil && cycle%s.opts.ScreenerEvery == 0 {
		if s.opts.ScreenerSession == "" || s.cal.IsSessionOpen(s.opts.ScreenerSession, at) {
			found, err := s.screener.FetchCandidates(ctx, s.opts.ScreenerLimit)
			if err != nil {
				s.logger.Warn().Err(err).Msg("screener fetch failed; keeping previous candidates")
			} else {
				s.candidates = found
			}
		}
	}
	for _, a := range s.candidates {
		if a.AlwaysEligible() || s.cal.AnyOpen(a.Sessions, at) {
			assets = append(assets, a)
		}
	}

	return market.Dedupe(assets)
}

// evaluateAsset runs the full pipeline for one asset. The returned bool
// reports whether a signal was emitted.
func (s *Service) evaluateAsset(ctx context.Context, asset market.Asset) (bool, error) {
	spec := s.intervalFor(asset.Class)

	bars, err := s.bars.FetchBars(ctx, asset.Symbol, spec.Interval, spec.Lookback)
	if err != nil {
		return false, fmt.Errorf("fetch bars: %w", err)
	}

	snapshot, err := features.Compute(bars)
	if err != nil {
		return false, fmt.Errorf("compute features: %w", err)
	}

	sentiment := 0.0
	if s.sentiment != nil {
		if v, err := s.sentiment.FetchSentiment(ctx, asset.Symbol); err != nil {
			s.logger.Debug().Err(err).Str("symbol", asset.Symbol).Msg("sentiment unavailable; using neutral")
		} else {
			sentiment = v
		}
	}

	estimate := s.model.Estimate(bars, asset.Class, sentiment)
	s.rec.RecordProbability(asset.Symbol, estimate.Final)

	policy := s.policyFor(asset.Class)
	decision := gate.Evaluate(asset, estimate, snapshot, policy, time.Now())

	s.logger.Debug().
		Str("symbol", asset.Symbol).
		Float64("probability", decision.Probability).
		Bool("pass", decision.Pass).
		Msg("asset evaluated")

	if !decision.Pass {
		return false, nil
	}

	s.emit(ctx, decision, policy)
	return true, nil
}

// emit delivers and persists a passing decision. Delivery and persistence
// failures are logged but do not fail the asset: the signal already
// happened.
func (s *Service) emit(ctx context.Context, decision gate.Decision, policy gate.Policy) {
	s.rec.RecordSignal(decision.Asset.Symbol, string(decision.Asset.Class))

	s.logger.Info().
		Str("symbol", decision.Asset.Symbol).
		Str("class", string(decision.Asset.Class)).
		Float64("probability", decision.Probability).
		Strs("conditions", decision.Satisfied()).
		Msg("high probability signal")

	if s.notifier != nil {
		note := alerting.Notification{
			Asset:       decision.Asset,
			Price:       decision.Price,
			Probability: decision.Probability,
			Threshold:   policy.ProbabilityThreshold,
			Conditions:  decision.Conditions,
			At:          decision.EvaluatedAt,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("symbol", decision.Asset.Symbol).Msg("alert delivery failed")
		}
	}

	if s.signals != nil {
		record := storage.SignalRecord{
			Symbol:      decision.Asset.Symbol,
			Name:        decision.Asset.Name,
			Class:       string(decision.Asset.Class),
			Price:       decision.Price,
			Probability: decision.Probability,
			Threshold:   policy.ProbabilityThreshold,
			Conditions:  decision.Satisfied(),
			EvaluatedAt: decision.EvaluatedAt,
		}
		if _, err := s.signals.InsertSignal(ctx, record); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
			s.logger.Error().Err(err).Str("symbol", decision.Asset.Symbol).Msg("signal persistence failed")
		}
	}
}

func (s *Service) recordCycle(ctx context.Context, started time.Time, evaluated, failed, emitted int) {
	s.rec.RecordCycle(time.Since(started).Seconds())

	if s.cycles == nil {
		return
	}
	open := make([]string, 0, 4)
	for id, state := range s.cal.Status(started) {
		if state.Open {
			open = append(open, id)
		}
	}
	record := storage.CycleRecord{
		StartedAt:       started,
		FinishedAt:      time.Now(),
		AssetsEvaluated: evaluated,
		AssetsFailed:    failed,
		SignalsEmitted:  emitted,
		SessionsOpen:    open,
	}
	if _, err := s.cycles.InsertCycle(ctx, record); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		s.logger.Error().Err(err).Msg("cycle persistence failed")
	}
}

func (s *Service) policyFor(class market.AssetClass) gate.Policy {
	if p, ok := s.policies[class]; ok {
		return p
	}
	return s.policies[market.ClassDefault]
}

func (s *Service) intervalFor(class market.AssetClass) IntervalSpec {
	if spec, ok := s.intervals[class]; ok {
		return spec
	}
	if spec, ok := s.intervals[market.ClassDefault]; ok {
		return spec
	}
	return IntervalSpec{Interval: "1hour", Lookback: 30 * 24 * time.Hour}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
