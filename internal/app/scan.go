package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"signal-scanner/internal/features"
	"signal-scanner/internal/gate"
	"signal-scanner/internal/market"
	"signal-scanner/internal/model"
)

// Scan evaluates a single symbol once and prints the decision. Alerts and
// persistence are not involved; this is a diagnostic command.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	if opts.Symbol == "" {
		return fmt.Errorf("--symbol is required")
	}

	class := market.ParseAssetClass(opts.Class)
	asset := market.Asset{Symbol: opts.Symbol, Class: class}

	interval := opts.Interval
	lookback := opts.Lookback
	if interval == "" || lookback <= 0 {
		spec := a.Config.BuildIntervals()
		chosen, ok := spec[class]
		if !ok {
			chosen = spec[market.ClassDefault]
		}
		if interval == "" {
			interval = chosen.Interval
		}
		if lookback <= 0 {
			lookback = chosen.Lookback
		}
	}

	bars, err := a.newBarFetcher().FetchBars(ctx, opts.Symbol, interval, lookback)
	if err != nil {
		return fmt.Errorf("fetch bars: %w", err)
	}

	snapshot, err := features.Compute(bars)
	if err != nil {
		return fmt.Errorf("compute features: %w", err)
	}

	sentiment := 0.0
	if f := a.newSentimentFetcher(); f != nil {
		if v, err := f.FetchSentiment(ctx, opts.Symbol); err == nil {
			sentiment = v
		}
	}

	mdl := model.New(a.Config.Model, a.Logger)
	estimate := mdl.Estimate(bars, class, sentiment)

	policies := a.Config.BuildPolicies()
	policy, ok := policies[class]
	if !ok {
		policy = policies[market.ClassDefault]
	}

	decision := gate.Evaluate(asset, estimate, snapshot, policy, time.Now())

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Symbol\t%s\n", asset.Symbol)
	fmt.Fprintf(writer, "Class\t%s\n", asset.Class)
	fmt.Fprintf(writer, "Bars\t%d\n", len(bars))
	fmt.Fprintf(writer, "Close\t%s\n", decision.Price.StringFixed(4))
	fmt.Fprintf(writer, "Probability\t%.1f%% (base %.1f%%, multiplier %.2f, sentiment %+.3f)\n",
		estimate.Final*100, estimate.Base*100, estimate.Multiplier, estimate.Sentiment)
	if estimate.Neutral {
		fmt.Fprintln(writer, "Note\tmodel fit degenerate; neutral probability used")
	}
	fmt.Fprintf(writer, "Signal\t%v\n", decision.Pass)
	fmt.Fprintln(writer, "")
	fmt.Fprintln(writer, "Condition\tMet\tDetail")
	for _, c := range decision.Conditions {
		name := string(c.Condition)
		if c.Advisory {
			name += " (advisory)"
		}
		fmt.Fprintf(writer, "%s\t%v\t%s\n", name, c.Met, c.Detail)
	}
	return writer.Flush()
}
