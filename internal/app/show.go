package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent stored signals.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show signals")
	}
	if closeStore != nil {
		defer closeStore()
	}

	signals, err := store.ListRecentSignals(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(signals) == 0 {
		fmt.Fprintln(os.Stdout, "no signals found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tSymbol\tClass\tPrice\tProbability\tThreshold\tConditions")

	for _, sig := range signals {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%.1f%%\t%.0f%%\t%s\n",
			sig.EvaluatedAt.UTC().Format(time.RFC3339),
			sig.Symbol,
			sig.Class,
			sig.Price.StringFixed(4),
			sig.Probability*100,
			sig.Threshold*100,
			strings.Join(sig.Conditions, ","),
		)
	}

	writer.Flush()
	return nil
}
