package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"signal-scanner/internal/app"
)

var (
	scanSymbol   string
	scanClass    string
	scanInterval string
	scanLookback time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Evaluate a single symbol once and print the decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scanSymbol == "" {
			return fmt.Errorf("--symbol is required")
		}

		opts := app.ScanOptions{
			Symbol:   scanSymbol,
			Class:    scanClass,
			Interval: scanInterval,
			Lookback: scanLookback,
		}

		return getApp().Scan(cmd.Context(), opts)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanSymbol, "symbol", "", "Symbol to evaluate")
	scanCmd.Flags().StringVar(&scanClass, "class", "DEFAULT", "Asset class tag for threshold policy selection")
	scanCmd.Flags().StringVar(&scanInterval, "interval", "", "Bar interval override (defaults to class interval)")
	scanCmd.Flags().DurationVar(&scanLookback, "lookback", 0, "History window override (defaults to class lookback)")
}
