package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/pairs-trader/internal/backtest"
	"github.com/yourusername/pairs-trader/internal/cointegration"
	"github.com/yourusername/pairs-trader/internal/models"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen the universe for cointegrated pairs over the trailing window",
	RunE: func(cmd *cobra.Command, args []string) error {
		bt, err := backtest.FromConfig(cfg)
		if err != nil {
			return err
		}
		prices, err := loadPrices(cmd.Context(), bt)
		if err != nil {
			return err
		}

		screener, err := cointegration.NewScreener(bt.Cointegration, logger)
		if err != nil {
			return err
		}
		candidates := candidatePairs(cfg.Universe)
		if candidates == nil {
			candidates = models.CandidatePairs(prices.Instruments)
		}

		results, err := cointegration.ScreenUniverse(screener, prices.Bars, candidates, bt.Cointegration, logger)
		if err != nil {
			return err
		}
		printScreen(results)
		return nil
	},
}

func printScreen(results []cointegration.Result) {
	if len(results) == 0 {
		fmt.Println("No cointegrated pairs found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAIR\tADF\tHALF-LIFE\tHEDGE RATIO\tCORRELATION")
	for _, r := range results {
		halfLife := "-"
		if !math.IsInf(r.HalfLife, 0) && !math.IsNaN(r.HalfLife) {
			halfLife = fmt.Sprintf("%.1f", r.HalfLife)
		}
		fmt.Fprintf(w, "%s\t%.3f\t%s\t%.4f\t%.3f\n", r.Pair.ID(), r.Statistic, halfLife, r.HedgeRatio, r.Correlation)
	}
	w.Flush()
}
