package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/pairs-trader/internal/models"
)

// defaultMonteCarloSeed keeps unseeded configurations reproducible
const defaultMonteCarloSeed int64 = 42

// MonteCarloConfig configures the trade bootstrap
type MonteCarloConfig struct {
	Iterations     int
	Seed           int64
	InitialCapital float64
	// RuinThreshold is the fraction of initial capital at or below which a path is ruined
	RuinThreshold float64
}

// MonteCarloResult summarizes the bootstrapped distribution of final equity
type MonteCarloResult struct {
	Iterations          int                `json:"iterations"`
	Trades              int                `json:"trades"`
	MeanReturn          float64            `json:"mean_return"`
	StdReturn           float64            `json:"std_return"`
	VaR95               float64            `json:"var_95"`
	VaR99               float64            `json:"var_99"`
	MeanMaxDrawdown     float64            `json:"mean_max_drawdown"`
	WorstMaxDrawdown    float64            `json:"worst_max_drawdown"`
	ProbabilityOfProfit float64            `json:"probability_of_profit"`
	ProbabilityOfRuin   float64            `json:"probability_of_ruin"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
	Distribution        []float64          `json:"distribution"`
}

// MonteCarloConfigFrom derives the bootstrap configuration from a run config
func MonteCarloConfigFrom(cfg BacktestConfig) MonteCarloConfig {
	return MonteCarloConfig{
		Iterations:     cfg.MonteCarloIterations,
		Seed:           cfg.MonteCarloSeed,
		InitialCapital: cfg.InitialCapital,
		RuinThreshold:  0.5,
	}
}

// RunMonteCarlo resamples closed-trade P&L with replacement and reports the
// distribution of returns. The same seed always yields the same result.
func RunMonteCarlo(ctx context.Context, trades []models.Trade, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1000
	}
	if !(cfg.InitialCapital > 0) {
		return MonteCarloResult{}, models.Errorf(models.ErrConfiguration, "monte carlo initial capital must be positive")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = defaultMonteCarloSeed
	}

	result := MonteCarloResult{Iterations: cfg.Iterations, Trades: len(trades)}
	if len(trades) == 0 {
		result.ConfidenceIntervals = map[string]float64{}
		return result, nil
	}

	pnl := make([]float64, len(trades))
	for i, t := range trades {
		pnl[i] = t.PnL
	}

	rng := rand.New(rand.NewSource(seed))
	returns := make([]float64, cfg.Iterations)
	drawdowns := make([]float64, cfg.Iterations)
	ruined, profitable := 0, 0
	ruinLevel := cfg.InitialCapital * cfg.RuinThreshold

	for i := 0; i < cfg.Iterations; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return MonteCarloResult{}, models.WrapError(models.ErrInterrupted, err)
			}
		}
		equity := cfg.InitialCapital
		peak := equity
		maxDD := 0.0
		hitRuin := false
		for range pnl {
			equity += pnl[rng.Intn(len(pnl))]
			if equity > peak {
				peak = equity
			}
			if peak > 0 {
				maxDD = math.Max(maxDD, (peak-equity)/peak)
			}
			if equity <= ruinLevel {
				hitRuin = true
			}
		}
		returns[i] = (equity - cfg.InitialCapital) / cfg.InitialCapital
		drawdowns[i] = maxDD
		if hitRuin {
			ruined++
		}
		if equity > cfg.InitialCapital {
			profitable++
		}
	}

	sorted := append([]float64{}, returns...)
	sort.Float64s(sorted)

	result.MeanReturn, result.StdReturn = stat.MeanStdDev(returns, nil)
	result.VaR95 = percentile(sorted, 0.05)
	result.VaR99 = percentile(sorted, 0.01)
	result.MeanMaxDrawdown = stat.Mean(drawdowns, nil)
	result.WorstMaxDrawdown = maxOf(drawdowns)
	result.ProbabilityOfProfit = float64(profitable) / float64(cfg.Iterations)
	result.ProbabilityOfRuin = float64(ruined) / float64(cfg.Iterations)
	result.ConfidenceIntervals = CalculateConfidenceIntervals(sorted, []float64{0.90, 0.95, 0.99})
	result.Distribution = returns
	return result, nil
}

// CalculateConfidenceIntervals returns the width of the central interval at
// each level. The distribution must be sorted ascending.
func CalculateConfidenceIntervals(sorted []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64, len(levels))
	for _, level := range levels {
		p := (1.0 - level) / 2.0
		results[formatPercent(level)] = percentile(sorted, 1.0-p) - percentile(sorted, p)
	}
	return results
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func maxOf(values []float64) float64 {
	out := math.Inf(-1)
	for _, v := range values {
		out = math.Max(out, v)
	}
	if math.IsInf(out, -1) {
		return 0
	}
	return out
}

func formatPercent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}
