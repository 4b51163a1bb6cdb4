package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/pairs-trader/internal/models"
)

// WalkForwardConfig splits the bar history into consecutive windows. Each
// window warms up on TrainBars and is scored on the following TestBars.
type WalkForwardConfig struct {
	Windows            int
	TrainBars          int
	TestBars           int
	MinTradesPerWindow int
}

// WalkForwardWindow represents one walk-forward window
type WalkForwardWindow struct {
	WindowID     int       `json:"window_id"`
	TrainStart   time.Time `json:"train_start"`
	TrainEnd     time.Time `json:"train_end"`
	TestStart    time.Time `json:"test_start"`
	TestEnd      time.Time `json:"test_end"`
	TrainTrades  int       `json:"train_trades"`
	TestTrades   int       `json:"test_trades"`
	TrainMetrics Metrics   `json:"train_metrics"`
	TestMetrics  Metrics   `json:"test_metrics"`
}

// WalkForwardResult represents walk-forward result
type WalkForwardResult struct {
	Windows           []WalkForwardWindow `json:"windows"`
	AggregatedMetrics Metrics             `json:"aggregated_metrics"`
	ConsistencyScore  float64             `json:"consistency_score"`
	OverfitScore      float64             `json:"overfit_score"`
}

// WalkForwardConfigFrom sizes the windows so that cfg.WalkForwardWindows of
// them cover the bars. The training slice is at least one screening window.
func WalkForwardConfigFrom(cfg BacktestConfig, bars int) (WalkForwardConfig, error) {
	n := cfg.WalkForwardWindows
	if n <= 0 {
		return WalkForwardConfig{}, models.Errorf(models.ErrConfiguration, "walk-forward windows must be positive")
	}
	span := bars / n
	train := cfg.Cointegration.Window
	if span <= train {
		return WalkForwardConfig{}, models.Errorf(models.ErrInsufficientData,
			"%d bars cannot hold %d walk-forward windows of more than %d bars", bars, n, train)
	}
	return WalkForwardConfig{Windows: n, TrainBars: train, TestBars: span - train}, nil
}

// RunWalkForward runs an independent backtest per window. The test slice of
// a window is scored from a run over train+test, so the train bars only
// supply history and the test equity is measured from the end of training.
func RunWalkForward(ctx context.Context, engine *Engine, bars []models.Bar, pairs []models.Pair, cfg WalkForwardConfig) (WalkForwardResult, error) {
	if engine == nil {
		return WalkForwardResult{}, fmt.Errorf("engine is required")
	}
	if cfg.TrainBars <= 0 || cfg.TestBars <= 0 {
		return WalkForwardResult{}, models.Errorf(models.ErrConfiguration, "walk-forward train and test bars must be positive")
	}

	windows := []WalkForwardWindow{}
	step := cfg.TrainBars + cfg.TestBars
	for id, start := 1, 0; start+step <= len(bars); id, start = id+1, start+step {
		if cfg.Windows > 0 && id > cfg.Windows {
			break
		}
		trainBars := bars[start : start+cfg.TrainBars]
		fullBars := bars[start : start+step]

		train, err := engine.Run(ctx, trainBars, pairs)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("window %d train: %w", id, err)
		}
		full, err := engine.Run(ctx, fullBars, pairs)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("window %d test: %w", id, err)
		}

		testStart := fullBars[cfg.TrainBars].Time
		split := splitCurve(full.EquityCurve, testStart)
		if split == 0 || split == len(full.EquityCurve) {
			continue
		}
		testCurve := full.EquityCurve[split:]
		testTrades := tradesAfter(full.Trades, testStart)
		cfgTest := engine.Config()
		cfgTest.InitialCapital = full.EquityCurve[split-1].Equity

		window := WalkForwardWindow{
			WindowID:     id,
			TrainStart:   trainBars[0].Time,
			TrainEnd:     trainBars[len(trainBars)-1].Time,
			TestStart:    testStart,
			TestEnd:      fullBars[len(fullBars)-1].Time,
			TrainTrades:  len(train.Trades),
			TestTrades:   len(testTrades),
			TrainMetrics: train.Metrics,
			TestMetrics:  CalculateMetrics(testCurve, testTrades, nil, cfgTest),
		}
		if cfg.MinTradesPerWindow > 0 && window.TestTrades < cfg.MinTradesPerWindow {
			continue
		}
		windows = append(windows, window)
	}

	return WalkForwardResult{
		Windows:           windows,
		AggregatedMetrics: aggregateWalkForward(windows),
		ConsistencyScore:  CalculateConsistency(windows),
		OverfitScore:      calculateOverfitScore(windows),
	}, nil
}

// splitCurve returns the index of the first point at or after t
func splitCurve(curve EquityCurve, t time.Time) int {
	for i, p := range curve {
		if !p.Time.Before(t) {
			return i
		}
	}
	return len(curve)
}

func tradesAfter(trades []models.Trade, from time.Time) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.ExitTime.Before(from) {
			out = append(out, t)
		}
	}
	return out
}

// CalculateConsistency calculates percentage of profitable windows
func CalculateConsistency(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	profitable := 0
	for _, w := range windows {
		if w.TestMetrics.TotalReturn > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(windows))
}

// calculateOverfitScore compares in-sample and out-of-sample Sharpe. Zero
// means the test windows held up as well as training.
func calculateOverfitScore(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	trainSharpe := 0.0
	testSharpe := 0.0
	for _, w := range windows {
		trainSharpe += w.TrainMetrics.SharpeRatio
		testSharpe += w.TestMetrics.SharpeRatio
	}
	if trainSharpe == 0 {
		return 0
	}
	return (trainSharpe - testSharpe) / trainSharpe
}

func aggregateWalkForward(windows []WalkForwardWindow) Metrics {
	if len(windows) == 0 {
		return Metrics{}
	}
	metrics := Metrics{}
	for _, w := range windows {
		metrics.TotalReturn += w.TestMetrics.TotalReturn
		metrics.SharpeRatio += w.TestMetrics.SharpeRatio
		metrics.MaxDrawdown += w.TestMetrics.MaxDrawdown
		metrics.WinRate += w.TestMetrics.WinRate
		metrics.TotalTrades += w.TestMetrics.TotalTrades
	}
	n := float64(len(windows))
	metrics.TotalReturn /= n
	metrics.SharpeRatio /= n
	metrics.MaxDrawdown /= n
	metrics.WinRate /= n
	return metrics
}
