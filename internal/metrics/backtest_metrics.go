// Package metrics defines backtesting-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Screening and backtest counter vectors
var (
	PairsScreenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairs_screened_total",
		Help:      "Total number of cointegration screens by outcome",
	}, []string{"result"})

	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by method and status",
	}, []string{"method", "status"})
)

// Backtest histograms
var (
	ScreenDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "screen_duration_seconds",
		Help:      "Duration of a single pair cointegration screen in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	BacktestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
	}, []string{"method"})
)

// Backtest gauge vectors
var (
	BacktestSharpeRatio = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_sharpe_ratio",
		Help:      "Annualized Sharpe ratio of the latest run by method",
	}, []string{"method"})
)

// RecordPairScreened records a screen outcome.
// result should be one of: "cointegrated", "rejected", "error"
func RecordPairScreened(result string, durationSeconds float64) {
	PairsScreenedTotal.WithLabelValues(result).Inc()
	ScreenDuration.Observe(durationSeconds)
}

// RecordBacktestRun records a backtest run event.
// method should be one of: "historical_replay", "monte_carlo", "walk_forward"
// status should be one of: "success", "failure", "interrupted"
func RecordBacktestRun(method, status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(method, status).Inc()
	BacktestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// UpdateSharpeRatio records the Sharpe ratio of the latest run.
func UpdateSharpeRatio(method string, sharpe float64) {
	BacktestSharpeRatio.WithLabelValues(method).Set(sharpe)
}
