// Package metrics provides centralized Prometheus metrics registry for the pairs trader.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pairs_trader"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	BarsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bars_processed_total",
		Help:      "Total number of bars processed by the backtest engine",
	})
	FillsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fills_total",
		Help:      "Total number of simulated fills by side",
	}, []string{"side"})
	TradesClosedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_closed_total",
		Help:      "Total number of round trips closed by exit reason",
	}, []string{"reason"})
	FilterResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filter_resets_total",
		Help:      "Total number of hedge-ratio filter resets after divergence",
	})
	KillSwitchTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kill_switch_trips_total",
		Help:      "Total number of drawdown kill switch trips",
	})
	EntriesRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_rejected_total",
		Help:      "Total number of entry signals rejected by the risk manager",
	}, []string{"reason"})
)

// Gauge metrics
var (
	CurrentEquity = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_equity",
		Help:      "Mark-to-market equity of the running backtest",
	})
	CurrentDrawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_drawdown",
		Help:      "Fractional drawdown from peak equity",
	})
	OpenPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_positions",
		Help:      "Number of currently open pair positions",
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(BarsProcessedTotal)
		registry.MustRegister(FillsTotal)
		registry.MustRegister(TradesClosedTotal)
		registry.MustRegister(FilterResetsTotal)
		registry.MustRegister(KillSwitchTripsTotal)
		registry.MustRegister(EntriesRejectedTotal)

		// Register gauge metrics
		registry.MustRegister(CurrentEquity)
		registry.MustRegister(CurrentDrawdown)
		registry.MustRegister(OpenPositions)

		// Register screening and backtest metrics
		registry.MustRegister(PairsScreenedTotal)
		registry.MustRegister(ScreenDuration)
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(BacktestSharpeRatio)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordBarProcessed records one processed bar.
func RecordBarProcessed() {
	BarsProcessedTotal.Inc()
}

// RecordFill records a simulated fill.
func RecordFill(side string) {
	FillsTotal.WithLabelValues(side).Inc()
}

// RecordTradeClosed records a closed round trip.
func RecordTradeClosed(reason string) {
	TradesClosedTotal.WithLabelValues(reason).Inc()
}

// RecordFilterReset records a hedge-ratio filter reset.
func RecordFilterReset() {
	FilterResetsTotal.Inc()
}

// RecordKillSwitchTrip records a kill switch trip event.
func RecordKillSwitchTrip() {
	KillSwitchTripsTotal.Inc()
}

// RecordEntryRejected records a risk rejection.
func RecordEntryRejected(reason string) {
	EntriesRejectedTotal.WithLabelValues(reason).Inc()
}

// UpdateEquity updates the equity and drawdown gauges.
func UpdateEquity(equity, drawdown float64) {
	CurrentEquity.Set(equity)
	CurrentDrawdown.Set(drawdown)
}

// UpdateOpenPositions updates the open positions gauge.
func UpdateOpenPositions(count int) {
	OpenPositions.Set(float64(count))
}
