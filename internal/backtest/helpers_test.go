package backtest

import (
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pairs-trader/internal/models"
)

var testStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// spreadBars builds bars where A = beta·B + u, B is a random walk and u is
// an AR(1) process with coefficient phi.
func spreadBars(seed int64, n int, beta, phi float64) []models.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]models.Bar, n)
	b, u := 100.0, 0.0
	for i := range bars {
		if i > 0 {
			b += rng.NormFloat64()
		}
		u = phi*u + rng.NormFloat64()
		bars[i] = models.Bar{
			Time:   testStart.AddDate(0, 0, i),
			Prices: map[string]float64{"A": beta*b + u, "B": b},
		}
	}
	return bars
}

// basketBars adds a third instrument C = 0.8·B + 20 + v to spreadBars
func basketBars(seed int64, n int) []models.Bar {
	bars := spreadBars(seed, n, 1.5, 0.7)
	rng := rand.New(rand.NewSource(seed + 1))
	v := 0.0
	for i := range bars {
		v = 0.7*v + rng.NormFloat64()
		bars[i].Prices["C"] = 0.8*bars[i].Prices["B"] + 20 + v
	}
	return bars
}

// independentBars builds two unrelated random walks
func independentBars(seed int64, n int) []models.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]models.Bar, n)
	a, b := 100.0, 100.0
	for i := range bars {
		if i > 0 {
			a += rng.NormFloat64()
			b += rng.NormFloat64()
		}
		bars[i] = models.Bar{
			Time:   testStart.AddDate(0, 0, i),
			Prices: map[string]float64{"A": a, "B": b},
		}
	}
	return bars
}

func testConfig() BacktestConfig {
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Cointegration.Window = 150
	cfg.Cointegration.MinCorrelation = 0
	cfg.Cointegration.MinHalfLife = 1
	cfg.Cointegration.MaxHalfLife = 500
	return cfg
}

func newTestEngine(t *testing.T, cfg BacktestConfig) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, nil, quietLogger())
	require.NoError(t, err)
	return engine
}

func completedTrades(trades []models.Trade) int {
	n := 0
	for _, tr := range trades {
		if tr.ExitReason != models.ExitEndOfBacktest {
			n++
		}
	}
	return n
}

func hasDiagnostic(events []models.DiagnosticEvent, kind models.DiagnosticKind, at time.Time) bool {
	for _, e := range events {
		if e.Kind == kind && e.Time.Equal(at) {
			return true
		}
	}
	return false
}
