package backtest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pairs-trader/internal/cointegration"
	"github.com/yourusername/pairs-trader/internal/models"
)

func TestRunEndToEndSyntheticPair(t *testing.T) {
	cfg := testConfig()
	bars := spreadBars(11, 500, 1.5, 0.7)

	result, err := newTestEngine(t, cfg).Run(context.Background(), bars, nil)
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, result.Phase)
	assert.False(t, result.Interrupted)
	assert.Equal(t, []string{"A/B"}, result.Pairs)
	require.Len(t, result.EquityCurve, len(bars))

	obs := result.Observations["A/B"]
	require.Greater(t, len(obs), 50)
	for i := 50; i < len(obs); i++ {
		require.InDelta(t, 1.5, obs[i].Beta, 0.2, "observation %d", i)
	}

	assert.GreaterOrEqual(t, completedTrades(result.Trades), 1)
	m := result.Metrics
	assert.False(t, math.IsNaN(m.ProfitFactor) || math.IsInf(m.ProfitFactor, 0))
	assert.False(t, math.IsNaN(m.GrossProfit) || math.IsInf(m.GrossProfit, 0))
	assert.False(t, math.IsNaN(m.GrossLoss) || math.IsInf(m.GrossLoss, 0))
	if m.LosingTrades > 0 {
		assert.Greater(t, m.GrossLoss, 0.0)
	}
	assert.Empty(t, ReplayLedger(cfg.InitialCapital, result.Ledger).Positions)
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := testConfig()
	bars := basketBars(5, 400)

	first, err := newTestEngine(t, cfg).Run(context.Background(), bars, nil)
	require.NoError(t, err)
	second, err := newTestEngine(t, cfg).Run(context.Background(), bars, nil)
	require.NoError(t, err)

	require.Equal(t, first.RunID, second.RunID)
	require.Equal(t, first.Ledger, second.Ledger)
	require.Equal(t, first.Trades, second.Trades)
	require.Equal(t, first.EquityCurve, second.EquityCurve)
	require.Equal(t, first.Metrics, second.Metrics)
	require.Equal(t, first.Diagnostics, second.Diagnostics)
}

func TestRunWorkerCountDoesNotChangeResults(t *testing.T) {
	bars := basketBars(9, 400)

	serialCfg := testConfig()
	serialCfg.Workers = 1
	serial, err := newTestEngine(t, serialCfg).Run(context.Background(), bars, nil)
	require.NoError(t, err)

	parallelCfg := testConfig()
	parallelCfg.Workers = 8
	parallel, err := newTestEngine(t, parallelCfg).Run(context.Background(), bars, nil)
	require.NoError(t, err)

	require.Len(t, serial.Pairs, 3)
	require.Equal(t, serial.RunID, parallel.RunID)
	require.Equal(t, serial.Ledger, parallel.Ledger)
	require.Equal(t, serial.Trades, parallel.Trades)
	require.Equal(t, serial.EquityCurve, parallel.EquityCurve)
	require.Equal(t, serial.Metrics, parallel.Metrics)
}

func TestLedgerReplayReproducesResult(t *testing.T) {
	cfg := testConfig()
	result, err := newTestEngine(t, cfg).Run(context.Background(), basketBars(21, 400), nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.Ledger)

	replay := ReplayLedger(cfg.InitialCapital, result.Ledger)
	assert.InDelta(t, result.FinalCash, replay.Cash, 1e-6)
	assert.Empty(t, replay.Positions)
	assert.InDelta(t, result.FinalEquity, replay.Equity(nil), 1e-6)
	assert.Equal(t, len(result.Ledger), replay.Fills)

	pnl := 0.0
	for _, tr := range result.Trades {
		pnl += tr.PnL
	}
	assert.InDelta(t, result.FinalCash-cfg.InitialCapital, pnl, 1e-6)
	assert.InDelta(t, result.RealizedPnL, pnl, 1e-6)

	last := result.EquityCurve[len(result.EquityCurve)-1]
	assert.InDelta(t, result.FinalEquity, last.Equity, 1e-9)
	assert.Equal(t, result.Metrics.MaxDrawdown, result.EquityCurve.MaxDrawdown(cfg.InitialCapital))
}

func TestRunPositionsNeverOverlap(t *testing.T) {
	result, err := newTestEngine(t, testConfig()).Run(context.Background(), basketBars(33, 400), nil)
	require.NoError(t, err)

	byPair := make(map[string][]models.Trade)
	for _, tr := range result.Trades {
		byPair[tr.PairID] = append(byPair[tr.PairID], tr)
	}
	for pair, trades := range byPair {
		for i := 1; i < len(trades); i++ {
			assert.False(t, trades[i].EntryTime.Before(trades[i-1].ExitTime), "%s trade %d opened before previous closed", pair, i)
		}
	}
}

func TestRunNonCointegratedPairDoesNotTrade(t *testing.T) {
	cfg := testConfig()
	cfg.Cointegration.MinCorrelation = 0.5

	result, err := newTestEngine(t, cfg).Run(context.Background(), independentBars(4, 300), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Ledger)
	assert.Empty(t, result.Trades)
	assert.Equal(t, cfg.InitialCapital, result.FinalEquity)
	require.NotEmpty(t, result.Screens)
	assert.False(t, result.Screens[0].Cointegrated)

	found := false
	for _, d := range result.Diagnostics {
		if d.Kind == models.DiagNotCointegrated {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunSkipsPairOnMissingPrice(t *testing.T) {
	bars := spreadBars(11, 400, 1.5, 0.7)
	gap := bars[300].Time
	delete(bars[300].Prices, "B")

	result, err := newTestEngine(t, testConfig()).Run(context.Background(), bars, nil)
	require.NoError(t, err)

	assert.True(t, hasDiagnostic(result.Diagnostics, models.DiagMissingPrice, gap))
	for _, f := range result.Ledger {
		assert.False(t, f.Time.Equal(gap), "fill on missing bar")
	}
	for _, o := range result.Observations["A/B"] {
		assert.False(t, o.Time.Equal(gap), "observation on missing bar")
	}
	assert.Len(t, result.EquityCurve, len(bars))
}

func TestRunResetsFilterOnDivergence(t *testing.T) {
	bars := spreadBars(11, 400, 1.5, 0.7)
	bad := bars[300].Time
	bars[300].Prices["A"] = math.NaN()

	result, err := newTestEngine(t, testConfig()).Run(context.Background(), bars, nil)
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, result.Phase)
	assert.True(t, hasDiagnostic(result.Diagnostics, models.DiagFilterReset, bad))
	for _, o := range result.Observations["A/B"] {
		assert.False(t, o.Time.Equal(bad))
	}
	replay := ReplayLedger(testConfig().InitialCapital, result.Ledger)
	assert.InDelta(t, result.FinalCash, replay.Cash, 1e-6)
}

type cancelOnScreen struct {
	inner  cointegration.Evaluator
	cancel context.CancelFunc
}

func (c *cancelOnScreen) Evaluate(pair models.Pair, a, b models.PriceSeries, window int) (cointegration.Result, error) {
	c.cancel()
	return c.inner.Evaluate(pair, a, b, window)
}

func TestRunInterruptedKeepsCommittedState(t *testing.T) {
	cfg := testConfig()
	inner, err := cointegration.NewScreener(cfg.Cointegration, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine, err := NewEngine(cfg, &cancelOnScreen{inner: inner, cancel: cancel}, quietLogger())
	require.NoError(t, err)

	result, err := engine.Run(ctx, spreadBars(11, 400, 1.5, 0.7), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInterrupted))
	require.NotNil(t, result)

	assert.True(t, result.Interrupted)
	assert.Equal(t, PhaseRunning, result.Phase)
	assert.Len(t, result.EquityCurve, cfg.Cointegration.Window)
	for _, tr := range result.Trades {
		assert.NotEqual(t, models.ExitEndOfBacktest, tr.ExitReason)
	}
	assert.InDelta(t, result.FinalCash, ReplayLedger(cfg.InitialCapital, result.Ledger).Cash, 1e-9)
}

func TestRunKillSwitchBlocksEntries(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.MaxDrawdown = 2e-5
	cfg.Risk.RearmDrawdown = 1e-5

	result, err := newTestEngine(t, cfg).Run(context.Background(), spreadBars(11, 500, 1.5, 0.7), nil)
	require.NoError(t, err)

	events := make(map[time.Time]bool)
	trips := 0
	for _, d := range result.Diagnostics {
		if d.Kind != models.DiagKillSwitch {
			continue
		}
		tripped := strings.HasPrefix(d.Detail, "TRIPPED")
		if tripped {
			trips++
		}
		events[d.Time] = tripped
	}
	require.Greater(t, trips, 0)

	openings := make(map[time.Time]bool)
	for _, f := range result.Ledger {
		if f.Opening {
			openings[f.Time] = true
		}
	}
	blocked := false
	for _, p := range result.EquityCurve {
		if state, ok := events[p.Time]; ok {
			blocked = state
		}
		if blocked {
			assert.False(t, openings[p.Time], "entry at %s while kill switch tripped", p.Time)
		}
	}
}

func TestRunRescreensOnSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.RescreenSchedule = "0 0 1 * *"

	result, err := newTestEngine(t, cfg).Run(context.Background(), spreadBars(11, 500, 1.5, 0.7), nil)
	require.NoError(t, err)
	assert.Greater(t, len(result.Screens), 5)
	for i := 1; i < len(result.Screens); i++ {
		assert.True(t, result.Screens[i].EvaluatedAt.After(result.Screens[i-1].EvaluatedAt) ||
			result.Screens[i].EvaluatedAt.Equal(result.Screens[i-1].EvaluatedAt))
	}
}

func TestRunAppliesDateRange(t *testing.T) {
	bars := spreadBars(11, 400, 1.5, 0.7)
	cfg := testConfig()
	cfg.StartDate = bars[100].Time
	cfg.EndDate = bars[349].Time

	result, err := newTestEngine(t, cfg).Run(context.Background(), bars, nil)
	require.NoError(t, err)
	require.Len(t, result.EquityCurve, 250)
	assert.Equal(t, bars[100].Time, result.EquityCurve[0].Time)
	assert.Equal(t, bars[349].Time, result.Metrics.EndDate)
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.RearmDrawdown = cfg.Risk.MaxDrawdown

	_, err := NewEngine(cfg, nil, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	cfg = testConfig()
	cfg.RescreenSchedule = "every tuesday"
	_, err = NewEngine(cfg, nil, quietLogger())
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestRunRejectsUnorderedBars(t *testing.T) {
	bars := spreadBars(11, 10, 1.5, 0.7)
	bars[3], bars[4] = bars[4], bars[3]

	_, err := newTestEngine(t, testConfig()).Run(context.Background(), bars, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestRunFillIdentifiersAreUnique(t *testing.T) {
	result, err := newTestEngine(t, testConfig()).Run(context.Background(), basketBars(2, 400), nil)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, f := range result.Ledger {
		require.False(t, seen[f.ID.String()], "duplicate fill id %s", f.ID)
		seen[f.ID.String()] = true
		assert.Greater(t, f.Quantity, 0.0)
		assert.InDelta(t, math.Abs(f.Price-f.MidPrice), f.Slippage, 1e-12)
	}
}
