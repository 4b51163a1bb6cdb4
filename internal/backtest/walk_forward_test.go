package backtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pairs-trader/internal/models"
)

func TestRunWalkForward(t *testing.T) {
	cfg := testConfig()
	cfg.WalkForwardWindows = 2
	bars := spreadBars(17, 600, 1.5, 0.7)

	wf, err := WalkForwardConfigFrom(cfg, len(bars))
	require.NoError(t, err)
	assert.Equal(t, 150, wf.TrainBars)
	assert.Equal(t, 150, wf.TestBars)

	result, err := RunWalkForward(context.Background(), newTestEngine(t, cfg), bars, nil, wf)
	require.NoError(t, err)
	require.Len(t, result.Windows, 2)

	first := result.Windows[0]
	assert.Equal(t, 1, first.WindowID)
	assert.Equal(t, bars[0].Time, first.TrainStart)
	assert.Equal(t, bars[150].Time, first.TestStart)
	assert.Equal(t, bars[299].Time, first.TestEnd)
	assert.Equal(t, 150, first.TrainMetrics.Periods)
	assert.Equal(t, 150, first.TestMetrics.Periods)
	assert.Equal(t, bars[300].Time, result.Windows[1].TrainStart)

	assert.GreaterOrEqual(t, result.ConsistencyScore, 0.0)
	assert.LessOrEqual(t, result.ConsistencyScore, 1.0)
}

func TestWalkForwardConfigFromRejectsShortHistory(t *testing.T) {
	cfg := testConfig()
	cfg.WalkForwardWindows = 0
	_, err := WalkForwardConfigFrom(cfg, 1000)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	cfg.WalkForwardWindows = 4
	_, err = WalkForwardConfigFrom(cfg, 400)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
}

func TestRunWalkForwardRequiresEngine(t *testing.T) {
	_, err := RunWalkForward(context.Background(), nil, nil, nil, WalkForwardConfig{TrainBars: 1, TestBars: 1})
	assert.Error(t, err)
}

func TestCalculateConsistency(t *testing.T) {
	windows := []WalkForwardWindow{
		{TestMetrics: Metrics{TotalReturn: 0.02}},
		{TestMetrics: Metrics{TotalReturn: -0.01}},
		{TestMetrics: Metrics{TotalReturn: 0.03}},
		{TestMetrics: Metrics{TotalReturn: 0.00}},
	}
	assert.InDelta(t, 0.5, CalculateConsistency(windows), 1e-12)
	assert.Zero(t, CalculateConsistency(nil))
}

func TestOverfitScore(t *testing.T) {
	windows := []WalkForwardWindow{
		{TrainMetrics: Metrics{SharpeRatio: 2}, TestMetrics: Metrics{SharpeRatio: 1}},
		{TrainMetrics: Metrics{SharpeRatio: 2}, TestMetrics: Metrics{SharpeRatio: 0}},
	}
	assert.InDelta(t, 0.75, calculateOverfitScore(windows), 1e-12)
}
