package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRecommendation(t *testing.T) {
	tests := []struct {
		name        string
		score       float64
		consistency float64
		historical  float64
		walkForward float64
		want        string
	}{
		{name: "strong", score: 0.8, consistency: 0.7, historical: 0.1, walkForward: 0.05, want: RecommendAccept},
		{name: "low score", score: 0.3, consistency: 0.7, historical: 0.1, walkForward: 0.05, want: RecommendReject},
		{name: "losing history", score: 0.8, consistency: 0.7, historical: -0.1, walkForward: 0.05, want: RecommendReject},
		{name: "middling", score: 0.6, consistency: 0.5, historical: 0.1, walkForward: 0.05, want: RecommendReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateRecommendation(tt.score, tt.consistency, tt.historical, tt.walkForward))
		})
	}
}

func TestCalculateCompositeScoreBounds(t *testing.T) {
	best := CalculateCompositeScore(Metrics{SharpeRatio: 5, TotalReturn: 2, ProfitFactor: 10, WinRate: 1})
	assert.InDelta(t, 1.0, best, 1e-12)

	worst := CalculateCompositeScore(Metrics{SharpeRatio: -5, TotalReturn: -1, MaxDrawdown: 0.9})
	assert.InDelta(t, 0.0, worst, 1e-12)
}

func TestAggregateResultsWithoutWalkForward(t *testing.T) {
	result := &Result{Metrics: Metrics{SharpeRatio: 1, TotalReturn: 0.1, ProfitFactor: 1.5, WinRate: 0.55, MaxDrawdown: 0.05}}
	mc := MonteCarloResult{MeanReturn: 0.1}

	agg := AggregateResults(result, mc, nil, DefaultWeights())
	assert.Zero(t, agg.Weights.WalkForward)
	assert.Nil(t, agg.WalkForwardResult)

	historical := CalculateCompositeScore(result.Metrics)
	monteCarlo := normalize(0.1, -0.5, 1.0)
	assert.InDelta(t, (historical*0.5+monteCarlo*0.25)/0.75, agg.CompositeScore, 1e-12)
}
