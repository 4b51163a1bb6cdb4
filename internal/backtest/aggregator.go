package backtest

import (
	"math"
)

// Recommendation values
const (
	RecommendAccept = "ACCEPT"
	RecommendReview = "NEEDS_REVIEW"
	RecommendReject = "REJECT"
)

// AggregatedResult combines the replay, bootstrap and walk-forward views of one configuration
type AggregatedResult struct {
	RunID                   string             `json:"run_id"`
	HistoricalReplayMetrics Metrics            `json:"historical_replay_metrics"`
	MonteCarloResult        MonteCarloResult   `json:"monte_carlo_result"`
	WalkForwardResult       *WalkForwardResult `json:"walk_forward_result,omitempty"`
	CompositeScore          float64            `json:"composite_score"`
	Weights                 AggregationWeights `json:"weights"`
	Recommendation          string             `json:"recommendation"`
}

// AggregationWeights define weighting per method
type AggregationWeights struct {
	HistoricalReplay float64 `json:"historical_replay"`
	MonteCarlo       float64 `json:"monte_carlo"`
	WalkForward      float64 `json:"walk_forward"`
}

// DefaultWeights returns the standard weighting
func DefaultWeights() AggregationWeights {
	return AggregationWeights{HistoricalReplay: 0.5, MonteCarlo: 0.25, WalkForward: 0.25}
}

// AggregateResults combines the methods into one score. Without a
// walk-forward result its weight is redistributed to the other two.
func AggregateResults(result *Result, monteCarlo MonteCarloResult, walkForward *WalkForwardResult, weights AggregationWeights) AggregatedResult {
	historical := result.Metrics
	historicalScore := CalculateCompositeScore(historical)
	monteCarloScore := normalize(monteCarlo.MeanReturn, -0.5, 1.0) * (1 - monteCarlo.ProbabilityOfRuin)

	w := weights
	walkForwardScore, consistency, wfReturn := 0.0, 1.0, historical.TotalReturn
	if walkForward != nil {
		walkForwardScore = normalize(walkForward.AggregatedMetrics.TotalReturn, -0.5, 1.0)
		consistency = walkForward.ConsistencyScore
		wfReturn = walkForward.AggregatedMetrics.TotalReturn
	} else {
		w.WalkForward = 0
	}
	total := w.HistoricalReplay + w.MonteCarlo + w.WalkForward
	composite := 0.0
	if total > 0 {
		composite = (historicalScore*w.HistoricalReplay + monteCarloScore*w.MonteCarlo + walkForwardScore*w.WalkForward) / total
	}

	return AggregatedResult{
		RunID:                   result.RunID.String(),
		HistoricalReplayMetrics: historical,
		MonteCarloResult:        monteCarlo,
		WalkForwardResult:       walkForward,
		CompositeScore:          composite,
		Weights:                 w,
		Recommendation:          GenerateRecommendation(composite, consistency, historical.TotalReturn, wfReturn),
	}
}

// CalculateCompositeScore calculates a [0, 1] quality score from metrics
func CalculateCompositeScore(metrics Metrics) float64 {
	sharpeScore := normalize(metrics.SharpeRatio, -2, 3)
	returnScore := normalize(metrics.TotalReturn, -0.5, 1.0)
	profitFactorScore := normalize(metrics.ProfitFactor, 0, 3)
	drawdownPenalty := 1.0 - normalize(metrics.MaxDrawdown, 0, 0.5)
	winRateScore := normalize(metrics.WinRate, 0, 1)

	weighted := 0.0
	weighted += sharpeScore * 0.30
	weighted += returnScore * 0.20
	weighted += profitFactorScore * 0.20
	weighted += drawdownPenalty * 0.15
	weighted += winRateScore * 0.15
	return weighted
}

// GenerateRecommendation determines if the configuration is acceptable
func GenerateRecommendation(score, consistency, historicalReturn, walkForwardReturn float64) string {
	if score > 0.7 && historicalReturn > 0 && walkForwardReturn > 0 && consistency > 0.6 {
		return RecommendAccept
	}
	if score < 0.4 || historicalReturn < 0 || walkForwardReturn < 0 || consistency < 0.4 {
		return RecommendReject
	}
	return RecommendReview
}

func normalize(value, min, max float64) float64 {
	if max-min == 0 {
		return 0
	}
	v := (value - min) / (max - min)
	return math.Max(0, math.Min(1, v))
}
