package cointegration

import (
	"math/rand"
	"time"

	"github.com/yourusername/pairs-trader/internal/models"
)

var testStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func toSeries(values []float64) models.PriceSeries {
	series := make(models.PriceSeries, len(values))
	for i, v := range values {
		series[i] = models.PricePoint{Time: testStart.AddDate(0, 0, i), Price: v}
	}
	return series
}

func randomWalk(rng *rand.Rand, n int, start, sd float64) []float64 {
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + rng.NormFloat64()*sd
	}
	return out
}

// cointegratedPair returns A = beta·B + u with u an AR(1) process
func cointegratedPair(rng *rand.Rand, n int, beta, phi float64) ([]float64, []float64) {
	b := randomWalk(rng, n, 100, 1)
	a := make([]float64, n)
	u := 0.0
	for i := 0; i < n; i++ {
		u = phi*u + rng.NormFloat64()
		a[i] = beta*b[i] + u
	}
	return a, b
}

func testConfig() Config {
	return Config{
		Window:         250,
		Significance:   0.05,
		MinCorrelation: 0,
		MinHalfLife:    1,
		MaxHalfLife:    500,
		MaxADFLag:      -1,
		MaxPairs:       10,
	}
}

type fakeEvaluator struct {
	results map[string]Result
	calls   int
	windows [][2]time.Time
}

func (f *fakeEvaluator) Evaluate(pair models.Pair, a, b models.PriceSeries, window int) (Result, error) {
	f.calls++
	if len(a) > 0 {
		f.windows = append(f.windows, [2]time.Time{a[0].Time, a[len(a)-1].Time})
	}
	if res, ok := f.results[pair.ID()]; ok {
		return res, nil
	}
	return Result{Pair: pair}, nil
}
