package kalman

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pairs-trader/internal/models"
)

var testStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func syntheticPair(seed int64, n int, beta, phi float64) (models.PriceSeries, models.PriceSeries) {
	rng := rand.New(rand.NewSource(seed))
	a := make(models.PriceSeries, n)
	b := make(models.PriceSeries, n)
	price, u := 100.0, 0.0
	for i := 0; i < n; i++ {
		price += rng.NormFloat64()
		u = phi*u + rng.NormFloat64()
		ts := testStart.AddDate(0, 0, i)
		b[i] = models.PricePoint{Time: ts, Price: price}
		a[i] = models.PricePoint{Time: ts, Price: beta*price + u}
	}
	return a, b
}

func TestUpdateSingleStep(t *testing.T) {
	prev, err := Initialize(1, 0, Diagonal(1, 1))
	require.NoError(t, err)

	next, err := Update(prev, 3, 2, testStart, Noise{R: 1})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, next.Innovation, 1e-12)
	assert.InDelta(t, 6.0, next.InnovationVariance, 1e-12)
	assert.InDelta(t, 1+1.0/3, next.Beta, 1e-12)
	assert.InDelta(t, 1.0/6, next.Alpha, 1e-12)
	assert.InDelta(t, 1.0/3, next.Covariance[0][0], 1e-12)
	assert.InDelta(t, -1.0/3, next.Covariance[0][1], 1e-12)
	assert.InDelta(t, 5.0/6, next.Covariance[1][1], 1e-12)
	assert.InDelta(t, 1/math.Sqrt(6), next.ZScore(), 1e-12)
	assert.Equal(t, 1, next.Updates)
	assert.Equal(t, testStart, next.Time)
}

func TestUpdateDoesNotMutateInput(t *testing.T) {
	prev, err := Initialize(1.5, 2, Diagonal(0.5, 3))
	require.NoError(t, err)
	snapshot := prev

	_, err = Update(prev, 152, 100, testStart, Noise{QBeta: 1e-5, QAlpha: 1e-3, R: 2})
	require.NoError(t, err)
	assert.Equal(t, snapshot, prev)
}

func TestRunTruncationDeterminism(t *testing.T) {
	a, b := syntheticPair(42, 300, 1.5, 0.8)
	noise := Noise{QBeta: 1e-6, QAlpha: 1e-4, R: 2.8}
	prior, err := Initialize(1.4, 0, Diagonal(1e-2, 1))
	require.NoError(t, err)

	full, err := Run(prior, a, b, noise)
	require.NoError(t, err)
	require.Len(t, full, 300)

	for _, cut := range []int{1, 37, 150, 299} {
		truncated, err := Run(prior, a[:cut], b[:cut], noise)
		require.NoError(t, err)
		require.Equal(t, full[cut-1], truncated[cut-1], "cut=%d", cut)
	}

	// Stepping from the previous state reproduces the next state
	for i := 1; i < len(full); i++ {
		next, err := Update(full[i-1], a[i].Price, b[i].Price, a[i].Time, noise)
		require.NoError(t, err)
		require.Equal(t, full[i], next)
	}
}

func TestRunCovarianceStaysPSD(t *testing.T) {
	a, b := syntheticPair(7, 500, 2.0, 0.8)
	prior, err := Initialize(0, 0, Diagonal(10, 1000))
	require.NoError(t, err)

	states, err := Run(prior, a, b, Noise{QBeta: 1e-7, QAlpha: 1e-4, R: 2.8})
	require.NoError(t, err)

	for i, s := range states {
		require.Equal(t, s.Covariance[0][1], s.Covariance[1][0], "bar %d", i)
		require.True(t, s.Covariance.IsPSD(), "bar %d: %v", i, s.Covariance)
		require.Greater(t, s.InnovationVariance, 0.0)
	}
}

func TestRunConvergesToHedgeRatio(t *testing.T) {
	a, b := syntheticPair(3, 400, 2.0, 0.8)
	prior, err := Initialize(1.8, 0, Diagonal(1, 100))
	require.NoError(t, err)

	states, err := Run(prior, a, b, Noise{QBeta: 1e-7, QAlpha: 1e-4, R: 2.8})
	require.NoError(t, err)

	final := states[len(states)-1]
	assert.InDelta(t, 2.0, final.Beta, 0.1)
	assert.Less(t, final.Covariance[0][0], 1.0)
}

func TestUpdateDivergence(t *testing.T) {
	tests := []struct {
		name   string
		prev   State
		priceA float64
		priceB float64
		noise  Noise
	}{
		{name: "zero innovation variance", prev: State{Beta: 1}, priceA: 10, priceB: 10, noise: Noise{R: 0}},
		{name: "negative observation noise", prev: State{Beta: 1, Covariance: Diagonal(1e-6, 1e-6)}, priceA: 10, priceB: 10, noise: Noise{R: -5}},
		{name: "nan price", prev: State{Beta: 1, Covariance: Diagonal(1, 1)}, priceA: math.NaN(), priceB: 10, noise: Noise{R: 1}},
		{name: "corrupt covariance", prev: State{Beta: 1, Covariance: Covariance{{-4, 0}, {0, 1}}}, priceA: 10, priceB: 1, noise: Noise{R: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Update(tt.prev, tt.priceA, tt.priceB, testStart, tt.noise)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrFilterDivergence), "got %v", err)
		})
	}
}

func TestInitializeRejectsInvalidPrior(t *testing.T) {
	_, err := Initialize(1, 0, Covariance{{1, 2}, {2, 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	_, err = Initialize(math.NaN(), 0, Diagonal(1, 1))
	require.Error(t, err)
}

func TestEstimatorLifecycle(t *testing.T) {
	est, err := NewEstimator("AAA/BBB", Noise{QBeta: 1e-7, QAlpha: 1e-4, R: 1})
	require.NoError(t, err)
	assert.False(t, est.Initialized())

	_, err = est.Update(10, 5, testStart)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))

	require.NoError(t, est.Initialize(2, 0, Diagonal(1e-2, 1)))
	s1, err := est.Update(10.5, 5, testStart)
	require.NoError(t, err)
	assert.Equal(t, s1, est.State())

	_, err = est.Update(math.NaN(), 5, testStart.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.Equal(t, s1, est.State(), "failed update keeps the previous state")
}

func TestNewEstimatorValidatesNoise(t *testing.T) {
	_, err := NewEstimator("AAA/BBB", Noise{R: 0})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestConfigNoiseFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3.5, cfg.NoiseFor(3.5).R)
	cfg.ObservationNoise = 0.25
	assert.Equal(t, 0.25, cfg.NoiseFor(3.5).R)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, Diagonal(1e-2, 1), cfg.PriorCovariance())
}
