package cointegration

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ADFResult is the outcome of an augmented Dickey-Fuller regression
type ADFResult struct {
	Statistic float64
	Lags      int
	Nobs      int
}

// SchwertMaxLag returns the default maximum lag ceil(12·(n/100)^¼), capped so
// the regression keeps enough degrees of freedom.
func SchwertMaxLag(n int) int {
	lag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if limit := n/2 - 2; lag > limit {
		lag = limit
	}
	if lag < 0 {
		lag = 0
	}
	return lag
}

// ADF runs Δe_t = c + γ·e_{t-1} + Σ φ_i·Δe_{t-i} + u_t and returns the t
// statistic on γ. The lag order is chosen by AIC over a common sample of
// 0..maxLag lags, then the chosen order is re-fitted on its full sample.
func ADF(series []float64, maxLag int) (ADFResult, error) {
	if maxLag < 0 {
		maxLag = SchwertMaxLag(len(series))
	}
	diff := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		diff[i-1] = series[i] - series[i-1]
	}

	bestLag := 0
	if maxLag > 0 {
		bestAIC := math.Inf(1)
		for lag := 0; lag <= maxLag; lag++ {
			fit, err := adfRegression(series, diff, lag, maxLag)
			if err != nil {
				return ADFResult{}, err
			}
			if aic := fit.aic(); aic < bestAIC {
				bestAIC = aic
				bestLag = lag
			}
		}
	}

	fit, err := adfRegression(series, diff, bestLag, bestLag)
	if err != nil {
		return ADFResult{}, err
	}
	return ADFResult{Statistic: fit.tstat(1), Lags: bestLag, Nobs: fit.nobs}, nil
}

// adfRegression fits the ADF equation with lag augmentation terms, starting
// the sample after skip lags so different orders can share one sample.
func adfRegression(series, diff []float64, lag, skip int) (olsFit, error) {
	n := len(diff) - skip
	if n <= lag+2 {
		return olsFit{}, errSingularDesign
	}
	k := 2 + lag
	x := mat.NewDense(n, k, nil)
	y := mat.NewVecDense(n, nil)
	for row := 0; row < n; row++ {
		t := row + skip
		y.SetVec(row, diff[t])
		x.Set(row, 0, 1)
		x.Set(row, 1, series[t])
		for i := 1; i <= lag; i++ {
			x.Set(row, 1+i, diff[t-i])
		}
	}
	return fitOLS(x, y)
}
