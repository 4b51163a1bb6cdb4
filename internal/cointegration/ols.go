package cointegration

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errSingularDesign = errors.New("design matrix is singular")

// olsFit holds a least-squares fit of y on the columns of X
type olsFit struct {
	coef []float64
	se   []float64
	rss  float64
	nobs int
	k    int
}

// aic returns the Akaike information criterion up to an additive constant
func (f olsFit) aic() float64 {
	n := float64(f.nobs)
	return n*math.Log(f.rss/n) + 2*float64(f.k)
}

// tstat returns the t statistic of coefficient i
func (f olsFit) tstat(i int) float64 {
	if f.se[i] == 0 {
		return math.Inf(-1)
	}
	return f.coef[i] / f.se[i]
}

// fitOLS solves the normal equations through a Cholesky factorization of XᵀX
func fitOLS(x *mat.Dense, y *mat.VecDense) (olsFit, error) {
	n, k := x.Dims()
	if n <= k {
		return olsFit{}, errSingularDesign
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return olsFit{}, errSingularDesign
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return olsFit{}, errSingularDesign
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(x, &beta)
	resid.SubVec(y, &fitted)
	rss := mat.Dot(&resid, &resid)

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return olsFit{}, errSingularDesign
	}

	sigma2 := rss / float64(n-k)
	fit := olsFit{
		coef: make([]float64, k),
		se:   make([]float64, k),
		rss:  rss,
		nobs: n,
		k:    k,
	}
	for i := 0; i < k; i++ {
		fit.coef[i] = beta.AtVec(i)
		fit.se[i] = math.Sqrt(sigma2 * inv.At(i, i))
	}
	return fit, nil
}
