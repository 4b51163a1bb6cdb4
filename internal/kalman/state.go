package kalman

import (
	"math"
	"time"

	"github.com/yourusername/pairs-trader/internal/models"
)

// psdTolerance bounds the negative determinant drift accepted as rounding
const psdTolerance = 1e-12

// Covariance is a symmetric 2×2 matrix over (β, α)
type Covariance [2][2]float64

// Diagonal builds a diagonal covariance
func Diagonal(varBeta, varAlpha float64) Covariance {
	return Covariance{{varBeta, 0}, {0, varAlpha}}
}

// Symmetrize averages the off-diagonal terms
func (c Covariance) Symmetrize() Covariance {
	off := 0.5 * (c[0][1] + c[1][0])
	c[0][1], c[1][0] = off, off
	return c
}

// Det returns the determinant
func (c Covariance) Det() float64 {
	return c[0][0]*c[1][1] - c[0][1]*c[1][0]
}

// IsPSD reports whether the matrix is symmetric positive semi-definite within rounding
func (c Covariance) IsPSD() bool {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.IsNaN(c[i][j]) || math.IsInf(c[i][j], 0) {
				return false
			}
		}
	}
	if c[0][1] != c[1][0] {
		return false
	}
	if c[0][0] < 0 || c[1][1] < 0 {
		return false
	}
	return c.Det() >= -psdTolerance*math.Max(1, c[0][0]*c[1][1])
}

// State is the filter estimate of (β, α) after one update. It is a value:
// Update returns a new State and never mutates its input.
type State struct {
	Beta       float64    `json:"beta"`
	Alpha      float64    `json:"alpha"`
	Covariance Covariance `json:"covariance"`
	// Innovation is the one-step-ahead prediction error of price A
	Innovation float64 `json:"innovation"`
	// InnovationVariance is S = xP⁻xᵀ + R for the last update
	InnovationVariance float64   `json:"innovation_variance"`
	Updates            int       `json:"updates"`
	Time               time.Time `json:"time"`
}

// ZScore is the standardized innovation
func (s State) ZScore() float64 {
	if s.InnovationVariance <= 0 {
		return 0
	}
	return s.Innovation / math.Sqrt(s.InnovationVariance)
}

// Spread returns price_A − β·price_B
func (s State) Spread(priceA, priceB float64) float64 {
	return priceA - s.Beta*priceB
}

// Initialize builds a prior state, rejecting an invalid covariance
func Initialize(priorBeta, priorAlpha float64, priorCov Covariance) (State, error) {
	if math.IsNaN(priorBeta) || math.IsNaN(priorAlpha) || math.IsInf(priorBeta, 0) || math.IsInf(priorAlpha, 0) {
		return State{}, models.Errorf(models.ErrFilterDivergence, "non-finite prior (beta=%v alpha=%v)", priorBeta, priorAlpha)
	}
	if !priorCov.IsPSD() {
		return State{}, models.Errorf(models.ErrConfiguration, "prior covariance %v is not symmetric PSD", priorCov)
	}
	return State{Beta: priorBeta, Alpha: priorAlpha, Covariance: priorCov}, nil
}
