package kalman

import (
	"math"
	"time"

	"github.com/yourusername/pairs-trader/internal/models"
)

// Noise holds the process noise diagonal Q and the observation noise R
type Noise struct {
	QBeta  float64 `json:"q_beta"`
	QAlpha float64 `json:"q_alpha"`
	R      float64 `json:"r"`
}

// Validate checks noise parameters
func (n Noise) Validate() error {
	if n.QBeta < 0 || n.QAlpha < 0 {
		return models.Errorf(models.ErrConfiguration, "process noise must be non-negative (q_beta=%v q_alpha=%v)", n.QBeta, n.QAlpha)
	}
	if !(n.R > 0) {
		return models.Errorf(models.ErrConfiguration, "observation noise must be positive, got %v", n.R)
	}
	return nil
}

// Update advances prev by one observation price_A = β·price_B + α + ε.
// The state transition is the identity, so the predict step adds Q to the
// covariance. The correction uses the Joseph form and the result is
// symmetrized. A non-positive innovation variance or a covariance that
// leaves the PSD cone returns ErrFilterDivergence and no new state.
func Update(prev State, priceA, priceB float64, at time.Time, noise Noise) (State, error) {
	if math.IsNaN(priceA) || math.IsNaN(priceB) {
		return State{}, models.Errorf(models.ErrFilterDivergence, "non-finite observation (a=%v b=%v)", priceA, priceB)
	}

	// Predict
	pp := prev.Covariance
	pp[0][0] += noise.QBeta
	pp[1][1] += noise.QAlpha

	// Innovation
	h := [2]float64{priceB, 1}
	predicted := prev.Beta*priceB + prev.Alpha
	innovation := priceA - predicted

	var ph [2]float64
	for i := 0; i < 2; i++ {
		ph[i] = pp[i][0]*h[0] + pp[i][1]*h[1]
	}
	s := h[0]*ph[0] + h[1]*ph[1] + noise.R
	if !(s > 0) || math.IsInf(s, 0) {
		return State{}, models.Errorf(models.ErrFilterDivergence, "innovation variance %v at %s", s, at.Format(time.RFC3339))
	}

	// Gain and correction
	k := [2]float64{ph[0] / s, ph[1] / s}

	var a Covariance
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			id := 0.0
			if i == j {
				id = 1
			}
			a[i][j] = id - k[i]*h[j]
		}
	}
	var next Covariance
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			sum := 0.0
			for m := 0; m < 2; m++ {
				for n := 0; n < 2; n++ {
					sum += a[i][m] * pp[m][n] * a[j][n]
				}
			}
			next[i][j] = sum + noise.R*k[i]*k[j]
		}
	}
	next = next.Symmetrize()
	if !next.IsPSD() {
		return State{}, models.Errorf(models.ErrFilterDivergence, "covariance %v left PSD cone at %s", next, at.Format(time.RFC3339))
	}

	out := State{
		Beta:               prev.Beta + k[0]*innovation,
		Alpha:              prev.Alpha + k[1]*innovation,
		Covariance:         next,
		Innovation:         innovation,
		InnovationVariance: s,
		Updates:            prev.Updates + 1,
		Time:               at,
	}
	if math.IsNaN(out.Beta) || math.IsNaN(out.Alpha) || math.IsInf(out.Beta, 0) || math.IsInf(out.Alpha, 0) {
		return State{}, models.Errorf(models.ErrFilterDivergence, "non-finite state at %s", at.Format(time.RFC3339))
	}
	return out, nil
}

// Run folds Update over aligned series and returns the state after every bar
func Run(initial State, a, b models.PriceSeries, noise Noise) ([]State, error) {
	if len(a) != len(b) {
		return nil, models.Errorf(models.ErrMisaligned, "lengths %d and %d differ", len(a), len(b))
	}
	states := make([]State, 0, len(a))
	state := initial
	for i := range a {
		next, err := Update(state, a[i].Price, b[i].Price, a[i].Time, noise)
		if err != nil {
			return states, err
		}
		state = next
		states = append(states, state)
	}
	return states, nil
}
