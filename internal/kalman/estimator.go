package kalman

import (
	"time"

	"github.com/yourusername/pairs-trader/internal/models"
)

// Config holds filter tuning
type Config struct {
	QBeta  float64
	QAlpha float64
	// ObservationNoise > 0 fixes R; otherwise R is the screening residual variance
	ObservationNoise float64
	PriorVarBeta     float64
	PriorVarAlpha    float64
}

// DefaultConfig returns conservative filter tuning
func DefaultConfig() Config {
	return Config{
		QBeta:         1e-7,
		QAlpha:        1e-4,
		PriorVarBeta:  1e-2,
		PriorVarAlpha: 1.0,
	}
}

// Validate checks filter tuning
func (c Config) Validate() error {
	if c.QBeta < 0 || c.QAlpha < 0 {
		return models.Errorf(models.ErrConfiguration, "process noise must be non-negative")
	}
	if c.ObservationNoise < 0 {
		return models.Errorf(models.ErrConfiguration, "observation noise must be non-negative")
	}
	if !(c.PriorVarBeta > 0) || !(c.PriorVarAlpha > 0) {
		return models.Errorf(models.ErrConfiguration, "prior variances must be positive")
	}
	return nil
}

// NoiseFor resolves the filter noise, taking R from the residual variance
// of the screening window unless it is fixed in configuration.
func (c Config) NoiseFor(residualVariance float64) Noise {
	r := c.ObservationNoise
	if r <= 0 {
		r = residualVariance
	}
	return Noise{QBeta: c.QBeta, QAlpha: c.QAlpha, R: r}
}

// PriorCovariance returns the diagonal prior covariance
func (c Config) PriorCovariance() Covariance {
	return Diagonal(c.PriorVarBeta, c.PriorVarAlpha)
}

// Estimator owns the filter state of exactly one pair
type Estimator struct {
	pairID      string
	state       State
	noise       Noise
	initialized bool
}

// NewEstimator creates an uninitialized estimator for a pair
func NewEstimator(pairID string, noise Noise) (*Estimator, error) {
	if err := noise.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{pairID: pairID, noise: noise}, nil
}

// Initialize sets the prior state
func (e *Estimator) Initialize(priorBeta, priorAlpha float64, priorCov Covariance) error {
	state, err := Initialize(priorBeta, priorAlpha, priorCov)
	if err != nil {
		return err
	}
	e.state = state
	e.initialized = true
	return nil
}

// Update consumes one bar. On error the previous state is kept.
func (e *Estimator) Update(priceA, priceB float64, at time.Time) (State, error) {
	if !e.initialized {
		return State{}, models.Errorf(models.ErrInsufficientData, "estimator for %s not initialized", e.pairID)
	}
	next, err := Update(e.state, priceA, priceB, at, e.noise)
	if err != nil {
		return e.state, err
	}
	e.state = next
	return next, nil
}

// State returns the current estimate
func (e *Estimator) State() State {
	return e.state
}

// Initialized reports whether a prior has been set
func (e *Estimator) Initialized() bool {
	return e.initialized
}

// PairID returns the owning pair identifier
func (e *Estimator) PairID() string {
	return e.pairID
}
