package cointegration

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/pairs-trader/internal/models"
)

// MinWindow is the smallest lookback that leaves the ADF regression usable degrees of freedom
const MinWindow = 30

// Rejection reasons reported on non-cointegrated results
const (
	ReasonLowCorrelation = "low_correlation"
	ReasonUnitRoot       = "unit_root_not_rejected"
	ReasonNoReversion    = "no_mean_reversion"
	ReasonHalfLifeBounds = "half_life_out_of_bounds"
)

// Config holds screening parameters
type Config struct {
	Window         int
	Significance   float64
	MinCorrelation float64
	MinHalfLife    float64
	MaxHalfLife    float64
	// MaxADFLag < 0 selects the Schwert rule
	MaxADFLag int
	MaxPairs  int
}

// DefaultConfig returns the research defaults
func DefaultConfig() Config {
	return Config{
		Window:         252,
		Significance:   0.05,
		MinCorrelation: 0.5,
		MinHalfLife:    5,
		MaxHalfLife:    120,
		MaxADFLag:      -1,
		MaxPairs:       10,
	}
}

// Validate checks screening parameters
func (c Config) Validate() error {
	if c.Window < MinWindow {
		return models.Errorf(models.ErrConfiguration, "cointegration window %d below minimum %d", c.Window, MinWindow)
	}
	if _, err := (CriticalValues{}).At(c.Significance); err != nil {
		return models.WrapError(models.ErrConfiguration, err)
	}
	if c.MinHalfLife < 0 || c.MaxHalfLife <= c.MinHalfLife {
		return models.Errorf(models.ErrConfiguration, "half-life bounds [%v, %v] are invalid", c.MinHalfLife, c.MaxHalfLife)
	}
	if c.MinCorrelation < 0 || c.MinCorrelation > 1 {
		return models.Errorf(models.ErrConfiguration, "min correlation %v outside [0, 1]", c.MinCorrelation)
	}
	return nil
}

// Result is the immutable outcome of one pair evaluation
type Result struct {
	Pair             models.Pair    `json:"pair"`
	EvaluatedAt      time.Time      `json:"evaluated_at"`
	Window           int            `json:"window"`
	Statistic        float64        `json:"statistic"`
	CriticalValues   CriticalValues `json:"critical_values"`
	Cointegrated     bool           `json:"cointegrated"`
	HalfLife         float64        `json:"half_life"`
	HedgeRatio       float64        `json:"hedge_ratio"`
	Intercept        float64        `json:"intercept"`
	ResidualVariance float64        `json:"residual_variance"`
	Correlation      float64        `json:"correlation"`
	Lags             int            `json:"lags"`
	Reason           string         `json:"reason,omitempty"`
}

// Evaluator evaluates a pair over the trailing window of two aligned series
type Evaluator interface {
	Evaluate(pair models.Pair, a, b models.PriceSeries, window int) (Result, error)
}

// Screener runs the Engle-Granger two-step test
type Screener struct {
	cfg    Config
	logger *logrus.Logger
}

// NewScreener creates a new screener
func NewScreener(cfg Config, logger *logrus.Logger) (*Screener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Screener{cfg: cfg, logger: logger}, nil
}

// Config returns the screener configuration
func (s *Screener) Config() Config {
	return s.cfg
}

// Evaluate tests whether a and b are cointegrated over their trailing window.
// A negative verdict is a normal result; errors are reserved for malformed input.
func (s *Screener) Evaluate(pair models.Pair, a, b models.PriceSeries, window int) (Result, error) {
	if window <= 0 {
		window = s.cfg.Window
	}
	if err := checkAligned(a, b); err != nil {
		return Result{}, err
	}
	if window < MinWindow {
		return Result{}, models.Errorf(models.ErrInsufficientData, "window %d below minimum %d", window, MinWindow)
	}
	if len(a) < window {
		return Result{}, models.Errorf(models.ErrInsufficientData, "%s: need %d observations, have %d", pair.ID(), window, len(a))
	}

	ya := a[len(a)-window:].Values()
	xb := b[len(b)-window:].Values()

	res := Result{
		Pair:        pair,
		EvaluatedAt: a[len(a)-1].Time,
		Window:      window,
		HalfLife:    math.Inf(1),
	}

	alpha, beta := stat.LinearRegression(xb, ya, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return Result{}, models.Errorf(models.ErrInsufficientData, "%s: degenerate regression", pair.ID())
	}
	res.HedgeRatio = beta
	res.Intercept = alpha

	spread := make([]float64, window)
	for i := range spread {
		spread[i] = ya[i] - beta*xb[i] - alpha
	}
	res.ResidualVariance = stat.Variance(spread, nil)

	res.Correlation = returnCorrelation(ya, xb)
	if s.cfg.MinCorrelation > 0 && !(math.Abs(res.Correlation) >= s.cfg.MinCorrelation) {
		res.Reason = ReasonLowCorrelation
		s.logResult(res)
		return res, nil
	}

	adf, err := ADF(spread, s.cfg.MaxADFLag)
	if err != nil {
		if errors.Is(err, errSingularDesign) {
			return Result{}, models.Errorf(models.ErrInsufficientData, "%s: %v", pair.ID(), err)
		}
		return Result{}, err
	}
	res.Statistic = adf.Statistic
	res.Lags = adf.Lags
	res.CriticalValues = MacKinnonCriticalValues(2, adf.Nobs)

	threshold, err := res.CriticalValues.At(s.cfg.Significance)
	if err != nil {
		return Result{}, models.WrapError(models.ErrConfiguration, err)
	}
	stationary := res.Statistic < threshold

	hl, ok := HalfLife(spread)
	if ok {
		res.HalfLife = hl
	}

	switch {
	case !stationary:
		res.Reason = ReasonUnitRoot
	case !ok:
		res.Reason = ReasonNoReversion
	case hl < s.cfg.MinHalfLife || hl > s.cfg.MaxHalfLife:
		res.Reason = ReasonHalfLifeBounds
	default:
		res.Cointegrated = true
	}

	s.logResult(res)
	return res, nil
}

// HalfLife regresses Δe_t on e_{t-1} and returns -ln2/θ. ok is false when
// θ is non-negative and the spread does not revert.
func HalfLife(spread []float64) (float64, bool) {
	if len(spread) < 3 {
		return math.Inf(1), false
	}
	lagged := spread[:len(spread)-1]
	diff := make([]float64, len(spread)-1)
	for i := 1; i < len(spread); i++ {
		diff[i-1] = spread[i] - spread[i-1]
	}
	_, theta := stat.LinearRegression(lagged, diff, nil, false)
	if math.IsNaN(theta) || theta >= 0 {
		return math.Inf(1), false
	}
	return -math.Ln2 / theta, true
}

func (s *Screener) logResult(res Result) {
	s.logger.WithFields(logrus.Fields{
		"pair":         res.Pair.ID(),
		"statistic":    res.Statistic,
		"half_life":    res.HalfLife,
		"hedge_ratio":  res.HedgeRatio,
		"cointegrated": res.Cointegrated,
		"reason":       res.Reason,
	}).Debug("Pair evaluated")
}

func checkAligned(a, b models.PriceSeries) error {
	if len(a) != len(b) {
		return models.Errorf(models.ErrMisaligned, "lengths %d and %d differ", len(a), len(b))
	}
	for i := range a {
		if !a[i].Time.Equal(b[i].Time) {
			return models.Errorf(models.ErrMisaligned, "timestamps differ at index %d", i)
		}
	}
	return nil
}

// returnCorrelation is the Pearson correlation of simple returns
func returnCorrelation(a, b []float64) float64 {
	if len(a) < 3 {
		return 0
	}
	ra := make([]float64, 0, len(a)-1)
	rb := make([]float64, 0, len(b)-1)
	for i := 1; i < len(a); i++ {
		if a[i-1] == 0 || b[i-1] == 0 {
			continue
		}
		ra = append(ra, a[i]/a[i-1]-1)
		rb = append(rb, b[i]/b[i-1]-1)
	}
	if len(ra) < 2 {
		return 0
	}
	corr := stat.Correlation(ra, rb, nil)
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}

// String summarizes a result for console output
func (r Result) String() string {
	return fmt.Sprintf("%s stat=%.3f cv5=%.3f hl=%.1f beta=%.4f cointegrated=%t",
		r.Pair.ID(), r.Statistic, r.CriticalValues.FivePercent, r.HalfLife, r.HedgeRatio, r.Cointegrated)
}
