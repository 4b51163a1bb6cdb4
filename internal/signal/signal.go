package signal

import (
	"math"
	"time"

	"github.com/yourusername/pairs-trader/internal/kalman"
	"github.com/yourusername/pairs-trader/internal/models"
)

// Kind enumerates the discrete signals
type Kind string

const (
	EnterLongSpread  Kind = "ENTER_LONG_SPREAD"
	EnterShortSpread Kind = "ENTER_SHORT_SPREAD"
	Exit             Kind = "EXIT"
	Hold             Kind = "HOLD"
)

// IsEntry reports whether the signal opens a position
func (k Kind) IsEntry() bool {
	return k == EnterLongSpread || k == EnterShortSpread
}

// Direction maps an entry signal to the spread direction
func (k Kind) Direction() models.Direction {
	switch k {
	case EnterLongSpread:
		return models.DirectionLong
	case EnterShortSpread:
		return models.DirectionShort
	default:
		return models.DirectionFlat
	}
}

// Observation is the per-bar spread measurement for one pair
type Observation struct {
	Time               time.Time `json:"time"`
	PairID             string    `json:"pair_id"`
	PriceA             float64   `json:"price_a"`
	PriceB             float64   `json:"price_b"`
	Beta               float64   `json:"beta"`
	Alpha              float64   `json:"alpha"`
	RawSpread          float64   `json:"raw_spread"`
	Innovation         float64   `json:"innovation"`
	InnovationVariance float64   `json:"innovation_variance"`
	ZScore             float64   `json:"z_score"`
	RegimeMultiplier   float64   `json:"regime_multiplier"`
	EntryThreshold     float64   `json:"entry_threshold"`
	ExitThreshold      float64   `json:"exit_threshold"`
}

// Signal is an ephemeral trading instruction
type Signal struct {
	Kind       Kind              `json:"kind"`
	PairID     string            `json:"pair_id"`
	Time       time.Time         `json:"time"`
	ZScore     float64           `json:"z_score"`
	Confidence float64           `json:"confidence"`
	Reason     models.ExitReason `json:"reason,omitempty"`
}

// PositionView is the read-only slice of an open position the classifier needs
type PositionView struct {
	Direction models.Direction
	EntryZ    float64
	BarsHeld  int
}

// Config holds threshold parameters
type Config struct {
	EntryZ             float64
	ExitZ              float64
	MaxHoldingMultiple float64
	RegimeShortWindow  int
	RegimeLongWindow   int
	RegimeMin          float64
	RegimeMax          float64
}

// DefaultConfig returns the research defaults
func DefaultConfig() Config {
	return Config{
		EntryZ:             2.0,
		ExitZ:              0.5,
		MaxHoldingMultiple: 3,
		RegimeShortWindow:  10,
		RegimeLongWindow:   60,
		RegimeMin:          0.75,
		RegimeMax:          1.5,
	}
}

// Validate checks threshold parameters
func (c Config) Validate() error {
	if !(c.EntryZ > 0) || c.ExitZ < 0 || c.ExitZ >= c.EntryZ {
		return models.Errorf(models.ErrConfiguration, "thresholds require 0 <= exit (%v) < entry (%v)", c.ExitZ, c.EntryZ)
	}
	if !(c.MaxHoldingMultiple > 0) {
		return models.Errorf(models.ErrConfiguration, "max holding multiple must be positive")
	}
	if c.RegimeMin <= 0 || c.RegimeMin > 1 || c.RegimeMax < 1 {
		return models.Errorf(models.ErrConfiguration, "regime bounds must satisfy 0 < min <= 1 <= max, got [%v, %v]", c.RegimeMin, c.RegimeMax)
	}
	if c.RegimeShortWindow < 1 || c.RegimeLongWindow < c.RegimeShortWindow {
		return models.Errorf(models.ErrConfiguration, "regime windows require 1 <= short <= long")
	}
	return nil
}

// NewRegime builds the configured regime policy
func (c Config) NewRegime() RegimePolicy {
	return NewRealizedVolRegime(c.RegimeShortWindow, c.RegimeLongWindow, c.RegimeMin, c.RegimeMax)
}

// Generator produces observations and signals for one pair
type Generator struct {
	pairID     string
	cfg        Config
	regime     RegimePolicy
	maxHolding int
}

// NewGenerator creates a generator; halfLife sets the time stop
func NewGenerator(pairID string, cfg Config, halfLife float64, regime RegimePolicy) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if regime == nil {
		regime = cfg.NewRegime()
	}
	g := &Generator{pairID: pairID, cfg: cfg, regime: regime}
	g.SetHalfLife(halfLife)
	return g, nil
}

// SetHalfLife updates the maximum holding period after a re-screen.
// A non-finite half-life disables the time stop.
func (g *Generator) SetHalfLife(halfLife float64) {
	if math.IsNaN(halfLife) || math.IsInf(halfLife, 0) || halfLife <= 0 {
		g.maxHolding = 0
		return
	}
	g.maxHolding = int(math.Ceil(g.cfg.MaxHoldingMultiple * halfLife))
}

// MaxHolding returns the time stop in bars, 0 if disabled
func (g *Generator) MaxHolding() int {
	return g.maxHolding
}

// ResetRegime clears regime history after a filter reset
func (g *Generator) ResetRegime() {
	g.regime.Reset()
}

// Observe measures the spread at one bar from the updated filter state
func (g *Generator) Observe(state kalman.State, priceA, priceB float64, at time.Time) Observation {
	mult := g.regime.Observe(state.Innovation)
	return Observation{
		Time:               at,
		PairID:             g.pairID,
		PriceA:             priceA,
		PriceB:             priceB,
		Beta:               state.Beta,
		Alpha:              state.Alpha,
		RawSpread:          state.Spread(priceA, priceB),
		Innovation:         state.Innovation,
		InnovationVariance: state.InnovationVariance,
		ZScore:             state.ZScore(),
		RegimeMultiplier:   mult,
		EntryThreshold:     g.cfg.EntryZ * mult,
		ExitThreshold:      g.cfg.ExitZ,
	}
}

// Classify applies the transition table to one observation
func (g *Generator) Classify(obs Observation, pos *PositionView) Signal {
	in := classifyInput{obs: obs, pos: pos, maxHolding: g.maxHolding}
	kind, reason := transition(in)
	return Signal{
		Kind:       kind,
		PairID:     obs.PairID,
		Time:       obs.Time,
		ZScore:     obs.ZScore,
		Confidence: Confidence(obs.ZScore, obs.EntryThreshold, obs.ExitThreshold),
		Reason:     reason,
	}
}

// Confidence scales |z| between the exit and entry thresholds into [0, 1]
func Confidence(z, entry, exit float64) float64 {
	if entry <= exit {
		return 0
	}
	return clamp((math.Abs(z)-exit)/(entry-exit), 0, 1)
}
