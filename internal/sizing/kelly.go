package sizing

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pairs-trader/internal/models"
	"github.com/yourusername/pairs-trader/internal/signal"
)

// Config holds position sizing parameters
type Config struct {
	KellyMultiplier     float64
	ColdStartFraction   float64
	MinTrades           int
	Lookback            int
	MaxPositionFraction float64
}

// DefaultConfig returns half-Kelly sizing
func DefaultConfig() Config {
	return Config{
		KellyMultiplier:     0.5,
		ColdStartFraction:   0.02,
		MinTrades:           10,
		Lookback:            50,
		MaxPositionFraction: 0.10,
	}
}

// Validate checks sizing parameters
func (c Config) Validate() error {
	if c.KellyMultiplier <= 0 || c.KellyMultiplier > 1 {
		return models.Errorf(models.ErrConfiguration, "kelly multiplier must be in (0, 1], got %v", c.KellyMultiplier)
	}
	if c.ColdStartFraction < 0 || c.ColdStartFraction > 1 {
		return models.Errorf(models.ErrConfiguration, "cold start fraction must be in [0, 1]")
	}
	if c.MaxPositionFraction <= 0 || c.MaxPositionFraction > 1 {
		return models.Errorf(models.ErrConfiguration, "max position fraction must be in (0, 1]")
	}
	if c.MinTrades < 1 {
		return models.Errorf(models.ErrConfiguration, "min trades must be at least 1")
	}
	return nil
}

// KellyFraction returns f* = p − (1−p)/b clamped to [0, 1]
func KellyFraction(winRate, winLossRatio float64) float64 {
	if math.IsNaN(winRate) || math.IsNaN(winLossRatio) || winLossRatio <= 0 {
		return 0
	}
	f := winRate - (1-winRate)/winLossRatio
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// KellySizer converts entry signals into notional allocations
type KellySizer struct {
	cfg    Config
	logger *logrus.Logger
}

// NewKellySizer creates a new sizer
func NewKellySizer(cfg Config, logger *logrus.Logger) (*KellySizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &KellySizer{cfg: cfg, logger: logger}, nil
}

// Config returns the sizing configuration
func (k *KellySizer) Config() Config {
	return k.cfg
}

// Size returns the notional to allocate for an entry signal before risk checks.
// Non-entry signals and negative Kelly produce 0.
func (k *KellySizer) Size(sig signal.Signal, stats TradeStats, availableCapital float64) float64 {
	if !sig.Kind.IsEntry() || availableCapital <= 0 {
		return 0
	}

	var fraction float64
	coldStart := stats.Trades < k.cfg.MinTrades
	if coldStart {
		fraction = k.cfg.ColdStartFraction
	} else {
		kelly := KellyFraction(stats.WinRate, stats.WinLossRatio)
		if kelly <= 0 {
			k.logger.WithFields(logrus.Fields{
				"pair":           sig.PairID,
				"win_rate":       stats.WinRate,
				"win_loss_ratio": stats.WinLossRatio,
			}).Debug("Non-positive Kelly fraction, no position")
			return 0
		}
		fraction = k.cfg.KellyMultiplier * kelly
	}

	if fraction > k.cfg.MaxPositionFraction {
		fraction = k.cfg.MaxPositionFraction
	}
	size := fraction * availableCapital

	k.logger.WithFields(logrus.Fields{
		"pair":       sig.PairID,
		"cold_start": coldStart,
		"fraction":   fraction,
		"capital":    availableCapital,
		"size":       size,
	}).Debug("Position size calculated")
	return size
}
