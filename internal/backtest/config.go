package backtest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/pairs-trader/internal/cointegration"
	"github.com/yourusername/pairs-trader/internal/config"
	"github.com/yourusername/pairs-trader/internal/kalman"
	"github.com/yourusername/pairs-trader/internal/models"
	"github.com/yourusername/pairs-trader/internal/risk"
	"github.com/yourusername/pairs-trader/internal/signal"
	"github.com/yourusername/pairs-trader/internal/sizing"
)

// BacktestConfig is the immutable configuration of one run
type BacktestConfig struct {
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	InitialCapital   float64   `json:"initial_capital"`
	PeriodsPerYear   int       `json:"periods_per_year"`
	RiskFreeRate     float64   `json:"risk_free_rate"`
	Workers          int       `json:"workers"`
	RescreenSchedule string    `json:"rescreen_schedule"`
	// InnovationHistory bounds the per-pair innovation samples kept for VaR
	InnovationHistory int `json:"innovation_history"`

	MonteCarloIterations int    `json:"monte_carlo_iterations"`
	MonteCarloSeed       int64  `json:"monte_carlo_seed"`
	WalkForwardWindows   int    `json:"walk_forward_windows"`
	OutputPath           string `json:"output_path"`

	Costs         CostModel            `json:"costs"`
	Cointegration cointegration.Config `json:"cointegration"`
	Kalman        kalman.Config        `json:"kalman"`
	Signals       signal.Config        `json:"signals"`
	Sizing        sizing.Config        `json:"sizing"`
	Risk          risk.Limits          `json:"risk"`
}

// DefaultConfig returns the standard research configuration
func DefaultConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital:       100000,
		PeriodsPerYear:       252,
		Workers:              4,
		InnovationHistory:    250,
		MonteCarloIterations: 1000,
		MonteCarloSeed:       42,
		Costs:                CostModel{CommissionBps: 1, SlippageBps: 2},
		Cointegration:        cointegration.DefaultConfig(),
		Kalman:               kalman.DefaultConfig(),
		Signals:              signal.DefaultConfig(),
		Sizing:               sizing.DefaultConfig(),
		Risk:                 risk.DefaultLimits(),
	}
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.Config) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, models.Errorf(models.ErrConfiguration, "config is required")
	}

	bt := DefaultConfig()
	var err error
	if cfg.Backtest.StartDate != "" {
		if bt.StartDate, err = time.Parse("2006-01-02", cfg.Backtest.StartDate); err != nil {
			return BacktestConfig{}, models.Errorf(models.ErrConfiguration, "invalid start date: %v", err)
		}
	}
	if cfg.Backtest.EndDate != "" {
		if bt.EndDate, err = time.Parse("2006-01-02", cfg.Backtest.EndDate); err != nil {
			return BacktestConfig{}, models.Errorf(models.ErrConfiguration, "invalid end date: %v", err)
		}
	}

	bt.InitialCapital = cfg.Backtest.InitialCapital
	bt.PeriodsPerYear = cfg.Backtest.PeriodsPerYear
	bt.RiskFreeRate = cfg.Backtest.RiskFreeRate
	bt.Workers = cfg.Backtest.Workers
	bt.RescreenSchedule = cfg.Backtest.RescreenSchedule
	bt.MonteCarloIterations = cfg.Backtest.MonteCarloIterations
	bt.MonteCarloSeed = cfg.Backtest.MonteCarloSeed
	bt.WalkForwardWindows = cfg.Backtest.WalkForwardWindows
	bt.OutputPath = cfg.Backtest.OutputPath

	bt.Costs = CostModel{
		CommissionBps: cfg.Costs.CommissionBps,
		SlippageBps:   cfg.Costs.SlippageBps,
		MinCommission: cfg.Costs.MinCommission,
	}
	bt.Cointegration = cointegration.Config{
		Window:         cfg.Cointegration.Window,
		Significance:   cfg.Cointegration.Significance,
		MinCorrelation: cfg.Cointegration.MinCorrelation,
		MinHalfLife:    cfg.Cointegration.MinHalfLife,
		MaxHalfLife:    cfg.Cointegration.MaxHalfLife,
		MaxADFLag:      cfg.Cointegration.MaxADFLag,
		MaxPairs:       cfg.Cointegration.MaxPairs,
	}
	bt.Kalman = kalman.Config{
		QBeta:            cfg.Kalman.QBeta,
		QAlpha:           cfg.Kalman.QAlpha,
		ObservationNoise: cfg.Kalman.ObservationNoise,
		PriorVarBeta:     cfg.Kalman.PriorVarBeta,
		PriorVarAlpha:    cfg.Kalman.PriorVarAlpha,
	}
	bt.Signals = signal.Config{
		EntryZ:             cfg.Signals.EntryZ,
		ExitZ:              cfg.Signals.ExitZ,
		MaxHoldingMultiple: cfg.Signals.MaxHoldingMultiple,
		RegimeShortWindow:  cfg.Signals.RegimeShortWindow,
		RegimeLongWindow:   cfg.Signals.RegimeLongWindow,
		RegimeMin:          cfg.Signals.RegimeMin,
		RegimeMax:          cfg.Signals.RegimeMax,
	}
	bt.Sizing = sizing.Config{
		KellyMultiplier:     cfg.Sizing.KellyMultiplier,
		ColdStartFraction:   cfg.Sizing.ColdStartFraction,
		MinTrades:           cfg.Sizing.MinTrades,
		Lookback:            cfg.Sizing.Lookback,
		MaxPositionFraction: cfg.Sizing.MaxPositionFraction,
	}
	bt.Risk = risk.Limits{
		StopLossZ:             cfg.Risk.StopLossZ,
		StopLossCurrency:      cfg.Risk.StopLossCurrency,
		VaRCeiling:            cfg.Risk.VaRCeiling,
		VaRConfidence:         cfg.Risk.VaRConfidence,
		MinVaRHistory:         cfg.Risk.MinVaRHistory,
		MaxDrawdown:           cfg.Risk.MaxDrawdown,
		RearmDrawdown:         cfg.Risk.RearmDrawdown,
		MaxSectorGross:        cfg.Risk.MaxSectorGross,
		SectorMap:             cfg.SectorMap(),
		ForceCloseOnBreakdown: cfg.Risk.ForceCloseOnBreakdown,
	}

	return bt, bt.Validate()
}

// Validate validates backtest config parameters. Every failure is a
// configuration error.
func (b BacktestConfig) Validate() error {
	if !b.StartDate.IsZero() && !b.EndDate.IsZero() && !b.StartDate.Before(b.EndDate) {
		return models.Errorf(models.ErrConfiguration, "start date must be before end date")
	}
	if !(b.InitialCapital > 0) {
		return models.Errorf(models.ErrConfiguration, "initial capital must be positive")
	}
	if b.PeriodsPerYear <= 0 {
		return models.Errorf(models.ErrConfiguration, "periods per year must be positive")
	}
	if b.Workers < 0 {
		return models.Errorf(models.ErrConfiguration, "workers cannot be negative")
	}
	if b.InnovationHistory < 0 {
		return models.Errorf(models.ErrConfiguration, "innovation history cannot be negative")
	}
	if b.MonteCarloIterations < 0 {
		return models.Errorf(models.ErrConfiguration, "monte carlo iterations cannot be negative")
	}
	if err := b.Costs.Validate(); err != nil {
		return err
	}
	if err := b.Cointegration.Validate(); err != nil {
		return err
	}
	if err := b.Kalman.Validate(); err != nil {
		return err
	}
	if err := b.Signals.Validate(); err != nil {
		return err
	}
	if err := b.Sizing.Validate(); err != nil {
		return err
	}
	return b.Risk.Validate()
}

// Hash returns a stable digest of the configuration. Workers and OutputPath
// do not change results and are excluded.
func (b BacktestConfig) Hash() string {
	b.Workers = 0
	b.OutputPath = ""
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Sprintf("unhashable:%v", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
