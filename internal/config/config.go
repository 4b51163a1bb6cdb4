// Package config provides configuration management for the pairs trader.
package config

import (
	"fmt"
	"strings"
)

// Config represents the complete application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app" validate:"required"`
	Backtest      BacktestConfig      `mapstructure:"backtest" validate:"required"`
	Universe      UniverseConfig      `mapstructure:"universe" validate:"required"`
	Cointegration CointegrationConfig `mapstructure:"cointegration" validate:"required"`
	Kalman        KalmanConfig        `mapstructure:"kalman" validate:"required"`
	Signals       SignalsConfig       `mapstructure:"signals" validate:"required"`
	Sizing        SizingConfig        `mapstructure:"sizing" validate:"required"`
	Risk          RiskConfig          `mapstructure:"risk" validate:"required"`
	Costs         CostsConfig         `mapstructure:"costs"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Secrets       SecretsConfig       `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// BacktestConfig represents the run-level backtest configuration
type BacktestConfig struct {
	StartDate            string  `mapstructure:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate              string  `mapstructure:"end_date" validate:"omitempty,datetime=2006-01-02"`
	InitialCapital       float64 `mapstructure:"initial_capital" validate:"required,gt=0"`
	PeriodsPerYear       int     `mapstructure:"periods_per_year" validate:"required,gt=0"`
	RiskFreeRate         float64 `mapstructure:"risk_free_rate" validate:"gte=0,lte=1"`
	Workers              int     `mapstructure:"workers" validate:"gte=0"`
	RescreenSchedule     string  `mapstructure:"rescreen_schedule"`
	MonteCarloIterations int     `mapstructure:"monte_carlo_iterations" validate:"gte=0"`
	MonteCarloSeed       int64   `mapstructure:"monte_carlo_seed"`
	WalkForwardWindows   int     `mapstructure:"walk_forward_windows" validate:"gte=0"`
	OutputPath           string  `mapstructure:"output_path"`
}

// UniverseConfig describes the price source and candidate pairs
type UniverseConfig struct {
	PricesPath  string         `mapstructure:"prices_path" validate:"required"`
	Instruments []string       `mapstructure:"instruments"`
	// Pairs in "A/B" form; empty derives all combinations of Instruments
	Pairs   []string       `mapstructure:"pairs" validate:"dive,pair"`
	Sectors []SectorConfig `mapstructure:"sectors" validate:"dive"`
}

// SectorConfig assigns instruments to a sector for exposure limits
type SectorConfig struct {
	Name        string   `mapstructure:"name" validate:"required"`
	Instruments []string `mapstructure:"instruments" validate:"required,min=1"`
}

// CointegrationConfig represents the screener configuration
type CointegrationConfig struct {
	Window         int     `mapstructure:"window" validate:"required,gte=30"`
	Significance   float64 `mapstructure:"significance" validate:"required,significance"`
	MinCorrelation float64 `mapstructure:"min_correlation" validate:"gte=0,lte=1"`
	MinHalfLife    float64 `mapstructure:"min_half_life" validate:"gte=0"`
	MaxHalfLife    float64 `mapstructure:"max_half_life" validate:"required,gt=0"`
	MaxADFLag      int     `mapstructure:"max_adf_lag" validate:"gte=-1"`
	MaxPairs       int     `mapstructure:"max_pairs" validate:"gte=0"`
}

// KalmanConfig represents the hedge-ratio filter configuration
type KalmanConfig struct {
	QBeta            float64 `mapstructure:"q_beta" validate:"gte=0"`
	QAlpha           float64 `mapstructure:"q_alpha" validate:"gte=0"`
	ObservationNoise float64 `mapstructure:"observation_noise" validate:"gte=0"`
	PriorVarBeta     float64 `mapstructure:"prior_var_beta" validate:"required,gt=0"`
	PriorVarAlpha    float64 `mapstructure:"prior_var_alpha" validate:"required,gt=0"`
}

// SignalsConfig represents the z-score threshold configuration
type SignalsConfig struct {
	EntryZ             float64 `mapstructure:"entry_z" validate:"required,gt=0"`
	ExitZ              float64 `mapstructure:"exit_z" validate:"gte=0"`
	MaxHoldingMultiple float64 `mapstructure:"max_holding_multiple" validate:"gte=0"`
	RegimeShortWindow  int     `mapstructure:"regime_short_window" validate:"required,gt=0"`
	RegimeLongWindow   int     `mapstructure:"regime_long_window" validate:"required,gt=0"`
	RegimeMin          float64 `mapstructure:"regime_min" validate:"required,gt=0"`
	RegimeMax          float64 `mapstructure:"regime_max" validate:"required,gt=0"`
}

// SizingConfig represents the Kelly sizer configuration
type SizingConfig struct {
	KellyMultiplier     float64 `mapstructure:"kelly_multiplier" validate:"required,gt=0,lte=1"`
	ColdStartFraction   float64 `mapstructure:"cold_start_fraction" validate:"gte=0,lte=1"`
	MinTrades           int     `mapstructure:"min_trades" validate:"gte=0"`
	Lookback            int     `mapstructure:"lookback" validate:"gte=0"`
	MaxPositionFraction float64 `mapstructure:"max_position_fraction" validate:"required,gt=0,lte=1"`
}

// RiskConfig represents risk limits
type RiskConfig struct {
	StopLossZ             float64 `mapstructure:"stop_loss_z" validate:"gte=0"`
	StopLossCurrency      float64 `mapstructure:"stop_loss_currency" validate:"gte=0"`
	VaRCeiling            float64 `mapstructure:"var_ceiling" validate:"required,gt=0"`
	VaRConfidence         float64 `mapstructure:"var_confidence" validate:"required,gt=0.5,lt=1"`
	MinVaRHistory         int     `mapstructure:"min_var_history" validate:"gte=0"`
	MaxDrawdown           float64 `mapstructure:"max_drawdown" validate:"required,gt=0,lt=1"`
	RearmDrawdown         float64 `mapstructure:"rearm_drawdown" validate:"gte=0,lt=1"`
	MaxSectorGross        float64 `mapstructure:"max_sector_gross" validate:"gte=0"`
	ForceCloseOnBreakdown bool    `mapstructure:"force_close_on_breakdown"`
}

// CostsConfig represents the transaction cost model
type CostsConfig struct {
	CommissionBps float64 `mapstructure:"commission_bps" validate:"gte=0,lte=1000"`
	SlippageBps   float64 `mapstructure:"slippage_bps" validate:"gte=0,lte=1000"`
	MinCommission float64 `mapstructure:"min_commission" validate:"gte=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Enabled true"`
	User               string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// SecretsConfig selects an AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SectorMap flattens the sector lists into instrument -> sector
func (c *Config) SectorMap() map[string]string {
	if len(c.Universe.Sectors) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, sector := range c.Universe.Sectors {
		for _, instrument := range sector.Instruments {
			out[instrument] = sector.Name
		}
	}
	return out
}

// SplitPair parses an "A/B" pair identifier
func SplitPair(id string) (string, string, bool) {
	parts := strings.Split(id, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
		return "", "", false
	}
	return parts[0], parts[1], true
}
