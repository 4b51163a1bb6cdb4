package config

// Default returns a configuration populated with the standard research defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "pairs-trader",
			Environment: "development",
			LogLevel:    "info",
		},
		Backtest: BacktestConfig{
			InitialCapital:       100000,
			PeriodsPerYear:       252,
			Workers:              4,
			RescreenSchedule:     "0 0 1 * *",
			MonteCarloIterations: 1000,
			MonteCarloSeed:       42,
			WalkForwardWindows:   4,
			OutputPath:           "output",
		},
		Universe: UniverseConfig{
			PricesPath: "data/prices.csv",
		},
		Cointegration: CointegrationConfig{
			Window:         252,
			Significance:   0.05,
			MinCorrelation: 0.5,
			MinHalfLife:    5,
			MaxHalfLife:    120,
			MaxADFLag:      -1,
			MaxPairs:       10,
		},
		Kalman: KalmanConfig{
			QBeta:         1e-7,
			QAlpha:        1e-4,
			PriorVarBeta:  1e-2,
			PriorVarAlpha: 1.0,
		},
		Signals: SignalsConfig{
			EntryZ:             2.0,
			ExitZ:              0.5,
			MaxHoldingMultiple: 3,
			RegimeShortWindow:  10,
			RegimeLongWindow:   60,
			RegimeMin:          0.75,
			RegimeMax:          1.5,
		},
		Sizing: SizingConfig{
			KellyMultiplier:     0.5,
			ColdStartFraction:   0.02,
			MinTrades:           10,
			Lookback:            50,
			MaxPositionFraction: 0.10,
		},
		Risk: RiskConfig{
			StopLossZ:             3.5,
			VaRCeiling:            0.02,
			VaRConfidence:         0.99,
			MinVaRHistory:         20,
			MaxDrawdown:           0.15,
			RearmDrawdown:         0.10,
			ForceCloseOnBreakdown: true,
		},
		Costs: CostsConfig{
			CommissionBps: 1,
			SlippageBps:   2,
		},
		Database: DatabaseConfig{
			Port:               5432,
			SSLMode:            "disable",
			MaxConnections:     10,
			MaxIdleConnections: 2,
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
	}
}
