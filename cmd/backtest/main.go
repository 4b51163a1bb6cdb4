// Package main provides the entry point for the pairs-trading backtest CLI.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pairs-trader/internal/backtest"
	"github.com/yourusername/pairs-trader/internal/config"
	"github.com/yourusername/pairs-trader/internal/datasource"
	applogger "github.com/yourusername/pairs-trader/internal/logger"
	"github.com/yourusername/pairs-trader/internal/models"
	"github.com/yourusername/pairs-trader/internal/tracing"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	pricesPath string
	startDate  string
	endDate    string
	logger     *logrus.Logger
	cfg        *config.Config
	tracer     *tracing.Tracer
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&pricesPath, "prices", "", "Override the price CSV path")
	rootCmd.PersistentFlags().StringVar(&startDate, "start-date", "", "Override start date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&endDate, "end-date", "", "Override end date (YYYY-MM-DD)")
}

var rootCmd = &cobra.Command{
	Use:           "backtest",
	Short:         "Pairs-trading research backtester",
	Long:          `Screen instrument pairs for cointegration and replay the Kalman-filtered spread strategy over historical prices.`,
	SilenceUsage:  true,
	Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
}

func main() {
	rootCmd.AddCommand(runCmd, screenCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if pricesPath != "" {
		cfg.Universe.PricesPath = pricesPath
	}
	if startDate != "" {
		cfg.Backtest.StartDate = startDate
	}
	if endDate != "" {
		cfg.Backtest.EndDate = endDate
	}

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	return config.Validate(cfg)
}

func setupDependencies() error {
	logger = applogger.NewLogger(cfg.App.LogLevel)
	logger.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Debug("Configuration loaded")

	var err error
	tracer, err = tracing.Initialize(tracing.ConfigFromEnv(cfg.App.Name), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return nil
}

// loadPrices reads the universe and restricts it to the configured dates
func loadPrices(ctx context.Context, bt backtest.BacktestConfig) (*datasource.PriceSet, error) {
	source, err := datasource.NewPriceSource(cfg.Universe.PricesPath, datasource.DefaultHTTPClientConfig(), logger)
	if err != nil {
		return nil, err
	}
	prices, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	prices = prices.Filter(bt.StartDate, bt.EndDate)
	if len(prices.Bars) == 0 {
		return nil, models.Errorf(models.ErrInsufficientData, "no bars in %s for the configured dates", cfg.Universe.PricesPath)
	}
	return prices, nil
}

// candidatePairs returns the configured pairs, else all combinations of the
// configured instruments, else nil so the engine uses every loaded instrument.
func candidatePairs(universe config.UniverseConfig) []models.Pair {
	if len(universe.Pairs) > 0 {
		pairs := make([]models.Pair, 0, len(universe.Pairs))
		for _, id := range universe.Pairs {
			if a, b, ok := config.SplitPair(id); ok {
				pairs = append(pairs, models.Pair{A: a, B: b})
			}
		}
		return pairs
	}
	if len(universe.Instruments) > 1 {
		return models.CandidatePairs(universe.Instruments)
	}
	return nil
}
