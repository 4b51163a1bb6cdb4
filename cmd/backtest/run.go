package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pairs-trader/internal/backtest"
	"github.com/yourusername/pairs-trader/internal/database"
	"github.com/yourusername/pairs-trader/internal/datasource"
	"github.com/yourusername/pairs-trader/internal/health"
	"github.com/yourusername/pairs-trader/internal/metrics"
	"github.com/yourusername/pairs-trader/internal/models"
	"github.com/yourusername/pairs-trader/internal/repository"
)

// Run modes
const (
	modeHistorical  = "historical"
	modeMonteCarlo  = "monte-carlo"
	modeWalkForward = "walk-forward"
	modeAll         = "all"
)

var (
	runMode    string
	outputPath string
	workers    int
)

func init() {
	runCmd.Flags().StringVarP(&runMode, "mode", "m", modeAll, "Backtest mode: historical, monte-carlo, walk-forward, all")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Override the report directory")
	runCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Override the per-bar worker count")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay the strategy over the price history",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch runMode {
		case modeHistorical, modeMonteCarlo, modeWalkForward, modeAll:
		default:
			return fmt.Errorf("unsupported mode: %s", runMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runBacktest(ctx)
	},
}

func runBacktest(ctx context.Context) (err error) {
	ctx, end := tracer.Start(ctx, "run")
	defer func() { end(err) }()

	bt, err := backtest.FromConfig(cfg)
	if err != nil {
		return err
	}
	if outputPath != "" {
		bt.OutputPath = outputPath
	}
	if workers > 0 {
		bt.Workers = workers
	}

	metrics.InitRegistry()
	var monitor *health.Server
	if cfg.Metrics.Enabled {
		monitor = health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			Metrics:     metrics.Handler(),
			Logger:      logger,
		})
		if err := monitor.Start(ctx); err != nil {
			return err
		}
		defer monitor.Shutdown()
		monitor.SetPhase(string(backtest.PhaseInitializing))
	}

	prices, err := loadPrices(ctx, bt)
	if err != nil {
		return err
	}
	engine, err := backtest.NewEngine(bt, nil, logger)
	if err != nil {
		return err
	}
	if monitor != nil {
		monitor.SetReady(true)
		monitor.SetPhase(string(backtest.PhaseRunning))
	}

	var result *backtest.Result
	err = tracer.Capture(ctx, "historical_replay", func(ctx context.Context) error {
		var runErr error
		result, runErr = engine.Run(ctx, prices.Bars, candidatePairs(cfg.Universe))
		return runErr
	})
	if err != nil && !errors.Is(err, models.ErrInterrupted) {
		return err
	}
	if result == nil {
		return err
	}
	if monitor != nil {
		monitor.SetPhase(string(result.Phase))
	}
	tracer.Annotate(ctx, "run_id", result.RunID.String())
	tracer.Annotate(ctx, "trades", len(result.Trades))

	var aggregated *backtest.AggregatedResult
	if !result.Interrupted {
		aggregated, err = validate(ctx, engine, bt, prices, result)
		if err != nil {
			return err
		}
	}

	fmt.Print(backtest.GenerateConsoleReport(result, aggregated))

	if bt.OutputPath != "" {
		if err := backtest.WriteReports(result, aggregated, bt.OutputPath); err != nil {
			return fmt.Errorf("failed to write reports: %w", err)
		}
		logger.WithField("output", bt.OutputPath).Info("Reports written")
	}

	if cfg.Database.Enabled {
		if err := persist(ctx, result, bt, aggregated); err != nil {
			return err
		}
	}

	if result.Interrupted {
		return models.WrapError(models.ErrInterrupted, ctx.Err())
	}
	return nil
}

// validate runs the Monte Carlo and walk-forward checks selected by the mode
func validate(ctx context.Context, engine *backtest.Engine, bt backtest.BacktestConfig, prices *datasource.PriceSet, result *backtest.Result) (*backtest.AggregatedResult, error) {
	var monteCarlo backtest.MonteCarloResult
	if runMode == modeMonteCarlo || runMode == modeAll {
		err := tracer.Capture(ctx, "monte_carlo", func(ctx context.Context) error {
			var mcErr error
			monteCarlo, mcErr = backtest.RunMonteCarlo(ctx, result.Trades, backtest.MonteCarloConfigFrom(bt))
			return mcErr
		})
		if err != nil {
			return nil, fmt.Errorf("monte carlo failed: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"iterations":  monteCarlo.Iterations,
			"mean_return": monteCarlo.MeanReturn,
			"var_95":      monteCarlo.VaR95,
		}).Info("Monte Carlo completed")
	}

	var walkForward *backtest.WalkForwardResult
	if (runMode == modeWalkForward || runMode == modeAll) && bt.WalkForwardWindows > 0 {
		wfConfig, err := backtest.WalkForwardConfigFrom(bt, len(prices.Bars))
		switch {
		case errors.Is(err, models.ErrInsufficientData):
			logger.WithError(err).Warn("Skipping walk-forward")
		case err != nil:
			return nil, err
		default:
			err = tracer.Capture(ctx, "walk_forward", func(ctx context.Context) error {
				wf, wfErr := backtest.RunWalkForward(ctx, engine, prices.Bars, candidatePairs(cfg.Universe), wfConfig)
				if wfErr != nil {
					return wfErr
				}
				walkForward = &wf
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("walk-forward failed: %w", err)
			}
			logger.WithFields(logrus.Fields{
				"windows":     len(walkForward.Windows),
				"consistency": walkForward.ConsistencyScore,
			}).Info("Walk-forward completed")
		}
	}

	aggregated := backtest.AggregateResults(result, monteCarlo, walkForward, backtest.DefaultWeights())
	return &aggregated, nil
}

func persist(ctx context.Context, result *backtest.Result, bt backtest.BacktestConfig, aggregated *backtest.AggregatedResult) error {
	record, err := newRunRecord(result, bt, aggregated)
	if err != nil {
		return err
	}

	// Persist even when the run was interrupted
	saveCtx := context.WithoutCancel(ctx)
	db, err := database.Initialize(saveCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return err
	}
	if err := repos.Runs.Save(saveCtx, record); err != nil {
		return fmt.Errorf("failed to persist backtest run: %w", err)
	}
	logger.WithField("run_id", result.RunID).Info("Backtest run persisted")
	return nil
}
