package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/pairs-trader/internal/backtest"
	"github.com/yourusername/pairs-trader/internal/models"
	"github.com/yourusername/pairs-trader/internal/repository"
)

// newRunRecord builds the persisted form of a run. FullResults carries the
// JSON summary written next to the CSV reports.
func newRunRecord(result *backtest.Result, bt backtest.BacktestConfig, aggregated *backtest.AggregatedResult) (*repository.RunRecord, error) {
	full, err := json.Marshal(backtest.NewSummary(result, aggregated))
	if err != nil {
		return nil, fmt.Errorf("failed to encode run summary: %w", err)
	}

	m := result.Metrics
	run := &models.BacktestRun{
		ID:               result.RunID,
		ConfigHash:       result.ConfigHash,
		RunDate:          time.Now().UTC(),
		StartDate:        m.StartDate,
		EndDate:          m.EndDate,
		Pairs:            result.Pairs,
		InitialCapital:   bt.InitialCapital,
		FinalEquity:      result.FinalEquity,
		TotalReturn:      m.TotalReturn,
		AnnualizedReturn: m.AnnualizedReturn,
		SharpeRatio:      m.SharpeRatio,
		MaxDrawdown:      m.MaxDrawdown,
		TotalTrades:      m.TotalTrades,
		WinRate:          m.WinRate,
		ProfitFactor:     m.ProfitFactor,
		Interrupted:      result.Interrupted,
		FullResults:      full,
	}
	return &repository.RunRecord{
		Run:         run,
		Fills:       result.Ledger,
		Trades:      result.Trades,
		EquityCurve: result.EquityCurve,
	}, nil
}
