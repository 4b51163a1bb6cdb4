package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BacktestRun represents a persisted backtest run summary
type BacktestRun struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	ConfigHash       string          `db:"config_hash" json:"config_hash"`
	RunDate          time.Time       `db:"run_date" json:"run_date"`
	StartDate        time.Time       `db:"start_date" json:"start_date"`
	EndDate          time.Time       `db:"end_date" json:"end_date"`
	Pairs            []string        `db:"pairs" json:"pairs"`
	InitialCapital   float64         `db:"initial_capital" json:"initial_capital"`
	FinalEquity      float64         `db:"final_equity" json:"final_equity"`
	TotalReturn      float64         `db:"total_return" json:"total_return"`
	AnnualizedReturn float64         `db:"annualized_return" json:"annualized_return"`
	SharpeRatio      float64         `db:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown      float64         `db:"max_drawdown" json:"max_drawdown"`
	TotalTrades      int             `db:"total_trades" json:"total_trades"`
	WinRate          float64         `db:"win_rate" json:"win_rate"`
	ProfitFactor     float64         `db:"profit_factor" json:"profit_factor"`
	Interrupted      bool            `db:"interrupted" json:"interrupted"`
	FullResults      json.RawMessage `db:"full_results" json:"full_results"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// EquityPoint is one (timestamp, equity) sample on the equity curve
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Equity   float64   `json:"equity"`
	Cash     float64   `json:"cash"`
	Drawdown float64   `json:"drawdown"`
}
