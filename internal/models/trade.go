package models

import (
	"time"

	"github.com/google/uuid"
)

// ExitReason explains why a position was closed
type ExitReason string

const (
	ExitMeanReversion ExitReason = "mean_reversion"
	ExitThreshold     ExitReason = "exit_threshold"
	ExitTimeStop      ExitReason = "time_stop"
	ExitStopLossZ     ExitReason = "stop_loss_z"
	ExitStopLossCash  ExitReason = "stop_loss_currency"
	ExitBreakdown     ExitReason = "cointegration_breakdown"
	ExitEndOfBacktest ExitReason = "end_of_backtest"
)

// Trade is a closed round trip on one pair
type Trade struct {
	ID         uuid.UUID  `json:"id"`
	PairID     string     `json:"pair_id"`
	Direction  Direction  `json:"direction"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   time.Time  `json:"exit_time"`
	EntryZ     float64    `json:"entry_z"`
	ExitZ      float64    `json:"exit_z"`
	Units      float64    `json:"units"`
	HedgeRatio float64    `json:"hedge_ratio"`
	Notional   float64    `json:"notional"`
	PnL        float64    `json:"pnl"`
	Costs      float64    `json:"costs"`
	BarsHeld   int        `json:"bars_held"`
	ExitReason ExitReason `json:"exit_reason"`
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return     t.PnL > 0
}

// Return is P&L relative to entry notional
func (t Trade) Return() float64 {
	if         t.Notional == 0 {
		return 0
	}
	return     t.PnL / t.Notional
}
