package sizing

import (
	"math"

	"github.com/yourusername/pairs-trader/internal/models"
)

// TradeStats summarizes the trailing closed trades
type TradeStats struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	WinLossRatio float64 `json:"win_loss_ratio"`
}

// ComputeTradeStats uses the last lookback trades (all trades when lookback <= 0).
// WinLossRatio is +Inf when no trade lost and 0 when none won.
func ComputeTradeStats(trades []models.Trade, lookback int) TradeStats {
	if lookback > 0 && len(trades) > lookback {
		trades = trades[len(trades)-lookback:]
	}
	stats := TradeStats{Trades: len(trades)}
	if len(trades) == 0 {
		return stats
	}

	var grossWin, grossLoss float64
	losses := 0
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			stats.Wins++
			grossWin += t.PnL
		case t.PnL < 0:
			losses++
			grossLoss += -t.PnL
		}
	}
	stats.WinRate = float64(stats.Wins) / float64(len(trades))
	if stats.Wins > 0 {
		stats.AvgWin = grossWin / float64(stats.Wins)
	}
	if losses > 0 {
		stats.AvgLoss = grossLoss / float64(losses)
	}

	switch {
	case stats.AvgLoss == 0 && stats.AvgWin > 0:
		stats.WinLossRatio = math.Inf(1)
	case stats.AvgLoss == 0:
		stats.WinLossRatio = 0
	default:
		stats.WinLossRatio = stats.AvgWin / stats.AvgLoss
	}
	return stats
}
