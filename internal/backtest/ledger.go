package backtest

import (
	"sort"

	"github.com/yourusername/pairs-trader/internal/models"
)

// LedgerReplay is the portfolio reconstructed from fills alone
type LedgerReplay struct {
	Cash        float64            `json:"cash"`
	Commissions float64            `json:"commissions"`
	Slippage    float64            `json:"slippage"`
	Turnover    float64            `json:"turnover"`
	Fills       int                `json:"fills"`
	Positions   map[string]float64 `json:"positions"`
}

// ReplayLedger rebuilds cash and net instrument quantities from the ledger.
// A flat book leaves no entry in Positions.
func ReplayLedger(initialCapital float64, ledger []models.Fill) LedgerReplay {
	replay := LedgerReplay{Cash: initialCapital, Positions: make(map[string]float64)}
	for _, f := range ledger {
		replay.Cash += f.CashFlow()
		replay.Commissions += f.Commission
		replay.Slippage += f.Quantity * f.Slippage
		replay.Turnover += f.Notional()
		replay.Fills++
		replay.Positions[f.Instrument] += f.SignedQuantity()
	}
	for inst, qty := range replay.Positions {
		if nearZero(qty) {
			delete(replay.Positions, inst)
		}
	}
	return replay
}

// Equity values the replayed book at the given prices
func (l LedgerReplay) Equity(prices map[string]float64) float64 {
	equity := l.Cash
	for inst, qty := range l.Positions {
		equity += qty * prices[inst]
	}
	return equity
}

// Instruments lists instruments with a non-zero net position
func (l LedgerReplay) Instruments() []string {
	out := make([]string, 0, len(l.Positions))
	for inst := range l.Positions {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

func nearZero(v float64) bool {
	return v < 1e-9 && v > -1e-9
}
