package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/pairs-trader/internal/models"
)

const costPrecision = 6

var basisPoint = decimal.NewFromInt(10000)

// CostModel prices execution: proportional slippage against the trader and
// a per-fill commission with an optional minimum.
type CostModel struct {
	CommissionBps float64 `json:"commission_bps"`
	SlippageBps   float64 `json:"slippage_bps"`
	MinCommission float64 `json:"min_commission"`
}

// Validate checks the cost parameters
func (c CostModel) Validate() error {
	if c.CommissionBps < 0 || c.SlippageBps < 0 || c.MinCommission < 0 {
		return models.Errorf(models.ErrConfiguration, "cost parameters cannot be negative: %+v", c)
	}
	if c.SlippageBps >= 10000 {
		return models.Errorf(models.ErrConfiguration, "slippage of %v bps would cross zero", c.SlippageBps)
	}
	return nil
}

// ExecutionPrice applies slippage: buys pay above mid, sells receive below
func (c CostModel) ExecutionPrice(mid float64, side models.Side) float64 {
	m := decimal.NewFromFloat(mid)
	adj := m.Mul(decimal.NewFromFloat(c.SlippageBps)).Div(basisPoint)
	if side == models.SideBuy {
		return m.Add(adj).Round(costPrecision).InexactFloat64()
	}
	return m.Sub(adj).Round(costPrecision).InexactFloat64()
}

// Commission is charged on the absolute executed notional
func (c CostModel) Commission(quantity, price float64) float64 {
	notional := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(price)).Abs()
	if notional.IsZero() {
		return 0
	}
	fee := notional.Mul(decimal.NewFromFloat(c.CommissionBps)).Div(basisPoint)
	if floor := decimal.NewFromFloat(c.MinCommission); fee.LessThan(floor) {
		fee = floor
	}
	return fee.Round(costPrecision).InexactFloat64()
}
