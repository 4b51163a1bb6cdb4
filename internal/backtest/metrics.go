package backtest

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/pairs-trader/internal/models"
)

// profitFactorCap stands in for an infinite profit factor when no trade lost
const profitFactorCap = 999

// Metrics represents backtest performance metrics
type Metrics struct {
	InitialCapital    float64   `json:"initial_capital"`
	FinalEquity       float64   `json:"final_equity"`
	TotalReturn       float64   `json:"total_return"`
	AnnualizedReturn  float64   `json:"annualized_return"`
	Volatility        float64   `json:"volatility"`
	MaxDrawdown       float64   `json:"max_drawdown"`
	SharpeRatio       float64   `json:"sharpe_ratio"`
	SortinoRatio      float64   `json:"sortino_ratio"`
	CalmarRatio       float64   `json:"calmar_ratio"`
	ValueAtRisk95     float64   `json:"var_95"`
	ValueAtRisk99     float64   `json:"var_99"`
	ExpectedShortfall float64   `json:"expected_shortfall_95"`
	Skewness          float64   `json:"skewness"`
	Kurtosis          float64   `json:"excess_kurtosis"`
	TotalTrades       int       `json:"total_trades"`
	WinningTrades     int       `json:"winning_trades"`
	LosingTrades      int       `json:"losing_trades"`
	WinRate           float64   `json:"win_rate"`
	ProfitFactor      float64   `json:"profit_factor"`
	GrossProfit       float64   `json:"gross_profit"`
	GrossLoss         float64   `json:"gross_loss"`
	AverageWin        float64   `json:"average_win"`
	AverageLoss       float64   `json:"average_loss"`
	Expectancy        float64   `json:"expectancy"`
	LargestWin        float64   `json:"largest_win"`
	LargestLoss       float64   `json:"largest_loss"`
	AverageBarsHeld   float64   `json:"average_bars_held"`
	TotalFills        int       `json:"total_fills"`
	TotalCosts        float64   `json:"total_costs"`
	Turnover          float64   `json:"turnover"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	Periods           int       `json:"periods"`
}

// CalculateMetrics computes the performance summary of a finished run
func CalculateMetrics(curve EquityCurve, trades []models.Trade, ledger []models.Fill, cfg BacktestConfig) Metrics {
	initial := cfg.InitialCapital
	metrics := Metrics{InitialCapital: initial, FinalEquity: initial}

	if len(curve) > 0 {
		metrics.StartDate = curve[0].Time
		metrics.EndDate = curve[len(curve)-1].Time
		metrics.Periods = len(curve)
		metrics.FinalEquity = curve[len(curve)-1].Equity
	}
	if initial > 0 {
		metrics.TotalReturn = (metrics.FinalEquity - initial) / initial
		metrics.AnnualizedReturn = annualizedReturn(initial, metrics.FinalEquity, metrics.EndDate.Sub(metrics.StartDate))
	}

	returns := curve.GetReturns(initial)
	periods := cfg.PeriodsPerYear
	metrics.MaxDrawdown = curve.MaxDrawdown(initial)
	if len(returns) > 1 {
		metrics.Volatility = stat.StdDev(returns, nil) * math.Sqrt(float64(periods))
	}
	metrics.SharpeRatio = sharpe(returns, cfg.RiskFreeRate, periods)
	metrics.SortinoRatio = sortino(returns, cfg.RiskFreeRate, periods)
	if metrics.MaxDrawdown > 0 {
		metrics.CalmarRatio = metrics.AnnualizedReturn / metrics.MaxDrawdown
	}
	metrics.ValueAtRisk95, metrics.ExpectedShortfall = historicalVaR(returns, 0.95)
	metrics.ValueAtRisk99, _ = historicalVaR(returns, 0.99)
	if len(returns) > 3 {
		metrics.Skewness = finite(stat.Skew(returns, nil))
		metrics.Kurtosis = finite(stat.ExKurtosis(returns, nil))
	}

	applyTradeStats(&metrics, trades)

	metrics.TotalFills = len(ledger)
	traded := 0.0
	for _, f := range ledger {
		traded += f.Notional()
		metrics.TotalCosts += f.Commission + math.Abs(f.Quantity*f.Slippage)
	}
	if initial > 0 {
		metrics.Turnover = traded / initial
	}

	return metrics
}

func applyTradeStats(m *Metrics, trades []models.Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}
	net := 0.0
	bars := 0
	for _, t := range trades {
		net += t.PnL
		bars += t.BarsHeld
		switch {
		case t.PnL > 0:
			m.WinningTrades++
			m.GrossProfit += t.PnL
			m.LargestWin = math.Max(m.LargestWin, t.PnL)
		case t.PnL < 0:
			m.LosingTrades++
			m.GrossLoss += -t.PnL
			m.LargestLoss = math.Min(m.LargestLoss, t.PnL)
		}
	}
	m.WinRate = float64(m.WinningTrades) / float64(len(trades))
	if m.WinningTrades > 0 {
		m.AverageWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = -m.GrossLoss / float64(m.LosingTrades)
	}
	m.Expectancy = net / float64(len(trades))
	m.AverageBarsHeld = float64(bars) / float64(len(trades))

	switch {
	case m.GrossLoss > 0:
		m.ProfitFactor = math.Min(m.GrossProfit/m.GrossLoss, profitFactorCap)
	case m.GrossProfit > 0:
		m.ProfitFactor = profitFactorCap
	}
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// annualizedReturn compounds over the calendar span of the equity curve
func annualizedReturn(initial, final float64, span time.Duration) float64 {
	years := span.Hours() / 24 / 365.25
	if initial <= 0 || years <= 0 {
		return 0
	}
	if final <= 0 {
		return -1
	}
	return finite(math.Pow(final/initial, 1.0/years) - 1.0)
}

func sharpe(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	excess := mean - riskFreeRate/float64(periodsPerYear)
	return excess / std * math.Sqrt(float64(periodsPerYear))
}

func sortino(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	target := riskFreeRate / float64(periodsPerYear)
	dd := downsideDeviation(returns, target)
	if dd == 0 {
		return 0
	}
	return (stat.Mean(returns, nil) - target) / dd * math.Sqrt(float64(periodsPerYear))
}

// historicalVaR returns the loss quantile and the mean loss beyond it, both
// as positive fractions of equity.
func historicalVaR(returns []float64, level float64) (float64, float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := append([]float64{}, returns...)
	sort.Float64s(sorted)
	q := stat.Quantile(1-level, stat.Empirical, sorted, nil)

	tail, n := 0.0, 0
	for _, r := range sorted {
		if r > q {
			break
		}
		tail += r
		n++
	}
	es := 0.0
	if n > 0 {
		es = -tail / float64(n)
	}
	return math.Max(0, -q), math.Max(0, es)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
