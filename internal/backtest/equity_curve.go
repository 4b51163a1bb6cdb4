package backtest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/pairs-trader/internal/models"
)

// EquityCurve represents a time-series of equity points
type EquityCurve []models.EquityPoint

// GetReturns calculates periodic simple returns from the equity curve,
// starting from the initial capital.
func (e EquityCurve) GetReturns(initial float64) []float64 {
	if len(e) == 0 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e))
	prev := initial
	for _, point := range e {
		if prev <= 0 {
			returns = append(returns, 0)
		} else {
			returns = append(returns, (point.Equity-prev)/prev)
		}
		prev = point.Equity
	}
	return returns
}

// GetVolatility calculates the sample standard deviation of returns
func (e EquityCurve) GetVolatility(initial float64) float64 {
	returns := e.GetReturns(initial)
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil)
}

// GetDownsideDeviation calculates the root mean square of returns below target
func (e EquityCurve) GetDownsideDeviation(initial, target float64) float64 {
	return downsideDeviation(e.GetReturns(initial), target)
}

// MaxDrawdown is the largest peak-to-trough decline including the initial capital as peak
func (e EquityCurve) MaxDrawdown(initial float64) float64 {
	peak := initial
	maxDD := 0.0
	for _, point := range e {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			if dd := (peak - point.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// RollingSharpe computes an annualized Sharpe ratio over a trailing window
// of returns. Entries before the window fills are zero.
func (e EquityCurve) RollingSharpe(initial float64, window, periodsPerYear int) []float64 {
	returns := e.GetReturns(initial)
	out := make([]float64, len(returns))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(returns); i++ {
		out[i] = sharpe(returns[i-window+1:i+1], 0, periodsPerYear)
	}
	return out
}

// ToCSV exports the equity curve to CSV
func (e EquityCurve) ToCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"time", "equity", "cash", "drawdown"}); err != nil {
		return nil, err
	}
	for _, point := range e {
		if err := w.Write([]string{
			point.Time.Format(time.RFC3339),
			formatFloat(point.Equity),
			formatFloat(point.Cash),
			formatFloat(point.Drawdown),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ToJSON exports the equity curve to JSON
func (e EquityCurve) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func downsideDeviation(returns []float64, target float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		if r < target {
			sum += (r - target) * (r - target)
		}
	}
	return math.Sqrt(sum / float64(len(returns)))
}
