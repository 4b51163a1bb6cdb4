package backtest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Report file names written by WriteReports
const (
	LedgerFile  = "ledger.csv"
	TradesFile  = "trades.csv"
	EquityFile  = "equity.csv"
	SummaryFile = "summary.json"
)

// ScreenSummary is the JSON-safe view of a screen result
type ScreenSummary struct {
	PairID       string    `json:"pair_id"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
	Statistic    float64   `json:"statistic"`
	Cointegrated bool      `json:"cointegrated"`
	HalfLife     *float64  `json:"half_life"`
	HedgeRatio   float64   `json:"hedge_ratio"`
	Correlation  float64   `json:"correlation"`
	Reason       string    `json:"reason,omitempty"`
}

// Summary is the persisted run summary
type Summary struct {
	RunID       string            `json:"run_id"`
	ConfigHash  string            `json:"config_hash"`
	Phase       Phase             `json:"phase"`
	Interrupted bool              `json:"interrupted"`
	Pairs       []string          `json:"pairs"`
	Metrics     Metrics           `json:"metrics"`
	FinalCash   float64           `json:"final_cash"`
	FinalEquity float64           `json:"final_equity"`
	RealizedPnL float64           `json:"realized_pnl"`
	Diagnostics map[string]int    `json:"diagnostics"`
	Screens     []ScreenSummary   `json:"screens"`
	Aggregated  *AggregatedResult `json:"aggregated,omitempty"`
}

// NewSummary builds the JSON summary of a result
func NewSummary(result *Result, aggregated *AggregatedResult) Summary {
	diag := make(map[string]int)
	for _, d := range result.Diagnostics {
		diag[string(d.Kind)]++
	}
	screens := make([]ScreenSummary, 0, len(result.Screens))
	for _, s := range result.Screens {
		summary := ScreenSummary{
			PairID:       s.Pair.ID(),
			EvaluatedAt:  s.EvaluatedAt,
			Statistic:    finite(s.Statistic),
			Cointegrated: s.Cointegrated,
			HedgeRatio:   finite(s.HedgeRatio),
			Correlation:  finite(s.Correlation),
			Reason:       s.Reason,
		}
		if hl := s.HalfLife; hl == finite(hl) {
			summary.HalfLife = &hl
		}
		screens = append(screens, summary)
	}
	return Summary{
		RunID:       result.RunID.String(),
		ConfigHash:  result.ConfigHash,
		Phase:       result.Phase,
		Interrupted: result.Interrupted,
		Pairs:       result.Pairs,
		Metrics:     result.Metrics,
		FinalCash:   result.FinalCash,
		FinalEquity: result.FinalEquity,
		RealizedPnL: result.RealizedPnL,
		Diagnostics: diag,
		Screens:     screens,
		Aggregated:  aggregated,
	}
}

// GenerateConsoleReport formats a run for terminal output
func GenerateConsoleReport(result *Result, aggregated *AggregatedResult) string {
	m := result.Metrics
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Run ID: %s\n", result.RunID))
	builder.WriteString(fmt.Sprintf("Phase: %s\n", result.Phase))
	builder.WriteString(fmt.Sprintf("Pairs: %d\n", len(result.Pairs)))
	builder.WriteString(fmt.Sprintf("Period: %s to %s (%d bars)\n", m.StartDate.Format("2006-01-02"), m.EndDate.Format("2006-01-02"), m.Periods))
	builder.WriteString(fmt.Sprintf("Final Equity: %.2f\n", m.FinalEquity))
	builder.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", m.TotalReturn*100))
	builder.WriteString(fmt.Sprintf("Annualized Return: %.2f%%\n", m.AnnualizedReturn*100))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", m.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Sortino Ratio: %.2f\n", m.SortinoRatio))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", m.MaxDrawdown*100))
	builder.WriteString(fmt.Sprintf("Trades: %d (win rate %.2f%%)\n", m.TotalTrades, m.WinRate*100))
	builder.WriteString(fmt.Sprintf("Profit Factor: %.2f\n", m.ProfitFactor))
	builder.WriteString(fmt.Sprintf("Total Costs: %.2f\n", m.TotalCosts))
	builder.WriteString(fmt.Sprintf("Diagnostics: %d\n", len(result.Diagnostics)))
	if aggregated != nil {
		builder.WriteString(fmt.Sprintf("Monte Carlo Mean Return: %.2f%%\n", aggregated.MonteCarloResult.MeanReturn*100))
		builder.WriteString(fmt.Sprintf("Monte Carlo VaR 95: %.2f%%\n", aggregated.MonteCarloResult.VaR95*100))
		if wf := aggregated.WalkForwardResult; wf != nil {
			builder.WriteString(fmt.Sprintf("Walk-Forward Consistency: %.2f\n", wf.ConsistencyScore))
		}
		builder.WriteString(fmt.Sprintf("Composite Score: %.2f\n", aggregated.CompositeScore))
		builder.WriteString(fmt.Sprintf("Recommendation: %s\n", aggregated.Recommendation))
	}
	if result.Interrupted {
		builder.WriteString("Run was interrupted; results cover committed bars only\n")
	}
	return builder.String()
}

// WriteReports writes the ledger, trades, equity curve and summary to dir
func WriteReports(result *Result, aggregated *AggregatedResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ledger, err := LedgerCSV(result)
	if err != nil {
		return err
	}
	trades, err := TradesCSV(result)
	if err != nil {
		return err
	}
	equity, err := result.EquityCurve.ToCSV()
	if err != nil {
		return err
	}
	summary, err := json.MarshalIndent(NewSummary(result, aggregated), "", "  ")
	if err != nil {
		return err
	}

	files := map[string][]byte{
		LedgerFile:  ledger,
		TradesFile:  trades,
		EquityFile:  equity,
		SummaryFile: summary,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// LedgerCSV exports the fill ledger
func LedgerCSV(result *Result) ([]byte, error) {
	rows := [][]string{{"id", "time", "pair_id", "instrument", "leg", "direction", "side", "quantity", "mid_price", "price", "slippage", "commission", "opening"}}
	for _, f := range result.Ledger {
		rows = append(rows, []string{
			f.ID.String(),
			f.Time.Format(time.RFC3339),
			f.PairID,
			f.Instrument,
			string(f.Leg),
			string(f.Direction),
			string(f.Side),
			formatFloat(f.Quantity),
			formatFloat(f.MidPrice),
			formatFloat(f.Price),
			formatFloat(f.Slippage),
			formatFloat(f.Commission),
			strconv.FormatBool(f.Opening),
		})
	}
	return writeCSV(rows)
}

// TradesCSV exports closed trades
func TradesCSV(result *Result) ([]byte, error) {
	rows := [][]string{{"id", "pair_id", "direction", "entry_time", "exit_time", "entry_z", "exit_z", "units", "hedge_ratio", "notional", "pnl", "costs", "bars_held", "exit_reason"}}
	for _, t := range result.Trades {
		rows = append(rows, []string{
			t.ID.String(),
			t.PairID,
			string(t.Direction),
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			formatFloat(t.EntryZ),
			formatFloat(t.ExitZ),
			formatFloat(t.Units),
			formatFloat(t.HedgeRatio),
			formatFloat(t.Notional),
			formatFloat(t.PnL),
			formatFloat(t.Costs),
			strconv.Itoa(t.BarsHeld),
			string(t.ExitReason),
		})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
