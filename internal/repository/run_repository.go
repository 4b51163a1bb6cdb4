package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/pairs-trader/internal/database"
	"github.com/yourusername/pairs-trader/internal/models"
)

const (
	errScanBacktestRun = "failed to scan backtest run: %w"

	selectRunColumns = `
		SELECT id, config_hash, run_date, start_date, end_date, pairs, initial_capital,
			final_equity, total_return, annualized_return, sharpe_ratio, max_drawdown,
			total_trades, win_rate, profit_factor, interrupted, full_results, created_at
		FROM backtest_runs`
)

var (
	fillColumns   = []string{"id", "run_id", "ts", "pair_id", "instrument", "leg", "direction", "side", "quantity", "mid_price", "price", "slippage", "commission", "opening"}
	tradeColumns  = []string{"id", "run_id", "pair_id", "direction", "entry_time", "exit_time", "entry_z", "exit_z", "units", "hedge_ratio", "notional", "pnl", "costs", "bars_held", "exit_reason"}
	equityColumns = []string{"run_id", "ts", "equity", "cash", "drawdown"}
)

// ErrRunNotFound is returned when no run matches the query
var ErrRunNotFound = errors.New("backtest run not found")

// writer is the subset of pgx.Tx used to persist a run
type writer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	db *database.DB
}

// NewPostgresRunRepository creates a new run repository
func NewPostgresRunRepository(db *database.DB) RunRepository {
	return &PostgresRunRepository{db: db}
}

// Save inserts the run summary and bulk-copies its ledger, trades and equity
// curve in one transaction.
func (r *PostgresRunRepository) Save(ctx context.Context, record *RunRecord) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return writeRecord(ctx, tx, record)
	})
}

func writeRecord(ctx context.Context, w writer, record *RunRecord) error {
	if record == nil || record.Run == nil {
		return fmt.Errorf("run record is required")
	}
	run := record.Run

	_, err := w.Exec(ctx, `
		INSERT INTO backtest_runs (
			id, config_hash, run_date, start_date, end_date, pairs, initial_capital,
			final_equity, total_return, annualized_return, sharpe_ratio, max_drawdown,
			total_trades, win_rate, profit_factor, interrupted, full_results, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		run.ID, run.ConfigHash, run.RunDate, run.StartDate, run.EndDate, run.Pairs, run.InitialCapital,
		run.FinalEquity, run.TotalReturn, run.AnnualizedReturn, run.SharpeRatio, run.MaxDrawdown,
		run.TotalTrades, run.WinRate, run.ProfitFactor, run.Interrupted, run.FullResults, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}

	if len(record.Fills) > 0 {
		rows := make([][]any, len(record.Fills))
		for i, f := range record.Fills {
			rows[i] = []any{f.ID, run.ID, f.Time, f.PairID, f.Instrument, string(f.Leg), string(f.Direction), string(f.Side),
				f.Quantity, f.MidPrice, f.Price, f.Slippage, f.Commission, f.Opening}
		}
		if _, err := w.CopyFrom(ctx, pgx.Identifier{"backtest_fills"}, fillColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy fills: %w", err)
		}
	}

	if len(record.Trades) > 0 {
		rows := make([][]any, len(record.Trades))
		for i, t := range record.Trades {
			rows[i] = []any{t.ID, run.ID, t.PairID, string(t.Direction), t.EntryTime, t.ExitTime, t.EntryZ, t.ExitZ,
				t.Units, t.HedgeRatio, t.Notional, t.PnL, t.Costs, t.BarsHeld, string(t.ExitReason)}
		}
		if _, err := w.CopyFrom(ctx, pgx.Identifier{"backtest_trades"}, tradeColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy trades: %w", err)
		}
	}

	if len(record.EquityCurve) > 0 {
		rows := make([][]any, len(record.EquityCurve))
		for i, p := range record.EquityCurve {
			rows[i] = []any{run.ID, p.Time, p.Equity, p.Cash, p.Drawdown}
		}
		if _, err := w.CopyFrom(ctx, pgx.Identifier{"backtest_equity"}, equityColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy equity curve: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a run summary by ID
func (r *PostgresRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	row := r.db.GetPool().QueryRow(ctx, selectRunColumns+` WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errScanBacktestRun, err)
	}
	return run, nil
}

// GetByConfigHash retrieves all runs of one configuration, newest first
func (r *PostgresRunRepository) GetByConfigHash(ctx context.Context, configHash string) ([]*models.BacktestRun, error) {
	rows, err := r.db.GetPool().Query(ctx, selectRunColumns+` WHERE config_hash = $1 ORDER BY run_date DESC`, configHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	return collectRuns(rows)
}

// GetLatest retrieves the latest run summaries
func (r *PostgresRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error) {
	rows, err := r.db.GetPool().Query(ctx, selectRunColumns+` ORDER BY run_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest backtest runs: %w", err)
	}
	return collectRuns(rows)
}

// GetFills retrieves the ledger of a run in commit order
func (r *PostgresRunRepository) GetFills(ctx context.Context, runID uuid.UUID) ([]models.Fill, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT id, ts, pair_id, instrument, leg, direction, side, quantity, mid_price, price, slippage, commission, opening
		FROM backtest_fills WHERE run_id = $1 ORDER BY ts, pair_id, leg`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []models.Fill
	for rows.Next() {
		var f models.Fill
		if err := rows.Scan(&f.ID, &f.Time, &f.PairID, &f.Instrument, &f.Leg, &f.Direction, &f.Side,
			&f.Quantity, &f.MidPrice, &f.Price, &f.Slippage, &f.Commission, &f.Opening); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

func scanRun(row pgx.Row) (*models.BacktestRun, error) {
	run := &models.BacktestRun{}
	err := row.Scan(
		&run.ID, &run.ConfigHash, &run.RunDate, &run.StartDate, &run.EndDate, &run.Pairs, &run.InitialCapital,
		&run.FinalEquity, &run.TotalReturn, &run.AnnualizedReturn, &run.SharpeRatio, &run.MaxDrawdown,
		&run.TotalTrades, &run.WinRate, &run.ProfitFactor, &run.Interrupted, &run.FullResults, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func collectRuns(rows pgx.Rows) ([]*models.BacktestRun, error) {
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanBacktestRun, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
