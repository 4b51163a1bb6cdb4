package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/pairs-trader/internal/config"
)

// Schema holds the DDL for backtest persistence, applied in order
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id UUID PRIMARY KEY,
		config_hash TEXT NOT NULL,
		run_date TIMESTAMPTZ NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		pairs TEXT[] NOT NULL,
		initial_capital DOUBLE PRECISION NOT NULL,
		final_equity DOUBLE PRECISION NOT NULL,
		total_return DOUBLE PRECISION NOT NULL,
		annualized_return DOUBLE PRECISION NOT NULL,
		sharpe_ratio DOUBLE PRECISION NOT NULL,
		max_drawdown DOUBLE PRECISION NOT NULL,
		total_trades INTEGER NOT NULL,
		win_rate DOUBLE PRECISION NOT NULL,
		profit_factor DOUBLE PRECISION NOT NULL,
		interrupted BOOLEAN NOT NULL DEFAULT FALSE,
		full_results JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS backtest_runs_config_hash_idx ON backtest_runs (config_hash)`,
	`CREATE TABLE IF NOT EXISTS backtest_fills (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES backtest_runs (id) ON DELETE CASCADE,
		ts TIMESTAMPTZ NOT NULL,
		pair_id TEXT NOT NULL,
		instrument TEXT NOT NULL,
		leg TEXT NOT NULL,
		direction TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		mid_price DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		slippage DOUBLE PRECISION NOT NULL,
		commission DOUBLE PRECISION NOT NULL,
		opening BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_trades (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES backtest_runs (id) ON DELETE CASCADE,
		pair_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_time TIMESTAMPTZ NOT NULL,
		exit_time TIMESTAMPTZ NOT NULL,
		entry_z DOUBLE PRECISION NOT NULL,
		exit_z DOUBLE PRECISION NOT NULL,
		units DOUBLE PRECISION NOT NULL,
		hedge_ratio DOUBLE PRECISION NOT NULL,
		notional DOUBLE PRECISION NOT NULL,
		pnl DOUBLE PRECISION NOT NULL,
		costs DOUBLE PRECISION NOT NULL,
		bars_held INTEGER NOT NULL,
		exit_reason TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_equity (
		run_id UUID NOT NULL REFERENCES backtest_runs (id) ON DELETE CASCADE,
		ts TIMESTAMPTZ NOT NULL,
		equity DOUBLE PRECISION NOT NULL,
		cash DOUBLE PRECISION NOT NULL,
		drawdown DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ts)
	)`,
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// ApplySchema executes the schema statements in order
func ApplySchema(ctx context.Context, db execer) error {
	for i, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}

// Initialize creates a database connection pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := ApplySchema(ctx, db.pool); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
