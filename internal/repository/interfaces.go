package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/pairs-trader/internal/models"
)

// RunRecord is everything persisted for one backtest run
type RunRecord struct {
	Run         *models.BacktestRun
	Fills       []models.Fill
	Trades      []models.Trade
	EquityCurve []models.EquityPoint
}

// RunRepository defines backtest run persistence
type RunRepository interface {
	Save(ctx context.Context, record *RunRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	GetByConfigHash(ctx context.Context, configHash string) ([]*models.BacktestRun, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error)
	GetFills(ctx context.Context, runID uuid.UUID) ([]models.Fill, error)
}
