package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pairs-trader/internal/models"
)

const skipIntegrationMsg = "Integration test - requires database setup"

type copiedTable struct {
	columns []string
	rows    [][]any
}

type fakeWriter struct {
	execs   []string
	copies  map[string]copiedTable
	execErr error
}

func (f *fakeWriter) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeWriter) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.copies == nil {
		f.copies = make(map[string]copiedTable)
	}
	copied := copiedTable{columns: columns}
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		copied.rows = append(copied.rows, values)
	}
	f.copies[table.Sanitize()] = copied
	return int64(len(copied.rows)), nil
}

func sampleRecord() *RunRecord {
	runID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("run"))
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &RunRecord{
		Run: &models.BacktestRun{ID: runID, ConfigHash: "abc", Pairs: []string{"AAA/BBB"}, InitialCapital: 1000},
		Fills: []models.Fill{
			{ID: uuid.NewSHA1(runID, []byte("f1")), Time: at, PairID: "AAA/BBB", Instrument: "AAA", Leg: models.LegA, Side: models.SideBuy, Quantity: 10, Price: 50},
			{ID: uuid.NewSHA1(runID, []byte("f2")), Time: at, PairID: "AAA/BBB", Instrument: "BBB", Leg: models.LegB, Side: models.SideSell, Quantity: 15, Price: 30},
		},
		Trades:      []models.Trade{{ID: uuid.NewSHA1(runID, []byte("t1")), PairID: "AAA/BBB", ExitReason: models.ExitMeanReversion}},
		EquityCurve: []models.EquityPoint{{Time: at, Equity: 1000, Cash: 1000}},
	}
}

func TestWriteRecordCopiesAllTables(t *testing.T) {
	w := &fakeWriter{}
	record := sampleRecord()

	require.NoError(t, writeRecord(context.Background(), w, record))

	assert.Len(t, w.execs, 1)
	require.Contains(t, w.copies, `"backtest_fills"`)
	fills := w.copies[`"backtest_fills"`]
	assert.Len(t, fills.rows, 2)
	assert.Equal(t, len(fillColumns), len(fills.rows[0]))
	assert.Equal(t, record.Run.ID, fills.rows[0][1], "fills must reference the run")
	assert.Equal(t, "SELL", fills.rows[1][7])

	assert.Len(t, w.copies[`"backtest_trades"`].rows, 1)
	assert.Equal(t, "mean_reversion", w.copies[`"backtest_trades"`].rows[0][14])
	assert.Len(t, w.copies[`"backtest_equity"`].rows, 1)
}

func TestWriteRecordSkipsEmptyTables(t *testing.T) {
	w := &fakeWriter{}
	record := sampleRecord()
	record.Fills, record.Trades = nil, nil

	require.NoError(t, writeRecord(context.Background(), w, record))
	assert.NotContains(t, w.copies, `"backtest_fills"`)
	assert.Contains(t, w.copies, `"backtest_equity"`)
}

func TestWriteRecordErrors(t *testing.T) {
	assert.Error(t, writeRecord(context.Background(), &fakeWriter{}, nil))

	w := &fakeWriter{execErr: errors.New("duplicate key")}
	err := writeRecord(context.Background(), w, sampleRecord())
	require.Error(t, err)
	assert.Nil(t, w.copies, "nothing is copied after a failed insert")
}

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}

// TestRunRepositoryRoundTrip needs a live PostgreSQL instance
func TestRunRepositoryRoundTrip(t *testing.T) {
	t.Skip(skipIntegrationMsg)
}
