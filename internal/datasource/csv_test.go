package datasource

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pairs-trader/internal/models"
)

func TestLoadWideLayout(t *testing.T) {
	data := `time,XOM,CVX
2024-01-03,102.5,151
2024-01-02,101.20,150.31
2024-01-04,,152.10
`
	set, err := NewCSVLoader(nil).Load(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"XOM", "CVX"}, set.Instruments)
	require.Len(t, set.Bars, 3)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), set.Bars[0].Time, "bars are sorted")
	assert.Equal(t, 101.2, set.Bars[0].Prices["XOM"])

	_, err = set.Bars[2].Price("XOM")
	assert.True(t, errors.Is(err, models.ErrMissingPrice), "empty cell is a missing price")
}

func TestLoadLongLayout(t *testing.T) {
	data := `time,instrument,price
2024-01-02T00:00:00Z,KO,60.1
2024-01-02T00:00:00Z,PEP,170.2
2024-01-03T00:00:00Z,KO,60.4
`
	set, err := NewCSVLoader(nil).Load(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"KO", "PEP"}, set.Instruments)
	require.Len(t, set.Bars, 2)
	assert.Len(t, set.Bars[0].Prices, 2)
	assert.Len(t, set.Bars[1].Prices, 1)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no instruments", "time\n2024-01-02\n"},
		{"duplicate column", "time,A,A\n2024-01-02,1,2\n"},
		{"bad time", "time,A\nyesterday,1\n"},
		{"bad price", "time,A\n2024-01-02,abc\n"},
		{"negative price", "time,A\n2024-01-02,-1\n"},
		{"duplicate timestamp", "time,A\n2024-01-02,1\n2024-01-02,2\n"},
		{"duplicate long observation", "time,instrument,price\n2024-01-02,A,1\n2024-01-02,A,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVLoader(nil).Load(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileAndFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,A,B\n2024-01-01,1,2\n2024-01-02,1,2\n2024-01-03,1,2\n"), 0o600))

	set, err := NewCSVLoader(nil).LoadFile(path)
	require.NoError(t, err)

	filtered := set.Filter(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), time.Time{})
	assert.Len(t, filtered.Bars, 2)

	_, err = NewCSVLoader(nil).LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
