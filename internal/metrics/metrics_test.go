package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	out := &dto.Metric{}
	require.NoError(t, m.Write(out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestMetricsRegistry(t *testing.T) {
	// Initialize the registry
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordFill(t *testing.T) {
	InitRegistry()
	before := metricValue(t, FillsTotal.WithLabelValues("BUY"))

	RecordFill("BUY")
	RecordFill("BUY")

	assert.Equal(t, before+2, metricValue(t, FillsTotal.WithLabelValues("BUY")))
}

func TestRecordKillSwitchTrip(t *testing.T) {
	InitRegistry()
	before := metricValue(t, KillSwitchTripsTotal)

	RecordKillSwitchTrip()

	assert.Equal(t, before+1, metricValue(t, KillSwitchTripsTotal))
}

func TestUpdateEquity(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name     string
		equity   float64
		drawdown float64
	}{
		{name: "at peak", equity: 100000, drawdown: 0},
		{name: "in drawdown", equity: 90000, drawdown: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			UpdateEquity(tt.equity, tt.drawdown)
			assert.Equal(t, tt.equity, metricValue(t, CurrentEquity))
			assert.Equal(t, tt.drawdown, metricValue(t, CurrentDrawdown))
		})
	}
}

func TestRecordBacktestRun(t *testing.T) {
	InitRegistry()
	before := metricValue(t, BacktestRunsTotal.WithLabelValues("historical_replay", "success"))

	assert.NotPanics(t, func() {
		RecordBacktestRun("historical_replay", "success", 1.2)
		RecordPairScreened("cointegrated", 0.002)
		UpdateSharpeRatio("historical_replay", 1.4)
	})
	assert.Equal(t, before+1, metricValue(t, BacktestRunsTotal.WithLabelValues("historical_replay", "success")))
}

func TestHandler(t *testing.T) {
	InitRegistry()
	RecordBarProcessed()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pairs_trader_bars_processed_total"))
}
