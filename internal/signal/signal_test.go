package signal

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pairs-trader/internal/kalman"
	"github.com/yourusername/pairs-trader/internal/models"
)

var testTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, halfLife float64) *Generator {
	t.Helper()
	g, err := NewGenerator("AAA/BBB", DefaultConfig(), halfLife, FixedRegime(1))
	require.NoError(t, err)
	return g
}

func obs(z float64) Observation {
	return Observation{PairID: "AAA/BBB", Time: testTime, ZScore: z, EntryThreshold: 2.0, ExitThreshold: 0.5}
}

func TestClassifyTransitionTable(t *testing.T) {
	g := newTestGenerator(t, 10) // time stop after 30 bars
	short := &PositionView{Direction: models.DirectionShort, EntryZ: 2.4, BarsHeld: 5}
	long := &PositionView{Direction: models.DirectionLong, EntryZ: -2.4, BarsHeld: 5}
	stale := &PositionView{Direction: models.DirectionShort, EntryZ: 2.4, BarsHeld: 31}
	atLimit := &PositionView{Direction: models.DirectionShort, EntryZ: 2.4, BarsHeld: 30}

	tests := []struct {
		name       string
		z          float64
		pos        *PositionView
		wantKind   Kind
		wantReason models.ExitReason
	}{
		{name: "flat below entry holds", z: 1.99, pos: nil, wantKind: Hold},
		{name: "flat at positive entry tie shorts", z: 2.0, pos: nil, wantKind: EnterShortSpread},
		{name: "flat at negative entry tie longs", z: -2.0, pos: nil, wantKind: EnterLongSpread},
		{name: "flat far above entry shorts", z: 3.1, pos: nil, wantKind: EnterShortSpread},
		{name: "flat position view is flat", z: -2.5, pos: &PositionView{Direction: models.DirectionFlat}, wantKind: EnterLongSpread},
		{name: "open never re-enters", z: 4.0, pos: short, wantKind: Hold},
		{name: "short crossed zero", z: -0.7, pos: short, wantKind: Exit, wantReason: models.ExitMeanReversion},
		{name: "short exactly zero", z: 0, pos: short, wantKind: Exit, wantReason: models.ExitMeanReversion},
		{name: "long crossed zero", z: 0.9, pos: long, wantKind: Exit, wantReason: models.ExitMeanReversion},
		{name: "short exit tie", z: 0.5, pos: short, wantKind: Exit, wantReason: models.ExitThreshold},
		{name: "long exit band", z: -0.3, pos: long, wantKind: Exit, wantReason: models.ExitThreshold},
		{name: "short above exit holds", z: 0.51, pos: short, wantKind: Hold},
		{name: "time stop", z: 1.2, pos: stale, wantKind: Exit, wantReason: models.ExitTimeStop},
		{name: "time stop not yet", z: 1.2, pos: atLimit, wantKind: Hold},
		{name: "reversion precedes time stop", z: 0.2, pos: stale, wantKind: Exit, wantReason: models.ExitThreshold},
		{name: "nan holds", z: math.NaN(), pos: nil, wantKind: Hold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := g.Classify(obs(tt.z), tt.pos)
			assert.Equal(t, tt.wantKind, sig.Kind)
			assert.Equal(t, tt.wantReason, sig.Reason)
			assert.Equal(t, "AAA/BBB", sig.PairID)
			assert.Equal(t, testTime, sig.Time)
		})
	}
}

func TestClassifyWithoutHalfLifeDisablesTimeStop(t *testing.T) {
	g := newTestGenerator(t, math.Inf(1))
	assert.Equal(t, 0, g.MaxHolding())
	sig := g.Classify(obs(1.2), &PositionView{Direction: models.DirectionShort, EntryZ: 2.4, BarsHeld: 10000})
	assert.Equal(t, Hold, sig.Kind)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0.3, 2, 0.5))
	assert.InDelta(t, 0.5, Confidence(-1.25, 2, 0.5), 1e-12)
	assert.Equal(t, 1.0, Confidence(3.7, 2, 0.5))
	assert.Equal(t, 0.0, Confidence(3.7, 0.5, 0.5))
}

func TestObserveUsesFilterInnovation(t *testing.T) {
	g := newTestGenerator(t, 10)
	state := kalman.State{Beta: 1.5, Alpha: 2, Innovation: 3, InnovationVariance: 4}

	o := g.Observe(state, 152, 100, testTime)
	assert.InDelta(t, 2.0, o.RawSpread, 1e-12)
	assert.InDelta(t, 1.5, o.ZScore, 1e-12)
	assert.Equal(t, 2.0, o.EntryThreshold)
	assert.Equal(t, 0.5, o.ExitThreshold)
	assert.Equal(t, 1.0, o.RegimeMultiplier)
}

func TestRealizedVolRegime(t *testing.T) {
	r := NewRealizedVolRegime(2, 4, 0.5, 1.5)

	// Not enough history
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, r.Observe(1))
	}
	// Long window full with constant innovations gives ratio 1
	assert.InDelta(t, 1.0, r.Observe(1), 1e-12)

	// ewma = 2/3·4 + 1/3·1, long mean = (1+1+1+4)/4
	assert.InDelta(t, math.Sqrt(3/1.75), r.Observe(2), 1e-9)

	// A sustained burst hits the cap while the long mean lags
	r.Reset()
	for i := 0; i < 4; i++ {
		r.Observe(0.1)
	}
	assert.Equal(t, 1.5, r.Observe(10))

	// Calm after turbulence narrows toward the floor
	for i := 0; i < 3; i++ {
		r.Observe(10)
	}
	for i := 0; i < 2; i++ {
		r.Observe(0.01)
	}
	assert.Equal(t, 0.5, r.Multiplier())

	r.Reset()
	assert.Equal(t, 1.0, r.Multiplier())
	assert.Equal(t, 1.0, r.Observe(5))
}

func TestRegimeScalesEntryOnly(t *testing.T) {
	cfg := DefaultConfig()
	g, err := NewGenerator("AAA/BBB", cfg, 10, FixedRegime(1.5))
	require.NoError(t, err)

	o := g.Observe(kalman.State{Innovation: 2.5, InnovationVariance: 1}, 1, 1, testTime)
	assert.InDelta(t, 3.0, o.EntryThreshold, 1e-12)
	assert.Equal(t, cfg.ExitZ, o.ExitThreshold)
	assert.Equal(t, Hold, g.Classify(o, nil).Kind)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "exit above entry", mutate: func(c *Config) { c.ExitZ = 2.5 }},
		{name: "exit equals entry", mutate: func(c *Config) { c.ExitZ = c.EntryZ }},
		{name: "zero holding multiple", mutate: func(c *Config) { c.MaxHoldingMultiple = 0 }},
		{name: "regime min above one", mutate: func(c *Config) { c.RegimeMin = 1.2 }},
		{name: "regime max below one", mutate: func(c *Config) { c.RegimeMax = 0.9 }},
		{name: "long window shorter", mutate: func(c *Config) { c.RegimeLongWindow = 2 }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrConfiguration))
		})
	}
}
