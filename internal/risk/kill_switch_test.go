package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKillSwitchHysteresis(t *testing.T) {
	ks := NewKillSwitch(0.15, 0.10, nil)

	steps := []struct {
		drawdown float64
		blocked  bool
	}{
		{0.05, false},
		{0.149, false},
		{0.15, true}, // trigger is inclusive
		{0.20, true},
		{0.12, true}, // between re-arm and trigger stays tripped
		{0.10, true}, // re-arm requires strictly below
		{0.099, false},
		{0.14, false}, // re-armed, below trigger
		{0.16, true},
	}

	for i, step := range steps {
		assert.Equal(t, step.blocked, ks.Observe(step.drawdown), "step %d drawdown %.3f", i, step.drawdown)
	}
	assert.Equal(t, 2, ks.Trips())
	assert.Equal(t, SwitchTripped, ks.GetState())
	assert.Equal(t, "TRIPPED", ks.GetState().String())

	ks.Reset()
	assert.Equal(t, SwitchArmed, ks.GetState())
}
