package risk

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// SwitchState is the state of the drawdown kill switch
type SwitchState int

const (
	// SwitchArmed means new entries are allowed
	SwitchArmed SwitchState = iota
	// SwitchTripped means new entries are blocked until drawdown recovers
	SwitchTripped
)

// String returns string representation of switch state
func (s SwitchState) String() string {
	switch s {
	case SwitchArmed:
		return "ARMED"
	case SwitchTripped:
		return "TRIPPED"
	default:
		return "UNKNOWN"
	}
}

// KillSwitch blocks new entries once drawdown reaches maxDrawdown and
// re-arms only after drawdown falls strictly below rearmDrawdown.
type KillSwitch struct {
	maxDrawdown   float64
	rearmDrawdown float64
	state         SwitchState
	trips         int
	mu            sync.RWMutex
	logger        *logrus.Logger
}

// NewKillSwitch creates an armed kill switch
func NewKillSwitch(maxDrawdown, rearmDrawdown float64, logger *logrus.Logger) *KillSwitch {
	if logger == nil {
		logger = logrus.New()
	}
	return &KillSwitch{
		maxDrawdown:   maxDrawdown,
		rearmDrawdown: rearmDrawdown,
		state:         SwitchArmed,
		logger:        logger,
	}
}

// Observe feeds the current drawdown and returns true while entries are blocked
func (k *KillSwitch) Observe(drawdown float64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch k.state {
	case SwitchArmed:
		if drawdown >= k.maxDrawdown {
			k.state = SwitchTripped
			k.trips++
			k.logger.WithFields(logrus.Fields{
				"old_state":    SwitchArmed.String(),
				"new_state":    k.state.String(),
				"drawdown":     drawdown,
				"max_drawdown": k.maxDrawdown,
			}).Warn("Drawdown kill switch tripped")
		}
	case SwitchTripped:
		if drawdown < k.rearmDrawdown {
			k.state = SwitchArmed
			k.logger.WithFields(logrus.Fields{
				"old_state":      SwitchTripped.String(),
				"new_state":      k.state.String(),
				"drawdown":       drawdown,
				"rearm_drawdown": k.rearmDrawdown,
			}).Info("Drawdown kill switch re-armed")
		}
	}
	return k.state == SwitchTripped
}

// GetState returns current switch state
func (k *KillSwitch) GetState() SwitchState {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return k.state
}

// Trips returns how many times the switch has tripped
func (k *KillSwitch) Trips() int {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return k.trips
}

// Reset re-arms the switch
func (k *KillSwitch) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.state = SwitchArmed
}
