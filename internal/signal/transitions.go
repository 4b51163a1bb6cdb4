package signal

import (
	"math"

	"github.com/yourusername/pairs-trader/internal/models"
)

// PositionState is the classifier's view of a pair
type PositionState string

const (
	StateFlat PositionState = "FLAT"
	StateOpen PositionState = "OPEN"
)

type classifyInput struct {
	obs        Observation
	pos        *PositionView
	maxHolding int
}

func (in classifyInput) state() PositionState {
	if in.pos == nil || in.pos.Direction == models.DirectionFlat {
		return StateFlat
	}
	return StateOpen
}

// rule is one row of the transition table. Rows are evaluated in order and
// the first match wins. Threshold comparisons are inclusive.
type rule struct {
	name   string
	match  func(classifyInput) bool
	kind   func(classifyInput) Kind
	reason models.ExitReason
}

var transitions = map[PositionState][]rule{
	StateFlat: {
		{
			name:  "enter",
			match: func(in classifyInput) bool { return math.Abs(in.obs.ZScore) >= in.obs.EntryThreshold },
			kind: func(in classifyInput) Kind {
				if in.obs.ZScore > 0 {
					return EnterShortSpread
				}
				return EnterLongSpread
			},
		},
	},
	StateOpen: {
		{
			name:   "mean_reversion",
			match:  func(in classifyInput) bool { return in.obs.ZScore*in.pos.EntryZ <= 0 },
			kind:   constKind(Exit),
			reason: models.ExitMeanReversion,
		},
		{
			name:   "exit_threshold",
			match:  func(in classifyInput) bool { return math.Abs(in.obs.ZScore) <= in.obs.ExitThreshold },
			kind:   constKind(Exit),
			reason: models.ExitThreshold,
		},
		{
			name:   "time_stop",
			match:  func(in classifyInput) bool { return in.maxHolding > 0 && in.pos.BarsHeld > in.maxHolding },
			kind:   constKind(Exit),
			reason: models.ExitTimeStop,
		},
	},
}

func transition(in classifyInput) (Kind, models.ExitReason) {
	if math.IsNaN(in.obs.ZScore) {
		return Hold, ""
	}
	for _, r := range transitions[in.state()] {
		if r.match(in) {
			return r.kind(in), r.reason
		}
	}
	return Hold, ""
}

func constKind(k Kind) func(classifyInput) Kind {
	return func(classifyInput) Kind { return k }
}
