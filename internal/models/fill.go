package models

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the side of a spread position
type Direction string

const (
	DirectionFlat  Direction = "FLAT"
	DirectionLong  Direction = "LONG_SPREAD"  // buy A, sell B
	DirectionShort Direction = "SHORT_SPREAD" // sell A, buy B
)

// Sign returns +1 for long spread, -1 for short spread, 0 otherwise
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	default:
		return 0
	}
}

// Side is the side of a single-leg execution
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Leg names one instrument of a pair
type Leg string

const (
	LegA Leg = "A"
	LegB Leg = "B"
)

// Fill is one executed leg. Fills are appended to the ledger and never mutated.
type Fill struct {
	ID         uuid.UUID `json:"id"`
	Time       time.Time `json:"time"`
	PairID     string    `json:"pair_id"`
	Instrument string    `json:"instrument"`
	Leg        Leg       `json:"leg"`
	Direction  Direction `json:"direction"`
	Side       Side      `json:"side"`
	Quantity   float64   `json:"quantity"`
	MidPrice   float64   `json:"mid_price"`
	Price      float64   `json:"price"`
	Slippage   float64   `json:"slippage"`
	Commission float64   `json:"commission"`
	Opening    bool      `json:"opening"`
}

// SignedQuantity is positive for buys and negative for sells
func (f Fill) SignedQuantity() float64 {
	if f.Side == SideSell {
		return -f.Quantity
	}
	return f.Quantity
}

// CashFlow is the change in cash caused by this fill
func (f Fill) CashFlow() float64 {
	return -f.SignedQuantity()*f.Price - f.Commission
}

// Notional is the absolute traded value at the executed price
func (f Fill) Notional() float64 {
	return f.Quantity * f.Price
}
