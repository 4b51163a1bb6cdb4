package signal

import "math"

// RegimePolicy turns the innovation history into a multiplier on the entry
// threshold. Implementations see observations strictly in time order and
// may only use what they have been shown.
type RegimePolicy interface {
	Observe(innovation float64) float64
	Multiplier() float64
	Reset()
}

// RealizedVolRegime compares a short EWMA of squared innovations with the
// trailing mean of squared innovations over a long window:
//
//	multiplier = clamp(sqrt(ewma_short(e²) / mean_long(e²)), min, max)
//
// The multiplier is 1 until the long window is full.
type RealizedVolRegime struct {
	shortSpan  int
	longWindow int
	min, max   float64

	ewma       float64
	seeded     bool
	ring       []float64
	next       int
	filled     bool
	sum        float64
	multiplier float64
}

// NewRealizedVolRegime creates the default regime policy
func NewRealizedVolRegime(shortSpan, longWindow int, min, max float64) *RealizedVolRegime {
	if shortSpan < 1 {
		shortSpan = 1
	}
	if longWindow < 1 {
		longWindow = 1
	}
	return &RealizedVolRegime{
		shortSpan:  shortSpan,
		longWindow: longWindow,
		min:        min,
		max:        max,
		ring:       make([]float64, longWindow),
		multiplier: 1,
	}
}

// Observe folds one innovation into the estimate and returns the new multiplier
func (r *RealizedVolRegime) Observe(innovation float64) float64 {
	sq := innovation * innovation
	if math.IsNaN(sq) || math.IsInf(sq, 0) {
		return r.multiplier
	}

	lambda := 2 / (float64(r.shortSpan) + 1)
	if !r.seeded {
		r.ewma = sq
		r.seeded = true
	} else {
		r.ewma = lambda*sq + (1-lambda)*r.ewma
	}

	r.sum += sq - r.ring[r.next]
	r.ring[r.next] = sq
	r.next++
	if r.next == r.longWindow {
		r.next = 0
		r.filled = true
	}

	if !r.filled {
		r.multiplier = 1
		return r.multiplier
	}
	mean := r.sum / float64(r.longWindow)
	if mean <= 0 {
		r.multiplier = 1
		return r.multiplier
	}
	r.multiplier = clamp(math.Sqrt(r.ewma/mean), r.min, r.max)
	return r.multiplier
}

// Multiplier returns the last computed multiplier
func (r *RealizedVolRegime) Multiplier() float64 {
	return r.multiplier
}

// Reset discards the history
func (r *RealizedVolRegime) Reset() {
	r.ewma = 0
	r.seeded = false
	for i := range r.ring {
		r.ring[i] = 0
	}
	r.next = 0
	r.filled = false
	r.sum = 0
	r.multiplier = 1
}

// FixedRegime always returns the same multiplier
type FixedRegime float64

// Observe implements RegimePolicy
func (f FixedRegime) Observe(float64) float64 { return float64(f) }

// Multiplier implements RegimePolicy
func (f FixedRegime) Multiplier() float64 { return float64(f) }

// Reset implements RegimePolicy
func (f FixedRegime) Reset() {}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
