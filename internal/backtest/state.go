package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/pairs-trader/internal/models"
	"github.com/yourusername/pairs-trader/internal/risk"
)

// Phase is the engine lifecycle stage
type Phase string

const (
	PhaseInitializing Phase = "INITIALIZING"
	PhaseRunning      Phase = "RUNNING"
	PhaseFinalizing   Phase = "FINALIZING"
	PhaseDone         Phase = "DONE"
)

// PairPhase is the per-pair position lifecycle stage
type PairPhase string

const (
	PairFlat     PairPhase = "FLAT"
	PairEntering PairPhase = "ENTERING"
	PairOpen     PairPhase = "OPEN"
	PairExiting  PairPhase = "EXITING"
)

// Position is an open spread position. Quantities are signed.
type Position struct {
	Pair       models.Pair
	Direction  models.Direction
	Phase      PairPhase
	Units      float64
	QtyA       float64
	QtyB       float64
	HedgeRatio float64
	EntryTime  time.Time
	EntryBar   int
	EntryZ     float64
	Notional   float64
	// EntryCashFlow is the net cash of the opening fills, commissions included
	EntryCashFlow float64
	EntryCosts    float64
	Sigma         float64
}

// MarketValue marks both legs at the given prices
func (p *Position) MarketValue(priceA, priceB float64) float64 {
	return p.QtyA*priceA + p.QtyB*priceB
}

// UnrealizedPnL is the liquidation value net of entry cash and costs
func (p *Position) UnrealizedPnL(priceA, priceB float64) float64 {
	return p.EntryCashFlow + p.MarketValue(priceA, priceB)
}

func (p *Position) riskView(priceA, priceB float64) risk.OpenPosition {
	return risk.OpenPosition{
		PairID:        p.Pair.ID(),
		InstrumentA:   p.Pair.A,
		InstrumentB:   p.Pair.B,
		Direction:     p.Direction,
		Units:         p.Units,
		EntryZ:        p.EntryZ,
		Sigma:         p.Sigma,
		GrossA:        math.Abs(p.QtyA * priceA),
		GrossB:        math.Abs(p.QtyB * priceB),
		UnrealizedPnL: p.UnrealizedPnL(priceA, priceB),
	}
}

// PortfolioState is the single mutable portfolio of a run. Only the serial
// commit step writes to it.
type PortfolioState struct {
	Cash        float64
	Equity      float64
	PeakEquity  float64
	Drawdown    float64
	RealizedPnL float64
	Positions   map[string]*Position
	LastPrices  map[string]float64
	Ledger      []models.Fill
	Trades      []models.Trade
	EquityCurve EquityCurve
	Diagnostics []models.DiagnosticEvent
}

// NewPortfolioState initializes portfolio state
func NewPortfolioState(initialCapital float64) *PortfolioState {
	return &PortfolioState{
		Cash:       initialCapital,
		Equity:     initialCapital,
		PeakEquity: initialCapital,
		Positions:  make(map[string]*Position),
		LastPrices: make(map[string]float64),
	}
}

// ObservePrices records the latest valid price of every instrument in the bar
func (s *PortfolioState) ObservePrices(bar models.Bar) {
	for inst, p := range bar.Prices {
		if p > 0 && !math.IsInf(p, 0) {
			s.LastPrices[inst] = p
		}
	}
}

// ApplyFill books one fill into cash and the ledger
func (s *PortfolioState) ApplyFill(f models.Fill) {
	s.Cash += f.CashFlow()
	s.Ledger = append(s.Ledger, f)
}

// MarkToMarket values open positions at the last known prices and appends
// an equity point.
func (s *PortfolioState) MarkToMarket(at time.Time) models.EquityPoint {
	equity := s.Cash
	for _, id := range s.OpenPairIDs() {
		pos := s.Positions[id]
		equity += pos.MarketValue(s.LastPrices[pos.Pair.A], s.LastPrices[pos.Pair.B])
	}
	s.Equity = equity
	if equity > s.PeakEquity {
		s.PeakEquity = equity
	}
	s.Drawdown = s.GetCurrentDrawdown()

	point := models.EquityPoint{Time: at, Equity: equity, Cash: s.Cash, Drawdown: s.Drawdown}
	s.EquityCurve = append(s.EquityCurve, point)
	return point
}

// RestateLast replaces the final equity point after finalization fills
func (s *PortfolioState) RestateLast() {
	if len(s.EquityCurve) == 0 {
		return
	}
	last := s.EquityCurve[len(s.EquityCurve)-1]
	s.EquityCurve = s.EquityCurve[:len(s.EquityCurve)-1]
	s.MarkToMarket(last.Time)
}

// GetCurrentDrawdown calculates peak-to-trough drawdown
func (s *PortfolioState) GetCurrentDrawdown() float64 {
	if s.PeakEquity <= 0 {
		return 0
	}
	drawdown := (s.PeakEquity - s.Equity) / s.PeakEquity
	if drawdown < 0 {
		return 0
	}
	return drawdown
}

// Record appends a diagnostic event
func (s *PortfolioState) Record(at time.Time, pairID string, kind models.DiagnosticKind, detail string) {
	s.Diagnostics = append(s.Diagnostics, models.DiagnosticEvent{Time: at, PairID: pairID, Kind: kind, Detail: detail})
}

// OpenPairIDs returns open position identifiers in commit order
func (s *PortfolioState) OpenPairIDs() []string {
	ids := make([]string, 0, len(s.Positions))
	for id := range s.Positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot copies the risk-relevant view of the portfolio
func (s *PortfolioState) Snapshot(bar int, innovations map[string][]risk.Sample) risk.Snapshot {
	positions := make(map[string]risk.OpenPosition, len(s.Positions))
	for id, pos := range s.Positions {
		positions[id] = pos.riskView(s.LastPrices[pos.Pair.A], s.LastPrices[pos.Pair.B])
	}
	return risk.Snapshot{
		Bar:         bar,
		Equity:      s.Equity,
		PeakEquity:  s.PeakEquity,
		Drawdown:    s.Drawdown,
		Positions:   positions,
		Innovations: innovations,
	}
}
