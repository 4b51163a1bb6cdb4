package risk

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pairs-trader/internal/cointegration"
	"github.com/yourusername/pairs-trader/internal/models"
)

// Decision reasons
const (
	ReasonApproved       = "approved"
	ReasonPositionExists = "position_exists"
	ReasonKillSwitch     = "kill_switch"
	ReasonVaRScaled      = "var_scaled"
	ReasonSectorScaled   = "sector_scaled"
	ReasonZeroSize       = "zero_size"
)

// Limits are constant for one run
type Limits struct {
	StopLossZ        float64
	StopLossCurrency float64
	// VaRCeiling is a fraction of equity
	VaRCeiling            float64
	VaRConfidence         float64
	MinVaRHistory         int
	MaxDrawdown           float64
	RearmDrawdown         float64
	MaxSectorGross        float64
	SectorMap             map[string]string
	ForceCloseOnBreakdown bool
}

// DefaultLimits returns the research defaults
func DefaultLimits() Limits {
	return Limits{
		StopLossZ:             3.5,
		VaRCeiling:            0.02,
		VaRConfidence:         0.99,
		MinVaRHistory:         20,
		MaxDrawdown:           0.15,
		RearmDrawdown:         0.10,
		ForceCloseOnBreakdown: true,
	}
}

// Validate checks risk limits
func (l Limits) Validate() error {
	if l.StopLossZ < 0 || l.StopLossCurrency < 0 {
		return models.Errorf(models.ErrConfiguration, "stop-loss thresholds must be non-negative")
	}
	if !(l.VaRCeiling > 0) {
		return models.Errorf(models.ErrConfiguration, "VaR ceiling must be positive, got %v", l.VaRCeiling)
	}
	if l.VaRConfidence <= 0.5 || l.VaRConfidence >= 1 {
		return models.Errorf(models.ErrConfiguration, "VaR confidence must be in (0.5, 1), got %v", l.VaRConfidence)
	}
	if l.MaxDrawdown <= 0 || l.MaxDrawdown >= 1 {
		return models.Errorf(models.ErrConfiguration, "max drawdown must be in (0, 1), got %v", l.MaxDrawdown)
	}
	if l.RearmDrawdown < 0 || l.RearmDrawdown >= l.MaxDrawdown {
		return models.Errorf(models.ErrConfiguration, "re-arm drawdown %v must be below max drawdown %v", l.RearmDrawdown, l.MaxDrawdown)
	}
	if l.MaxSectorGross < 0 {
		return models.Errorf(models.ErrConfiguration, "max sector gross must be non-negative")
	}
	return nil
}

// OpenPosition is the risk view of one open spread position
type OpenPosition struct {
	PairID        string
	InstrumentA   string
	InstrumentB   string
	Direction     models.Direction
	Units         float64
	EntryZ        float64
	Sigma         float64
	GrossA        float64
	GrossB        float64
	UnrealizedPnL float64
}

// Exposure converts the position for the VaR policy
func (p OpenPosition) Exposure() Exposure {
	return Exposure{PairID: p.PairID, Units: p.Direction.Sign() * p.Units, Sigma: p.Sigma}
}

// Snapshot is a read-only copy of portfolio state taken before a commit
type Snapshot struct {
	Bar         int
	Equity      float64
	PeakEquity  float64
	Drawdown    float64
	Positions   map[string]OpenPosition
	Innovations map[string][]Sample
}

// positionIDs returns open pair identifiers in sorted order so that sums over
// positions are reproducible.
func (s Snapshot) positionIDs() []string {
	ids := make([]string, 0, len(s.Positions))
	for id := range s.Positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s Snapshot) exposures() []Exposure {
	ids := s.positionIDs()
	out := make([]Exposure, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Positions[id].Exposure())
	}
	return out
}

// Request is a sized entry awaiting authorization
type Request struct {
	PairID      string
	InstrumentA string
	InstrumentB string
	Direction   models.Direction
	Notional    float64
	// UnitNotional is the gross notional of one spread unit (1 A, β B)
	UnitNotional float64
	UnitGrossA   float64
	UnitGrossB   float64
	Sigma        float64
}

// Decision is the authorized notional with the binding reason
type Decision struct {
	Approved float64
	Scale    float64
	Reason   string
}

// Manager vetoes or scales sizing decisions. Rejections are decisions, never errors.
type Manager struct {
	limits     Limits
	varPolicy  VaRPolicy
	killSwitch *KillSwitch
	logger     *logrus.Logger
}

// NewManager creates a new risk manager
func NewManager(limits Limits, varPolicy VaRPolicy, logger *logrus.Logger) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	if varPolicy == nil {
		varPolicy = NewParametricVaR(limits.VaRConfidence, limits.MinVaRHistory)
	}
	return &Manager{
		limits:     limits,
		varPolicy:  varPolicy,
		killSwitch: NewKillSwitch(limits.MaxDrawdown, limits.RearmDrawdown, logger),
		logger:     logger,
	}, nil
}

// Limits returns the configured limits
func (m *Manager) Limits() Limits {
	return m.limits
}

// KillSwitch exposes the drawdown kill switch
func (m *Manager) KillSwitch() *KillSwitch {
	return m.killSwitch
}

// CheckKillSwitch updates the kill switch from the snapshot drawdown and
// reports whether new entries are blocked.
func (m *Manager) CheckKillSwitch(snap Snapshot) bool {
	return m.killSwitch.Observe(snap.Drawdown)
}

// CheckStop reports whether an open position must be force-closed regardless
// of the signal. The z stop triggers on adverse excursion in the entry direction.
func (m *Manager) CheckStop(pos OpenPosition, z float64) (bool, models.ExitReason) {
	if m.limits.StopLossZ > 0 && !math.IsNaN(z) {
		if (pos.EntryZ > 0 && z >= m.limits.StopLossZ) || (pos.EntryZ < 0 && z <= -m.limits.StopLossZ) {
			return true, models.ExitStopLossZ
		}
	}
	if m.limits.StopLossCurrency > 0 && pos.UnrealizedPnL <= -m.limits.StopLossCurrency {
		return true, models.ExitStopLossCash
	}
	return false, ""
}

// ShouldForceClose reports whether a failed re-screen closes the pair
func (m *Manager) ShouldForceClose(res cointegration.Result) bool {
	return m.limits.ForceCloseOnBreakdown && !res.Cointegrated
}

// PortfolioVaR estimates VaR of the open positions in currency
func (m *Manager) PortfolioVaR(snap Snapshot) float64 {
	return m.varPolicy.Estimate(snap.exposures(), snap.Innovations)
}

// Authorize applies the position invariant, kill switch, VaR ceiling and
// sector limits to a sized entry. The result never exceeds req.Notional.
func (m *Manager) Authorize(req Request, snap Snapshot) Decision {
	if _, open := snap.Positions[req.PairID]; open {
		m.logger.WithField("pair", req.PairID).Warn("Entry rejected, position already open")
		return Decision{Reason: ReasonPositionExists}
	}
	if m.killSwitch.GetState() == SwitchTripped {
		return Decision{Reason: ReasonKillSwitch}
	}
	if !(req.Notional > 0) || !(req.UnitNotional > 0) {
		return Decision{Reason: ReasonZeroSize}
	}

	units := req.Notional / req.UnitNotional
	scale := 1.0
	reason := ReasonApproved

	ceiling := m.limits.VaRCeiling * snap.Equity
	candidate := Exposure{PairID: req.PairID, Units: req.Direction.Sign() * units, Sigma: req.Sigma}
	if s := m.varPolicy.Scale(candidate, snap.exposures(), snap.Innovations, ceiling); s < scale {
		scale = s
		reason = ReasonVaRScaled
	}

	if s := m.sectorScale(req, units, snap); s < scale {
		scale = s
		reason = ReasonSectorScaled
	}

	approved := req.Notional * scale
	if approved <= 0 {
		reason = ReasonZeroSize
		approved = 0
	}

	m.logger.WithFields(logrus.Fields{
		"pair":      req.PairID,
		"requested": req.Notional,
		"approved":  approved,
		"scale":     scale,
		"reason":    reason,
	}).Debug("Entry authorized")
	return Decision{Approved: approved, Scale: scale, Reason: reason}
}

// sectorScale limits gross leg notional per sector to MaxSectorGross × equity
func (m *Manager) sectorScale(req Request, units float64, snap Snapshot) float64 {
	if m.limits.MaxSectorGross <= 0 || len(m.limits.SectorMap) == 0 {
		return 1
	}
	existing := make(map[string]float64)
	for _, id := range snap.positionIDs() {
		pos := snap.Positions[id]
		if s, ok := m.limits.SectorMap[pos.InstrumentA]; ok {
			existing[s] += pos.GrossA
		}
		if s, ok := m.limits.SectorMap[pos.InstrumentB]; ok {
			existing[s] += pos.GrossB
		}
	}
	added := make(map[string]float64)
	if s, ok := m.limits.SectorMap[req.InstrumentA]; ok {
		added[s] += units * req.UnitGrossA
	}
	if s, ok := m.limits.SectorMap[req.InstrumentB]; ok {
		added[s] += units * req.UnitGrossB
	}

	limit := m.limits.MaxSectorGross * snap.Equity
	scale := 1.0
	for sector, add := range added {
		if add <= 0 {
			continue
		}
		room := limit - existing[sector]
		if s := room / add; s < scale {
			scale = s
		}
	}
	return math.Max(0, scale)
}
