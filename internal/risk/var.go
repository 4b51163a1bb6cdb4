package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sample is one innovation tagged with the bar index it was observed on
type Sample struct {
	Bar   int
	Value float64
}

// Exposure is one open or proposed position as seen by the VaR policy
type Exposure struct {
	PairID string
	// Units is signed spread units: positive long spread, negative short
	Units float64
	// Sigma is the one-bar standard deviation of one spread unit
	Sigma float64
}

func (e Exposure) weight() float64 {
	return e.Units * e.Sigma
}

// VaRPolicy estimates portfolio VaR and the largest admissible scale for a
// new exposure.
type VaRPolicy interface {
	Estimate(positions []Exposure, history map[string][]Sample) float64
	Scale(candidate Exposure, positions []Exposure, history map[string][]Sample, ceiling float64) float64
}

// ParametricVaR computes VaR = z_c·sqrt(wᵀΣw) with w_i = units_i·σ_i and Σ the
// correlation matrix of aligned trailing innovations. Pairs sharing fewer
// than MinHistory aligned samples are treated as perfectly correlated.
type ParametricVaR struct {
	Confidence float64
	MinHistory int
}

// NewParametricVaR creates the default VaR policy
func NewParametricVaR(confidence float64, minHistory int) *ParametricVaR {
	return &ParametricVaR{Confidence: confidence, MinHistory: minHistory}
}

func (p *ParametricVaR) quantile() float64 {
	return distuv.UnitNormal.Quantile(p.Confidence)
}

// Estimate returns the portfolio VaR in currency
func (p *ParametricVaR) Estimate(positions []Exposure, history map[string][]Sample) float64 {
	return p.quantile() * math.Sqrt(math.Max(0, p.variance(positions, history)))
}

// Scale returns the largest s in [0, 1] such that adding s·candidate keeps
// VaR within ceiling. VaR(s)² = z²(A + 2sB + s²C).
func (p *ParametricVaR) Scale(candidate Exposure, positions []Exposure, history map[string][]Sample, ceiling float64) float64 {
	z := p.quantile()
	if ceiling <= 0 || z <= 0 {
		return 0
	}
	budget := (ceiling / z) * (ceiling / z)

	a := p.variance(positions, history)
	wn := candidate.weight()
	c := wn * wn
	b := 0.0
	for _, pos := range positions {
		b += pos.weight() * wn * p.correlation(pos.PairID, candidate.PairID, history)
	}

	if c == 0 {
		if a <= budget {
			return 1
		}
		return 0
	}
	if a+2*b+c <= budget {
		return 1
	}
	disc := b*b - c*(a-budget)
	if disc < 0 {
		return 0
	}
	s := (-b + math.Sqrt(disc)) / c
	return math.Max(0, math.Min(1, s))
}

func (p *ParametricVaR) variance(positions []Exposure, history map[string][]Sample) float64 {
	total := 0.0
	for i := range positions {
		wi := positions[i].weight()
		total += wi * wi
		for j := i + 1; j < len(positions); j++ {
			rho := p.correlation(positions[i].PairID, positions[j].PairID, history)
			total += 2 * wi * positions[j].weight() * rho
		}
	}
	return total
}

func (p *ParametricVaR) correlation(a, b string, history map[string][]Sample) float64 {
	if a == b {
		return 1
	}
	xs, ys := alignSamples(history[a], history[b])
	if len(xs) < p.MinHistory || len(xs) < 3 {
		return 1
	}
	rho := stat.Correlation(xs, ys, nil)
	if math.IsNaN(rho) {
		return 1
	}
	return math.Max(-1, math.Min(1, rho))
}

// alignSamples pairs values observed on the same bar; inputs are sorted by bar
func alignSamples(a, b []Sample) ([]float64, []float64) {
	var xs, ys []float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Bar == b[j].Bar:
			xs = append(xs, a[i].Value)
			ys = append(ys, b[j].Value)
			i++
			j++
		case a[i].Bar < b[j].Bar:
			i++
		default:
			j++
		}
	}
	return xs, ys
}
