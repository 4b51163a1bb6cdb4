package models

import (
	"fmt"
	"sort"
)

// Pair identifies two instruments traded as a spread: A is regressed on B
type Pair struct {
	A string `json:"a" mapstructure:"a"`
	B string `json:"b" mapstructure:"b"`
}

// ID returns the stable pair identifier "A/B"
func (p Pair) ID() string {
	return fmt.Sprintf("%s/%s", p.A, p.B)
}

// String implements fmt.Stringer
func (p Pair) String() string {
	return p.ID()
}

// PairCandidate is a pair submitted for screening over a lookback window
type PairCandidate struct {
	Pair   Pair `json:"pair"`
	Window int  `json:"window"`
}

// CandidatePairs enumerates every unordered combination of instruments
func CandidatePairs(instruments []string) []Pair {
	sorted := append([]string{}, instruments...)
	sort.Strings(sorted)
	pairs := make([]Pair, 0, len(sorted)*(len(sorted)-1)/2)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			pairs = append(pairs, Pair{A: sorted[i], B: sorted[j]})
		}
	}
	return pairs
}

// SortPairs orders pairs by identifier
func SortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID() < pairs[j].ID() })
}
