// Package upu implements the UPU-List (Utility/Probability/Utility list),
// the columnar per-itemset projection structure at the center of the
// mining core: four parallel arrays plus four pre-aggregated scalars,
// immutable after construction (§3).
package upu

import (
	"fmt"

	"github.com/rawblock/ptk-huim/internal/numeric"
)

// List is the per-itemset projection. Tids is strictly ascending; the
// other three arrays are indexed in lockstep with it. Items is the
// itemset itself, sorted ascending, carried alongside for identity
// comparison in the collector.
type List struct {
	Items []uint32

	Tids                []uint32
	Utilities           []float64
	RemainingUtilities  []float64
	LogProbabilities    []float64

	PTWU                   float64
	ExpectedUtility        float64
	ExistentialProbability float64
	PositiveUpperBound     float64
}

// Entry is one transaction's contribution to a single item's UPU-List,
// produced by the builder's first pass (§4.4, phase 1d-a).
type Entry struct {
	Tid       uint32
	Utility   float64
	Remaining float64
	LogProb   float64
}

// Builder performs the single linear pass over a tid-sorted entry stream
// that fills the four arrays and simultaneously computes EU, PUB, and the
// EP log-complement, for a single item's list (§4.4, phase 1d-b) or for any
// already-tid-sorted entry stream in general.
type Builder struct {
	Items []uint32
	PTWU  float64
}

// NewBuilder starts building the list for the given itemset and PTWU.
func NewBuilder(items []uint32, ptwu float64) *Builder {
	return &Builder{Items: items, PTWU: ptwu}
}

// Build consumes a tid-ascending entry stream and produces the finished
// List. It panics if the stream is not strictly tid-ascending: that
// violates the structural invariant every UPU-List must hold (§3), and per
// §7.3 an invariant violation is a programming bug, not a recoverable
// input error.
func (b *Builder) Build(entries []Entry) *List {
	return build(b.Items, entries, b.PTWU)
}

func build(items []uint32, entries []Entry, ptwu float64) *List {
	n := len(entries)
	l := &List{
		Items:              items,
		Tids:               make([]uint32, n),
		Utilities:          make([]float64, n),
		RemainingUtilities: make([]float64, n),
		LogProbabilities:   make([]float64, n),
		PTWU:               ptwu,
	}

	logComplement := 0.0
	var lastTid uint32
	for i, e := range entries {
		if i > 0 && e.Tid <= lastTid {
			panic(fmt.Sprintf("upu: non-ascending tid in entry stream (prev=%d, next=%d)", lastTid, e.Tid))
		}
		lastTid = e.Tid

		l.Tids[i] = e.Tid
		l.Utilities[i] = e.Utility
		l.RemainingUtilities[i] = e.Remaining
		l.LogProbabilities[i] = numeric.ClampLog(e.LogProb)

		p := numeric.Exp(l.LogProbabilities[i])
		l.ExpectedUtility += e.Utility * p
		l.PositiveUpperBound += p * max0(e.Utility+e.Remaining)
		logComplement = numeric.AccumulateComplement(logComplement, l.LogProbabilities[i])
	}
	l.ExistentialProbability = numeric.ExistentialProbability(logComplement)

	return l
}

// Len returns the number of transactions carried by the list.
func (l *List) Len() int { return len(l.Tids) }

// MaxRank reports the highest rank among l.Items, or -1 if no item has a
// rank. Callers supply a rank lookup since List itself is rank-agnostic.
func (l *List) MaxRank(rank func(uint32) int) int {
	max := -1
	for _, it := range l.Items {
		if r := rank(it); r > max {
			max = r
		}
	}
	return max
}

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}
