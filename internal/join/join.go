// Package join implements the UPU-List join operator (§4.5): intersecting
// a prefix list with a singleton extension list while recomputing EU, PUB,
// and the EP log-complement in the same linear pass. Three intersection
// mechanisms are provided; all three are required to produce bit-equal
// results given the same inputs (§8, differential property).
package join

import (
	"github.com/rawblock/ptk-huim/internal/numeric"
	"github.com/rawblock/ptk-huim/internal/upu"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// Variant selects the intersection mechanism. All variants traverse A
// left-to-right and, on a match, process transactions in the same tid
// order, which is what makes them differentially testable.
type Variant int

const (
	TwoPointer Variant = iota
	Exponential
	Binary
)

// accumulator folds one matching (A,B) transaction pair into the running
// joined aggregates, shared by all three variants so they accumulate in
// identical order.
type accumulator struct {
	tids      []uint32
	utilities []float64
	remaining []float64
	logProbs  []float64

	sumEU         float64
	pub           float64
	logComplement float64
}

func (acc *accumulator) add(tid uint32, a, b *upu.List, ai, bi int) {
	u := a.Utilities[ai] + b.Utilities[bi]
	rem := min64(a.RemainingUtilities[ai], b.RemainingUtilities[bi])
	lp := numeric.ClampLog(a.LogProbabilities[ai] + b.LogProbabilities[bi])

	p := numeric.Exp(lp)
	acc.sumEU += u * p
	acc.pub += p * max0(u+rem)
	acc.logComplement = numeric.AccumulateComplement(acc.logComplement, lp)

	acc.tids = append(acc.tids, tid)
	acc.utilities = append(acc.utilities, u)
	acc.remaining = append(acc.remaining, rem)
	acc.logProbs = append(acc.logProbs, lp)
}

func (acc *accumulator) finish(items []uint32, ptwu float64) *upu.List {
	if len(acc.tids) == 0 {
		return nil
	}
	return &upu.List{
		Items:                  items,
		Tids:                   acc.tids,
		Utilities:              acc.utilities,
		RemainingUtilities:     acc.remaining,
		LogProbabilities:       acc.logProbs,
		PTWU:                   ptwu,
		ExpectedUtility:        acc.sumEU,
		PositiveUpperBound:     acc.pub,
		ExistentialProbability: numeric.ExistentialProbability(acc.logComplement),
	}
}

// Join intersects A (the prefix list for itemset X) with B (the singleton
// list for extension item j) and returns the joined list for X∪{j}, or nil
// if the join is statically pruned on PTWU or produces no matches (§4.5).
func Join(variant Variant, a, b *upu.List, theta float64) *upu.List {
	joinedPTWU := minf(a.PTWU, b.PTWU)
	if numeric.Less(joinedPTWU, theta) {
		return nil
	}

	items := make([]uint32, 0, len(a.Items)+1)
	items = append(items, a.Items...)
	items = append(items, b.Items...)
	items = model.SortedItems(items)

	acc := &accumulator{
		tids:      make([]uint32, 0, minInt(a.Len(), b.Len())),
		utilities: make([]float64, 0, minInt(a.Len(), b.Len())),
		remaining: make([]float64, 0, minInt(a.Len(), b.Len())),
		logProbs:  make([]float64, 0, minInt(a.Len(), b.Len())),
	}

	switch variant {
	case Exponential:
		joinExponential(a, b, acc)
	case Binary:
		joinBinary(a, b, acc)
	default:
		joinTwoPointer(a, b, acc)
	}

	return acc.finish(items, joinedPTWU)
}

// joinTwoPointer is the reference O(|A|+|B|) merge-style intersection.
func joinTwoPointer(a, b *upu.List, acc *accumulator) {
	ai, bi := 0, 0
	for ai < a.Len() && bi < b.Len() {
		at, bt := a.Tids[ai], b.Tids[bi]
		switch {
		case at == bt:
			acc.add(at, a, b, ai, bi)
			ai++
			bi++
		case at < bt:
			ai++
		default:
			bi++
		}
	}
}

// joinExponential performs a galloping search from a remembered cursor in
// B for each tid in A: it doubles its step until it overshoots the target,
// then binary-searches the bracketed range. This is the cheap-lane-first
// escalation strategy the teacher's solver ladder uses (try doubling
// before falling back to full binary search).
func joinExponential(a, b *upu.List, acc *accumulator) {
	bi := 0
	for ai := 0; ai < a.Len(); ai++ {
		target := a.Tids[ai]
		if bi >= b.Len() {
			break
		}
		if b.Tids[bi] > target {
			continue
		}

		step := 1
		lo := bi
		hi := bi
		for hi < b.Len() && b.Tids[hi] < target {
			lo = hi
			hi += step
			step *= 2
		}
		if hi > b.Len() {
			hi = b.Len()
		}

		pos := binarySearchTids(b.Tids, lo, hi, target)
		if pos < b.Len() && b.Tids[pos] == target {
			acc.add(target, a, b, ai, pos)
			bi = pos + 1
		} else {
			bi = pos
		}
	}
}

// joinBinary performs a plain binary search in B for every tid in A.
func joinBinary(a, b *upu.List, acc *accumulator) {
	for ai := 0; ai < a.Len(); ai++ {
		target := a.Tids[ai]
		pos := binarySearchTids(b.Tids, 0, len(b.Tids), target)
		if pos < len(b.Tids) && b.Tids[pos] == target {
			acc.add(target, a, b, ai, pos)
		}
	}
}

// binarySearchTids returns the smallest index in [lo,hi) whose tid is >=
// target, or hi if none.
func binarySearchTids(tids []uint32, lo, hi int, target uint32) int {
	for lo < hi {
		mid := (lo + hi) / 2
		if tids[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func minf(a, b float64) float64 { return min64(a, b) }

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
