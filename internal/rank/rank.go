// Package rank implements the item ranking (§4.3): the canonical
// prefix-growth order survivors are explored in, plus O(1) rank<->item
// lookups and a binary-search helper for "first rank whose PTWU >= tau".
package rank

import (
	"sort"

	"github.com/rawblock/ptk-huim/internal/numeric"
	"github.com/rawblock/ptk-huim/internal/preprocess"
)

// Ranking is the total order on surviving items: (ptwu ascending, item-id
// ascending). rank(item) is O(1) via a dense array sized to maxItemID+1;
// item_at(rank) is O(1) via a slice.
type Ranking struct {
	itemAt   []uint32  // rank -> item-id
	ptwuAt   []float64 // rank -> ptwu, for binary search
	rankOf   []int32   // item-id -> rank, or -1 if excluded
}

// Build filters items by EP >= minProb - EPSILON and ptwu > 0 (items with
// ptwu == 0 only ever sit beside negative-profit items and can never
// anchor a qualifying itemset), then sorts survivors by (ptwu asc, item-id
// asc).
func Build(stats *preprocess.Stats, minProb float64) *Ranking {
	type cand struct {
		item uint32
		ptwu float64
	}
	var cands []cand
	for d, itemID := range stats.DenseToSparse {
		ptwu := stats.PTWU[d]
		if ptwu <= 0 {
			continue
		}
		ep := numeric.ExistentialProbability(stats.LogComplement[d])
		if ep < minProb-numeric.EPSILON {
			continue
		}
		cands = append(cands, cand{item: itemID, ptwu: ptwu})
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].ptwu != cands[j].ptwu {
			return cands[i].ptwu < cands[j].ptwu
		}
		return cands[i].item < cands[j].item
	})

	r := &Ranking{
		itemAt: make([]uint32, len(cands)),
		ptwuAt: make([]float64, len(cands)),
		rankOf: make([]int32, stats.MaxItemID+1),
	}
	for i := range r.rankOf {
		r.rankOf[i] = -1
	}
	for i, c := range cands {
		r.itemAt[i] = c.item
		r.ptwuAt[i] = c.ptwu
		r.rankOf[c.item] = int32(i)
	}
	return r
}

// Size returns the number of surviving items (the root prefix count).
func (r *Ranking) Size() int { return len(r.itemAt) }

// Rank returns the rank of item, or -1 if it did not survive filtering.
func (r *Ranking) Rank(item uint32) int {
	if int(item) >= len(r.rankOf) {
		return -1
	}
	return int(r.rankOf[item])
}

// ItemAt returns the item at the given rank.
func (r *Ranking) ItemAt(i int) uint32 { return r.itemAt[i] }

// PTWUAt returns the PTWU of the item at the given rank, in rank order, to
// support binary search for a PTWU threshold.
func (r *Ranking) PTWUAt(i int) float64 { return r.ptwuAt[i] }

// FirstRankAtLeast returns the smallest rank whose PTWU >= tau, or Size()
// if no such rank exists. Ranks are PTWU-ascending, so this is a plain
// binary search over r.ptwuAt.
func (r *Ranking) FirstRankAtLeast(tau float64) int {
	lo, hi := 0, len(r.ptwuAt)
	for lo < hi {
		mid := (lo + hi) / 2
		if r.ptwuAt[mid] >= tau {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
