// Package seed implements the UPU-List builder's transaction-scan phase
// (§4.4): for every transaction it emits a per-item entry stream (utility,
// remaining utility via a rank-ordered suffix sum, log-probability), groups
// entries by item, and hands each item's tid-sorted stream to
// upu.Builder to produce the single-item UPU-Lists that seed the search.
package seed

import (
	"context"
	"log"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rawblock/ptk-huim/internal/numeric"
	"github.com/rawblock/ptk-huim/internal/preprocess"
	"github.com/rawblock/ptk-huim/internal/rank"
	"github.com/rawblock/ptk-huim/internal/upu"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// txLeafSize is the transaction-range bisection base case for the parallel
// builder (§4.4): "Parallelization: bisect transaction range, each leaf
// builds a local map item -> entry vector").
const txLeafSize = 256

// BuildSingleItemLists produces one UPU-List per surviving item (per
// r.Size()), dropping any whose resulting EP falls below minProb — a
// belt-and-braces check, since the ranker already filtered on EP.
func BuildSingleItemLists(ctx context.Context, txs []model.Transaction, profit model.ProfitTable, stats *preprocess.Stats, r *rank.Ranking, minProb float64, parallel bool) (map[uint32]*upu.List, error) {
	var byItem map[uint32][]upu.Entry
	var err error
	if parallel && len(txs) > txLeafSize {
		byItem, err = scanParallel(ctx, txs, profit, r)
	} else {
		byItem = make(map[uint32][]upu.Entry)
		scanLeaf(txs, profit, r, byItem)
	}
	if err != nil {
		return nil, err
	}

	lists := make(map[uint32]*upu.List, len(byItem))
	for item, entries := range byItem {
		d := stats.Dense(item)
		if d < 0 {
			panic("seed: PTWU missing for item during UPU-List construction")
		}
		b := upu.NewBuilder([]uint32{item}, stats.PTWU[d])
		l := b.Build(entries)
		if l.ExistentialProbability < minProb-numeric.EPSILON {
			continue
		}
		lists[item] = l
	}
	log.Printf("[Builder] built %d single-item UPU-Lists from %d candidate items", len(lists), r.Size())
	return lists, nil
}

// scanLeaf implements phase 1d for one contiguous transaction range,
// appending entries into byItem (which must not be shared with a
// concurrently-running leaf).
func scanLeaf(txs []model.Transaction, profit model.ProfitTable, r *rank.Ranking, byItem map[uint32][]upu.Entry) {
	var ranked []rankedItem
	for _, t := range txs {
		ranked = ranked[:0]
		for id, occ := range t.Items {
			rk := r.Rank(id)
			if rk < 0 {
				continue
			}
			p, ok := profit[id]
			if !ok {
				p = 0
			}
			ranked = append(ranked, rankedItem{id: id, rank: rk, qty: occ.Quantity, prob: occ.Probability, profit: p})
		}
		if len(ranked) == 0 {
			continue
		}
		sortByRank(ranked)

		// Right-to-left suffix accumulator (§4.4): suffix[p] is the sum of
		// max(0, profit*qty) over every item strictly to the right of p in
		// rank order.
		acc := 0.0
		suffix := make([]float64, len(ranked))
		for p := len(ranked) - 1; p >= 0; p-- {
			suffix[p] = acc
			contribution := ranked[p].profit * float64(ranked[p].qty)
			if contribution > 0 {
				acc += contribution
			}
		}

		for p, it := range ranked {
			logProb := numeric.ClampLog(logOf(it.prob))
			entry := upu.Entry{
				Tid:       t.TID,
				Utility:   it.profit * float64(it.qty),
				Remaining: suffix[p],
				LogProb:   logProb,
			}
			byItem[it.id] = append(byItem[it.id], entry)
		}
	}
}

// scanParallel bisects the transaction range fork-last style; each leaf
// builds a private local map, merged by appending the right side's entry
// vectors onto the left side's (§4.4).
func scanParallel(ctx context.Context, txs []model.Transaction, profit model.ProfitTable, r *rank.Ranking) (map[uint32][]upu.Entry, error) {
	var bisect func(lo, hi int) map[uint32][]upu.Entry
	bisect = func(lo, hi int) map[uint32][]upu.Entry {
		if hi-lo <= txLeafSize {
			local := make(map[uint32][]upu.Entry)
			scanLeaf(txs[lo:hi], profit, r, local)
			return local
		}
		mid := lo + (hi-lo)/2

		var right map[uint32][]upu.Entry
		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			right = bisect(mid, hi)
			return nil
		})
		left := bisect(lo, mid)
		_ = g.Wait()

		for item, entries := range right {
			left[item] = append(left[item], entries...)
		}
		return left
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return bisect(0, len(txs)), nil
}

type rankedItem struct {
	id     uint32
	rank   int
	qty    uint32
	prob   float64
	profit float64
}

// sortByRank implements the adaptive sort of §4.4: counting sort over the
// rank range when that range is small relative to the item count (range <
// 4*m), otherwise a comparison sort.
func sortByRank(items []rankedItem) {
	m := len(items)
	if m <= 1 {
		return
	}
	minRank, maxRank := items[0].rank, items[0].rank
	for _, it := range items[1:] {
		if it.rank < minRank {
			minRank = it.rank
		}
		if it.rank > maxRank {
			maxRank = it.rank
		}
	}
	rangeSize := maxRank - minRank + 1

	if rangeSize < 4*m {
		countingSortByRank(items, minRank, rangeSize)
		return
	}
	sort.Slice(items, func(i, j int) bool { return items[i].rank < items[j].rank })
}

// countingSortByRank buckets items by (rank - minRank) and flattens the
// buckets back in order; stable, O(m + range).
func countingSortByRank(items []rankedItem, minRank, rangeSize int) {
	buckets := make([][]rankedItem, rangeSize)
	for _, it := range items {
		idx := it.rank - minRank
		buckets[idx] = append(buckets[idx], it)
	}
	i := 0
	for _, b := range buckets {
		for _, it := range b {
			items[i] = it
			i++
		}
	}
}

func logOf(p float64) float64 {
	if p <= 0 {
		return numeric.LogZero
	}
	return math.Log(p)
}
