package collector

import (
	"sort"

	"github.com/rawblock/ptk-huim/internal/upu"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// Sharded routes each itemset to exactly one of N independent Baseline
// collectors by hash(itemset) mod N, snapshotting by merging and
// re-sorting the top K of the N*K retained candidates. Correctness: every
// itemset routes to exactly one shard, so the global top-K is a subset of
// the union of each shard's own top-K (§4.7).
type Sharded struct {
	k       int
	shards  []*Baseline
	onAdmit func(model.Pattern, float64)
}

// NewSharded creates a sharded collector with n independent shards, each
// itself a K-capacity Baseline.
func NewSharded(k, n int, onAdmit func(model.Pattern, float64)) *Sharded {
	if n < 1 {
		n = 1
	}
	s := &Sharded{k: k, onAdmit: onAdmit}
	s.shards = make([]*Baseline, n)
	for i := range s.shards {
		s.shards[i] = NewBaseline(k, onAdmit)
	}
	return s
}

func (s *Sharded) shardFor(items []uint32) *Baseline {
	idx := hashItems(items) % uint64(len(s.shards))
	return s.shards[idx]
}

func (s *Sharded) TryAdmit(candidate *upu.List) bool {
	return s.shardFor(candidate.Items).TryAdmit(candidate)
}

// AdmissionThreshold returns the minimum of every shard's threshold: a
// candidate the scheduler wants to consider must clear the weakest
// shard's bar, since it could land in any shard. This is always <= the
// true global θ, so pruning against it is safe (never falsely rejects) at
// the cost of being slightly less aggressive than a single global θ would
// be — an intentional, documented looseness of the sharded variant.
func (s *Sharded) AdmissionThreshold() float64 {
	min := s.shards[0].AdmissionThreshold()
	for _, sh := range s.shards[1:] {
		if t := sh.AdmissionThreshold(); t < min {
			min = t
		}
	}
	return min
}

func (s *Sharded) Snapshot() []model.Pattern {
	var all []model.Pattern
	for _, sh := range s.shards {
		all = append(all, sh.Snapshot()...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ExpectedUtility != all[j].ExpectedUtility {
			return all[i].ExpectedUtility > all[j].ExpectedUtility
		}
		if len(all[i].Items) != len(all[j].Items) {
			return len(all[i].Items) < len(all[j].Items)
		}
		for x := range all[i].Items {
			if all[i].Items[x] != all[j].Items[x] {
				return all[i].Items[x] < all[j].Items[x]
			}
		}
		return false
	})
	if len(all) > s.k {
		all = all[:s.k]
	}
	return all
}
