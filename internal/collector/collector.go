// Package collector implements the Top-K admission structure (§4.7): a
// bounded best-K set keyed by expected utility, a monotone non-decreasing
// admission threshold read lock-free by every mining worker, and three
// interchangeable implementations (baseline, sharded, lazy-batched) that
// must agree on the final snapshot given the same admission sequence.
package collector

import (
	"container/heap"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rawblock/ptk-huim/internal/numeric"
	"github.com/rawblock/ptk-huim/internal/upu"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// Collector is the admission contract every implementation satisfies.
type Collector interface {
	// TryAdmit offers a joined UPU-List as a candidate pattern. Baseline and
	// Sharded return true if the pattern was admitted or improved an
	// existing entry; Lazy returns true once the candidate is queued, and a
	// queued candidate can still be rejected when the queue is drained.
	TryAdmit(candidate *upu.List) bool
	// AdmissionThreshold returns the current θ: the EU of the weakest
	// retained pattern, or 0 if fewer than K patterns are held. Safe to
	// call from any goroutine without locking.
	AdmissionThreshold() float64
	// Snapshot returns the collected patterns sorted by EU descending,
	// tie-broken per the total order in §4.7.
	Snapshot() []model.Pattern
}

// record is one retained candidate: the itemset, its EU/EP, and a cached
// sort key.
type record struct {
	items []uint32
	eu    float64
	ep    float64
	key   string // sorted items joined, for map lookups and tie-break
}

func itemsKey(items []uint32) string {
	b := make([]byte, 0, len(items)*5)
	for i, it := range items {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendUint(b, it)
	}
	return string(b)
}

func appendUint(b []byte, v uint32) []byte {
	if v == 0 {
		return append(b, '0')
	}
	var tmp [10]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
	}
	return append(b, tmp[i:]...)
}

// less implements the total order of §4.7: EU ascending, then |items|
// ascending, then sorted item-ids lexicographic — used by the heap (as a
// min-heap, so this IS the heap's natural "less").
func less(a, b *record) bool {
	if a.eu != b.eu {
		return a.eu < b.eu
	}
	if len(a.items) != len(b.items) {
		return len(a.items) < len(b.items)
	}
	for i := range a.items {
		if a.items[i] != b.items[i] {
			return a.items[i] < b.items[i]
		}
	}
	return false
}

// recordHeap is a min-heap by the §4.7 total order, so the root is always
// the weakest retained pattern (cheapest to evict).
type recordHeap []*record

func (h recordHeap) Len() int            { return len(h) }
func (h recordHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h recordHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *recordHeap) Push(x interface{}) { *h = append(*h, x.(*record)) }
func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Baseline is the reference collector implementation: a min-heap guarded
// by a single mutex, an index for O(1) duplicate detection, and an
// atomically-stored threshold writers update only after the heap mutation
// is visible (§4.7, §9).
//
// Grounded on internal/heuristics/alert_system.go's AlertManager: a
// mutex-guarded bounded history plus a size cap plus an optional callback
// fired on state change.
type Baseline struct {
	k int

	mu      sync.Mutex
	h       recordHeap
	byItems map[string]*record

	theta atomic.Value // float64
	size  atomic.Int32 // mirrors len(h), read lock-free by the fast path

	onAdmit func(pattern model.Pattern, threshold float64)
}

// NewBaseline creates a baseline collector retaining at most k patterns.
// onAdmit, if non-nil, is invoked (under the collector's lock) every time
// a candidate is admitted or improves an existing record — the hook the
// live-progress server's broadcast uses.
func NewBaseline(k int, onAdmit func(model.Pattern, float64)) *Baseline {
	b := &Baseline{
		k:       k,
		byItems: make(map[string]*record),
		onAdmit: onAdmit,
	}
	b.theta.Store(0.0)
	return b
}

func (b *Baseline) AdmissionThreshold() float64 {
	return b.theta.Load().(float64)
}

// TryAdmit implements the admission algorithm of §4.7: a lock-free
// rejection fast path, then a locked re-check (double-checked admission,
// grounded on the same atomic-fast-path-then-lock structure as
// BlockScanner's atomic progress counters guarding a lazily-started scan).
func (b *Baseline) TryAdmit(candidate *upu.List) bool {
	if b.atCapacityFast() && numeric.Less(candidate.ExpectedUtility, b.AdmissionThreshold()) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.h) >= b.k && numeric.Less(candidate.ExpectedUtility, b.AdmissionThreshold()) {
		return false
	}

	key := itemsKey(candidate.Items)
	if existing, ok := b.byItems[key]; ok {
		if candidate.ExpectedUtility > existing.eu+numeric.EPSILON {
			b.replace(existing, candidate)
			b.notify(candidate)
			return true
		}
		return false
	}

	rec := &record{items: append([]uint32(nil), candidate.Items...), eu: candidate.ExpectedUtility, ep: candidate.ExistentialProbability, key: key}
	heap.Push(&b.h, rec)
	b.byItems[key] = rec

	if len(b.h) > b.k {
		evicted := heap.Pop(&b.h).(*record)
		delete(b.byItems, evicted.key)
	}
	b.updateThreshold()
	b.notify(candidate)
	return true
}

// atCapacityFast reads the mirrored size atomically, touching no mutex —
// the lock-free fast path of §4.7 step 1, the primary contention-reduction
// mechanism for workers that are about to be rejected anyway.
func (b *Baseline) atCapacityFast() bool {
	return int(b.size.Load()) >= b.k
}

// replace swaps an existing record's EU/EP in place and re-heapifies,
// since its position in the min-heap may need to move.
func (b *Baseline) replace(existing *record, candidate *upu.List) {
	existing.eu = candidate.ExpectedUtility
	existing.ep = candidate.ExistentialProbability
	heap.Init(&b.h)
	b.updateThreshold()
}

// updateThreshold must run after the heap mutation that produced the new
// root is fully visible: writers write θ after the heap write, never
// before (§9). It also refreshes the atomically-mirrored size the
// lock-free fast path reads, for the same reason: after the heap write,
// never before.
func (b *Baseline) updateThreshold() {
	b.size.Store(int32(len(b.h)))
	if len(b.h) < b.k {
		b.theta.Store(0.0)
		return
	}
	b.theta.Store(b.h[0].eu)
}

func (b *Baseline) notify(candidate *upu.List) {
	if b.onAdmit == nil {
		return
	}
	b.onAdmit(model.Pattern{
		Items:                  append([]uint32(nil), candidate.Items...),
		ExpectedUtility:        candidate.ExpectedUtility,
		ExistentialProbability: candidate.ExistentialProbability,
	}, b.AdmissionThreshold())
}

// Snapshot returns the retained patterns sorted by EU descending, using
// the §4.7 total order's reverse for the descending sort and its forward
// form for the tie-break, so ties resolve deterministically both ways.
func (b *Baseline) Snapshot() []model.Pattern {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs := make([]*record, len(b.h))
	copy(recs, b.h)
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].eu != recs[j].eu {
			return recs[i].eu > recs[j].eu
		}
		return less(recs[i], recs[j])
	})

	out := make([]model.Pattern, len(recs))
	for i, r := range recs {
		out[i] = model.Pattern{Items: append([]uint32(nil), r.items...), ExpectedUtility: r.eu, ExistentialProbability: r.ep}
	}
	return out
}

// hashItems is used by the Sharded collector to route a candidate to
// exactly one shard.
func hashItems(items []uint32) uint64 {
	h := fnv.New64a()
	for _, it := range items {
		var buf [4]byte
		buf[0] = byte(it)
		buf[1] = byte(it >> 8)
		buf[2] = byte(it >> 16)
		buf[3] = byte(it >> 24)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
