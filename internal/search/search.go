// Package search implements the four interchangeable search strategies of
// §4.6 (DFS, Best-First, Breadth-First, Iterative-Deepening DFS). Every
// strategy shares the same three-tier pruning — PTWU (enforced inside
// join.Join via the θ argument), EP (anti-monotone, checked here on the
// joined list, since join.Join is agnostic to minProb), PUB (checked here
// before recursing) — so
// the strategies differ only in traversal order, never in what they admit.
package search

import (
	"container/heap"
	"container/list"
	"context"

	"github.com/rawblock/ptk-huim/internal/collector"
	"github.com/rawblock/ptk-huim/internal/join"
	"github.com/rawblock/ptk-huim/internal/numeric"
	"github.com/rawblock/ptk-huim/internal/rank"
	"github.com/rawblock/ptk-huim/internal/upu"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// Space bundles everything a search strategy needs to read: the singleton
// UPU-Lists keyed by item-id, the canonical item ranking, the shared
// collector, and the join variant to extend with. It carries no mutable
// search state of its own, so the same Space can be handed to every worker
// a scheduler spawns.
type Space struct {
	Singles  map[uint32]*upu.List
	Ranking  *rank.Ranking
	Collector collector.Collector
	Join     join.Variant
	MinProb  float64
}

// extend joins prefix with the singleton at rank r against the collector's
// current θ, applying the PTWU prune (inside join.Join) and the EP prune
// (here, since join.Join itself is agnostic to minProb). Returns nil if
// either prune fires or there were no matching transactions.
func (sp *Space) extend(prefix *upu.List, r int) *upu.List {
	ext, ok := sp.Singles[sp.Ranking.ItemAt(r)]
	if !ok {
		return nil
	}
	theta := sp.Collector.AdmissionThreshold()
	joined := join.Join(sp.Join, prefix, ext, theta)
	if joined == nil {
		return nil
	}
	if joined.ExistentialProbability < sp.MinProb-numeric.EPSILON {
		return nil
	}
	return joined
}

// visit decides, for a freshly joined node, whether it qualifies for
// admission and whether its own extensions are still worth generating.
// EP and PTWU have already been enforced by extend; this is the PUB tier.
func (sp *Space) visit(node *upu.List) (admit, recurse bool) {
	theta := sp.Collector.AdmissionThreshold()
	admit = !numeric.Less(node.ExpectedUtility, theta)
	recurse = !numeric.Less(node.PositiveUpperBound, theta)
	return
}

// Run drives the given strategy over every root item in sp.Ranking, using
// each singleton list as a depth-1 prefix and exploring extensions at
// ranks greater than its own.
func Run(ctx context.Context, sp *Space, strategy model.Strategy) error {
	return RunRange(ctx, sp, strategy, 0, sp.Ranking.Size())
}

// RunRange drives the given strategy over roots [lo, hi) only, letting a
// scheduler partition the root range across workers while every worker
// still reads the same shared Space and its one Collector.
func RunRange(ctx context.Context, sp *Space, strategy model.Strategy, lo, hi int) error {
	switch strategy {
	case model.StrategyBestFirst:
		return runBestFirst(ctx, sp, lo, hi)
	case model.StrategyBreadthFirst:
		return runBreadthFirst(ctx, sp, lo, hi)
	case model.StrategyIDDFS:
		return runIDDFS(ctx, sp, lo, hi)
	default:
		return runDFS(ctx, sp, lo, hi)
	}
}

// runDFS explores depth-first: each root is fully expanded (and its whole
// subtree) before the next root starts.
func runDFS(ctx context.Context, sp *Space, lo, hi int) error {
	for r := lo; r < hi; r++ {
		item := sp.Ranking.ItemAt(r)
		prefix, ok := sp.Singles[item]
		if !ok {
			continue
		}
		if err := dfsExpand(ctx, sp, prefix, r+1); err != nil {
			return err
		}
	}
	return nil
}

func dfsExpand(ctx context.Context, sp *Space, prefix *upu.List, startRank int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for r := startRank; r < sp.Ranking.Size(); r++ {
		joined := sp.extend(prefix, r)
		if joined == nil {
			continue
		}
		admit, recurse := sp.visit(joined)
		if admit {
			sp.Collector.TryAdmit(joined)
		}
		if recurse {
			if err := dfsExpand(ctx, sp, joined, r+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// runBreadthFirst explores level by level via a FIFO queue: every pending
// node at the current frontier is expanded before any of its children are.
func runBreadthFirst(ctx context.Context, sp *Space, lo, hi int) error {
	q := list.New()
	for r := lo; r < hi; r++ {
		item := sp.Ranking.ItemAt(r)
		if prefix, ok := sp.Singles[item]; ok {
			q.PushBack(bfsNode{prefix, r + 1})
		}
	}

	for q.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		front := q.Front()
		q.Remove(front)
		n := front.Value.(bfsNode)

		for r := n.rank; r < sp.Ranking.Size(); r++ {
			joined := sp.extend(n.prefix, r)
			if joined == nil {
				continue
			}
			admit, recurse := sp.visit(joined)
			if admit {
				sp.Collector.TryAdmit(joined)
			}
			if recurse {
				q.PushBack(bfsNode{joined, r + 1})
			}
		}
	}
	return nil
}

type bfsNode struct {
	prefix *upu.List
	rank   int
}

// runBestFirst explores the globally most promising node first, where
// "most promising" means highest PUB. A node's PUB is fixed when it is
// pushed but θ may rise afterwards, so every pop re-checks it against the
// current θ and drops it without expansion if it has gone stale — the
// same re-check idea as the teacher's lazily-validated scan state.
func runBestFirst(ctx context.Context, sp *Space, lo, hi int) error {
	pq := &bestFirstHeap{}
	heap.Init(pq)
	for r := lo; r < hi; r++ {
		item := sp.Ranking.ItemAt(r)
		if prefix, ok := sp.Singles[item]; ok {
			heap.Push(pq, &bestFirstNode{prefix: prefix, rank: r + 1, pub: prefix.PositiveUpperBound})
		}
	}

	for pq.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n := heap.Pop(pq).(*bestFirstNode)

		theta := sp.Collector.AdmissionThreshold()
		if numeric.Less(n.prefix.PositiveUpperBound, theta) {
			continue
		}

		for r := n.rank; r < sp.Ranking.Size(); r++ {
			joined := sp.extend(n.prefix, r)
			if joined == nil {
				continue
			}
			admit, recurse := sp.visit(joined)
			if admit {
				sp.Collector.TryAdmit(joined)
			}
			if recurse {
				heap.Push(pq, &bestFirstNode{prefix: joined, rank: r + 1, pub: joined.PositiveUpperBound})
			}
		}
	}
	return nil
}

type bestFirstNode struct {
	prefix *upu.List
	rank   int
	pub    float64
}

// bestFirstHeap is a max-heap by PUB.
type bestFirstHeap []*bestFirstNode

func (h bestFirstHeap) Len() int            { return len(h) }
func (h bestFirstHeap) Less(i, j int) bool  { return h[i].pub > h[j].pub }
func (h bestFirstHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *bestFirstHeap) Push(x interface{}) { *h = append(*h, x.(*bestFirstNode)) }
func (h *bestFirstHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// idddfsInitialDepth is the depth limit (maximum itemset size) of the first
// depth-limited pass of iterative deepening: depth 1 (singles only, a no-op pass since singles
// are already seeded) is skipped and the first real pass starts at depth
// 2, growing by one level per pass until a pass completes with no node cut
// off by the depth limit.
const idddfsInitialDepth = 2

// runIDDFS runs repeated depth-limited DFS passes, growing the depth limit
// by one each time, until a pass finishes without its cutoff signal firing
// — i.e. every remaining node was pruned by EP/PTWU/PUB rather than by the
// depth bound, so a deeper pass could find nothing new (§4.6).
func runIDDFS(ctx context.Context, sp *Space, lo, hi int) error {
	for depth := idddfsInitialDepth; ; depth++ {
		cutoff := false
		for r := lo; r < hi; r++ {
			item := sp.Ranking.ItemAt(r)
			prefix, ok := sp.Singles[item]
			if !ok {
				continue
			}
			hit, err := iddfsExpand(ctx, sp, prefix, r+1, depth-2)
			if err != nil {
				return err
			}
			cutoff = cutoff || hit
		}
		if !cutoff {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// iddfsExpand runs one depth-limited DFS pass rooted at prefix. It returns
// true if remainingDepth reached zero while a node still qualified for
// recursion — i.e. the depth bound, not pruning, cut the pass short.
func iddfsExpand(ctx context.Context, sp *Space, prefix *upu.List, startRank, remainingDepth int) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	cutoff := false
	for r := startRank; r < sp.Ranking.Size(); r++ {
		joined := sp.extend(prefix, r)
		if joined == nil {
			continue
		}
		admit, recurse := sp.visit(joined)
		if admit {
			sp.Collector.TryAdmit(joined)
		}
		if !recurse {
			continue
		}
		if remainingDepth <= 0 {
			cutoff = true
			continue
		}
		hit, err := iddfsExpand(ctx, sp, joined, r+1, remainingDepth-1)
		if err != nil {
			return false, err
		}
		cutoff = cutoff || hit
	}
	return cutoff, nil
}
