// Package scheduler partitions the root item range among workers by total
// PTWU rather than by count, so that a shard of a few high-PTWU roots and
// a shard of many low-PTWU roots carry comparable search cost (§4.2 notes
// PTWU as the workload proxy; §5 names PTWU-weighted bisection as the
// scheduling strategy).
package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rawblock/ptk-huim/internal/rank"
	"github.com/rawblock/ptk-huim/internal/search"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// FineGrainThreshold is the root-range bisection base case: at or below
// this width, every prefix in the range becomes its own subtask rather
// than bisecting further, since high-PTWU prefixes carry dramatically
// larger subtrees than low-PTWU ones and the work-stealing pool can only
// balance that skew if each prefix is independently schedulable (§5).
const FineGrainThreshold = 16

// Run partitions [0, ranking.Size()) by PTWU-weighted bisection and
// explores each partition with strategy, bounding in-flight tasks to
// GOMAXPROCS via a weighted semaphore. If parallel is false, or the root
// range is already at or below FineGrainThreshold, it runs as one
// sequential task with no goroutines spawned.
func Run(ctx context.Context, sp *search.Space, r *rank.Ranking, strategy model.Strategy, parallel bool) error {
	n := r.Size()
	if n == 0 {
		return nil
	}
	if !parallel || n <= FineGrainThreshold {
		return search.RunRange(ctx, sp, strategy, 0, n)
	}

	sem := semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))
	g, gctx := errgroup.WithContext(ctx)

	var bisect func(lo, hi int) error
	bisect = func(lo, hi int) error {
		width := hi - lo
		switch {
		case width <= 0:
			return nil
		case width == 1:
			// A single prefix needs no task machinery at all: mine it
			// directly on the dispatching goroutine.
			return search.RunRange(gctx, sp, strategy, lo, hi)
		case width <= FineGrainThreshold:
			for p := lo; p < hi; p++ {
				p := p
				g.Go(func() error {
					if err := sem.Acquire(gctx, 1); err != nil {
						return err
					}
					defer sem.Release(1)
					return search.RunRange(gctx, sp, strategy, p, p+1)
				})
			}
			return nil
		default:
			mid := ptwuWeightedSplit(r, lo, hi)
			if err := bisect(lo, mid); err != nil {
				return err
			}
			return bisect(mid, hi)
		}
	}

	dispatchErr := bisect(0, n)
	waitErr := g.Wait()
	if dispatchErr != nil {
		return dispatchErr
	}
	return waitErr
}

// ptwuWeightedSplit returns the first split point in (lo, hi) at which the
// left half's total PTWU reaches half of the range's total PTWU,
// falling back to the midpoint when the range carries zero PTWU (every
// root in it having been excluded would mean a degenerate ranking, but a
// zero-total range can legitimately occur when the slice crosses into
// all-excluded territory via a caller-supplied lo/hi).
func ptwuWeightedSplit(r *rank.Ranking, lo, hi int) int {
	total := 0.0
	for i := lo; i < hi; i++ {
		total += r.PTWUAt(i)
	}
	if total <= 0 {
		return lo + (hi-lo)/2
	}

	half := total / 2
	acc := 0.0
	for i := lo; i < hi; i++ {
		acc += r.PTWUAt(i)
		if acc >= half {
			split := i + 1
			if split <= lo {
				split = lo + 1
			}
			if split >= hi {
				split = hi - 1
			}
			return split
		}
	}
	return lo + (hi-lo)/2
}
