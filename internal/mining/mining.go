// Package mining wires the pipeline end to end (§4.1): preprocess, rank,
// seed, then scheduled search feeding one shared Top-K collector. It is
// the single entry point every caller — the CLI, a future library
// consumer, tests — goes through.
package mining

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rawblock/ptk-huim/internal/collector"
	"github.com/rawblock/ptk-huim/internal/join"
	"github.com/rawblock/ptk-huim/internal/preprocess"
	"github.com/rawblock/ptk-huim/internal/rank"
	"github.com/rawblock/ptk-huim/internal/scheduler"
	"github.com/rawblock/ptk-huim/internal/search"
	"github.com/rawblock/ptk-huim/internal/seed"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// InvariantError reports a configuration or runtime value that violates
// one of the pipeline's stated invariants (§7).
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "mining: " + e.Msg }

// Options configures one mining run. Zero-value Strategy/Join/Collector
// default to DFS, two-pointer join, and the baseline collector.
type Options struct {
	K       int
	MinProb float64

	Strategy  model.Strategy
	Join      model.JoinVariant
	Collector model.CollectorKind

	Parallel bool

	// ShardCount is the number of shards the sharded collector uses;
	// ignored for other collector kinds. Defaults to 8 if <= 0.
	ShardCount int
	// LazyDrainInterval controls the lazy collector's background drain
	// cadence; ignored for other collector kinds. Defaults to 1ms if <= 0.
	LazyDrainInterval time.Duration

	// OnAdmit, if non-nil, is invoked every time a pattern is admitted or
	// improved — the hook the live-progress server subscribes through.
	OnAdmit func(model.Pattern, float64)
}

func (o *Options) validate() error {
	if o.K <= 0 {
		return &InvariantError{Msg: fmt.Sprintf("k must be positive, got %d", o.K)}
	}
	if o.MinProb < 0 || o.MinProb > 1 {
		return &InvariantError{Msg: fmt.Sprintf("minProb must be in [0,1], got %g", o.MinProb)}
	}
	switch o.Strategy {
	case "", model.StrategyDFS, model.StrategyBestFirst, model.StrategyBreadthFirst, model.StrategyIDDFS:
	default:
		return &InvariantError{Msg: fmt.Sprintf("unknown strategy %q", o.Strategy)}
	}
	switch o.Join {
	case "", model.JoinTwoPointer, model.JoinExponentialSearch, model.JoinBinarySearch:
	default:
		return &InvariantError{Msg: fmt.Sprintf("unknown join variant %q", o.Join)}
	}
	switch o.Collector {
	case "", model.CollectorBaseline, model.CollectorSharded, model.CollectorLazy:
	default:
		return &InvariantError{Msg: fmt.Sprintf("unknown collector kind %q", o.Collector)}
	}
	return nil
}

func joinVariant(v model.JoinVariant) join.Variant {
	switch v {
	case model.JoinExponentialSearch:
		return join.Exponential
	case model.JoinBinarySearch:
		return join.Binary
	default:
		return join.TwoPointer
	}
}

func newCollector(o *Options) (collector.Collector, func()) {
	switch o.Collector {
	case model.CollectorSharded:
		n := o.ShardCount
		if n <= 0 {
			n = 8
		}
		return collector.NewSharded(o.K, n, o.OnAdmit), func() {}
	case model.CollectorLazy:
		c := collector.NewLazy(o.K, o.LazyDrainInterval, o.OnAdmit)
		return c, c.Close
	default:
		return collector.NewBaseline(o.K, o.OnAdmit), func() {}
	}
}

// Run executes one complete mining pass: preprocess, rank, seed, search,
// and returns the Top-K patterns sorted by expected utility descending.
func Run(ctx context.Context, txs []model.Transaction, profit model.ProfitTable, opts Options) ([]model.Pattern, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	stats, err := preprocess.Run(ctx, txs, profit, opts.Parallel)
	if err != nil {
		return nil, fmt.Errorf("mining: preprocess: %w", err)
	}

	r := rank.Build(stats, opts.MinProb)
	log.Printf("[Mining] %d items survived ranking", r.Size())

	singles, err := seed.BuildSingleItemLists(ctx, txs, profit, stats, r, opts.MinProb, opts.Parallel)
	if err != nil {
		return nil, fmt.Errorf("mining: seed: %w", err)
	}

	coll, stop := newCollector(&opts)
	defer stop()

	for _, l := range singles {
		coll.TryAdmit(l)
	}

	sp := &search.Space{
		Singles:   singles,
		Ranking:   r,
		Collector: coll,
		Join:      joinVariant(opts.Join),
		MinProb:   opts.MinProb,
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = model.StrategyDFS
	}

	if err := scheduler.Run(ctx, sp, r, strategy, opts.Parallel); err != nil {
		return nil, fmt.Errorf("mining: search: %w", err)
	}

	patterns := coll.Snapshot()
	log.Printf("[Mining] run complete, %d patterns retained", len(patterns))
	return patterns, nil
}
