// Package preprocess implements the single database pass that builds the
// dense item index and the per-item PTWU / log-complement-of-EP aggregates
// the rest of the pipeline depends on (§4.2).
package preprocess

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/rawblock/ptk-huim/internal/numeric"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// leafSize is the transaction-range bisection base case for the parallel
// preprocessor (§4.2): at or below this many transactions, a leaf computes
// sequentially into a thread-local array.
const leafSize = 256

// Stats holds the dense-indexed per-item aggregates computed by Preprocess,
// plus the sparse<->dense translation tables required because item ids can
// be sparse (§3).
type Stats struct {
	MaxItemID     uint32
	SparseToDense []int32 // sparse item-id -> dense index, or -1
	DenseToSparse []uint32

	PTWU         []float64 // per dense index
	LogComplement []float64 // per dense index, Σ log(1 - P(i,T))
}

// DenseSize returns the number of distinct items tracked.
func (s *Stats) DenseSize() int { return len(s.DenseToSparse) }

// Dense returns the dense index for a sparse item-id, or -1 if the item was
// never observed in the database.
func (s *Stats) Dense(itemID uint32) int32 {
	if int(itemID) >= len(s.SparseToDense) {
		return -1
	}
	return s.SparseToDense[itemID]
}

// Run scans the database once (or in parallel, bisecting transaction
// ranges down to leafSize) and computes PTWU and the EP log-complement for
// every item that appears. profit entries absent from the table are
// treated as unknown and ignored, matching §3's profit-table contract.
func Run(ctx context.Context, txs []model.Transaction, profit model.ProfitTable, parallel bool) (*Stats, error) {
	maxItem := uint32(0)
	for _, t := range txs {
		for id := range t.Items {
			if id > maxItem {
				maxItem = id
			}
		}
	}

	sparseToDense := make([]int32, maxItem+1)
	for i := range sparseToDense {
		sparseToDense[i] = -1
	}
	denseToSparse := make([]uint32, 0, maxItem+1)
	for _, t := range txs {
		for id := range t.Items {
			if sparseToDense[id] == -1 {
				sparseToDense[id] = int32(len(denseToSparse))
				denseToSparse = append(denseToSparse, id)
			}
		}
	}

	n := len(denseToSparse)
	stats := &Stats{
		MaxItemID:     maxItem,
		SparseToDense: sparseToDense,
		DenseToSparse: denseToSparse,
		PTWU:          make([]float64, n),
		LogComplement: make([]float64, n),
	}

	if !parallel || len(txs) <= leafSize {
		scanLeaf(txs, profit, sparseToDense, stats.PTWU, stats.LogComplement)
		log.Printf("[Preprocessor] scanned %d transactions, %d distinct items (sequential)", len(txs), n)
		return stats, nil
	}

	ptwu, logComp, err := scanParallel(ctx, txs, profit, sparseToDense, n)
	if err != nil {
		return nil, err
	}
	stats.PTWU = ptwu
	stats.LogComplement = logComp
	log.Printf("[Preprocessor] scanned %d transactions, %d distinct items (parallel)", len(txs), n)
	return stats, nil
}

// scanLeaf computes PTU per transaction and folds it into ptwu/logComp for
// every item the transaction contains (§4.2 steps 1-2).
func scanLeaf(txs []model.Transaction, profit model.ProfitTable, sparseToDense []int32, ptwu, logComp []float64) {
	for _, t := range txs {
		ptu := 0.0
		for id, occ := range t.Items {
			p, ok := profit[id]
			if !ok || p <= 0 {
				continue
			}
			ptu += p * float64(occ.Quantity)
		}
		for id, occ := range t.Items {
			d := sparseToDense[id]
			if d < 0 {
				continue
			}
			ptwu[d] += ptu
			logComp[d] += numeric.LogComplement(occ.Probability)
		}
	}
}

// scanParallel recursively bisects the transaction range fork-last style:
// it spawns a goroutine for the right half and computes the left half
// inline, each leaf writing into private thread-local arrays that are
// merged by element-wise addition afterward — no shared mutation while
// leaves run (§4.2).
func scanParallel(ctx context.Context, txs []model.Transaction, profit model.ProfitTable, sparseToDense []int32, n int) ([]float64, []float64, error) {
	ptwu := make([]float64, n)
	logComp := make([]float64, n)

	var bisect func(lo, hi int) ([]float64, []float64)
	bisect = func(lo, hi int) ([]float64, []float64) {
		if hi-lo <= leafSize {
			localPTWU := make([]float64, n)
			localLogComp := make([]float64, n)
			scanLeaf(txs[lo:hi], profit, sparseToDense, localPTWU, localLogComp)
			return localPTWU, localLogComp
		}

		mid := lo + (hi-lo)/2

		var rightPTWU, rightLogComp []float64
		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			rightPTWU, rightLogComp = bisect(mid, hi)
			return nil
		})
		leftPTWU, leftLogComp := bisect(lo, mid)
		_ = g.Wait()

		for i := 0; i < n; i++ {
			leftPTWU[i] += rightPTWU[i]
			leftLogComp[i] += rightLogComp[i]
		}
		return leftPTWU, leftLogComp
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	merged, mergedLog := bisect(0, len(txs))
	copy(ptwu, merged)
	copy(logComp, mergedLog)
	return ptwu, logComp, nil
}
