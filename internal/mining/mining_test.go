package mining

import (
	"context"
	"math"
	"testing"

	"github.com/rawblock/ptk-huim/pkg/model"
)

func tx(tid uint32, items map[uint32]model.Item) model.Transaction {
	return model.Transaction{TID: tid, Items: items}
}

func item(qty uint32, prob float64) model.Item {
	return model.Item{Quantity: qty, Probability: prob}
}

// TestScenarioA is the worked example from the specification.
func TestScenarioA(t *testing.T) {
	const itemA, itemB, itemC = 1, 2, 3
	txs := []model.Transaction{
		tx(1, map[uint32]model.Item{itemA: item(2, 0.8), itemB: item(1, 0.9)}),
		tx(2, map[uint32]model.Item{itemA: item(3, 0.7), itemC: item(2, 0.6)}),
	}
	profit := model.ProfitTable{itemA: 10, itemB: 15, itemC: 5}

	patterns, err := Run(context.Background(), txs, profit, Options{K: 3, MinProb: 0.1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	byKey := make(map[string]model.Pattern)
	for _, p := range patterns {
		byKey[itemsetKey(p.Items)] = p
	}

	check := func(key string, wantEU, wantEP float64) {
		p, ok := byKey[key]
		if !ok {
			t.Fatalf("expected %s in the result, got %v", key, patterns)
		}
		if math.Abs(p.ExpectedUtility-wantEU) > 1e-6 {
			t.Fatalf("%s: EU = %v, want %v", key, p.ExpectedUtility, wantEU)
		}
		if math.Abs(p.ExistentialProbability-wantEP) > 1e-6 {
			t.Fatalf("%s: EP = %v, want %v", key, p.ExistentialProbability, wantEP)
		}
	}
	check("1", 37.0, 0.94)
	check("1,2", 25.2, 0.72)
	check("1,3", 16.8, 0.42)
}

// TestScenarioB verifies negative-profit items don't spuriously inflate
// PTWU and don't appear in the result.
func TestScenarioB(t *testing.T) {
	const itemA, itemB = 1, 2
	txs := []model.Transaction{
		tx(1, map[uint32]model.Item{itemA: item(1, 1.0), itemB: item(1, 1.0)}),
	}
	profit := model.ProfitTable{itemA: 10, itemB: -100}

	patterns, err := Run(context.Background(), txs, profit, Options{K: 1, MinProb: 0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("expected exactly 1 pattern, got %d", len(patterns))
	}
	if itemsetKey(patterns[0].Items) != "1" {
		t.Fatalf("expected {A} alone, got %v", patterns[0].Items)
	}
	if math.Abs(patterns[0].ExpectedUtility-10) > 1e-9 {
		t.Fatalf("EU = %v, want 10", patterns[0].ExpectedUtility)
	}
}

// TestScenarioC verifies EP saturates to exactly 1.0 rather than
// underflowing below 1 across 2000 repeated near-certain transactions.
func TestScenarioC(t *testing.T) {
	const itemA = 1
	txs := make([]model.Transaction, 2000)
	for i := range txs {
		txs[i] = tx(uint32(i+1), map[uint32]model.Item{itemA: item(1, 0.999)})
	}
	profit := model.ProfitTable{itemA: 1}

	patterns, err := Run(context.Background(), txs, profit, Options{K: 1, MinProb: 0.99})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("expected exactly 1 pattern, got %d", len(patterns))
	}
	if patterns[0].ExistentialProbability != 1.0 {
		t.Fatalf("expected EP to report exactly 1.0, got %v", patterns[0].ExistentialProbability)
	}
}

// TestStrategiesAgree is a scaled-down scenario E: DFS, Best-First,
// Breadth-First and IDDFS must produce identical snapshots over the same
// database.
func TestStrategiesAgree(t *testing.T) {
	txs, profit := syntheticDatabase(30, 8)

	dfs, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Strategy: model.StrategyDFS})
	if err != nil {
		t.Fatalf("DFS run failed: %v", err)
	}
	best, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Strategy: model.StrategyBestFirst})
	if err != nil {
		t.Fatalf("Best-First run failed: %v", err)
	}
	assertSnapshotsEqual(t, dfs, best)

	bfs, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Strategy: model.StrategyBreadthFirst})
	if err != nil {
		t.Fatalf("Breadth-First run failed: %v", err)
	}
	assertSnapshotsEqual(t, dfs, bfs)

	iddfs, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Strategy: model.StrategyIDDFS})
	if err != nil {
		t.Fatalf("IDDFS run failed: %v", err)
	}
	assertSnapshotsEqual(t, dfs, iddfs)
}

// TestJoinVariantsAgreeEndToEnd is scenario F at the mining level.
func TestJoinVariantsAgreeEndToEnd(t *testing.T) {
	txs, profit := syntheticDatabase(60, 10)

	two, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Join: model.JoinTwoPointer})
	if err != nil {
		t.Fatalf("two-pointer run failed: %v", err)
	}
	exp, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Join: model.JoinExponentialSearch})
	if err != nil {
		t.Fatalf("exponential run failed: %v", err)
	}
	bin, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Join: model.JoinBinarySearch})
	if err != nil {
		t.Fatalf("binary run failed: %v", err)
	}
	assertSnapshotsEqual(t, two, exp)
	assertSnapshotsEqual(t, two, bin)
}

// TestNoParallelMatchesParallel is the round-trip property: disabling
// parallel execution must not change the result.
func TestNoParallelMatchesParallel(t *testing.T) {
	txs, profit := syntheticDatabase(600, 12)

	seq, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Parallel: false})
	if err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}
	par, err := Run(context.Background(), txs, profit, Options{K: 10, MinProb: 0.05, Parallel: true})
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}
	assertSnapshotsEqual(t, seq, par)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	_, err := Run(context.Background(), nil, nil, Options{K: 0, MinProb: 0.1})
	if err == nil {
		t.Fatal("expected an InvariantError for K <= 0")
	}
	_, err = Run(context.Background(), nil, nil, Options{K: 1, MinProb: 1.5})
	if err == nil {
		t.Fatal("expected an InvariantError for minProb outside [0,1]")
	}
}

func itemsetKey(items []uint32) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += itoa(it)
	}
	return out
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func assertSnapshotsEqual(t *testing.T, a, b []model.Pattern) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("snapshot length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if itemsetKey(a[i].Items) != itemsetKey(b[i].Items) {
			t.Fatalf("snapshot[%d] itemset mismatch: %v vs %v", i, a[i].Items, b[i].Items)
		}
		if math.Abs(a[i].ExpectedUtility-b[i].ExpectedUtility) > 1e-9 {
			t.Fatalf("snapshot[%d] EU mismatch: %v vs %v", i, a[i].ExpectedUtility, b[i].ExpectedUtility)
		}
	}
}

// syntheticDatabase builds a deterministic pseudo-random database of
// nTx transactions over nItems distinct items, with a mix of positive and
// negative profits, large enough to exercise parallel preprocessing/seed
// bisection and produce dozens of qualifying itemsets.
func syntheticDatabase(nTx, nItems int) ([]model.Transaction, model.ProfitTable) {
	rngState := uint64(12345)
	next := func() uint64 {
		rngState ^= rngState << 13
		rngState ^= rngState >> 7
		rngState ^= rngState << 17
		return rngState
	}

	profit := make(model.ProfitTable, nItems)
	for i := 1; i <= nItems; i++ {
		p := float64(next()%20) - 5
		profit[uint32(i)] = p
	}

	txs := make([]model.Transaction, nTx)
	for t := 0; t < nTx; t++ {
		items := make(map[uint32]model.Item)
		for i := 1; i <= nItems; i++ {
			if next()%3 == 0 {
				qty := uint32(1 + next()%5)
				prob := 0.3 + float64(next()%70)/100.0
				items[uint32(i)] = model.Item{Quantity: qty, Probability: prob}
			}
		}
		if len(items) == 0 {
			items[1] = model.Item{Quantity: 1, Probability: 0.5}
		}
		txs[t] = model.Transaction{TID: uint32(t + 1), Items: items}
	}
	return txs, profit
}
