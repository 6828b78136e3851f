package rank

import (
	"context"
	"testing"

	"github.com/rawblock/ptk-huim/internal/preprocess"
	"github.com/rawblock/ptk-huim/pkg/model"
)

func TestBuildOrdersByPTWUThenItemID(t *testing.T) {
	txs := []model.Transaction{
		{TID: 1, Items: map[uint32]model.Item{1: {Quantity: 1, Probability: 1}, 2: {Quantity: 1, Probability: 1}}},
		{TID: 2, Items: map[uint32]model.Item{3: {Quantity: 1, Probability: 1}}},
	}
	profit := model.ProfitTable{1: 10, 2: 10, 3: 5}

	stats, err := preprocess.Run(context.Background(), txs, profit, false)
	if err != nil {
		t.Fatalf("preprocess failed: %v", err)
	}

	r := Build(stats, 0)
	if r.Size() != 3 {
		t.Fatalf("expected 3 surviving items, got %d", r.Size())
	}
	// PTWU(3)=5, PTWU(1)=PTWU(2)=20; ascending PTWU then item-id: 3, 1, 2.
	if r.ItemAt(0) != 3 || r.ItemAt(1) != 1 || r.ItemAt(2) != 2 {
		t.Fatalf("unexpected order: %d, %d, %d", r.ItemAt(0), r.ItemAt(1), r.ItemAt(2))
	}
	if r.Rank(3) != 0 || r.Rank(1) != 1 || r.Rank(2) != 2 {
		t.Fatalf("rank lookup mismatch")
	}
	if r.Rank(999) != -1 {
		t.Fatalf("expected -1 for an unknown item, got %d", r.Rank(999))
	}
}

func TestBuildFiltersByMinProb(t *testing.T) {
	txs := []model.Transaction{
		{TID: 1, Items: map[uint32]model.Item{1: {Quantity: 1, Probability: 0.05}}},
	}
	profit := model.ProfitTable{1: 10}
	stats, err := preprocess.Run(context.Background(), txs, profit, false)
	if err != nil {
		t.Fatalf("preprocess failed: %v", err)
	}

	if got := Build(stats, 0.5).Size(); got != 0 {
		t.Fatalf("expected item below minProb to be filtered out, got size %d", got)
	}
	if got := Build(stats, 0.01).Size(); got != 1 {
		t.Fatalf("expected item above minProb to survive, got size %d", got)
	}
}

func TestFirstRankAtLeast(t *testing.T) {
	txs := []model.Transaction{
		{TID: 1, Items: map[uint32]model.Item{1: {Quantity: 1, Probability: 1}}},
		{TID: 2, Items: map[uint32]model.Item{2: {Quantity: 1, Probability: 1}}},
		{TID: 3, Items: map[uint32]model.Item{3: {Quantity: 1, Probability: 1}}},
	}
	profit := model.ProfitTable{1: 5, 2: 10, 3: 15}
	stats, err := preprocess.Run(context.Background(), txs, profit, false)
	if err != nil {
		t.Fatalf("preprocess failed: %v", err)
	}
	r := Build(stats, 0)
	if got := r.FirstRankAtLeast(10); got != 1 {
		t.Fatalf("FirstRankAtLeast(10) = %d, want 1", got)
	}
	if got := r.FirstRankAtLeast(100); got != r.Size() {
		t.Fatalf("FirstRankAtLeast beyond range should return Size(), got %d", got)
	}
}
