package join

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rawblock/ptk-huim/internal/upu"
)

func buildRandomList(items []uint32, tids []uint32, rng *rand.Rand) *upu.List {
	entries := make([]upu.Entry, len(tids))
	for i, tid := range tids {
		entries[i] = upu.Entry{
			Tid:       tid,
			Utility:   rng.Float64() * 100,
			Remaining: rng.Float64() * 50,
			LogProb:   math.Log(0.2 + rng.Float64()*0.7),
		}
	}
	return upu.NewBuilder(items, rng.Float64()*1000).Build(entries)
}

// TestJoinVariantsAgree is the differential property of §8 scenario F:
// all three join mechanisms must produce numerically identical results
// given the same inputs.
func TestJoinVariantsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	var aTids, bTids []uint32
	for tid := uint32(1); tid <= 2000; tid++ {
		if rng.Intn(3) != 0 {
			aTids = append(aTids, tid)
		}
		if rng.Intn(4) != 0 {
			bTids = append(bTids, tid)
		}
	}

	a := buildRandomList([]uint32{1}, aTids, rng)
	b := buildRandomList([]uint32{2}, bTids, rng)

	two := Join(TwoPointer, a, b, 0)
	exp := Join(Exponential, a, b, 0)
	bin := Join(Binary, a, b, 0)

	if two == nil || exp == nil || bin == nil {
		t.Fatalf("expected a non-empty join, got two=%v exp=%v bin=%v", two, exp, bin)
	}

	assertListsEqual(t, two, exp, "two-pointer vs exponential")
	assertListsEqual(t, two, bin, "two-pointer vs binary")
}

func assertListsEqual(t *testing.T, a, b *upu.List, label string) {
	t.Helper()
	if len(a.Tids) != len(b.Tids) {
		t.Fatalf("%s: tid count mismatch %d vs %d", label, len(a.Tids), len(b.Tids))
	}
	for i := range a.Tids {
		if a.Tids[i] != b.Tids[i] {
			t.Fatalf("%s: tid[%d] mismatch %d vs %d", label, i, a.Tids[i], b.Tids[i])
		}
		if a.Utilities[i] != b.Utilities[i] {
			t.Fatalf("%s: utility[%d] mismatch", label, i)
		}
		if a.RemainingUtilities[i] != b.RemainingUtilities[i] {
			t.Fatalf("%s: remaining[%d] mismatch", label, i)
		}
		if a.LogProbabilities[i] != b.LogProbabilities[i] {
			t.Fatalf("%s: logprob[%d] mismatch", label, i)
		}
	}
	if a.ExpectedUtility != b.ExpectedUtility {
		t.Fatalf("%s: EU mismatch %v vs %v", label, a.ExpectedUtility, b.ExpectedUtility)
	}
	if a.PositiveUpperBound != b.PositiveUpperBound {
		t.Fatalf("%s: PUB mismatch %v vs %v", label, a.PositiveUpperBound, b.PositiveUpperBound)
	}
	if a.ExistentialProbability != b.ExistentialProbability {
		t.Fatalf("%s: EP mismatch %v vs %v", label, a.ExistentialProbability, b.ExistentialProbability)
	}
}

func TestJoinPrunedByPTWU(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := buildRandomList([]uint32{1}, []uint32{1, 2, 3}, rng)
	a.PTWU = 5
	b := buildRandomList([]uint32{2}, []uint32{1, 2, 3}, rng)
	b.PTWU = 5

	if Join(TwoPointer, a, b, 10) != nil {
		t.Fatal("expected PTWU prune to return nil when joined PTWU < theta")
	}
}

func TestJoinEmptyIntersectionReturnsNil(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := buildRandomList([]uint32{1}, []uint32{1, 3, 5}, rng)
	b := buildRandomList([]uint32{2}, []uint32{2, 4, 6}, rng)

	if got := Join(TwoPointer, a, b, 0); got != nil {
		t.Fatalf("expected nil for disjoint tid sets, got %v", got)
	}
}
