package upu

import (
	"math"
	"testing"

	"github.com/rawblock/ptk-huim/internal/numeric"
)

// TestBuildWorkedExample mirrors scenario A's single-item list for A:
// T1 util=2*10=20 prob=0.8, T2 util=3*10=30 prob=0.7.
func TestBuildWorkedExample(t *testing.T) {
	entries := []Entry{
		{Tid: 1, Utility: 20, Remaining: 0, LogProb: math.Log(0.8)},
		{Tid: 2, Utility: 30, Remaining: 0, LogProb: math.Log(0.7)},
	}
	l := NewBuilder([]uint32{1}, 50).Build(entries)

	if got, want := l.ExpectedUtility, 20*0.8+30*0.7; math.Abs(got-want) > 1e-6 {
		t.Fatalf("EU = %v, want %v", got, want)
	}
	wantEP := 1 - (1-0.8)*(1-0.7)
	if got := l.ExistentialProbability; math.Abs(got-wantEP) > 1e-6 {
		t.Fatalf("EP = %v, want %v", got, wantEP)
	}
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
}

func TestBuildPanicsOnNonAscendingTid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on non-ascending tid stream")
		}
	}()
	NewBuilder([]uint32{1}, 1).Build([]Entry{
		{Tid: 5, Utility: 1, LogProb: 0},
		{Tid: 3, Utility: 1, LogProb: 0},
	})
}

func TestBuildEmptyStreamHasZeroEUAndEP(t *testing.T) {
	l := NewBuilder([]uint32{1}, 0).Build(nil)
	if l.ExpectedUtility != 0 {
		t.Fatalf("empty stream EU should be 0, got %v", l.ExpectedUtility)
	}
	if l.ExistentialProbability != 0 {
		t.Fatalf("empty stream EP should be 0, got %v", l.ExistentialProbability)
	}
}

func TestMaxRank(t *testing.T) {
	l := NewBuilder([]uint32{3, 7, 1}, 0).Build(nil)
	rank := func(item uint32) int {
		switch item {
		case 1:
			return 0
		case 3:
			return 2
		case 7:
			return 5
		}
		return -1
	}
	if got := l.MaxRank(rank); got != 5 {
		t.Fatalf("MaxRank = %d, want 5", got)
	}
}

func TestClampLogFloorsAtLogZero(t *testing.T) {
	if got := numeric.ClampLog(numeric.LogZero - 10); got != numeric.LogZero {
		t.Fatalf("ClampLog should floor at LogZero, got %v", got)
	}
}
