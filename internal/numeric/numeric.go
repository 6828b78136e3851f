// Package numeric holds the log-space arithmetic primitives shared by the
// UPU-List builder, the join operator, and the Top-K collector: epsilon
// tolerant comparisons, log1p-stable complement probabilities, and the
// underflow clamp that keeps existential-probability accumulation inside
// double range (§4.1).
package numeric

import "math"

// EPSILON is the tolerance used for every strict-less comparison against a
// threshold in the mining core.
const EPSILON = 1e-10

// LogZero is the floor for any accumulated log-probability; anything below
// it is clamped up to stay clear of subnormal range.
const LogZero = -700.0

// Less reports whether a < b - EPSILON, the "strictly and meaningfully
// less than" comparison used for every pruning/admission decision.
func Less(a, b float64) bool {
	return a < b-EPSILON
}

// LogComplement returns log(1-p) computed in a numerically stable way:
// log1p(-p) when p is small (where 1-p loses no precision), log(1-p)
// otherwise. Degenerate probabilities are clamped to their limits.
func LogComplement(p float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return LogZero
	}
	if p < 0.5 {
		return math.Log1p(-p)
	}
	return math.Log(1 - p)
}

// ClampLog floors a log-probability at LogZero so it never underflows past
// the range the collector's log-complement accumulator can represent.
func ClampLog(logP float64) float64 {
	if logP < LogZero {
		return LogZero
	}
	return logP
}

// ExistentialProbability reconstructs EP = 1 - exp(L) from an accumulated
// log-complement L = sum(log(1 - P(X,T))). When L has saturated to LogZero
// or below, the true complement is indistinguishable from zero and EP is
// exactly 1.
func ExistentialProbability(logComplement float64) float64 {
	if logComplement <= LogZero {
		return 1.0
	}
	return 1 - math.Exp(logComplement)
}

// Exp is exp(x) with the convention that anything at or below LogZero is
// treated as exactly zero probability, matching the clamp applied whenever
// a log-probability is stored in a UPU-List.
func Exp(logP float64) float64 {
	if logP <= LogZero {
		return 0
	}
	return math.Exp(logP)
}

// AccumulateComplement folds one transaction's joined log-probability logP
// into a running log-complement accumulator, applying the saturation rule:
// once P(X,T) is close enough to 1 that log(1-P) would itself underflow
// (logP > log(1-EPSILON)), the complement for that transaction is treated
// as exactly zero and the whole accumulator saturates to LogZero.
func AccumulateComplement(acc float64, logP float64) float64 {
	if acc <= LogZero {
		return LogZero
	}
	if logP > math.Log1p(-EPSILON) {
		return LogZero
	}
	p := math.Exp(logP)
	return acc + LogComplement(p)
}
