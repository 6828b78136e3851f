// Package model defines the wire-level and in-memory data types shared
// across the mining pipeline: transactions, profit tables, and the pattern
// records the core produces.
package model

import "sort"

// Item is an uncertain occurrence of a single item within one transaction:
// a positive quantity and an existential probability in (0,1].
type Item struct {
	Quantity    uint32
	Probability float64
}

// Transaction is an immutable record of item occurrences carried by one
// transaction id. TID must be unique within a database.
type Transaction struct {
	TID   uint32
	Items map[uint32]Item // item-id -> occurrence
}

// ProfitTable maps item-id to a (possibly negative) profit. Items absent
// from the table are unknown and must be ignored by every component that
// reads it.
type ProfitTable map[uint32]float64

// Pattern is a mined itemset together with its expected utility and
// existential probability. Two patterns are the same iff their Items sets
// are equal.
type Pattern struct {
	Items                  []uint32
	ExpectedUtility        float64
	ExistentialProbability float64
}

// SortedItems returns a copy of items sorted ascending; the input slice is
// left unchanged.
func SortedItems(items []uint32) []uint32 {
	out := make([]uint32, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strategy selects a search-engine traversal order (§4.6).
type Strategy string

const (
	StrategyDFS         Strategy = "DFS"
	StrategyBestFirst   Strategy = "BEST_FIRST"
	StrategyBreadthFirst Strategy = "BREADTH_FIRST"
	StrategyIDDFS       Strategy = "IDDFS"
)

// ParseStrategy validates a CLI-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyDFS, StrategyBestFirst, StrategyBreadthFirst, StrategyIDDFS:
		return Strategy(s), nil
	default:
		return "", errUnknownEnum("strategy", s)
	}
}

// JoinVariant selects a UPU-List intersection mechanism (§4.5).
type JoinVariant string

const (
	JoinTwoPointer       JoinVariant = "TWO_POINTER"
	JoinExponentialSearch JoinVariant = "EXPONENTIAL_SEARCH"
	JoinBinarySearch     JoinVariant = "BINARY_SEARCH"
)

// ParseJoinVariant validates a CLI-supplied join variant name.
func ParseJoinVariant(s string) (JoinVariant, error) {
	switch JoinVariant(s) {
	case JoinTwoPointer, JoinExponentialSearch, JoinBinarySearch:
		return JoinVariant(s), nil
	default:
		return "", errUnknownEnum("join variant", s)
	}
}

// CollectorKind selects a Top-K collector implementation (§4.7).
type CollectorKind string

const (
	CollectorBaseline CollectorKind = "BASELINE"
	CollectorSharded  CollectorKind = "SHARDED"
	CollectorLazy     CollectorKind = "LAZY"
)

// ParseCollectorKind validates a CLI-supplied collector kind name.
func ParseCollectorKind(s string) (CollectorKind, error) {
	switch CollectorKind(s) {
	case CollectorBaseline, CollectorSharded, CollectorLazy:
		return CollectorKind(s), nil
	default:
		return "", errUnknownEnum("collector", s)
	}
}

type unknownEnumError struct {
	kind, value string
}

func (e *unknownEnumError) Error() string {
	return "unknown " + e.kind + ": " + e.value
}

func errUnknownEnum(kind, value string) error {
	return &unknownEnumError{kind: kind, value: value}
}
