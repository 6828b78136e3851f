// Package report renders the mined Top-K patterns for the CLI: a tabular
// view for a terminal and a JSON encoding for --output, mirroring the
// pair of representations the teacher's API layer exposed for the same
// analysis results (tabwriter-style human view, json for machines).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rawblock/ptk-huim/pkg/model"
)

// patternJSON is the --output encoding: plain field names, no nested
// wrapper, one object per line via json.Encoder so large result sets
// stream rather than build one giant buffer.
type patternJSON struct {
	Items                  []uint32 `json:"items"`
	ExpectedUtility        float64  `json:"expectedUtility"`
	ExistentialProbability float64  `json:"existentialProbability"`
}

// WriteJSON writes one JSON object per pattern, newline-delimited.
func WriteJSON(w io.Writer, patterns []model.Pattern) error {
	enc := json.NewEncoder(w)
	for _, p := range patterns {
		if err := enc.Encode(patternJSON{
			Items:                  p.Items,
			ExpectedUtility:        p.ExpectedUtility,
			ExistentialProbability: p.ExistentialProbability,
		}); err != nil {
			return fmt.Errorf("report: encoding pattern: %w", err)
		}
	}
	return nil
}

// WriteTable writes an aligned, human-readable table: rank, itemset,
// expected utility, existential probability.
func WriteTable(w io.Writer, patterns []model.Pattern) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tITEMS\tEU\tEP")
	for i, p := range patterns {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%.6f\n", i+1, formatItems(p.Items), p.ExpectedUtility, p.ExistentialProbability)
	}
	return tw.Flush()
}

func formatItems(items []uint32) string {
	s := "{"
	for i, it := range items {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", it)
	}
	return s + "}"
}
