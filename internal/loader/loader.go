// Package loader implements the external file formats of §6: the
// transaction database and profit table, both plain whitespace-delimited
// text so the pipeline can be driven from shell-scripted test fixtures.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/rawblock/ptk-huim/pkg/model"
)

// LoadTransactions reads one transaction per non-blank line, assigning
// TIDs 1..N by line order. Each line is whitespace-separated tokens of
// the form item:quantity:probability; a duplicate item within a line
// keeps only the last occurrence; a token whose probability falls
// outside (0,1] is warned about and skipped (§6).
func LoadTransactions(r io.Reader) ([]model.Transaction, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var txs []model.Transaction
	tid := uint32(0)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tid++

		items := make(map[uint32]model.Item)
		for _, tok := range strings.Fields(line) {
			parts := strings.Split(tok, ":")
			if len(parts) != 3 {
				log.Printf("[Loader] line %d: malformed token %q, skipped", lineNo, tok)
				continue
			}
			itemID, err := strconv.ParseUint(parts[0], 10, 32)
			if err != nil {
				log.Printf("[Loader] line %d: bad item id %q, skipped", lineNo, parts[0])
				continue
			}
			qty, err := strconv.ParseUint(parts[1], 10, 32)
			if err != nil || qty == 0 {
				log.Printf("[Loader] line %d: bad quantity %q for item %d, skipped", lineNo, parts[1], itemID)
				continue
			}
			prob, err := strconv.ParseFloat(parts[2], 64)
			if err != nil || prob <= 0 || prob > 1 {
				log.Printf("[Loader] line %d: probability %q for item %d outside (0,1], skipped", lineNo, parts[2], itemID)
				continue
			}
			items[uint32(itemID)] = model.Item{Quantity: uint32(qty), Probability: prob}
		}
		if len(items) == 0 {
			continue
		}
		txs = append(txs, model.Transaction{TID: tid, Items: items})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: reading transactions: %w", err)
	}
	return txs, nil
}

// LoadProfits reads one entry per line, two whitespace-or-colon-separated
// tokens itemId profit; profit may be negative; malformed lines are
// skipped (§6).
func LoadProfits(r io.Reader) (model.ProfitTable, error) {
	scanner := bufio.NewScanner(r)
	table := make(model.ProfitTable)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == '\t' || r == ':' })
		if len(fields) != 2 {
			log.Printf("[Loader] profits line %d: malformed %q, skipped", lineNo, line)
			continue
		}
		itemID, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			log.Printf("[Loader] profits line %d: bad item id %q, skipped", lineNo, fields[0])
			continue
		}
		profit, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			log.Printf("[Loader] profits line %d: bad profit %q, skipped", lineNo, fields[1])
			continue
		}
		table[uint32(itemID)] = profit
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: reading profits: %w", err)
	}
	return table, nil
}
