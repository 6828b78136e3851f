package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/rawblock/ptk-huim/internal/liveserver"
	"github.com/rawblock/ptk-huim/internal/loader"
	"github.com/rawblock/ptk-huim/internal/mining"
	"github.com/rawblock/ptk-huim/internal/report"
	"github.com/rawblock/ptk-huim/internal/runid"
	"github.com/rawblock/ptk-huim/pkg/model"
)

func main() {
	flagSet := flag.NewFlagSet("ptkhuim", flag.ExitOnError)

	debug := flagSet.Bool("debug", false, "start the live-progress websocket server")
	liveAddr := flagSet.String("live-addr", ":8090", "address for the --debug live server")
	output := flagSet.String("output", "", "write JSON results to this file instead of stdout")
	noParallel := flagSet.Bool("no-parallel", false, "disable parallel execution of every phase")
	strategyFlag := flagSet.String("strategy", string(model.StrategyDFS), "search strategy: DFS|BEST_FIRST|BREADTH_FIRST|IDDFS")
	joinFlag := flagSet.String("join", string(model.JoinTwoPointer), "join variant: TWO_POINTER|EXPONENTIAL_SEARCH|BINARY_SEARCH")
	collectorFlag := flagSet.String("collector", string(model.CollectorBaseline), "collector kind: BASELINE|SHARDED|LAZY")
	runIDFlag := flagSet.String("run-id", "", "override the generated run identifier")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	args := flagSet.Args()
	if len(args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: ptkhuim [flags] <database> <profits> <k> <minProb>")
		os.Exit(2)
	}

	if err := run(args, *debug, *liveAddr, *output, *noParallel, *strategyFlag, *joinFlag, *collectorFlag, *runIDFlag); err != nil {
		log.Printf("[PTK-HUIM] %v", err)
		os.Exit(1)
	}
}

func run(args []string, debug bool, liveAddr, output string, noParallel bool, strategyFlag, joinFlag, collectorFlag, runIDFlag string) error {
	dbPath, profitPath, kStr, minProbStr := args[0], args[1], args[2], args[3]

	id := runIDFlag
	if id == "" {
		id = runid.New()
	}
	log.Printf("[PTK-HUIM] run %s starting", id)

	k, err := parsePositiveInt(kStr)
	if err != nil {
		return fmt.Errorf("invalid k: %w", err)
	}
	minProb, err := parseProb(minProbStr)
	if err != nil {
		return fmt.Errorf("invalid minProb: %w", err)
	}

	strategy, err := model.ParseStrategy(strategyFlag)
	if err != nil {
		return err
	}
	joinVariant, err := model.ParseJoinVariant(joinFlag)
	if err != nil {
		return err
	}
	collectorKind, err := model.ParseCollectorKind(collectorFlag)
	if err != nil {
		return err
	}

	dbFile, err := os.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer dbFile.Close()
	txs, err := loader.LoadTransactions(dbFile)
	if err != nil {
		return fmt.Errorf("loading transactions: %w", err)
	}

	profitFile, err := os.Open(profitPath)
	if err != nil {
		return fmt.Errorf("opening profits: %w", err)
	}
	defer profitFile.Close()
	profits, err := loader.LoadProfits(profitFile)
	if err != nil {
		return fmt.Errorf("loading profits: %w", err)
	}
	log.Printf("[PTK-HUIM] loaded %d transactions, %d profit entries", len(txs), len(profits))

	opts := mining.Options{
		K:         k,
		MinProb:   minProb,
		Strategy:  strategy,
		Join:      joinVariant,
		Collector: collectorKind,
		Parallel:  !noParallel,
	}

	ctx := context.Background()

	var server *liveserver.Server
	if debug {
		server = liveserver.NewServer(id)
		opts.OnAdmit = server.Hub.OnAdmit
		go func() {
			if err := server.ListenAndServe(liveAddr); err != nil {
				log.Printf("[PTK-HUIM] live server stopped: %v", err)
			}
		}()
	}

	patterns, err := mining.Run(ctx, txs, profits, opts)
	if err != nil {
		return fmt.Errorf("mining: %w", err)
	}

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		if err := report.WriteJSON(f, patterns); err != nil {
			return err
		}
	} else {
		if err := report.WriteTable(os.Stdout, patterns); err != nil {
			return err
		}
	}

	log.Printf("[PTK-HUIM] run %s complete, %d patterns", id, len(patterns))
	return nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func parseProb(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
