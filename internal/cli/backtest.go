// Package cli holds the shared command-line runner used by the backtest
// binaries.
package cli

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/oiwatch/market-agents/internal/backtest"
	"github.com/oiwatch/market-agents/pkg/data"
	"github.com/oiwatch/market-agents/pkg/reporting"
)

// RunBacktest parses the standard flags, loads the candle file, runs the
// strategy and prints the results. Each backtest binary calls this with its
// strategy.
func RunBacktest(strat backtest.Strategy) {
	dataFile := flag.String("data", "", "path to OHLCV CSV file (required)")
	cash := flag.Float64("cash", 1000000, "initial cash balance")
	commission := flag.Float64("commission", 0.001, "commission rate per side (fraction of notional)")
	output := flag.String("output", "", "optional trade report path (.csv or .xlsx)")
	showTrades := flag.Bool("trades", false, "print individual trades")
	flag.Parse()

	if *dataFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -data <file.csv> [-cash N] [-commission F] [-output trades.csv] [-trades]\n", os.Args[0])
		os.Exit(2)
	}

	provider := data.NewCSVProvider()
	candles, err := provider.LoadData(*dataFile)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}
	if err := provider.ValidateData(candles); err != nil {
		log.Fatalf("Invalid data: %v", err)
	}
	log.Printf("Loaded %d candles from %s", len(candles), *dataFile)

	engine := backtest.NewEngine(*cash, *commission, strat)
	results, err := engine.Run(candles)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	console := reporting.NewConsoleReporter()
	console.PrintResults(strat.Name(), results)
	if *showTrades {
		console.PrintTrades(results)
	}

	if *output != "" {
		if err := reporting.NewCSVReporter().WriteTrades(strat.Name(), results, *output); err != nil {
			log.Fatalf("Failed to write trade report: %v", err)
		}
		log.Printf("Trade report written to %s", *output)
	}
}
