package main

import (
	"github.com/oiwatch/market-agents/internal/cli"
	"github.com/oiwatch/market-agents/internal/strategy"
)

func main() {
	cli.RunBacktest(strategy.NewSynergisticOscillator())
}
