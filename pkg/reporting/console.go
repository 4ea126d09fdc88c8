// Package reporting renders backtest results to the console, CSV and Excel.
package reporting

import (
	"fmt"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/oiwatch/market-agents/internal/backtest"
)

// ConsoleReporter prints results as a formatted table.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new console reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintResults renders the result summary table to stdout.
func (r *ConsoleReporter) PrintResults(name string, results *backtest.Results) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("📊 %s Backtest Results", name))

	t.AppendRows([]table.Row{
		{"Initial Balance", fmt.Sprintf("$%.2f", results.StartBalance)},
		{"Final Balance", fmt.Sprintf("$%.2f", results.EndBalance)},
		{"Total Return", fmt.Sprintf("%.2f%%", results.TotalReturn*100)},
		{"Buy & Hold Return", fmt.Sprintf("%.2f%%", results.BuyHoldReturn*100)},
		{"Annualized Return", fmt.Sprintf("%.2f%%", results.AnnualizedReturn*100)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", results.MaxDrawdown*100)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f (Ann: %.2f)", results.SharpeRatio, results.AnnualizedSharpe)},
		{"Sortino Ratio", formatRatio(results.SortinoRatio)},
		{"Calmar Ratio", formatRatio(results.CalmarRatio)},
		{"Profit Factor", formatRatio(results.ProfitFactor)},
		{"Total Trades", fmt.Sprintf("%d", results.TotalTrades)},
		{"Winning Trades", fmt.Sprintf("%d (%.1f%%)", results.WinningTrades, results.WinRate())},
		{"Losing Trades", fmt.Sprintf("%d", results.LosingTrades)},
		{"Max Exposure", fmt.Sprintf("%.1f%%", results.MaxExposure*100)},
		{"Avg Exposure", fmt.Sprintf("%.1f%%", results.AvgExposure*100)},
		{"Total Turnover", fmt.Sprintf("%.2fx", results.TotalTurnover)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	t.Render()
}

// PrintTrades renders the individual trades to stdout.
func (r *ConsoleReporter) PrintTrades(results *backtest.Results) {
	if len(results.Trades) == 0 {
		fmt.Println("No trades executed.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Trades")
	t.AppendHeader(table.Row{"#", "Entry Time", "Exit Time", "Side", "Entry", "Exit", "Size", "PnL", "Reason"})

	for i, tr := range results.Trades {
		side := "LONG"
		if tr.Size < 0 {
			side = "SHORT"
		}
		t.AppendRow(table.Row{
			i + 1,
			tr.EntryTime.Format("2006-01-02 15:04"),
			tr.ExitTime.Format("2006-01-02 15:04"),
			side,
			fmt.Sprintf("%.2f", tr.EntryPrice),
			fmt.Sprintf("%.2f", tr.ExitPrice),
			fmt.Sprintf("%.4f", math.Abs(tr.Size)),
			fmt.Sprintf("%.2f", tr.PnL),
			tr.Reason,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	t.Render()
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", v)
}
