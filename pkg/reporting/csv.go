package reporting

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oiwatch/market-agents/internal/backtest"
)

// CSVReporter writes trade lists to CSV files.
type CSVReporter struct{}

// NewCSVReporter creates a new CSV reporter.
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

// WriteTrades writes the trade list to path. An .xlsx path is delegated to
// the Excel reporter.
func (r *CSVReporter) WriteTrades(name string, results *backtest.Results, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return NewExcelReporter().WriteResults(name, results, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Entry_Time",
		"Exit_Time",
		"Side",
		"Entry_Price",
		"Exit_Price",
		"Size",
		"PnL_$",
		"Commission_$",
		"Win_Loss",
		"Reason",
	}); err != nil {
		return err
	}

	for _, t := range results.Trades {
		side := "LONG"
		if t.Size < 0 {
			side = "SHORT"
		}
		winLoss := "W"
		if t.PnL < 0 {
			winLoss = "L"
		}
		record := []string{
			t.EntryTime.Format("2006-01-02 15:04:05"),
			t.ExitTime.Format("2006-01-02 15:04:05"),
			side,
			strconv.FormatFloat(t.EntryPrice, 'f', 2, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', 2, 64),
			strconv.FormatFloat(math.Abs(t.Size), 'f', 6, 64),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.FormatFloat(t.Commission, 'f', 2, 64),
			winLoss,
			t.Reason,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return nil
}
