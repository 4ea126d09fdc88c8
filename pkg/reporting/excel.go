package reporting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/oiwatch/market-agents/internal/backtest"
)

// ExcelReporter writes a results workbook with a summary and a trades sheet.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	currency int
	percent  int
}

// WriteResults writes the workbook to path.
func (r *ExcelReporter) WriteResults(name string, results *backtest.Results, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(tradesSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, name, results, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, results, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet, name string, results *backtest.Results, styles excelStyles) error {
	fx.SetCellValue(sheet, "A1", "Metric")
	fx.SetCellValue(sheet, "B1", "Value")
	fx.SetCellStyle(sheet, "A1", "B1", styles.header)

	rows := []struct {
		metric string
		value  interface{}
		style  int
	}{
		{"Strategy", name, 0},
		{"Initial Balance", results.StartBalance, styles.currency},
		{"Final Balance", results.EndBalance, styles.currency},
		{"Total Return", results.TotalReturn, styles.percent},
		{"Buy & Hold Return", results.BuyHoldReturn, styles.percent},
		{"Annualized Return", results.AnnualizedReturn, styles.percent},
		{"Max Drawdown", results.MaxDrawdown, styles.percent},
		{"Sharpe Ratio", results.SharpeRatio, 0},
		{"Annualized Sharpe", results.AnnualizedSharpe, 0},
		{"Sortino Ratio", finiteOrNil(results.SortinoRatio), 0},
		{"Calmar Ratio", finiteOrNil(results.CalmarRatio), 0},
		{"Profit Factor", finiteOrNil(results.ProfitFactor), 0},
		{"Total Trades", results.TotalTrades, 0},
		{"Winning Trades", results.WinningTrades, 0},
		{"Losing Trades", results.LosingTrades, 0},
		{"Win Rate %", results.WinRate(), 0},
		{"Max Exposure", results.MaxExposure, styles.percent},
		{"Avg Exposure", results.AvgExposure, styles.percent},
		{"Total Turnover", results.TotalTurnover, 0},
	}

	for i, row := range rows {
		cellA := fmt.Sprintf("A%d", i+2)
		cellB := fmt.Sprintf("B%d", i+2)
		fx.SetCellValue(sheet, cellA, row.metric)
		fx.SetCellValue(sheet, cellB, row.value)
		if row.style != 0 {
			fx.SetCellStyle(sheet, cellB, cellB, row.style)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "B", 16)
	return nil
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.Results, styles excelStyles) error {
	headers := []string{"#", "Entry Time", "Exit Time", "Side", "Entry Price", "Exit Price", "Size", "PnL $", "Commission $", "Reason"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		fx.SetCellValue(sheet, cell, h)
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	fx.SetCellStyle(sheet, "A1", endHeader, styles.header)

	for i, t := range results.Trades {
		row := i + 2
		side := "LONG"
		if t.Size < 0 {
			side = "SHORT"
		}
		values := []interface{}{
			i + 1,
			t.EntryTime.Format("2006-01-02 15:04:05"),
			t.ExitTime.Format("2006-01-02 15:04:05"),
			side,
			t.EntryPrice,
			t.ExitPrice,
			math.Abs(t.Size),
			t.PnL,
			t.Commission,
			t.Reason,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			fx.SetCellValue(sheet, cell, v)
		}
	}

	fx.SetColWidth(sheet, "B", "C", 20)
	fx.SetColWidth(sheet, "E", "I", 14)
	return nil
}

// finiteOrNil keeps infinite ratios out of the workbook.
func finiteOrNil(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return v
}
