package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oiwatch/market-agents/pkg/types"
)

// timestampLayouts are tried in order when parsing the datetime column.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
}

// columnIndexes maps normalized header names to record positions.
type columnIndexes struct {
	Timestamp int
	Open      int
	High      int
	Low       int
	Close     int
	Volume    int
}

// CSVProvider loads OHLCV candles from CSV files. Headers are matched
// case-insensitively and columns named "unnamed*" (pandas index leftovers)
// are ignored.
type CSVProvider struct{}

// NewCSVProvider creates a new CSV data provider.
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{}
}

// GetName returns the name of the data provider.
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical candles from a CSV file.
func (p *CSVProvider) LoadData(filename string) ([]types.OHLCV, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var data []types.OHLCV

	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %v", lineNum, err)
		}
		lineNum++

		candle, ok := parseRow(record, cols, lineNum)
		if !ok {
			continue
		}

		data = append(data, candle)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no usable rows in %s", filename)
	}

	return data, nil
}

// resolveColumns maps the CSV header onto OHLCV columns. The original data
// files use lowercase headers with occasional surrounding whitespace.
func resolveColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{Timestamp: -1, Open: -1, High: -1, Low: -1, Close: -1, Volume: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "datetime", "timestamp", "date", "time":
			if cols.Timestamp < 0 {
				cols.Timestamp = i
			}
		case "open":
			cols.Open = i
		case "high":
			cols.High = i
		case "low":
			cols.Low = i
		case "close":
			cols.Close = i
		case "volume":
			cols.Volume = i
		default:
			// "unnamed: 0" and friends are index leftovers, skip silently
		}
	}

	if cols.Timestamp < 0 || cols.Open < 0 || cols.High < 0 || cols.Low < 0 || cols.Close < 0 || cols.Volume < 0 {
		return cols, fmt.Errorf("CSV header missing required columns (need datetime/open/high/low/close/volume), got %v", header)
	}
	return cols, nil
}

func parseRow(record []string, cols columnIndexes, lineNum int) (types.OHLCV, bool) {
	var candle types.OHLCV

	max := cols.Timestamp
	for _, idx := range []int{cols.Open, cols.High, cols.Low, cols.Close, cols.Volume} {
		if idx > max {
			max = idx
		}
	}
	if len(record) <= max {
		log.Printf("⚠️ Insufficient columns at line %d, skipping", lineNum)
		return candle, false
	}

	timestamp, err := parseTimestamp(record[cols.Timestamp])
	if err != nil {
		log.Printf("⚠️ Invalid timestamp '%s' at line %d, skipping: %v", record[cols.Timestamp], lineNum, err)
		return candle, false
	}

	open, err1 := strconv.ParseFloat(strings.TrimSpace(record[cols.Open]), 64)
	high, err2 := strconv.ParseFloat(strings.TrimSpace(record[cols.High]), 64)
	low, err3 := strconv.ParseFloat(strings.TrimSpace(record[cols.Low]), 64)
	close, err4 := strconv.ParseFloat(strings.TrimSpace(record[cols.Close]), 64)
	volume, err5 := strconv.ParseFloat(strings.TrimSpace(record[cols.Volume]), 64)
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			log.Printf("⚠️ Invalid numeric value at line %d, skipping: %v", lineNum, err)
			return candle, false
		}
	}

	if open <= 0 || high <= 0 || low <= 0 || close <= 0 {
		log.Printf("⚠️ Invalid price data (negative or zero) at line %d, skipping", lineNum)
		return candle, false
	}
	if high < open || high < close || high < low {
		log.Printf("⚠️ High price is lower than other prices at line %d, skipping", lineNum)
		return candle, false
	}
	if low > open || low > close {
		log.Printf("⚠️ Low price is higher than other prices at line %d, skipping", lineNum)
		return candle, false
	}

	candle = types.OHLCV{
		Timestamp: timestamp,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
	return candle, true
}

// parseTimestamp accepts the known layouts plus unix seconds/milliseconds.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}

	if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
		if epoch > 1e12 {
			return time.UnixMilli(epoch).UTC(), nil
		}
		return time.Unix(epoch, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// ValidateData validates the integrity of loaded data.
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return fmt.Errorf("no data provided")
	}

	for i, candle := range data {
		if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
			return fmt.Errorf("invalid price data at index %d: prices must be positive", i)
		}

		if candle.High < candle.Low {
			return fmt.Errorf("invalid price data at index %d: high (%.4f) cannot be less than low (%.4f)",
				i, candle.High, candle.Low)
		}

		if i > 0 && candle.Timestamp.Before(data[i-1].Timestamp) {
			return fmt.Errorf("invalid timestamp sequence at index %d: timestamps must be in chronological order", i)
		}
	}

	return nil
}
