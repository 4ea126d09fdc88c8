// Package agent implements the whale watcher: it polls open interest,
// maintains a rolling history, detects unusually large moves and narrates
// them.
package agent

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// historyColumns is the on-disk CSV schema. Files with a different header
// are considered stale and discarded.
var historyColumns = []string{
	"timestamp",
	"btc_oi",
	"eth_oi",
	"total_oi",
	"btc_change_pct",
	"eth_change_pct",
	"total_change_pct",
}

const historyTimeLayout = "2006-01-02 15:04:05"

// Record is one open-interest observation with the point-to-point changes
// against the previous record.
type Record struct {
	Timestamp      time.Time
	BTCOI          float64
	ETHOI          float64
	TotalOI        float64
	BTCChangePct   float64
	ETHChangePct   float64
	TotalChangePct float64
}

// Change describes the open-interest move over the lookback interval.
type Change struct {
	Pct      float64
	StartOI  float64
	EndOI    float64
	Interval time.Duration
}

// History is the rolling open-interest store, persisted as CSV.
type History struct {
	path      string
	retention time.Duration
	records   []Record
}

// LoadHistory reads the history file at path, discarding files whose header
// does not match the current schema and records older than the retention
// window (24 hours).
func LoadHistory(path string) (*History, error) {
	h := &History{
		path:      path,
		retention: 24 * time.Hour,
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(rows) == 0 {
		return h, nil
	}

	if !matchesSchema(rows[0]) {
		log.Printf("history file %s has an old format, starting fresh", path)
		return h, nil
	}

	cutoff := time.Now().Add(-h.retention)
	for _, row := range rows[1:] {
		rec, err := parseHistoryRow(row)
		if err != nil {
			log.Printf("skipping malformed history row: %v", err)
			continue
		}
		if rec.Timestamp.After(cutoff) {
			h.records = append(h.records, rec)
		}
	}

	return h, nil
}

func matchesSchema(header []string) bool {
	if len(header) != len(historyColumns) {
		return false
	}
	for i, col := range historyColumns {
		if header[i] != col {
			return false
		}
	}
	return true
}

func parseHistoryRow(row []string) (Record, error) {
	if len(row) != len(historyColumns) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(historyColumns), len(row))
	}

	ts, err := parseHistoryTime(row[0])
	if err != nil {
		return Record{}, fmt.Errorf("bad timestamp %q: %w", row[0], err)
	}

	vals := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return Record{}, fmt.Errorf("bad value %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	return Record{
		Timestamp:      ts,
		BTCOI:          vals[0],
		ETHOI:          vals[1],
		TotalOI:        vals[2],
		BTCChangePct:   vals[3],
		ETHChangePct:   vals[4],
		TotalChangePct: vals[5],
	}, nil
}

func parseHistoryTime(s string) (time.Time, error) {
	for _, layout := range []string{historyTimeLayout, time.RFC3339, "2006-01-02 15:04:05.999999"} {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

// Append records a new observation, computing the point-to-point change
// percentages against the previous record, prunes entries beyond the
// retention window and rewrites the file.
func (h *History) Append(ts time.Time, btcOI, ethOI float64) Record {
	totalOI := btcOI + ethOI

	rec := Record{
		Timestamp: ts,
		BTCOI:     btcOI,
		ETHOI:     ethOI,
		TotalOI:   totalOI,
	}

	if last, ok := h.Last(); ok {
		if last.BTCOI != 0 {
			rec.BTCChangePct = (btcOI - last.BTCOI) / last.BTCOI * 100
		}
		if last.ETHOI != 0 {
			rec.ETHChangePct = (ethOI - last.ETHOI) / last.ETHOI * 100
		}
		if last.TotalOI != 0 {
			rec.TotalChangePct = (totalOI - last.TotalOI) / last.TotalOI * 100
		}
	}

	h.records = append(h.records, rec)
	h.prune(ts)

	if err := h.save(); err != nil {
		log.Printf("failed to save history: %v", err)
	}

	return rec
}

func (h *History) prune(now time.Time) {
	cutoff := now.Add(-h.retention)
	kept := h.records[:0]
	for _, rec := range h.records {
		if rec.Timestamp.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	h.records = kept
}

func (h *History) save() error {
	if dir := filepath.Dir(h.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(h.path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(historyColumns); err != nil {
		return err
	}
	for _, rec := range h.records {
		row := []string{
			rec.Timestamp.Format(historyTimeLayout),
			strconv.FormatFloat(rec.BTCOI, 'f', 2, 64),
			strconv.FormatFloat(rec.ETHOI, 'f', 2, 64),
			strconv.FormatFloat(rec.TotalOI, 'f', 2, 64),
			strconv.FormatFloat(rec.BTCChangePct, 'f', 6, 64),
			strconv.FormatFloat(rec.ETHChangePct, 'f', 6, 64),
			strconv.FormatFloat(rec.TotalChangePct, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of stored records.
func (h *History) Len() int { return len(h.records) }

// Last returns the most recent record.
func (h *History) Last() (Record, bool) {
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}

// First returns the oldest record.
func (h *History) First() (Record, bool) {
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[0], true
}

// ChangeSince computes the BTC open-interest change between the latest
// record and the closest record at least lookback old (relative to the
// latest record's timestamp). It returns false until enough history spans
// the interval.
func (h *History) ChangeSince(lookback time.Duration) (Change, bool) {
	last, ok := h.Last()
	if !ok {
		return Change{}, false
	}

	target := last.Timestamp.Add(-lookback)

	var base *Record
	for i := range h.records {
		if !h.records[i].Timestamp.After(target) {
			base = &h.records[i]
		}
	}
	if base == nil || base.BTCOI == 0 {
		return Change{}, false
	}

	return Change{
		Pct:      (last.BTCOI - base.BTCOI) / base.BTCOI * 100,
		StartOI:  base.BTCOI,
		EndOI:    last.BTCOI,
		Interval: lookback,
	}, true
}

// TotalChangeSince computes the total OI change over lookback, for the
// startup summary.
func (h *History) TotalChangeSince(lookback time.Duration) (float64, bool) {
	last, ok := h.Last()
	if !ok {
		return 0, false
	}

	target := time.Now().Add(-lookback)
	var base *Record
	for i := range h.records {
		if !h.records[i].Timestamp.After(target) {
			base = &h.records[i]
		}
	}
	if base == nil || base.TotalOI == 0 {
		return 0, false
	}

	return (last.TotalOI - base.TotalOI) / base.TotalOI * 100, true
}

// IsWhale reports whether the given change percentage is unusually large:
// its absolute value must exceed the mean of the rolling ten-record means of
// absolute BTC changes, scaled by multiplier. It needs at least ten records
// of history.
func (h *History) IsWhale(changePct, multiplier float64) bool {
	const window = 10
	if len(h.records) < window {
		return false
	}

	var rollingMeans []float64
	for i := window - 1; i < len(h.records); i++ {
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += math.Abs(h.records[j].BTCChangePct)
		}
		rollingMeans = append(rollingMeans, sum/window)
	}

	avg := 0.0
	for _, m := range rollingMeans {
		avg += m
	}
	avg /= float64(len(rollingMeans))

	return math.Abs(changePct) > avg*multiplier
}

// FormatNumberForSpeech renders a notional as a speech-friendly string in
// billions or millions.
func FormatNumberForSpeech(n float64) string {
	if billions := n / 1e9; billions >= 1 {
		return fmt.Sprintf("%.4f billion", billions)
	}
	return fmt.Sprintf("%.2f million", n/1e6)
}
