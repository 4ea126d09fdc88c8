// Package strategy contains the indicator-driven trading strategies run by
// the backtest binaries. Each strategy precomputes its indicator series over
// the full candle history in Init and places orders through the broker in
// OnBar.
package strategy

import (
	"github.com/oiwatch/market-agents/pkg/types"
)

// series splits a candle slice into the per-field float series the indicator
// functions consume.
func series(data []types.OHLCV) (open, high, low, close, volume []float64) {
	n := len(data)
	open = make([]float64, n)
	high = make([]float64, n)
	low = make([]float64, n)
	close = make([]float64, n)
	volume = make([]float64, n)
	for i, bar := range data {
		open[i] = bar.Open
		high[i] = bar.High
		low[i] = bar.Low
		close[i] = bar.Close
		volume[i] = bar.Volume
	}
	return open, high, low, close, volume
}

// crossAbove reports whether a crossed above b at index i.
func crossAbove(a, b []float64, i int) bool {
	return a[i] > b[i] && a[i-1] <= b[i-1]
}

// crossBelow reports whether a crossed below b at index i.
func crossBelow(a, b []float64, i int) bool {
	return a[i] < b[i] && a[i-1] >= b[i-1]
}

// subtract returns a[i]-b[i] per element.
func subtract(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
