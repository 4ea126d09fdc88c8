// Package indicators holds the hand-rolled indicator series the strategies
// need on top of go-talib: shifted moving averages, Williams fractals, a
// Kalman smoother, Fibonacci retracement levels and a few rolling helpers.
// All functions follow the go-talib convention of slice-in, slice-out with
// the warm-up region marked NaN.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// MedianPrice returns (high + low) / 2 per bar.
func MedianPrice(high, low []float64) []float64 {
	out := make([]float64, len(high))
	for i := range high {
		out[i] = (high[i] + low[i]) / 2
	}
	return out
}

// ShiftedEma computes an EMA and displaces it forward by shift bars, the way
// the Alligator jaw/teeth/lips lines are plotted. The first period-1+shift
// values are NaN.
func ShiftedEma(values []float64, period, shift int) []float64 {
	ema := talib.Ema(values, period)
	out := make([]float64, len(values))
	for i := range out {
		src := i - shift
		if src < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = ema[src]
	}
	return out
}

// ForwardFill carries the last non-NaN value forward. Leading NaNs stay NaN.
func ForwardFill(values []float64) []float64 {
	out := make([]float64, len(values))
	prev := math.NaN()
	for i, v := range values {
		if !math.IsNaN(v) {
			prev = v
		}
		out[i] = prev
	}
	return out
}

// RollingMean computes the simple moving average over window bars; entries
// before a full window are NaN. NaN inputs propagate for their window.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}
		if !valid {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// VolumeOscillator is SMA(volume, fast) - SMA(volume, slow).
func VolumeOscillator(volume []float64, fast, slow int) []float64 {
	fastMA := talib.Sma(volume, fast)
	slowMA := talib.Sma(volume, slow)
	out := make([]float64, len(volume))
	for i := range out {
		if i < slow-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = fastMA[i] - slowMA[i]
	}
	return out
}
