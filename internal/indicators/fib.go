package indicators

import "math"

// FibSupport returns the 61.8% retracement below the rolling highest high:
// HH - 0.618 * (HH - LL) over the trailing period.
func FibSupport(high, low []float64, period int) []float64 {
	return fibLevel(high, low, period, func(hh, ll float64) float64 {
		return hh - 0.618*(hh-ll)
	})
}

// FibResistance returns the 61.8% retracement above the rolling lowest low:
// LL + 0.618 * (HH - LL) over the trailing period.
func FibResistance(high, low []float64, period int) []float64 {
	return fibLevel(high, low, period, func(hh, ll float64) float64 {
		return ll + 0.618*(hh-ll)
	})
}

func fibLevel(high, low []float64, period int, level func(hh, ll float64) float64) []float64 {
	out := make([]float64, len(high))
	for i := range out {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		hh := math.Inf(-1)
		ll := math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			if high[j] > hh {
				hh = high[j]
			}
			if low[j] < ll {
				ll = low[j]
			}
		}
		out[i] = level(hh, ll)
	}
	return out
}
