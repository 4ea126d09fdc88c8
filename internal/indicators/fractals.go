package indicators

import "math"

// UpFractals marks 5-bar Williams up fractals: a high strictly above the two
// highs on each side. Non-fractal bars (and the two bars at each edge) are
// NaN.
func UpFractals(high []float64) []float64 {
	out := nanSlice(len(high))
	for i := 2; i < len(high)-2; i++ {
		h := high[i]
		if h > high[i-1] && h > high[i-2] && h > high[i+1] && h > high[i+2] {
			out[i] = h
		}
	}
	return out
}

// DownFractals marks 5-bar Williams down fractals: a low strictly below the
// two lows on each side.
func DownFractals(low []float64) []float64 {
	out := nanSlice(len(low))
	for i := 2; i < len(low)-2; i++ {
		l := low[i]
		if l < low[i-1] && l < low[i-2] && l < low[i+1] && l < low[i+2] {
			out[i] = l
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
