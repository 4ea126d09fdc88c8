package backtest

import (
	"math"
	"time"
)

// Results holds the outcome of a simulation run plus derived statistics.
type Results struct {
	StartBalance  float64
	EndBalance    float64
	TotalReturn   float64
	BuyHoldReturn float64
	MaxDrawdown   float64

	SharpeRatio      float64
	AnnualizedReturn float64
	AnnualizedSharpe float64
	SortinoRatio     float64
	CalmarRatio      float64
	ProfitFactor     float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int

	MaxExposure   float64
	AvgExposure   float64
	TotalTurnover float64

	Trades      []Trade
	EquityCurve []EquityPoint
}

// UpdateMetrics fills in all derived statistics.
func (r *Results) UpdateMetrics() {
	r.MaxDrawdown = r.calculateMaxDrawdown()
	r.SharpeRatio = r.CalculateSharpeRatio()
	r.ProfitFactor = r.CalculateProfitFactor()

	wins := 0
	for _, trade := range r.Trades {
		if trade.PnL > 0 {
			wins++
		}
	}
	r.TotalTrades = len(r.Trades)
	r.WinningTrades = wins
	r.LosingTrades = r.TotalTrades - wins

	r.calculateAnnualizedMetrics()
	r.SortinoRatio = r.calculateSortinoRatio()
	r.CalmarRatio = r.calculateCalmarRatio()
	r.calculateExposureMetrics()
	r.TotalTurnover = r.calculateTurnover()
}

// WinRate returns the percentage of winning trades.
func (r *Results) WinRate() float64 {
	if r.TotalTrades == 0 {
		return 0
	}
	return float64(r.WinningTrades) / float64(r.TotalTrades) * 100
}

// calculateMaxDrawdown finds the largest peak-to-trough equity decline.
func (r *Results) calculateMaxDrawdown() float64 {
	maxDD := 0.0
	peak := r.StartBalance
	for _, point := range r.EquityCurve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			dd := (peak - point.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// CalculateSharpeRatio computes the per-trade Sharpe ratio (risk-free rate 0).
func (r *Results) CalculateSharpeRatio() float64 {
	var returns []float64
	for _, trade := range r.Trades {
		if trade.EntryPrice > 0 && math.Abs(trade.Size) > 0 {
			notional := trade.EntryPrice * math.Abs(trade.Size)
			returns = append(returns, trade.PnL/notional)
		}
	}

	if len(returns) == 0 {
		return 0
	}

	avgReturn := 0.0
	for _, ret := range returns {
		avgReturn += ret
	}
	avgReturn /= float64(len(returns))

	variance := 0.0
	for _, ret := range returns {
		variance += math.Pow(ret-avgReturn, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}

	return avgReturn / stdDev
}

// CalculateProfitFactor computes gross profit over gross loss.
func (r *Results) CalculateProfitFactor() float64 {
	totalProfit := 0.0
	totalLoss := 0.0
	for _, trade := range r.Trades {
		if trade.PnL > 0 {
			totalProfit += trade.PnL
		} else {
			totalLoss += math.Abs(trade.PnL)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}

	return totalProfit / totalLoss
}

// calculateAnnualizedMetrics computes annualized return and Sharpe ratio
// from the equity curve.
func (r *Results) calculateAnnualizedMetrics() {
	if len(r.EquityCurve) < 2 {
		return
	}

	first := r.EquityCurve[0]
	last := r.EquityCurve[len(r.EquityCurve)-1]

	duration := last.Timestamp.Sub(first.Timestamp)
	years := duration.Hours() / (24 * 365.25)
	if years <= 0 {
		return
	}

	if first.Equity > 0 {
		r.AnnualizedReturn = math.Pow(last.Equity/first.Equity, 1.0/years) - 1.0
	}

	avgInterval := duration / time.Duration(len(r.EquityCurve)-1)
	if avgInterval > 0 {
		periodsPerYear := float64(time.Duration(24*365.25)*time.Hour) / float64(avgInterval)
		r.AnnualizedSharpe = r.SharpeRatio * math.Sqrt(periodsPerYear)
	}
}

// calculateSortinoRatio computes return over downside deviation from the
// equity curve.
func (r *Results) calculateSortinoRatio() float64 {
	if len(r.EquityCurve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(r.EquityCurve)-1)
	for i := 1; i < len(r.EquityCurve); i++ {
		if r.EquityCurve[i-1].Equity > 0 {
			ret := (r.EquityCurve[i].Equity - r.EquityCurve[i-1].Equity) / r.EquityCurve[i-1].Equity
			returns = append(returns, ret)
		}
	}

	if len(returns) == 0 {
		return 0
	}

	avgReturn := 0.0
	for _, ret := range returns {
		avgReturn += ret
	}
	avgReturn /= float64(len(returns))

	downsideVariance := 0.0
	downsideCount := 0
	for _, ret := range returns {
		if ret < 0 {
			downsideVariance += ret * ret
			downsideCount++
		}
	}

	if downsideCount == 0 || downsideVariance == 0 {
		return math.Inf(1)
	}

	downsideStdDev := math.Sqrt(downsideVariance / float64(downsideCount))
	return avgReturn / downsideStdDev
}

// calculateCalmarRatio computes annualized return over max drawdown.
func (r *Results) calculateCalmarRatio() float64 {
	if r.MaxDrawdown == 0 {
		return math.Inf(1)
	}
	return r.AnnualizedReturn / r.MaxDrawdown
}

// calculateExposureMetrics computes max and average exposure.
func (r *Results) calculateExposureMetrics() {
	if len(r.EquityCurve) == 0 {
		return
	}

	maxExp := 0.0
	totalExp := 0.0
	for _, point := range r.EquityCurve {
		if point.Exposure > maxExp {
			maxExp = point.Exposure
		}
		totalExp += point.Exposure
	}

	r.MaxExposure = maxExp
	r.AvgExposure = totalExp / float64(len(r.EquityCurve))
}

// calculateTurnover computes total traded volume over average equity.
func (r *Results) calculateTurnover() float64 {
	if len(r.EquityCurve) == 0 {
		return 0
	}

	totalVolume := 0.0
	for _, trade := range r.Trades {
		units := math.Abs(trade.Size)
		totalVolume += trade.EntryPrice*units + trade.ExitPrice*units
	}

	totalEquity := 0.0
	for _, point := range r.EquityCurve {
		totalEquity += point.Equity
	}
	avgEquity := totalEquity / float64(len(r.EquityCurve))
	if avgEquity == 0 {
		return 0
	}

	return totalVolume / avgEquity
}
