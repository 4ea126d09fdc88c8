package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equityCurveOf(values ...float64) []EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make([]EquityPoint, len(values))
	for i, v := range values {
		curve[i] = EquityPoint{Timestamp: start.AddDate(0, 0, i), Equity: v}
	}
	return curve
}

func TestResults_WinRate(t *testing.T) {
	r := &Results{
		StartBalance: 1000,
		Trades: []Trade{
			{PnL: 100, EntryPrice: 100, Size: 1},
			{PnL: -50, EntryPrice: 100, Size: 1},
			{PnL: 25, EntryPrice: 100, Size: 1},
		},
	}
	r.UpdateMetrics()

	assert.Equal(t, 3, r.TotalTrades)
	assert.Equal(t, 2, r.WinningTrades)
	assert.Equal(t, 1, r.LosingTrades)
	assert.InDelta(t, 66.67, r.WinRate(), 0.01)
}

func TestResults_WinRate_NoTrades(t *testing.T) {
	r := &Results{StartBalance: 1000}
	r.UpdateMetrics()

	assert.Equal(t, 0.0, r.WinRate())
}

func TestResults_MaxDrawdown(t *testing.T) {
	r := &Results{
		StartBalance: 100,
		EquityCurve:  equityCurveOf(100, 120, 90, 130),
	}
	r.UpdateMetrics()

	// peak 120, trough 90
	assert.InDelta(t, 0.25, r.MaxDrawdown, 1e-9)
}

func TestResults_MaxDrawdown_MonotonicEquity(t *testing.T) {
	r := &Results{
		StartBalance: 100,
		EquityCurve:  equityCurveOf(100, 110, 120, 130),
	}
	r.UpdateMetrics()

	assert.Equal(t, 0.0, r.MaxDrawdown)
	assert.True(t, math.IsInf(r.CalmarRatio, 1))
}

func TestResults_CalculateProfitFactor(t *testing.T) {
	r := &Results{
		Trades: []Trade{
			{PnL: 100},
			{PnL: 60},
			{PnL: -80},
		},
	}

	assert.InDelta(t, 2.0, r.CalculateProfitFactor(), 1e-9)
}

func TestResults_CalculateProfitFactor_NoLosses(t *testing.T) {
	r := &Results{Trades: []Trade{{PnL: 100}}}
	assert.True(t, math.IsInf(r.CalculateProfitFactor(), 1))

	empty := &Results{}
	assert.Equal(t, 0.0, empty.CalculateProfitFactor())
}

func TestResults_CalculateSharpeRatio(t *testing.T) {
	r := &Results{
		Trades: []Trade{
			{PnL: 10, EntryPrice: 100, Size: 1},  // +10%
			{PnL: -10, EntryPrice: 100, Size: 1}, // -10%
			{PnL: 20, EntryPrice: 100, Size: 1},  // +20%
		},
	}

	// returns 0.1, -0.1, 0.2: mean ~0.0667, population std ~0.1247
	sharpe := r.CalculateSharpeRatio()
	assert.InDelta(t, 0.5345, sharpe, 0.001)
}

func TestResults_CalculateSharpeRatio_ConstantReturns(t *testing.T) {
	r := &Results{
		Trades: []Trade{
			{PnL: 10, EntryPrice: 100, Size: 1},
			{PnL: 10, EntryPrice: 100, Size: 1},
		},
	}

	assert.Equal(t, 0.0, r.CalculateSharpeRatio())
}

func TestResults_SortinoRatio_NoDownside(t *testing.T) {
	r := &Results{
		StartBalance: 100,
		EquityCurve:  equityCurveOf(100, 105, 110),
	}
	r.UpdateMetrics()

	assert.True(t, math.IsInf(r.SortinoRatio, 1))
}

func TestResults_AnnualizedReturn(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := []EquityPoint{
		{Timestamp: start, Equity: 1000},
		{Timestamp: start.Add(time.Duration(365.25 * 24 * float64(time.Hour))), Equity: 1210},
	}
	r := &Results{StartBalance: 1000, EquityCurve: curve}
	r.UpdateMetrics()

	// exactly one year of data
	assert.InDelta(t, 0.21, r.AnnualizedReturn, 0.001)
}

func TestResults_ExposureMetrics(t *testing.T) {
	r := &Results{
		StartBalance: 100,
		EquityCurve: []EquityPoint{
			{Equity: 100, Exposure: 0},
			{Equity: 100, Exposure: 0.8},
			{Equity: 100, Exposure: 0.4},
		},
	}
	r.UpdateMetrics()

	assert.Equal(t, 0.8, r.MaxExposure)
	assert.InDelta(t, 0.4, r.AvgExposure, 1e-9)
}

func TestResults_Turnover(t *testing.T) {
	r := &Results{
		StartBalance: 1000,
		Trades: []Trade{
			{EntryPrice: 100, ExitPrice: 110, Size: 5},
		},
		EquityCurve: equityCurveOf(1000, 1050),
	}
	r.UpdateMetrics()

	// (500 + 550) / 1025
	require.InDelta(t, 1050.0/1025.0, r.TotalTurnover, 1e-9)
}
