// Package backtest is a small bar-by-bar simulation harness: market order
// fills, stop-loss/take-profit handling and equity/commission accounting.
// Indicator math lives in go-talib and internal/indicators; strategies drive
// the broker through the Strategy interface.
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/oiwatch/market-agents/pkg/types"
)

// Strategy is implemented by each backtest strategy. Init precomputes
// indicator series over the full candle history; OnBar is invoked once per
// completed bar and may inspect or drive the broker.
type Strategy interface {
	Name() string
	Init(data []types.OHLCV) error
	OnBar(i int, b *Broker)
}

// Trade records a completed (or partially closed) round trip.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Size       float64 // signed units; positive = long
	PnL        float64
	Commission float64
	Reason     string
}

// Position is the single open position. Size is signed units.
type Position struct {
	Size       float64
	EntryPrice float64
	EntryTime  time.Time
	EntryIndex int
	StopLoss   float64 // 0 = none
	TakeProfit float64 // 0 = none

	entryCommissionPerUnit float64
}

// IsLong reports whether the position is long.
func (p *Position) IsLong() bool { return p.Size > 0 }

// IsShort reports whether the position is short.
func (p *Position) IsShort() bool { return p.Size < 0 }

// BarsHeld returns how many bars the position has been open as of bar i.
func (p *Position) BarsHeld(i int) int { return i - p.EntryIndex }

// order is a pending market order, filled at the next bar's open.
type order struct {
	size float64 // size in (0,1) = fraction of equity; >= 1 = units
	long bool
	sl   float64
	tp   float64
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
	Exposure  float64
}

// Broker tracks cash, the open position and the trade log. Orders are
// exclusive: placing an order while a position is open is rejected.
type Broker struct {
	data       []types.OHLCV
	cash       float64
	commission float64

	pos     *Position
	pending *order

	trades      []Trade
	equityCurve []EquityPoint
	index       int
}

func newBroker(data []types.OHLCV, cash, commission float64) *Broker {
	return &Broker{
		data:       data,
		cash:       cash,
		commission: commission,
	}
}

// Buy queues a long market order for the next bar's open. A size below 1 is
// a fraction of current equity, otherwise whole units. sl/tp of 0 disable
// the respective bracket.
func (b *Broker) Buy(size, sl, tp float64) {
	b.place(size, true, sl, tp)
}

// Sell queues a short market order for the next bar's open.
func (b *Broker) Sell(size, sl, tp float64) {
	b.place(size, false, sl, tp)
}

func (b *Broker) place(size float64, long bool, sl, tp float64) {
	if size <= 0 || b.pos != nil {
		return
	}
	b.pending = &order{size: size, long: long, sl: sl, tp: tp}
}

// Position returns the open position, or nil when flat.
func (b *Broker) Position() *Position { return b.pos }

// SetStopLoss replaces the stop-loss on the open position.
func (b *Broker) SetStopLoss(price float64) {
	if b.pos != nil {
		b.pos.StopLoss = price
	}
}

// Equity is cash plus the open position valued at the current close.
func (b *Broker) Equity() float64 {
	eq := b.cash
	if b.pos != nil {
		eq += b.pos.Size * b.data[b.index].Close
	}
	return eq
}

// Cash returns the free cash balance.
func (b *Broker) Cash() float64 { return b.cash }

// Index returns the current bar index.
func (b *Broker) Index() int { return b.index }

// ClosePosition closes the whole position at the current bar's close.
func (b *Broker) ClosePosition(reason string) {
	if b.pos == nil {
		return
	}
	bar := b.data[b.index]
	b.closeUnits(b.pos.Size, bar.Close, bar.Timestamp, reason)
}

// ClosePartial closes units (unsigned) of the position at the current close.
func (b *Broker) ClosePartial(units float64, reason string) {
	if b.pos == nil || units <= 0 {
		return
	}
	if units > math.Abs(b.pos.Size) {
		units = math.Abs(b.pos.Size)
	}
	signed := units
	if b.pos.IsShort() {
		signed = -units
	}
	bar := b.data[b.index]
	b.closeUnits(signed, bar.Close, bar.Timestamp, reason)
}

// fillPending executes the queued order at bar i's open.
func (b *Broker) fillPending(i int) {
	if b.pending == nil {
		return
	}
	ord := b.pending
	b.pending = nil
	if b.pos != nil {
		return
	}

	price := b.data[i].Open
	if price <= 0 {
		return
	}

	units := ord.size
	if ord.size < 1 {
		units = b.cash * ord.size / price
	}
	if units <= 0 {
		return
	}

	notional := units * price
	fee := notional * b.commission
	if ord.long && notional+fee > b.cash {
		// scale down to what cash covers
		units = b.cash / (price * (1 + b.commission))
		notional = units * price
		fee = notional * b.commission
	}
	if units <= 0 {
		return
	}

	signed := units
	if !ord.long {
		signed = -units
	}

	b.cash -= signed*price + fee
	b.pos = &Position{
		Size:                   signed,
		EntryPrice:             price,
		EntryTime:              b.data[i].Timestamp,
		EntryIndex:             i,
		StopLoss:               ord.sl,
		TakeProfit:             ord.tp,
		entryCommissionPerUnit: fee / units,
	}
}

// checkStops evaluates SL and TP against bar i's range. When both trigger in
// the same bar the stop-loss wins (pessimistic fill). A gap through the
// level fills at the open.
func (b *Broker) checkStops(i int) {
	if b.pos == nil {
		return
	}
	bar := b.data[i]
	p := b.pos

	if p.IsLong() {
		if p.StopLoss > 0 && bar.Low <= p.StopLoss {
			price := p.StopLoss
			if bar.Open < price {
				price = bar.Open
			}
			b.closeUnits(p.Size, price, bar.Timestamp, "stop-loss")
			return
		}
		if p.TakeProfit > 0 && bar.High >= p.TakeProfit {
			price := p.TakeProfit
			if bar.Open > price {
				price = bar.Open
			}
			b.closeUnits(p.Size, price, bar.Timestamp, "take-profit")
		}
		return
	}

	if p.StopLoss > 0 && bar.High >= p.StopLoss {
		price := p.StopLoss
		if bar.Open > price {
			price = bar.Open
		}
		b.closeUnits(p.Size, price, bar.Timestamp, "stop-loss")
		return
	}
	if p.TakeProfit > 0 && bar.Low <= p.TakeProfit {
		price := p.TakeProfit
		if bar.Open < price {
			price = bar.Open
		}
		b.closeUnits(p.Size, price, bar.Timestamp, "take-profit")
	}
}

// closeUnits realizes signed units of the position at price.
func (b *Broker) closeUnits(signed, price float64, ts time.Time, reason string) {
	p := b.pos
	units := math.Abs(signed)
	exitFee := units * price * b.commission
	entryFee := p.entryCommissionPerUnit * units
	totalFee := entryFee + exitFee

	b.cash += signed*price - exitFee

	b.trades = append(b.trades, Trade{
		EntryTime:  p.EntryTime,
		ExitTime:   ts,
		EntryPrice: p.EntryPrice,
		ExitPrice:  price,
		Size:       signed,
		PnL:        (price-p.EntryPrice)*signed - totalFee,
		Commission: totalFee,
		Reason:     reason,
	})

	remaining := p.Size - signed
	if math.Abs(remaining) < 1e-12 {
		b.pos = nil
		return
	}
	p.Size = remaining
}

// recordEquity samples the equity curve at bar i's close.
func (b *Broker) recordEquity(i int) {
	bar := b.data[i]
	eq := b.cash
	exposure := 0.0
	if b.pos != nil {
		eq += b.pos.Size * bar.Close
		if eq > 0 {
			exposure = math.Abs(b.pos.Size) * bar.Close / eq
		}
	}
	b.equityCurve = append(b.equityCurve, EquityPoint{
		Timestamp: bar.Timestamp,
		Equity:    eq,
		Exposure:  exposure,
	})
}

// Engine runs a strategy over a candle series.
type Engine struct {
	initialBalance float64
	commission     float64
	strategy       Strategy
}

// NewEngine creates an engine with the given starting cash and commission
// rate (fraction of traded notional, charged on entry and exit).
func NewEngine(initialBalance, commission float64, strat Strategy) *Engine {
	return &Engine{
		initialBalance: initialBalance,
		commission:     commission,
		strategy:       strat,
	}
}

// Run simulates the strategy over data and returns the computed results.
func (e *Engine) Run(data []types.OHLCV) (*Results, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("insufficient data: need at least 2 bars, got %d", len(data))
	}

	if err := e.strategy.Init(data); err != nil {
		return nil, fmt.Errorf("strategy init: %w", err)
	}

	b := newBroker(data, e.initialBalance, e.commission)

	for i := 1; i < len(data); i++ {
		b.index = i
		b.fillPending(i)
		b.checkStops(i)
		e.strategy.OnBar(i, b)
		b.recordEquity(i)
	}

	// liquidate whatever is still open at the final close
	b.index = len(data) - 1
	b.ClosePosition("end-of-data")

	results := &Results{
		StartBalance: e.initialBalance,
		EndBalance:   b.Equity(),
		Trades:       b.trades,
		EquityCurve:  b.equityCurve,
	}
	results.TotalReturn = (results.EndBalance - results.StartBalance) / results.StartBalance
	if data[0].Close > 0 {
		results.BuyHoldReturn = (data[len(data)-1].Close - data[0].Close) / data[0].Close
	}
	results.UpdateMetrics()

	return results, nil
}
