package strategy

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/oiwatch/market-agents/internal/backtest"
	"github.com/oiwatch/market-agents/pkg/types"
)

// QuadrupleHarmonic is a long-only pullback strategy: four consecutive down
// bars with descending closes inside an uptrend, confirmed by a strong
// bullish candle, deep RSI and a volume spike. The stop sits one ATR below
// the pattern low, the target is 3:1, and the stop moves to breakeven once
// the trade has run one risk unit in profit.
type QuadrupleHarmonic struct {
	ADXThreshold   float64
	RSIThreshold   float64
	VolumeMult     float64
	RiskPerTrade   float64
	MaxSizeFrac    float64
	RRRatio        float64
	MaxBarsInTrade int

	open, high, low, close, volume []float64

	ema    []float64
	adx    []float64
	atr    []float64
	rsi    []float64
	volSMA []float64

	entryPrice float64
	initialSL  float64
}

// NewQuadrupleHarmonic returns the strategy with its tuned defaults.
func NewQuadrupleHarmonic() *QuadrupleHarmonic {
	return &QuadrupleHarmonic{
		ADXThreshold:   25,
		RSIThreshold:   35,
		VolumeMult:     2.0,
		RiskPerTrade:   0.015,
		MaxSizeFrac:    0.3,
		RRRatio:        3,
		MaxBarsInTrade: 20,
	}
}

func (s *QuadrupleHarmonic) Name() string { return "QuadrupleHarmonic" }

func (s *QuadrupleHarmonic) Init(data []types.OHLCV) error {
	s.open, s.high, s.low, s.close, s.volume = series(data)

	s.ema = talib.Ema(s.close, 200)
	s.adx = talib.Adx(s.high, s.low, s.close, 14)
	s.atr = talib.Atr(s.high, s.low, s.close, 14)
	s.rsi = talib.Rsi(s.close, 14)
	s.volSMA = talib.Sma(s.volume, 20)

	s.entryPrice = 0
	s.initialSL = 0
	return nil
}

func (s *QuadrupleHarmonic) OnBar(i int, b *backtest.Broker) {
	if i < 200 {
		return
	}

	if pos := b.Position(); pos != nil {
		if s.close[i] < s.ema[i] {
			b.ClosePosition("ema-exit")
			return
		}
		if pos.BarsHeld(i) > s.MaxBarsInTrade {
			b.ClosePosition("time-exit")
			return
		}
		// move the stop to breakeven after one risk unit of profit
		if s.entryPrice > 0 && s.initialSL > 0 {
			trigger := s.entryPrice + (s.entryPrice - s.initialSL)
			if s.high[i] > trigger && s.entryPrice > pos.StopLoss {
				b.SetStopLoss(s.entryPrice)
			}
		}
		return
	}

	// four consecutive down bars with descending closes
	pattern := s.close[i-4] < s.open[i-4] &&
		s.close[i-3] < s.open[i-3] &&
		s.close[i-2] < s.open[i-2] &&
		s.close[i-1] < s.open[i-1] &&
		s.close[i-3] < s.close[i-4] &&
		s.close[i-2] < s.close[i-3] &&
		s.close[i-1] < s.close[i-2]
	if !pattern {
		return
	}

	body := s.close[i] - s.open[i]
	candleRange := s.high[i] - s.low[i]
	strongBullish := body > 0 && body > 0.5*candleRange

	if !strongBullish ||
		s.close[i] <= s.ema[i] ||
		s.adx[i] <= s.ADXThreshold ||
		s.rsi[i] >= s.RSIThreshold ||
		s.volume[i] <= s.VolumeMult*s.volSMA[i] {
		return
	}

	minLow := math.Min(math.Min(s.low[i-4], s.low[i-3]), math.Min(s.low[i-2], s.low[i-1]))
	sl := minLow - s.atr[i]
	entry := s.close[i]
	stopDistance := entry - sl
	if stopDistance <= 0 {
		return
	}
	tp := entry + s.RRRatio*stopDistance

	size := math.Min(s.RiskPerTrade*(entry/stopDistance), s.MaxSizeFrac)
	if size <= 0 {
		return
	}

	b.Buy(size, sl, tp)
	s.entryPrice = entry
	s.initialSL = sl
}
