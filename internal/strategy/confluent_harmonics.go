package strategy

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/oiwatch/market-agents/internal/backtest"
	"github.com/oiwatch/market-agents/pkg/types"
)

// ConfluentHarmonics trades Bollinger Band squeeze reversals: a touch of the
// outer band followed by a close through the middle band, confirmed by ADX
// with directional-index agreement, an RSI extreme at the touch, the 200-bar
// trend and above-average volume. Brackets are ATR-based with a 3:1 reward
// to risk ratio, plus an early exit when ADX fades.
type ConfluentHarmonics struct {
	BBPeriod         int
	BBStd            float64
	ADXThreshold     float64
	SqueezeThreshold float64
	ATRStopMult      float64
	RRRatio          float64
	RiskPerTrade     float64
	RSIOversold      float64
	RSIOverbought    float64
	EarlyADXExit     float64

	close, volume []float64
	atr           []float64
	bbUpper       []float64
	bbMiddle      []float64
	bbLower       []float64
	adx           []float64
	plusDI        []float64
	minusDI       []float64
	rsi           []float64
	smaTrend      []float64
	volSMA        []float64
}

// NewConfluentHarmonics returns the strategy with its tuned defaults.
func NewConfluentHarmonics() *ConfluentHarmonics {
	return &ConfluentHarmonics{
		BBPeriod:         20,
		BBStd:            2,
		ADXThreshold:     20,
		SqueezeThreshold: 0.03,
		ATRStopMult:      1.5,
		RRRatio:          3,
		RiskPerTrade:     0.015,
		RSIOversold:      30,
		RSIOverbought:    70,
		EarlyADXExit:     15,
	}
}

func (s *ConfluentHarmonics) Name() string { return "ConfluentHarmonics" }

func (s *ConfluentHarmonics) Init(data []types.OHLCV) error {
	_, high, low, close, volume := series(data)
	s.close = close
	s.volume = volume

	s.atr = talib.Atr(high, low, close, 14)
	s.bbUpper, s.bbMiddle, s.bbLower = talib.BBands(close, s.BBPeriod, s.BBStd, s.BBStd, talib.SMA)
	s.adx = talib.Adx(high, low, close, 14)
	s.plusDI = talib.PlusDI(high, low, close, 14)
	s.minusDI = talib.MinusDI(high, low, close, 14)
	s.rsi = talib.Rsi(close, 14)
	s.smaTrend = talib.Sma(close, 200)
	s.volSMA = talib.Sma(volume, 20)
	return nil
}

func (s *ConfluentHarmonics) OnBar(i int, b *backtest.Broker) {
	if i < 200 {
		return
	}

	price := s.close[i]
	bbWidth := (s.bbUpper[i] - s.bbLower[i]) / s.bbMiddle[i]
	prevWidth := (s.bbUpper[i-1] - s.bbLower[i-1]) / s.bbMiddle[i-1]
	squeeze := bbWidth < s.SqueezeThreshold || prevWidth < s.SqueezeThreshold

	if pos := b.Position(); pos != nil {
		if s.adx[i] < s.EarlyADXExit {
			b.ClosePosition("adx-fade")
		}
		return
	}

	volSurge := s.volume[i] > s.volSMA[i]
	riskDist := s.ATRStopMult * s.atr[i]
	if riskDist <= 0 {
		return
	}

	bullish := s.close[i-1] <= s.bbLower[i-1] &&
		price > s.bbMiddle[i] &&
		s.adx[i] > s.ADXThreshold &&
		s.plusDI[i] > s.minusDI[i] &&
		squeeze &&
		s.rsi[i-1] < s.RSIOversold &&
		price > s.smaTrend[i] &&
		volSurge

	if bullish {
		sl := price - riskDist
		tp := price + s.RRRatio*riskDist
		size := math.Min(s.RiskPerTrade/(riskDist/price), 0.999)
		b.Buy(size, sl, tp)
		return
	}

	bearish := s.close[i-1] >= s.bbUpper[i-1] &&
		price < s.bbMiddle[i] &&
		s.adx[i] > s.ADXThreshold &&
		s.minusDI[i] > s.plusDI[i] &&
		squeeze &&
		s.rsi[i-1] > s.RSIOverbought &&
		price < s.smaTrend[i] &&
		volSurge

	if bearish {
		sl := price + riskDist
		tp := price - s.RRRatio*riskDist
		size := math.Min(s.RiskPerTrade/(riskDist/price), 0.999)
		b.Sell(size, sl, tp)
	}
}
