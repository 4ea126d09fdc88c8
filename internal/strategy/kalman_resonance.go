package strategy

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/oiwatch/market-agents/internal/backtest"
	"github.com/oiwatch/market-agents/internal/indicators"
	"github.com/oiwatch/market-agents/pkg/types"
)

// KalmanResonance is a mean-reversion strategy for ranging markets: a Kalman
// velocity sign flip plus a stochastic cross inside the oversold/overbought
// zone, taken only near the 61.8% Fibonacci level of the rolling 50-bar
// range. Trades are managed with a manual take-profit, an ATR trailing stop
// and a time exit.
type KalmanResonance struct {
	KalmanQ          float64
	KalmanR          float64
	StochOversold    float64
	StochOverbought  float64
	PRZTolerance     float64
	RangingThreshold float64
	MaxBarsInTrade   int
	TrailATRMult     float64
	RRMult           float64
	RiskPerTrade     float64

	close, high, low, volume []float64

	velocity      []float64
	stochK        []float64
	stochD        []float64
	atr           []float64
	ema           []float64
	fibSupport    []float64
	fibResistance []float64
	adx           []float64
	avgVolume     []float64

	tradeBars int
	tpPrice   float64
	trailStop float64
}

// NewKalmanResonance returns the strategy with its tuned defaults.
func NewKalmanResonance() *KalmanResonance {
	return &KalmanResonance{
		KalmanQ:          0.1,
		KalmanR:          1.0,
		StochOversold:    30,
		StochOverbought:  70,
		PRZTolerance:     0.005,
		RangingThreshold: 0.1,
		MaxBarsInTrade:   20,
		TrailATRMult:     2.0,
		RRMult:           3.0,
		RiskPerTrade:     0.01,
	}
}

func (s *KalmanResonance) Name() string { return "KalmanResonance" }

func (s *KalmanResonance) Init(data []types.OHLCV) error {
	_, high, low, close, volume := series(data)
	s.close, s.high, s.low, s.volume = close, high, low, volume

	_, s.velocity = indicators.KalmanFilter(close, s.KalmanQ, s.KalmanR)
	s.stochK, s.stochD = talib.Stoch(high, low, close, 14, 3, talib.SMA, 3, talib.SMA)
	s.atr = talib.Atr(high, low, close, 20)
	s.ema = talib.Ema(close, 200)
	s.fibSupport = indicators.FibSupport(high, low, 50)
	s.fibResistance = indicators.FibResistance(high, low, 50)
	s.adx = talib.Adx(high, low, close, 14)
	s.avgVolume = talib.Sma(volume, 20)

	s.tradeBars = 0
	s.tpPrice = 0
	s.trailStop = 0
	return nil
}

func (s *KalmanResonance) OnBar(i int, b *backtest.Broker) {
	if i < 200 {
		return
	}

	if pos := b.Position(); pos != nil {
		s.tradeBars++

		// manual take-profit; the stop-loss is handled by the broker
		if pos.IsLong() && s.high[i] >= s.tpPrice {
			b.ClosePosition("take-profit")
			s.trailStop = 0
			return
		}
		if pos.IsShort() && s.low[i] <= s.tpPrice {
			b.ClosePosition("take-profit")
			s.trailStop = 0
			return
		}

		if pos.IsLong() {
			s.trailStop = math.Max(s.trailStop, s.close[i]-s.TrailATRMult*s.atr[i])
			if s.close[i] <= s.trailStop {
				b.ClosePosition("trailing-stop")
				s.trailStop = 0
				return
			}
		} else {
			s.trailStop = math.Min(s.trailStop, s.close[i]+s.TrailATRMult*s.atr[i])
			if s.close[i] >= s.trailStop {
				b.ClosePosition("trailing-stop")
				s.trailStop = 0
				return
			}
		}

		if s.tradeBars > s.MaxBarsInTrade {
			b.ClosePosition("time-exit")
			s.trailStop = 0
		}
		return
	}

	s.tradeBars = 0
	s.trailStop = 0

	emaRatio := s.close[i] / s.ema[i]
	isRanging := emaRatio > 1-s.RangingThreshold && emaRatio < 1+s.RangingThreshold
	if !isRanging || s.adx[i] >= 25 {
		return
	}

	volConfirm := s.volume[i] > s.avgVolume[i]

	velCrossUp := s.velocity[i-1] < 0 && s.velocity[i] > 0
	stochOversoldCross := crossAbove(s.stochK, s.stochD, i) &&
		s.stochK[i] < s.StochOversold && s.stochK[i-1] < s.StochOversold
	nearSupport := math.Abs(s.close[i]-s.fibSupport[i])/s.close[i] < s.PRZTolerance

	if velCrossUp && stochOversoldCross && nearSupport && volConfirm {
		sl := s.fibSupport[i] - 0.5*s.atr[i]
		stopDistance := s.close[i] - sl
		if stopDistance > 0 {
			size := math.Min(s.RiskPerTrade/(stopDistance/s.close[i]), 0.95)
			b.Buy(size, sl, 0)
			s.tpPrice = s.close[i] + s.RRMult*stopDistance
			s.trailStop = sl
		}
		return
	}

	velCrossDown := s.velocity[i-1] > 0 && s.velocity[i] < 0
	stochOverboughtCross := crossBelow(s.stochK, s.stochD, i) &&
		s.stochK[i] > s.StochOverbought && s.stochK[i-1] > s.StochOverbought
	nearResistance := math.Abs(s.close[i]-s.fibResistance[i])/s.close[i] < s.PRZTolerance

	if velCrossDown && stochOverboughtCross && nearResistance && volConfirm {
		sl := s.fibResistance[i] + 0.5*s.atr[i]
		stopDistance := sl - s.close[i]
		if stopDistance > 0 {
			size := math.Min(s.RiskPerTrade/(stopDistance/s.close[i]), 0.95)
			b.Sell(size, sl, 0)
			s.tpPrice = s.close[i] - s.RRMult*stopDistance
			s.trailStop = sl
		}
	}
}
