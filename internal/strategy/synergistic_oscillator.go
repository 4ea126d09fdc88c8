package strategy

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/oiwatch/market-agents/internal/backtest"
	"github.com/oiwatch/market-agents/internal/indicators"
	"github.com/oiwatch/market-agents/pkg/types"
)

// SynergisticOscillator trades StochRSI crosses out of the extreme zones in
// the direction of the 50-bar trend, with a volume-oscillator confirmation.
// Half the position is booked when StochRSI reaches the opposite extreme;
// the rest exits on an SMA break, an opposite cross or after ten bars.
type SynergisticOscillator struct {
	RiskPerTrade  float64
	ATRMultiplier float64
	Oversold      float64
	Overbought    float64
	MaxBars       int

	close, volume []float64
	sma           []float64
	stochK        []float64
	stochD        []float64
	atr           []float64
	volOsc        []float64

	partialed bool
	posBars   int
}

// NewSynergisticOscillator returns the strategy with its tuned defaults.
func NewSynergisticOscillator() *SynergisticOscillator {
	return &SynergisticOscillator{
		RiskPerTrade:  0.01,
		ATRMultiplier: 1.5,
		Oversold:      20,
		Overbought:    80,
		MaxBars:       10,
	}
}

func (s *SynergisticOscillator) Name() string { return "SynergisticOscillator" }

func (s *SynergisticOscillator) Init(data []types.OHLCV) error {
	_, high, low, close, volume := series(data)
	s.close = close
	s.volume = volume

	s.sma = talib.Sma(close, 50)
	s.stochK, s.stochD = talib.StochRsi(close, 14, 14, 3, talib.SMA)
	s.atr = talib.Atr(high, low, close, 14)
	s.volOsc = indicators.VolumeOscillator(volume, 5, 34)

	s.partialed = false
	s.posBars = 0
	return nil
}

func (s *SynergisticOscillator) OnBar(i int, b *backtest.Broker) {
	if i < 50 {
		return
	}

	if pos := b.Position(); pos != nil {
		s.posBars++

		if s.posBars >= s.MaxBars {
			b.ClosePosition("time-exit")
			s.reset()
			return
		}

		if pos.IsLong() {
			if s.close[i] < s.sma[i] {
				b.ClosePosition("sma-exit")
				s.reset()
				return
			}
			if crossBelow(s.stochK, s.stochD, i) {
				b.ClosePosition("opposite-cross")
				s.reset()
				return
			}
			if !s.partialed && s.stochK[i] >= s.Overbought {
				half := math.Round(pos.Size / 2)
				if half > 0 {
					b.ClosePartial(half, "partial-profit")
					s.partialed = true
				}
			}
			return
		}

		if s.close[i] > s.sma[i] {
			b.ClosePosition("sma-exit")
			s.reset()
			return
		}
		if crossAbove(s.stochK, s.stochD, i) {
			b.ClosePosition("opposite-cross")
			s.reset()
			return
		}
		if !s.partialed && s.stochK[i] <= s.Oversold {
			half := math.Round(math.Abs(pos.Size) / 2)
			if half > 0 {
				b.ClosePartial(half, "partial-profit")
				s.partialed = true
			}
		}
		return
	}

	stopDist := s.ATRMultiplier * s.atr[i]
	if stopDist <= 0 {
		return
	}

	crossUp := crossAbove(s.stochK, s.stochD, i)
	oversold := s.stochK[i] < s.Oversold && s.stochD[i] < s.Oversold
	uptrend := s.close[i] > s.sma[i]
	volOKLong := s.volOsc[i] > 0 || s.volOsc[i] > s.volOsc[i-1]

	if crossUp && oversold && uptrend && volOKLong {
		size := math.Round(s.RiskPerTrade * b.Equity() / stopDist)
		if size > 0 {
			b.Buy(size, s.close[i]-stopDist, 0)
			s.reset()
		}
		return
	}

	crossDown := crossBelow(s.stochK, s.stochD, i)
	overbought := s.stochK[i] > s.Overbought && s.stochD[i] > s.Overbought
	downtrend := s.close[i] < s.sma[i]
	volOKShort := s.volOsc[i] < 0 || s.volOsc[i] < s.volOsc[i-1]

	if crossDown && overbought && downtrend && volOKShort {
		size := math.Round(s.RiskPerTrade * b.Equity() / stopDist)
		if size > 0 {
			b.Sell(size, s.close[i]+stopDist, 0)
			s.reset()
		}
	}
}

func (s *SynergisticOscillator) reset() {
	s.partialed = false
	s.posBars = 0
}
