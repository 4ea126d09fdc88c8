package strategy

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/oiwatch/market-agents/internal/backtest"
	"github.com/oiwatch/market-agents/internal/indicators"
	"github.com/oiwatch/market-agents/pkg/types"
)

// FractalCascade trades Alligator line stacks confirmed by the Awesome
// Oscillator, a fractal breakout and a volume surge, in the direction of the
// 200-bar trend. Stops trail the close by a multiple of ATR and the jaw line
// is the hard exit.
type FractalCascade struct {
	TrailMult    float64
	ADXThreshold float64
	VolumeMult   float64
	RiskPerTrade float64

	close, volume []float64
	jaw           []float64
	teeth         []float64
	lips          []float64
	ao            []float64
	atr           []float64
	adx           []float64
	volumeMA      []float64
	sma200        []float64
	ffillUp       []float64
	ffillDown     []float64
}

// NewFractalCascade returns the strategy with its tuned defaults.
func NewFractalCascade() *FractalCascade {
	return &FractalCascade{
		TrailMult:    3.0,
		ADXThreshold: 30,
		VolumeMult:   1.5,
		RiskPerTrade: 0.02,
	}
}

func (s *FractalCascade) Name() string { return "FractalCascade" }

func (s *FractalCascade) Init(data []types.OHLCV) error {
	_, high, low, close, volume := series(data)
	s.close = close
	s.volume = volume

	median := indicators.MedianPrice(high, low)
	s.jaw = indicators.ShiftedEma(median, 13, 8)
	s.teeth = indicators.ShiftedEma(median, 8, 5)
	s.lips = indicators.ShiftedEma(median, 5, 3)

	// Awesome Oscillator: SMA(median,5) - SMA(median,34)
	s.ao = subtract(indicators.RollingMean(median, 5), indicators.RollingMean(median, 34))

	s.atr = talib.Atr(high, low, close, 14)
	s.adx = talib.Adx(high, low, close, 14)
	s.volumeMA = talib.Sma(volume, 20)
	s.sma200 = talib.Sma(close, 200)

	s.ffillUp = indicators.ForwardFill(indicators.UpFractals(high))
	s.ffillDown = indicators.ForwardFill(indicators.DownFractals(low))
	return nil
}

func (s *FractalCascade) OnBar(i int, b *backtest.Broker) {
	if i < 200 {
		return
	}
	if s.adx[i] < s.ADXThreshold {
		return
	}

	riskAmount := s.RiskPerTrade * b.Equity()
	entryPrice := s.close[i]
	atrBuffer := s.atr[i]

	if b.Position() == nil {
		longSignal := s.close[i] > s.lips[i] &&
			s.lips[i] > s.teeth[i] && s.teeth[i] > s.jaw[i] &&
			s.ao[i] > 0 && s.ao[i] > s.ao[i-1] &&
			s.volume[i] > s.VolumeMult*s.volumeMA[i] &&
			s.close[i] > s.ffillUp[i] && s.close[i-1] <= s.ffillUp[i-1] &&
			s.close[i] > s.sma200[i]

		if longSignal {
			sl := s.ffillDown[i] - atrBuffer
			if !math.IsNaN(sl) && sl < entryPrice {
				size := math.Round(riskAmount / (entryPrice - sl))
				if size > 0 {
					b.Buy(size, sl, 0)
				}
			}
			return
		}

		shortSignal := s.close[i] < s.lips[i] &&
			s.lips[i] < s.teeth[i] && s.teeth[i] < s.jaw[i] &&
			s.ao[i] < 0 && s.ao[i] < s.ao[i-1] &&
			s.volume[i] > s.VolumeMult*s.volumeMA[i] &&
			s.close[i] < s.ffillDown[i] && s.close[i-1] >= s.ffillDown[i-1] &&
			s.close[i] < s.sma200[i]

		if shortSignal {
			sl := s.ffillUp[i] + atrBuffer
			if !math.IsNaN(sl) && sl > entryPrice {
				size := math.Round(riskAmount / (sl - entryPrice))
				if size > 0 {
					b.Sell(size, sl, 0)
				}
			}
		}
		return
	}

	pos := b.Position()
	if pos.IsLong() {
		if s.close[i] < s.jaw[i] {
			b.ClosePosition("jaw-exit")
			return
		}
		trail := s.close[i] - s.TrailMult*s.atr[i]
		if trail > pos.StopLoss {
			b.SetStopLoss(trail)
		}
		return
	}

	if s.close[i] > s.jaw[i] {
		b.ClosePosition("jaw-exit")
		return
	}
	trail := s.close[i] + s.TrailMult*s.atr[i]
	if pos.StopLoss > 0 && trail < pos.StopLoss {
		b.SetStopLoss(trail)
	}
}
