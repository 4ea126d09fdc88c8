package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/oiwatch/market-agents/internal/config"
	"github.com/oiwatch/market-agents/internal/exchange/bybit"
	"github.com/oiwatch/market-agents/internal/llm"
	"github.com/oiwatch/market-agents/internal/logger"
	"github.com/oiwatch/market-agents/internal/monitoring"
	"github.com/oiwatch/market-agents/internal/notifications"
	"github.com/oiwatch/market-agents/pkg/types"
)

// MarketDataProvider supplies the market data the agent polls.
type MarketDataProvider interface {
	GetOpenInterest(ctx context.Context, symbol string) (*types.OpenInterest, error)
	GetKlines(ctx context.Context, params bybit.KlineParams) ([]types.OHLCV, error)
}

// Announcer plays a spoken announcement.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// WhaleAgent polls open interest on an interval, tracks a rolling history
// and narrates significant changes.
type WhaleAgent struct {
	cfg      *config.Config
	market   MarketDataProvider
	analyzer llm.Analyzer
	speaker  Announcer
	notifier notifications.Notifier
	health   *monitoring.HealthChecker
	log      *logger.Logger
	history  *History
}

// NewWhaleAgent wires the agent together. analyzer and speaker may be nil,
// which disables AI commentary and voice respectively.
func NewWhaleAgent(
	cfg *config.Config,
	market MarketDataProvider,
	analyzer llm.Analyzer,
	speaker Announcer,
	notifier notifications.Notifier,
	health *monitoring.HealthChecker,
	log *logger.Logger,
) (*WhaleAgent, error) {
	history, err := LoadHistory(cfg.Agent.HistoryFile)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}

	return &WhaleAgent{
		cfg:      cfg,
		market:   market,
		analyzer: analyzer,
		speaker:  speaker,
		notifier: notifier,
		health:   health,
		log:      log,
		history:  history,
	}, nil
}

// History exposes the rolling store, primarily for the startup summary.
func (a *WhaleAgent) History() *History { return a.history }

// Run polls until the context is cancelled. The first cycle runs
// immediately; later cycles follow the configured interval.
func (a *WhaleAgent) Run(ctx context.Context) error {
	a.log.Info("whale agent starting, interval=%s lookback=%s threshold=%.2f",
		a.cfg.Agent.CheckInterval, a.cfg.Agent.LookbackPeriod, a.cfg.Agent.WhaleThreshold)

	a.AnnounceStartupSummary(ctx)

	ticker := time.NewTicker(a.cfg.Agent.CheckInterval)
	defer ticker.Stop()

	for {
		if err := a.RunCycle(ctx); err != nil {
			a.log.LogError("monitoring cycle", err)
			a.health.RecordError(err.Error())
			monitoring.RecordError("cycle")
		}

		select {
		case <-ctx.Done():
			a.log.Info("whale agent shutting down")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one poll: fetch open interest, record it, and announce
// the change over the lookback interval when enough history exists.
func (a *WhaleAgent) RunCycle(ctx context.Context) error {
	start := time.Now()
	defer func() {
		monitoring.RecordCycleDuration(time.Since(start).Seconds())
	}()

	rec, err := a.poll(ctx)
	if err != nil {
		a.health.RecordDisconnect()
		monitoring.RecordError("poll")
		return err
	}

	a.log.Status("BTC OI $%.2f, ETH OI $%.2f, total $%.2f (btc %+.4f%%)",
		rec.BTCOI, rec.ETHOI, rec.TotalOI, rec.BTCChangePct)

	// need a few records before point-to-interval comparisons mean anything
	if a.history.Len() <= 2 {
		a.log.Info("building history, %d records so far", a.history.Len())
		return nil
	}

	// cycle-to-cycle comparison runs over the check interval; the longer
	// lookback is only used for the startup summary
	change, ok := a.history.ChangeSince(a.cfg.Agent.CheckInterval)
	if !ok {
		a.log.Info("not enough history to cover the %s interval yet", a.cfg.Agent.CheckInterval)
		return nil
	}
	monitoring.UpdateOpenInterestChange(a.cfg.Agent.Symbols[0], change.Pct)

	isWhale := a.history.IsWhale(change.Pct, a.cfg.Agent.WhaleThreshold)
	message := a.formatAnnouncement(change)

	if isWhale {
		if analysis := a.analyze(ctx, change); analysis != nil {
			message += fmt.Sprintf(" | AI suggests %s with %d%% confidence. Analysis: %s",
				analysis.Action, analysis.Confidence, analysis.FirstReasonLine())
		}
	}

	a.announce(ctx, message, isWhale)
	return nil
}

// poll fetches open interest for both symbols and appends a history record.
func (a *WhaleAgent) poll(ctx context.Context) (Record, error) {
	var notionals []float64
	var latest time.Time

	for _, symbol := range a.cfg.Agent.Symbols {
		oi, err := a.market.GetOpenInterest(ctx, symbol)
		if err != nil {
			return Record{}, fmt.Errorf("get open interest for %s: %w", symbol, err)
		}
		notionals = append(notionals, oi.Notional)
		if oi.Timestamp.After(latest) {
			latest = oi.Timestamp
		}
		monitoring.UpdateOpenInterest(symbol, oi.Notional)
	}

	rec := a.history.Append(latest, notionals[0], notionals[1])
	a.health.RecordPoll(rec.TotalOI)
	return rec, nil
}

// formatAnnouncement builds the spoken change summary.
func (a *WhaleAgent) formatAnnouncement(change Change) string {
	direction := "up"
	if change.Pct < 0 {
		direction = "down"
	}
	pct := change.Pct
	if pct < 0 {
		pct = -pct
	}

	return fmt.Sprintf("BTC OI %s %.3f%% in %dm, from %s to %s",
		direction, pct, int(change.Interval.Minutes()),
		FormatNumberForSpeech(change.StartOI),
		FormatNumberForSpeech(change.EndOI))
}

// analyze asks the language model for a verdict on a whale move.
func (a *WhaleAgent) analyze(ctx context.Context, change Change) *llm.Analysis {
	if a.analyzer == nil {
		return nil
	}

	prompt := llm.BuildWhalePrompt(
		change.Pct,
		int(change.Interval.Minutes()),
		FormatNumberForSpeech(change.EndOI),
		FormatNumberForSpeech(change.StartOI),
		a.marketDataSummary(ctx),
	)

	raw, err := a.analyzer.Analyze(ctx, prompt)
	if err != nil {
		a.log.LogError("AI analysis", err)
		monitoring.RecordError("llm")
		return nil
	}

	analysis, err := llm.ParseAnalysis(raw)
	if err != nil {
		a.log.LogError("AI analysis parse", err)
		return nil
	}

	a.log.Info("AI verdict: %s (%d%%) %s", analysis.Action, analysis.Confidence, analysis.FirstReasonLine())
	return analysis
}

// marketDataSummary renders recent candles as prompt context.
func (a *WhaleAgent) marketDataSummary(ctx context.Context) string {
	klines, err := a.market.GetKlines(ctx, bybit.KlineParams{
		Category: "linear",
		Symbol:   a.cfg.Agent.Symbols[0],
		Interval: bybit.Interval15m,
		Limit:    100,
	})
	if err != nil || len(klines) == 0 {
		return ""
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	sma20 := talib.Sma(closes, 20)
	sma50 := talib.Sma(closes, 50)
	rsi14 := talib.Rsi(closes, 14)
	macd, macdSignal, _ := talib.Macd(closes, 12, 26, 9)

	n := 5
	if len(klines) < n {
		n = len(klines)
	}

	var sb strings.Builder
	sb.WriteString("Recent 15m candles (time open high low close volume SMA20 SMA50 RSI14 MACD MACDsig):\n")
	for i := len(klines) - n; i < len(klines); i++ {
		k := klines[i]
		fmt.Fprintf(&sb, "%s %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.4f %.4f\n",
			k.Timestamp.Format("2006-01-02 15:04"), k.Open, k.High, k.Low, k.Close, k.Volume,
			sma20[i], sma50[i], rsi14[i], macd[i], macdSignal[i])
	}
	return sb.String()
}

// announce logs the message; whale alerts additionally go to voice,
// telegram and the alert counter.
func (a *WhaleAgent) announce(ctx context.Context, message string, isWhale bool) {
	a.log.Info("🗣️ %s", message)

	if !isWhale {
		return
	}

	a.log.Alert("%s", message)
	monitoring.RecordWhaleAlert()

	if err := a.notifier.SendAlert("whale", message); err != nil {
		a.log.LogError("telegram alert", err)
		monitoring.RecordError("telegram")
	}

	if a.speaker != nil {
		if err := a.speaker.Announce(ctx, message); err != nil {
			a.log.LogError("voice announcement", err)
			monitoring.RecordError("tts")
		}
	}
}

// AnnounceStartupSummary narrates the state of the market from existing
// history, or the market share split when starting fresh.
func (a *WhaleAgent) AnnounceStartupSummary(ctx context.Context) {
	if a.history.Len() == 0 {
		rec, err := a.poll(ctx)
		if err != nil {
			a.log.LogError("initial poll", err)
			return
		}
		if rec.TotalOI <= 0 {
			return
		}
		message := fmt.Sprintf(
			"Whale watcher starting fresh! Current total open interest is %s with Bitcoin at %.1f%% and Ethereum at %.1f%% of the market.",
			FormatNumberForSpeech(rec.TotalOI),
			rec.BTCOI/rec.TotalOI*100,
			rec.ETHOI/rec.TotalOI*100,
		)
		a.announce(ctx, message, false)
		return
	}

	if pct, ok := a.history.TotalChangeSince(a.cfg.Agent.LookbackPeriod); ok {
		direction := "up"
		if pct < 0 {
			direction = "down"
			pct = -pct
		}
		a.announce(ctx, fmt.Sprintf("Initial market summary: OI is %s %.1f%% over the last %dm.",
			direction, pct, int(a.cfg.Agent.LookbackPeriod.Minutes())), false)
		return
	}

	first, _ := a.history.First()
	last, _ := a.history.Last()
	if first.TotalOI > 0 {
		pct := (last.TotalOI - first.TotalOI) / first.TotalOI * 100
		direction := "increased"
		if pct < 0 {
			direction = "decreased"
			pct = -pct
		}
		minutes := int(last.Timestamp.Sub(first.Timestamp).Minutes())
		a.announce(ctx, fmt.Sprintf("Open Interest has %s by %.1f%% over the last %d minutes.",
			direction, pct, minutes), false)
	}
}
