package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oiwatch/market-agents/internal/agent"
	"github.com/oiwatch/market-agents/internal/config"
	"github.com/oiwatch/market-agents/internal/exchange/bybit"
	"github.com/oiwatch/market-agents/internal/llm"
	"github.com/oiwatch/market-agents/internal/logger"
	"github.com/oiwatch/market-agents/internal/monitoring"
	"github.com/oiwatch/market-agents/internal/notifications"
	"github.com/oiwatch/market-agents/internal/speech"
)

func main() {
	cfg := config.Load()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting whale agent in %s mode", cfg.Environment)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fileLog, err := logger.NewLogger("whale-agent")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer fileLog.Close()

	market := bybit.NewClient(bybit.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.Secret,
		Testnet:   cfg.Exchange.Testnet,
	})

	analyzer, err := llm.NewAnalyzer(llm.Config{
		Model:        cfg.AI.Model,
		DeepSeekKey:  cfg.AI.DeepSeekKey,
		AnthropicKey: cfg.AI.AnthropicKey,
		MaxTokens:    cfg.AI.MaxTokens,
		Temperature:  cfg.AI.Temperature,
	})
	if err != nil {
		log.Printf("AI analysis disabled: %v", err)
		analyzer = nil
	}

	var speaker agent.Announcer
	if !cfg.Voice.Mute {
		speaker = speech.NewSpeaker(speech.Config{
			APIKey:   cfg.AI.OpenAIKey,
			Model:    cfg.Voice.Model,
			Voice:    cfg.Voice.Name,
			Speed:    cfg.Voice.Speed,
			AudioDir: cfg.Agent.AudioDir,
		})
	}

	var notifier notifications.Notifier
	if cfg.Notifications.TelegramToken != "" {
		notifier = notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
	} else {
		log.Println("Telegram notifications disabled (no token configured)")
		notifier = notifications.NoopNotifier{}
	}

	healthChecker := monitoring.NewHealthChecker()
	go setupMonitoringServers(cfg, healthChecker)

	whale, err := agent.NewWhaleAgent(cfg, market, analyzer, speaker, notifier, healthChecker, fileLog)
	if err != nil {
		log.Fatalf("Failed to create whale agent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lastPrice := "unavailable"
	if price, err := market.GetLatestPrice(ctx, "linear", cfg.Agent.Symbols[0]); err == nil {
		lastPrice = fmt.Sprintf("$%.2f", price)
	} else {
		log.Printf("Could not fetch %s price: %v", cfg.Agent.Symbols[0], err)
	}

	printStartupTable(cfg, market.Environment(), analyzer, lastPrice)

	done := make(chan error, 1)
	go func() {
		done <- whale.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Shutting down...")
		cancel()
		<-done
	case err := <-done:
		if err != nil && err != context.Canceled {
			log.Printf("Agent error: %v", err)
		}
	}

	log.Println("Whale agent stopped")
}

func printStartupTable(cfg *config.Config, environment string, analyzer llm.Analyzer, lastPrice string) {
	model := "disabled"
	if analyzer != nil {
		model = analyzer.Model()
	}
	voice := fmt.Sprintf("%s/%s", cfg.Voice.Model, cfg.Voice.Name)
	if cfg.Voice.Mute {
		voice = "muted"
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("🐋 Whale Watcher")
	t.AppendRows([]table.Row{
		{"Symbols", fmt.Sprintf("%v", cfg.Agent.Symbols)},
		{"Exchange", fmt.Sprintf("bybit (%s)", environment)},
		{fmt.Sprintf("%s Price", cfg.Agent.Symbols[0]), lastPrice},
		{"Check Interval", cfg.Agent.CheckInterval},
		{"Lookback", cfg.Agent.LookbackPeriod},
		{"Whale Threshold", fmt.Sprintf("%.2fx avg change", cfg.Agent.WhaleThreshold)},
		{"AI Model", model},
		{"Voice", voice},
		{"History File", cfg.Agent.HistoryFile},
	})
	t.Render()
}

func setupMonitoringServers(cfg *config.Config, healthChecker *monitoring.HealthChecker) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)

	go func() {
		log.Printf("Starting health server on port %d", cfg.Monitoring.HealthPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.HealthPort), healthMux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	go func() {
		log.Printf("Starting Prometheus server on port %d", cfg.Monitoring.PrometheusPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), monitoring.NewMetricsHandler()); err != nil {
			log.Printf("Prometheus server error: %v", err)
		}
	}()
}
