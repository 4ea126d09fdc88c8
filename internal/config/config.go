// Package config loads the whale agent configuration from the environment,
// with optional .env support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all whale agent settings.
type Config struct {
	Environment string
	LogLevel    string

	Exchange struct {
		APIKey  string
		Secret  string
		Testnet bool
	}

	Agent struct {
		Symbols        []string
		CheckInterval  time.Duration
		LookbackPeriod time.Duration
		WhaleThreshold float64
		HistoryFile    string
		AudioDir       string
	}

	AI struct {
		Model        string
		MaxTokens    int
		Temperature  float64
		OpenAIKey    string
		AnthropicKey string
		DeepSeekKey  string
	}

	Voice struct {
		Model string
		Name  string
		Speed float64
		Mute  bool
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
	}
}

// Load reads the configuration, loading a .env file first when present.
func Load() *Config {
	godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	cfg.Exchange.APIKey = getEnv("BYBIT_API_KEY", "")
	cfg.Exchange.Secret = getEnv("BYBIT_API_SECRET", "")
	cfg.Exchange.Testnet = getEnvBool("BYBIT_TESTNET", false)

	cfg.Agent.Symbols = []string{
		getEnv("WHALE_SYMBOL_PRIMARY", "BTCUSDT"),
		getEnv("WHALE_SYMBOL_SECONDARY", "ETHUSDT"),
	}
	cfg.Agent.CheckInterval = getEnvDuration("CHECK_INTERVAL", 5*time.Minute)
	cfg.Agent.LookbackPeriod = getEnvDuration("LOOKBACK_PERIOD", 15*time.Minute)
	cfg.Agent.WhaleThreshold = getEnvFloat("WHALE_THRESHOLD", 1.31)
	cfg.Agent.HistoryFile = getEnv("OI_HISTORY_FILE", "data/oi_history.csv")
	cfg.Agent.AudioDir = getEnv("AUDIO_DIR", "audio")

	cfg.AI.Model = getEnv("AI_MODEL", "deepseek-chat")
	cfg.AI.MaxTokens = getEnvInt("AI_MAX_TOKENS", 50)
	cfg.AI.Temperature = getEnvFloat("AI_TEMPERATURE", 0)
	cfg.AI.OpenAIKey = getEnv("OPENAI_KEY", "")
	cfg.AI.AnthropicKey = getEnv("ANTHROPIC_KEY", "")
	cfg.AI.DeepSeekKey = getEnv("DEEPSEEK_KEY", "")

	cfg.Voice.Model = getEnv("VOICE_MODEL", "tts-1")
	cfg.Voice.Name = getEnv("VOICE_NAME", "shimmer")
	cfg.Voice.Speed = getEnvFloat("VOICE_SPEED", 1.0)
	cfg.Voice.Mute = getEnvBool("VOICE_MUTE", false)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	return cfg
}

// Validate checks that the keys needed by the configured features exist.
func (c *Config) Validate() error {
	if !c.Voice.Mute && c.AI.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_KEY is required for voice announcements (set VOICE_MUTE=true to disable)")
	}
	if c.Agent.CheckInterval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL must be positive")
	}
	if c.Agent.LookbackPeriod <= 0 {
		return fmt.Errorf("LOOKBACK_PERIOD must be positive")
	}
	if c.Agent.WhaleThreshold <= 0 {
		return fmt.Errorf("WHALE_THRESHOLD must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
