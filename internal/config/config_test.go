package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env in the way

	cfg := Load()

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Agent.Symbols)
	assert.Equal(t, 5*time.Minute, cfg.Agent.CheckInterval)
	assert.Equal(t, 15*time.Minute, cfg.Agent.LookbackPeriod)
	assert.Equal(t, 1.31, cfg.Agent.WhaleThreshold)
	assert.Equal(t, "data/oi_history.csv", cfg.Agent.HistoryFile)
	assert.Equal(t, "deepseek-chat", cfg.AI.Model)
	assert.Equal(t, 50, cfg.AI.MaxTokens)
	assert.Equal(t, "tts-1", cfg.Voice.Model)
	assert.Equal(t, "shimmer", cfg.Voice.Name)
	assert.Equal(t, 1.0, cfg.Voice.Speed)
	assert.Equal(t, 8080, cfg.Monitoring.PrometheusPort)
	assert.Equal(t, 8081, cfg.Monitoring.HealthPort)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WHALE_SYMBOL_PRIMARY", "SOLUSDT")
	t.Setenv("CHECK_INTERVAL", "1m")
	t.Setenv("WHALE_THRESHOLD", "2.5")
	t.Setenv("VOICE_MUTE", "true")
	t.Setenv("AI_MAX_TOKENS", "100")

	cfg := Load()

	assert.Equal(t, "SOLUSDT", cfg.Agent.Symbols[0])
	assert.Equal(t, time.Minute, cfg.Agent.CheckInterval)
	assert.Equal(t, 2.5, cfg.Agent.WhaleThreshold)
	assert.True(t, cfg.Voice.Mute)
	assert.Equal(t, 100, cfg.AI.MaxTokens)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHECK_INTERVAL", "soon")
	t.Setenv("AI_MAX_TOKENS", "many")
	t.Setenv("WHALE_THRESHOLD", "big")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Agent.CheckInterval)
	assert.Equal(t, 50, cfg.AI.MaxTokens)
	assert.Equal(t, 1.31, cfg.Agent.WhaleThreshold)
}

func TestConfig_Validate(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	cfg.Voice.Mute = true
	require.NoError(t, cfg.Validate())

	cfg.Voice.Mute = false
	cfg.AI.OpenAIKey = ""
	assert.Error(t, cfg.Validate())

	cfg.AI.OpenAIKey = "sk-test"
	require.NoError(t, cfg.Validate())

	cfg.Agent.CheckInterval = 0
	assert.Error(t, cfg.Validate())
}
