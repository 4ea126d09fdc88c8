// Package speech turns announcements into audio with OpenAI's text-to-speech
// API and plays them through the system audio player.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

const openAIBaseURL = "https://api.openai.com"

// Config holds the voice settings.
type Config struct {
	APIKey   string
	Model    string  // "tts-1" or "tts-1-hd"
	Voice    string  // alloy, echo, fable, onyx, nova, shimmer
	Speed    float64 // 0.25 to 4.0
	AudioDir string  // where generated mp3 files are written
}

// DefaultConfig returns the standard voice settings.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:   apiKey,
		Model:    "tts-1",
		Voice:    "shimmer",
		Speed:    1.0,
		AudioDir: "audio",
	}
}

// Speaker synthesizes and plays speech.
type Speaker struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// NewSpeaker creates a speaker with the given settings.
func NewSpeaker(cfg Config) *Speaker {
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "shimmer"
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	return &Speaker{
		cfg:        cfg,
		baseURL:    openAIBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint.
func (s *Speaker) SetBaseURL(url string) { s.baseURL = url }

type speechRequest struct {
	Model string  `json:"model"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
	Input string  `json:"input"`
}

// Synthesize converts text to an mp3 file and returns its path.
func (s *Speaker) Synthesize(ctx context.Context, text string) (string, error) {
	if err := os.MkdirAll(s.cfg.AudioDir, 0755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	payload, err := json.Marshal(speechRequest{
		Model: s.cfg.Model,
		Voice: s.cfg.Voice,
		Speed: s.cfg.Speed,
		Input: text,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("tts API status %d: %s", resp.StatusCode, string(body))
	}

	path := filepath.Join(s.cfg.AudioDir, fmt.Sprintf("whale_alert_%s.mp3", time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}

	return path, nil
}

// Play plays an audio file with the platform player.
func (s *Speaker) Play(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "afplay", path)
	case "windows":
		cmd = exec.CommandContext(ctx, "powershell", "-c", fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", path))
	default:
		cmd = exec.CommandContext(ctx, "mpg123", "-q", path)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play audio: %w", err)
	}
	return nil
}

// Announce synthesizes text and plays it immediately.
func (s *Speaker) Announce(ctx context.Context, text string) error {
	path, err := s.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return s.Play(ctx, path)
}
