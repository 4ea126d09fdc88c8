package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpeaker_Defaults(t *testing.T) {
	s := NewSpeaker(Config{APIKey: "k"})

	assert.Equal(t, "tts-1", s.cfg.Model)
	assert.Equal(t, "shimmer", s.cfg.Voice)
	assert.Equal(t, 1.0, s.cfg.Speed)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("key")

	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "tts-1", cfg.Model)
	assert.Equal(t, "shimmer", cfg.Voice)
	assert.Equal(t, 1.0, cfg.Speed)
	assert.Equal(t, "audio", cfg.AudioDir)
}

func TestSpeaker_Synthesize(t *testing.T) {
	audio := []byte("ID3fake-mp3-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req speechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tts-1", req.Model)
		assert.Equal(t, "shimmer", req.Voice)
		assert.Equal(t, 1.0, req.Speed)
		assert.Contains(t, req.Input, "whale")

		_, _ = w.Write(audio)
	}))
	defer server.Close()

	cfg := DefaultConfig("test-key")
	cfg.AudioDir = t.TempDir()
	speaker := NewSpeaker(cfg)
	speaker.SetBaseURL(server.URL)

	path, err := speaker.Synthesize(context.Background(), "a whale appeared")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, cfg.AudioDir))
	assert.True(t, strings.HasSuffix(path, ".mp3"))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, audio, written)
}

func TestSpeaker_Synthesize_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	cfg := DefaultConfig("bad")
	cfg.AudioDir = t.TempDir()
	speaker := NewSpeaker(cfg)
	speaker.SetBaseURL(server.URL)

	_, err := speaker.Synthesize(context.Background(), "hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
