// Package notifications delivers agent alerts to external channels.
package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Notifier delivers a leveled alert message.
type Notifier interface {
	SendAlert(level, message string) error
}

// TelegramNotifier sends alerts through the Telegram bot API.
type TelegramNotifier struct {
	token  string
	chatID string
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
	}
}

// SendAlert posts the message to the configured chat.
func (t *TelegramNotifier) SendAlert(level, message string) error {
	emoji := "ℹ️"
	switch level {
	case "whale":
		emoji = "🐋"
	case "warning":
		emoji = "⚠️"
	case "error":
		emoji = "🚨"
	case "success":
		emoji = "✅"
	}

	text := fmt.Sprintf("%s *Whale Watcher*\n\n%s", emoji, message)

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := http.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// NoopNotifier discards alerts; used when telegram is not configured.
type NoopNotifier struct{}

// SendAlert does nothing.
func (NoopNotifier) SendAlert(level, message string) error { return nil }
