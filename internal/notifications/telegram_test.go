package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopNotifier_SendAlert(t *testing.T) {
	assert.NoError(t, NoopNotifier{}.SendAlert("whale", "big move"))
}

func TestNotifierInterfaceCompliance(t *testing.T) {
	var _ Notifier = NoopNotifier{}
	var _ Notifier = (*TelegramNotifier)(nil)

	n := NewTelegramNotifier("token", "chat")
	assert.NotNil(t, n)
}
