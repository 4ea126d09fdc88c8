package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempHistory(t *testing.T) *History {
	t.Helper()
	h, err := LoadHistory(filepath.Join(t.TempDir(), "oi_history.csv"))
	require.NoError(t, err)
	return h
}

func TestLoadHistory_MissingFileStartsEmpty(t *testing.T) {
	h := tempHistory(t)
	assert.Equal(t, 0, h.Len())
}

func TestHistory_Append_ComputesChanges(t *testing.T) {
	h := tempHistory(t)
	now := time.Now()

	first := h.Append(now, 30e9, 10e9)
	assert.Equal(t, 0.0, first.BTCChangePct)
	assert.Equal(t, 40e9, first.TotalOI)

	second := h.Append(now.Add(5*time.Minute), 30.3e9, 9.8e9)
	assert.InDelta(t, 1.0, second.BTCChangePct, 1e-9)
	assert.InDelta(t, -2.0, second.ETHChangePct, 1e-9)
	assert.InDelta(t, 0.25, second.TotalChangePct, 1e-9)
	assert.Equal(t, 2, h.Len())
}

func TestHistory_Append_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oi_history.csv")
	h, err := LoadHistory(path)
	require.NoError(t, err)

	now := time.Now().Truncate(time.Second)
	h.Append(now.Add(-10*time.Minute), 30e9, 10e9)
	h.Append(now, 31e9, 10e9)

	reloaded, err := LoadHistory(path)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Len())

	last, ok := reloaded.Last()
	require.True(t, ok)
	assert.InDelta(t, 31e9, last.BTCOI, 1)
	assert.InDelta(t, 100.0/3.0, last.BTCChangePct, 0.001)
	assert.True(t, last.Timestamp.Equal(now))
}

func TestLoadHistory_OldFormatDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oi_history.csv")
	content := "time,oi\n2024-01-01 00:00:00,123\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	h, err := LoadHistory(path)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Len())
}

func TestHistory_Append_PrunesBeyondRetention(t *testing.T) {
	h := tempHistory(t)
	now := time.Now()

	h.Append(now.Add(-25*time.Hour), 30e9, 10e9)
	h.Append(now.Add(-23*time.Hour), 30e9, 10e9)
	h.Append(now, 31e9, 10e9)

	assert.Equal(t, 2, h.Len())
	first, ok := h.First()
	require.True(t, ok)
	assert.True(t, first.Timestamp.After(now.Add(-24*time.Hour)))
}

func TestHistory_ChangeSince(t *testing.T) {
	h := tempHistory(t)
	now := time.Now()

	h.Append(now.Add(-30*time.Minute), 30e9, 10e9)
	h.Append(now.Add(-20*time.Minute), 30.5e9, 10e9)
	h.Append(now.Add(-15*time.Minute), 30.8e9, 10e9)
	h.Append(now, 31.5e9, 10e9)

	change, ok := h.ChangeSince(15 * time.Minute)
	require.True(t, ok)

	// base is the record exactly 15m before the latest
	assert.InDelta(t, 30.8e9, change.StartOI, 1)
	assert.InDelta(t, 31.5e9, change.EndOI, 1)
	assert.InDelta(t, (31.5-30.8)/30.8*100, change.Pct, 0.001)
	assert.Equal(t, 15*time.Minute, change.Interval)
}

func TestHistory_ChangeSince_PicksClosestOlderRecord(t *testing.T) {
	h := tempHistory(t)
	now := time.Now()

	h.Append(now.Add(-40*time.Minute), 30e9, 10e9)
	h.Append(now.Add(-18*time.Minute), 30.5e9, 10e9)
	h.Append(now, 31e9, 10e9)

	change, ok := h.ChangeSince(15 * time.Minute)
	require.True(t, ok)
	// the -18m record is the closest one at least 15m old
	assert.InDelta(t, 30.5e9, change.StartOI, 1)
}

func TestHistory_ChangeSince_InsufficientSpan(t *testing.T) {
	h := tempHistory(t)
	now := time.Now()

	h.Append(now.Add(-5*time.Minute), 30e9, 10e9)
	h.Append(now, 31e9, 10e9)

	_, ok := h.ChangeSince(15 * time.Minute)
	assert.False(t, ok)
}

func TestHistory_ChangeSince_Empty(t *testing.T) {
	h := tempHistory(t)
	_, ok := h.ChangeSince(15 * time.Minute)
	assert.False(t, ok)
}

func TestHistory_IsWhale_RequiresTenRecords(t *testing.T) {
	h := tempHistory(t)
	now := time.Now()

	for i := 0; i < 9; i++ {
		h.Append(now.Add(time.Duration(i)*5*time.Minute), 30e9, 10e9)
	}

	assert.False(t, h.IsWhale(100, 1.31))
}

func TestHistory_IsWhale_ThresholdScalesWithHistory(t *testing.T) {
	h := tempHistory(t)
	now := time.Now()

	// alternate +1%/-1% BTC moves so typical |change| is about 1%
	oi := 30e9
	for i := 0; i < 12; i++ {
		if i%2 == 0 {
			oi *= 1.01
		} else {
			oi *= 0.99
		}
		h.Append(now.Add(time.Duration(i)*5*time.Minute), oi, 10e9)
	}

	assert.True(t, h.IsWhale(5.0, 1.31), "5%% move against ~1%% background should be a whale")
	assert.False(t, h.IsWhale(0.5, 1.31), "0.5%% move against ~1%% background should not")
	assert.True(t, h.IsWhale(-5.0, 1.31), "direction must not matter")
}

func TestFormatNumberForSpeech(t *testing.T) {
	assert.Equal(t, "30.5000 billion", FormatNumberForSpeech(30.5e9))
	assert.Equal(t, "1.0000 billion", FormatNumberForSpeech(1e9))
	assert.Equal(t, "950.50 million", FormatNumberForSpeech(950.5e6))
	assert.Equal(t, "0.00 million", FormatNumberForSpeech(0))
}
