package bybit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterEnabled: false,
	}
}

func TestRetryWithConfig_SucceedsAfterTransientErrors(t *testing.T) {
	client := NewClient(Config{})
	attempts := 0

	err := client.RetryWithConfig(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return NewAPIError(ErrCodeRateLimitExceeded, "rate limit exceeded")
		}
		return nil
	}, fastRetryConfig(3))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithConfig_NonRetryableFailsImmediately(t *testing.T) {
	client := NewClient(Config{})
	attempts := 0

	err := client.RetryWithConfig(context.Background(), func() error {
		attempts++
		return NewAPIError(ErrCodeInvalidAPIKey, "invalid api key")
	}, fastRetryConfig(3))

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithConfig_Exhausted(t *testing.T) {
	client := NewClient(Config{})
	attempts := 0

	err := client.RetryWithConfig(context.Background(), func() error {
		attempts++
		return NewAPIError(ErrCodeRateLimitExceeded, "rate limit exceeded")
	}, fastRetryConfig(2))

	assert.Error(t, err)
	assert.Equal(t, 3, attempts) // initial try plus two retries
}

func TestRetryWithConfig_ContextCancelled(t *testing.T) {
	client := NewClient(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.RetryWithConfig(ctx, func() error {
		return NewAPIError(ErrCodeRateLimitExceeded, "rate limit exceeded")
	}, fastRetryConfig(3))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelay_ExponentialBackoffCapped(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: false,
	}

	assert.Equal(t, time.Second, calculateDelay(0, config))
	assert.Equal(t, 2*time.Second, calculateDelay(1, config))
	assert.Equal(t, 4*time.Second, calculateDelay(2, config))
	assert.Equal(t, 5*time.Second, calculateDelay(3, config)) // capped
}

func TestCalculateDelay_JitterStaysNearDelay(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}

	for i := 0; i < 20; i++ {
		delay := calculateDelay(1, config)
		assert.InDelta(t, float64(2*time.Second), float64(delay), float64(200*time.Millisecond))
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	boom := errors.New("boom")

	assert.Error(t, cb.Call(func() error { return boom }))
	assert.Equal(t, CircuitClosed, cb.State())

	assert.Error(t, cb.Call(func() error { return boom }))
	assert.Equal(t, CircuitOpen, cb.State())

	// calls are rejected without invoking fn
	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.Error(t, err)
	assert.False(t, called)
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	require.Equal(t, CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewAPIError(ErrCodeRateLimitExceeded, "rate limit")))
	assert.True(t, IsRetryableError(NewAPIError(502, "bad gateway")))
	assert.False(t, IsRetryableError(NewAPIError(ErrCodeInvalidAPIKey, "bad key")))
	assert.False(t, IsRetryableError(errors.New("plain error")))
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(NewAPIError(ErrCodeRateLimitExceeded, "rate limit")))
	assert.False(t, IsRateLimitError(NewAPIError(ErrCodeInvalidAPIKey, "bad key")))
}

func TestParseAPIError(t *testing.T) {
	assert.NoError(t, ParseAPIError(0, "OK"))

	err := ParseAPIError(10003, "invalid api key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10003")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestWrapAPIError(t *testing.T) {
	assert.NoError(t, WrapAPIError("op", nil))

	wrapped := WrapAPIError("get klines", errors.New("timeout"))
	assert.Contains(t, wrapped.Error(), "get klines failed")

	apiErr := WrapAPIError("get tickers", NewAPIError(10006, "rate limit"))
	assert.Contains(t, apiErr.Error(), "Operation: get tickers")
}
