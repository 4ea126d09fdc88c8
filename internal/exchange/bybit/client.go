// Package bybit wraps the Bybit v5 API client for the market data the
// agents consume: futures tickers with open interest, and klines.
package bybit

import (
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the Bybit API client.
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
	retry      RetryConfig
	breaker    *CircuitBreaker
}

// Config holds the configuration for the Bybit client. API credentials are
// optional; the market data endpoints used here are public. BaseURL
// overrides the mainnet/testnet endpoint, for tests.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	BaseURL   string
}

// NewClient creates a new Bybit client.
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
		retry:      DefaultRetryConfig(),
		breaker:    NewCircuitBreaker(5, 30*time.Second),
	}
}

// SetRetryConfig replaces the retry policy used by the market data calls.
func (c *Client) SetRetryConfig(config RetryConfig) {
	c.retry = config
}

// IsTestnet returns whether the client is configured for testnet.
func (c *Client) IsTestnet() bool {
	return c.testnet
}

// Environment returns a string describing the current environment.
func (c *Client) Environment() string {
	if c.testnet {
		return "testnet"
	}
	return "mainnet"
}
