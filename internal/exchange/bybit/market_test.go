package bybit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTickerResponse(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		RetMsg:  "OK",
		Result: map[string]interface{}{
			"category": "linear",
			"list": []map[string]interface{}{
				{
					"symbol":       "BTCUSDT",
					"lastPrice":    "65000.50",
					"openInterest": "85000.25",
					"volume24h":    "120000",
					"price24hPcnt": "0.0123",
				},
			},
		},
	}

	tickers, err := parseTickerResponse(resp)
	require.NoError(t, err)
	require.Len(t, tickers, 1)

	assert.Equal(t, "BTCUSDT", tickers[0].Symbol)
	assert.Equal(t, 65000.50, tickers[0].LastPrice)
	assert.Equal(t, 85000.25, tickers[0].OpenInterest)
	assert.Equal(t, 0.0123, tickers[0].Price24hPcnt)
}

func TestParseTickerResponse_APIError(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 10006,
		RetMsg:  "rate limit exceeded",
	}

	_, err := parseTickerResponse(resp)
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))
}

func TestParseTickerResponse_WrongType(t *testing.T) {
	_, err := parseTickerResponse("not a server response")
	assert.Error(t, err)
}

func TestParseKlineResponse_ChronologicalOrder(t *testing.T) {
	// Bybit returns newest first
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"symbol":   "BTCUSDT",
			"category": "linear",
			"list": [][]string{
				{"1704070800000", "105", "112", "104", "110", "6000", "650000"},
				{"1704067200000", "100", "110", "95", "105", "5000", "500000"},
			},
		},
	}

	klines, err := parseKlineResponse(resp)
	require.NoError(t, err)
	require.Len(t, klines, 2)

	assert.True(t, klines[0].Timestamp.Before(klines[1].Timestamp))
	assert.Equal(t, 100.0, klines[0].Open)
	assert.Equal(t, 110.0, klines[1].Close)
	assert.Equal(t, time.UnixMilli(1704067200000).UTC(), klines[0].Timestamp.UTC())
}

func TestParseKlineResponse_SkipsShortRows(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"list": [][]string{
				{"1704067200000", "100"},
				{"1704070800000", "105", "112", "104", "110", "6000", "650000"},
			},
		},
	}

	klines, err := parseKlineResponse(resp)
	require.NoError(t, err)
	assert.Len(t, klines, 1)
}

func TestClient_Environment(t *testing.T) {
	assert.Equal(t, "mainnet", NewClient(Config{}).Environment())
	assert.Equal(t, "testnet", NewClient(Config{Testnet: true}).Environment())
	assert.True(t, NewClient(Config{Testnet: true}).IsTestnet())
}

func TestClient_GetOpenInterest_RetriesRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"retCode":10006,"retMsg":"rate limit exceeded","result":{}}`)
			return
		}
		fmt.Fprint(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[{"symbol":"BTCUSDT","lastPrice":"50000","openInterest":"60000","volume24h":"1000","price24hPcnt":"0.01"}]}}`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	client.SetRetryConfig(RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	})

	oi, err := client.GetOpenInterest(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "rate-limited call is retried")
	assert.Equal(t, "BTCUSDT", oi.Symbol)
	assert.InDelta(t, 60000*50000.0, oi.Notional, 1e-6)
}

func TestClient_GetLatestPrice_UsesTickerEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		fmt.Fprint(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[{"symbol":"ETHUSDT","lastPrice":"2500.25","openInterest":"1","volume24h":"1","price24hPcnt":"0"}]}}`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	price, err := client.GetLatestPrice(context.Background(), "linear", "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 2500.25, price)
}
