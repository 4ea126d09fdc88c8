package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/oiwatch/market-agents/pkg/types"
)

// KlineInterval represents the time interval for kline data.
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval1h  KlineInterval = "60"
	Interval4h  KlineInterval = "240"
	Interval1d  KlineInterval = "D"
)

// KlineParams holds parameters for fetching kline data.
type KlineParams struct {
	Category string // "spot", "linear", "inverse"
	Symbol   string // e.g. "BTCUSDT"
	Interval KlineInterval
	Start    *time.Time
	End      *time.Time
	Limit    int // max 1000, default 200
}

// GetKlines fetches candlestick data from Bybit.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]types.OHLCV, error) {
	if params.Category == "" {
		params.Category = "linear"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	var klines []types.OHLCV
	err := c.breaker.Call(func() error {
		return c.Retry(ctx, func() error {
			result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
			if err != nil {
				return err
			}
			klines, err = parseKlineResponse(result)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	return klines, nil
}

// GetOpenInterest returns the current open interest for a linear futures
// symbol, in contracts and as notional (contracts times last price).
func (c *Client) GetOpenInterest(ctx context.Context, symbol string) (*types.OpenInterest, error) {
	params := map[string]interface{}{
		"category": "linear",
		"symbol":   symbol,
	}

	tickers, err := c.getTickers(ctx, params)
	if err != nil {
		return nil, WrapAPIError("get open interest", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", symbol)
	}

	t := tickers[0]
	return &types.OpenInterest{
		Symbol:    t.Symbol,
		Contracts: t.OpenInterest,
		Price:     t.LastPrice,
		Notional:  t.OpenInterest * t.LastPrice,
		Timestamp: t.Timestamp,
	}, nil
}

// GetLatestPrice gets the latest price for a symbol.
func (c *Client) GetLatestPrice(ctx context.Context, category, symbol string) (float64, error) {
	if category == "" {
		category = "linear"
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	tickers, err := c.getTickers(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest price: %w", err)
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("no ticker data for %s", symbol)
	}

	return tickers[0].LastPrice, nil
}

// getTickers fetches and parses tickers, retrying transient API errors.
// Repeated failures trip the client's circuit breaker.
func (c *Client) getTickers(ctx context.Context, params map[string]interface{}) ([]types.Ticker, error) {
	var tickers []types.Ticker
	err := c.breaker.Call(func() error {
		return c.Retry(ctx, func() error {
			result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
			if err != nil {
				return err
			}
			tickers, err = parseTickerResponse(result)
			return err
		})
	})
	return tickers, err
}

func parseTickerResponse(response interface{}) ([]types.Ticker, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			OpenInterest string `json:"openInterest"`
			Volume24h    string `json:"volume24h"`
			Price24hPcnt string `json:"price24hPcnt"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}

	tickers := make([]types.Ticker, 0, len(tickerResult.List))
	for _, item := range tickerResult.List {
		tickers = append(tickers, types.Ticker{
			Symbol:       item.Symbol,
			LastPrice:    parseFloat64(item.LastPrice),
			OpenInterest: parseFloat64(item.OpenInterest),
			Volume24h:    parseFloat64(item.Volume24h),
			Price24hPcnt: parseFloat64(item.Price24hPcnt),
			Timestamp:    time.Now().UTC(),
		})
	}

	return tickers, nil
}

func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	// Bybit kline format: [startTime, open, high, low, close, volume, turnover],
	// newest first. Reverse into chronological order.
	var klines []types.OHLCV
	for i := len(klineResult.List) - 1; i >= 0; i-- {
		item := klineResult.List[i]
		if len(item) < 7 {
			continue
		}
		klines = append(klines, types.OHLCV{
			Timestamp: time.UnixMilli(parseInt64(item[0])),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}

	return klines, nil
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
