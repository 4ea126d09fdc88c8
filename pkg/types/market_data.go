package types

import "time"

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Ticker is the subset of an exchange ticker the agents consume.
type Ticker struct {
	Symbol       string
	LastPrice    float64
	OpenInterest float64
	Volume24h    float64
	Price24hPcnt float64
	Timestamp    time.Time
}

// OpenInterest is a single open-interest observation for a futures symbol.
// Notional is openInterest (contracts) multiplied by the last traded price.
type OpenInterest struct {
	Symbol    string
	Contracts float64
	Price     float64
	Notional  float64
	Timestamp time.Time
}
