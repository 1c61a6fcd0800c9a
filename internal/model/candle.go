package model

import (
	"encoding/json"
	"time"
)

// Candle represents a completed OHLCV candle for a single symbol.
// StartTime is the candle's open time in epoch seconds, aligned to the
// timeframe boundary. Candles are immutable once produced.
type Candle struct {
	Symbol    string  `json:"symbol"`
	StartTime int64   `json:"start_time"` // epoch seconds, timeframe-aligned
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Aligned reports whether the candle's start time sits exactly on a
// timeframe boundary.
func (c *Candle) Aligned(timeframeMinutes int) bool {
	return c.StartTime%(int64(timeframeMinutes)*60) == 0
}

// Start returns the candle open time as a UTC time.Time.
func (c *Candle) Start() time.Time {
	return time.Unix(c.StartTime, 0).UTC()
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
