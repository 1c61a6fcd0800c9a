// Package indicator provides the stateful technical indicator engine.
//
// Primitives (RSI, SMA, EMA) consume one close price per completed candle
// via Update and expose a Ready flag so "no value yet" is never confused
// with a legitimate zero reading. Peek computes a what-if value for a still
// forming price without mutating state — display projections go through
// Peek and structurally cannot write back.
package indicator

import "math"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "RSI", "EMA").
	Name() string

	// Update feeds the close of a newly completed candle and recalculates.
	Update(close float64)

	// Value returns the current calculated value. Meaningless until Ready.
	Value() float64

	// Ready returns true once enough data has been accumulated.
	Ready() bool

	// Peek computes what Value() would become if a candle with this close
	// were added next, WITHOUT mutating internal state.
	Peek(close float64) float64
}

// round2 rounds to 2 decimal places, matching the reference charting
// convention the bot is designed to track.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
