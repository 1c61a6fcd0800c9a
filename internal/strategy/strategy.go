// Package strategy turns consecutive indicator readings into trade signals.
//
// A bullish signal fires when the fast line crosses above the slow line,
// a bearish signal when it crosses below. Touch-then-diverge counts as a
// cross (prev fast == prev slow, cur fast strictly beyond). Signals in the
// direction of the currently held position are suppressed, so an open
// position is only ever acted on by an opposing cross.
package strategy

import (
	"fmt"
	"log"

	"deltabot/internal/indicator"
	"deltabot/internal/model"
)

// Signal is a trade intent produced by a crossover. Direction is the side
// the position should end up on.
type Signal struct {
	Direction model.Side `json:"direction"`
	Boundary  int64      `json:"boundary"`
	FastValue float64    `json:"fast_value"`
	SlowValue float64    `json:"slow_value"`
	Reason    string     `json:"reason"`
}

// Evaluate compares the previous and current readings and returns a signal,
// or nil when no actionable cross occurred. held is the side of the current
// open position (FLAT when none).
//
// Both readings must be ready: a cross against a half-warmed pair of values
// is noise, not a signal.
func Evaluate(prev, cur indicator.Reading, held model.Side, boundary int64) *Signal {
	if !prev.Ready || !cur.Ready {
		return nil
	}

	var dir model.Side
	switch {
	case prev.Fast <= prev.Slow && cur.Fast > cur.Slow:
		dir = model.SideLong
	case prev.Fast >= prev.Slow && cur.Fast < cur.Slow:
		dir = model.SideShort
	default:
		return nil
	}

	if held == dir {
		log.Printf("[strategy] %s cross at boundary %d suppressed: already %s",
			dir, boundary, held)
		return nil
	}

	sig := &Signal{
		Direction: dir,
		Boundary:  boundary,
		FastValue: cur.Fast,
		SlowValue: cur.Slow,
		Reason: fmt.Sprintf("fast %.2f/%.2f crossed %s slow %.2f/%.2f",
			prev.Fast, cur.Fast, crossWord(dir), prev.Slow, cur.Slow),
	}
	log.Printf("[strategy] %s signal at boundary %d: %s", dir, boundary, sig.Reason)
	return sig
}

func crossWord(dir model.Side) string {
	if dir == model.SideLong {
		return "above"
	}
	return "below"
}
