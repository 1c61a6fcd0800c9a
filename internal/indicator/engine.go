package indicator

import (
	"fmt"

	"deltabot/internal/model"
	"deltabot/internal/window"
)

// Variant selects which indicator pair the engine tracks.
type Variant string

const (
	// VariantRSISMA compares RSI (fast) against the SMA of RSI (slow).
	VariantRSISMA Variant = "rsi_sma"
	// VariantPriceEMA compares the close price (fast) against the EMA (slow).
	VariantPriceEMA Variant = "ema"
)

// State is the engine lifecycle. There is no path back to Uninitialized
// while the process is alive.
type State int

const (
	StateUninitialized State = iota // not enough data for a first reading
	StateSeeded                     // first reading exists, no prior to compare
	StateRunning                    // steady incremental updates, prev+cur valid
)

func (s State) String() string {
	switch s {
	case StateSeeded:
		return "seeded"
	case StateRunning:
		return "running"
	default:
		return "uninitialized"
	}
}

// Reading is one (fast, slow) indicator observation. Ready is false until
// both series have a defined value — callers must gate on it rather than
// treating zero as absent.
type Reading struct {
	Fast  float64 `json:"fast"`
	Slow  float64 `json:"slow"`
	Ready bool    `json:"ready"`
}

// closeBuffer is the extra close-history capacity kept beyond the largest
// lookback, for diagnostics and snapshot replay.
const closeBuffer = 100

// Config holds the engine's immutable periods.
type Config struct {
	Variant   Variant
	RSIPeriod int
	SMAPeriod int // SMA of RSI
	EMAPeriod int
}

// Engine owns the bounded close/RSI history for a single symbol and produces
// previous/current indicator readings. State is mutated only by Advance (one
// call per newly confirmed completed candle) and Warmup; all projection
// reads go through Peek and never write back.
//
// Designed for single-goroutine usage — no locks needed.
type Engine struct {
	cfg    Config
	closes *window.Window

	rsi    *RSI // rsi_sma variant
	rsiSMA *SMA
	ema    *EMA // ema variant

	prev, cur    Reading
	prevValid    bool
	lastBoundary int64
}

// NewEngine creates an uninitialized engine for the given config.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{cfg: cfg}
	switch cfg.Variant {
	case VariantRSISMA:
		if cfg.RSIPeriod < 2 || cfg.SMAPeriod < 1 {
			return nil, fmt.Errorf("indicator: invalid rsi_sma periods %d/%d", cfg.RSIPeriod, cfg.SMAPeriod)
		}
		e.rsi = NewRSI(cfg.RSIPeriod)
		e.rsiSMA = NewSMA(cfg.SMAPeriod)
		e.closes = window.New(cfg.RSIPeriod + closeBuffer)
	case VariantPriceEMA:
		if cfg.EMAPeriod < 2 {
			return nil, fmt.Errorf("indicator: invalid ema period %d", cfg.EMAPeriod)
		}
		e.ema = NewEMA(cfg.EMAPeriod)
		e.closes = window.New(cfg.EMAPeriod + closeBuffer)
	default:
		return nil, fmt.Errorf("indicator: unknown variant %q", cfg.Variant)
	}
	return e, nil
}

// MinWarmup returns the minimum number of historical closes needed for the
// engine to reach the Running state straight out of Warmup.
func (e *Engine) MinWarmup() int {
	if e.cfg.Variant == VariantRSISMA {
		return e.cfg.RSIPeriod + e.cfg.SMAPeriod + 1
	}
	return e.cfg.EMAPeriod + 1
}

// Warmup deterministically seeds the engine by replaying a close history
// oldest-first: the seed averages come from the first lookback window and
// every remaining close is advanced with the steady-state recurrences.
func (e *Engine) Warmup(closes []float64) error {
	if len(closes) < e.MinWarmup() {
		return fmt.Errorf("indicator: warmup needs >= %d closes, got %d", e.MinWarmup(), len(closes))
	}
	for _, c := range closes {
		e.step(c)
	}
	return nil
}

// Advance consumes the close of a newly confirmed completed candle and
// returns the new current reading. This is the engine's only mutating path
// in steady state.
func (e *Engine) Advance(c model.Candle) Reading {
	e.step(c.Close)
	e.lastBoundary = c.StartTime
	return e.cur
}

func (e *Engine) step(close float64) {
	e.closes.Push(close)
	if e.cur.Ready {
		e.prev = e.cur
		e.prevValid = true
	}

	switch e.cfg.Variant {
	case VariantRSISMA:
		e.rsi.Update(close)
		if e.rsi.Ready() {
			e.rsiSMA.Update(e.rsi.Value())
		}
		e.cur = Reading{
			Fast:  e.rsi.Value(),
			Slow:  e.rsiSMA.Value(),
			Ready: e.rsi.Ready() && e.rsiSMA.Ready(),
		}
	case VariantPriceEMA:
		e.ema.Update(close)
		e.cur = Reading{
			Fast:  close,
			Slow:  e.ema.Value(),
			Ready: e.ema.Ready(),
		}
	}
}

// Current returns the latest reading.
func (e *Engine) Current() Reading { return e.cur }

// Previous returns the reading before the latest one. Ready is false when
// no prior reading exists yet.
func (e *Engine) Previous() Reading {
	if !e.prevValid {
		return Reading{}
	}
	return e.prev
}

// Running reports whether both a previous and a current reading exist, i.e.
// crossover evaluation is meaningful.
func (e *Engine) Running() bool {
	return e.prevValid && e.prev.Ready && e.cur.Ready
}

// State returns the engine lifecycle state.
func (e *Engine) State() State {
	switch {
	case e.Running():
		return StateRunning
	case e.cur.Ready:
		return StateSeeded
	default:
		return StateUninitialized
	}
}

// Project computes the reading that Advance would produce if the given
// (still forming) price closed now. It never mutates engine state — this is
// the display-only live estimate.
func (e *Engine) Project(price float64) Reading {
	switch e.cfg.Variant {
	case VariantRSISMA:
		liveRSI := e.rsi.Peek(price)
		return Reading{
			Fast:  liveRSI,
			Slow:  e.rsiSMA.Peek(liveRSI),
			Ready: e.cur.Ready,
		}
	default:
		return Reading{
			Fast:  price,
			Slow:  e.ema.Peek(price),
			Ready: e.cur.Ready,
		}
	}
}

// LastBoundary returns the start time of the last candle consumed by
// Advance, or 0 if none.
func (e *Engine) LastBoundary() int64 { return e.lastBoundary }

// Variant returns the configured variant.
func (e *Engine) Variant() Variant { return e.cfg.Variant }
