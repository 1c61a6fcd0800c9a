package indicator

import (
	"encoding/json"
	"fmt"
)

// IndicatorSnapshot holds the serialized state of a single indicator
// instance. One struct covers all types; unused fields stay zero.
type IndicatorSnapshot struct {
	Type   string `json:"type"`   // "SMA", "EMA", "RSI"
	Period int    `json:"period"` // indicator period

	// SMA fields
	Buf     []float64 `json:"buf,omitempty"`
	Idx     int       `json:"idx,omitempty"`
	Count   int       `json:"count"`
	Sum     float64   `json:"sum,omitempty"`
	Current float64   `json:"current"`

	// EMA fields
	Multiplier float64 `json:"multiplier,omitempty"`

	// RSI fields
	PrevClose float64 `json:"prev_close,omitempty"`
	AvgGain   float64 `json:"avg_gain,omitempty"`
	AvgLoss   float64 `json:"avg_loss,omitempty"`
}

// EngineSnapshot holds the full numeric state of the engine so a restart
// resumes the exact same recurrences instead of re-deriving a slightly
// different warm-up.
type EngineSnapshot struct {
	Version      int                `json:"version"` // schema version for forward compat
	Variant      Variant            `json:"variant"`
	LastBoundary int64              `json:"last_boundary"`
	Closes       []float64          `json:"closes"` // oldest-first
	Prev         Reading            `json:"prev"`
	PrevValid    bool               `json:"prev_valid"`
	Cur          Reading            `json:"cur"`
	RSI          *IndicatorSnapshot `json:"rsi,omitempty"`
	RSISMA       *IndicatorSnapshot `json:"rsi_sma,omitempty"`
	EMA          *IndicatorSnapshot `json:"ema,omitempty"`
}

// Snapshot captures the engine's full state.
func (e *Engine) Snapshot() *EngineSnapshot {
	snap := &EngineSnapshot{
		Version:      1,
		Variant:      e.cfg.Variant,
		LastBoundary: e.lastBoundary,
		Closes:       e.closes.Values(),
		Prev:         e.prev,
		PrevValid:    e.prevValid,
		Cur:          e.cur,
	}
	switch e.cfg.Variant {
	case VariantRSISMA:
		rs := e.rsi.Snapshot()
		ss := e.rsiSMA.Snapshot()
		snap.RSI = &rs
		snap.RSISMA = &ss
	case VariantPriceEMA:
		es := e.ema.Snapshot()
		snap.EMA = &es
	}
	return snap
}

// RestoreEngine rebuilds an engine from a snapshot. The snapshot must match
// the configured variant and periods — on any mismatch the caller should
// discard it and warm up from history instead.
func RestoreEngine(cfg Config, snap *EngineSnapshot) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("indicator: nil snapshot")
	}
	if snap.Variant != cfg.Variant {
		return nil, fmt.Errorf("indicator: snapshot variant %q != configured %q", snap.Variant, cfg.Variant)
	}

	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Variant {
	case VariantRSISMA:
		if snap.RSI == nil || snap.RSISMA == nil {
			return nil, fmt.Errorf("indicator: rsi_sma snapshot missing indicator state")
		}
		if snap.RSI.Period != cfg.RSIPeriod || snap.RSISMA.Period != cfg.SMAPeriod {
			return nil, fmt.Errorf("indicator: snapshot periods %d/%d != configured %d/%d",
				snap.RSI.Period, snap.RSISMA.Period, cfg.RSIPeriod, cfg.SMAPeriod)
		}
		if err := e.rsi.RestoreFromSnapshot(*snap.RSI); err != nil {
			return nil, err
		}
		if err := e.rsiSMA.RestoreFromSnapshot(*snap.RSISMA); err != nil {
			return nil, err
		}
	case VariantPriceEMA:
		if snap.EMA == nil {
			return nil, fmt.Errorf("indicator: ema snapshot missing indicator state")
		}
		if snap.EMA.Period != cfg.EMAPeriod {
			return nil, fmt.Errorf("indicator: snapshot period %d != configured %d", snap.EMA.Period, cfg.EMAPeriod)
		}
		if err := e.ema.RestoreFromSnapshot(*snap.EMA); err != nil {
			return nil, err
		}
	}

	e.closes.Restore(snap.Closes)
	e.prev = snap.Prev
	e.prevValid = snap.PrevValid
	e.cur = snap.Cur
	e.lastBoundary = snap.LastBoundary
	return e, nil
}

// Marshal serializes the snapshot to JSON.
func (es *EngineSnapshot) Marshal() ([]byte, error) {
	return json.Marshal(es)
}

// UnmarshalSnapshot parses a JSON engine snapshot.
func UnmarshalSnapshot(data []byte) (*EngineSnapshot, error) {
	var snap EngineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
