package model

// Side is the direction of a tracked position or signal.
type Side string

const (
	SideFlat  Side = "FLAT"
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposes reports whether s is an open position in the opposite direction
// of the given target side. FLAT opposes nothing.
func (s Side) Opposes(target Side) bool {
	return s != SideFlat && s != target
}

// Position represents the venue-reported position for one product.
// It is always re-fetched from the venue before use — never cached as
// authoritative.
type Position struct {
	Side          Side    `json:"side"`
	Size          float64 `json:"size"` // contracts, always >= 0
	EntryPrice    float64 `json:"entry_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// PositionFromSize builds a Position from a venue-reported signed size
// (positive = long, negative = short, zero = flat).
func PositionFromSize(size, entryPrice, pnl float64) Position {
	switch {
	case size > 0:
		return Position{Side: SideLong, Size: size, EntryPrice: entryPrice, UnrealizedPnL: pnl}
	case size < 0:
		return Position{Side: SideShort, Size: -size, EntryPrice: entryPrice, UnrealizedPnL: pnl}
	default:
		return Position{Side: SideFlat}
	}
}
