package deltaex

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Number is a float64 that unmarshals from either a JSON number or a quoted
// decimal string — the Delta API mixes both representations across endpoints.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float returns the value as a plain float64.
func (n Number) Float() float64 { return float64(n) }

// Product is a tradeable contract listed on the venue.
type Product struct {
	ID          int64  `json:"id"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	State       string `json:"state"`
}

// Balance is one wallet asset balance row.
type Balance struct {
	AssetSymbol      string `json:"asset_symbol"`
	Balance          Number `json:"balance"`
	AvailableBalance Number `json:"available_balance"`
}

// rawPosition is the venue's margined position row. Size is signed:
// positive = long, negative = short.
type rawPosition struct {
	ProductID     int64  `json:"product_id"`
	Size          Number `json:"size"`
	EntryPrice    Number `json:"entry_price"`
	UnrealizedPnL Number `json:"unrealized_pnl"`
}

// rawOrder is the venue's order response row.
type rawOrder struct {
	ID         int64  `json:"id"`
	ProductID  int64  `json:"product_id"`
	Side       string `json:"side"`
	Size       Number `json:"size"`
	LimitPrice Number `json:"limit_price"`
	State      string `json:"state"`
}

// rawCandle is one OHLCV history row, keyed by open time in epoch seconds.
type rawCandle struct {
	Time   int64  `json:"time"`
	Open   Number `json:"open"`
	High   Number `json:"high"`
	Low    Number `json:"low"`
	Close  Number `json:"close"`
	Volume Number `json:"volume"`
}

// bookLevel is one price level of the L2 order book.
type bookLevel struct {
	Price Number `json:"price"`
	Size  Number `json:"size"`
}

// rawOrderBook is the venue's L2 snapshot; levels sorted best-first.
type rawOrderBook struct {
	Buy  []bookLevel `json:"buy"`
	Sell []bookLevel `json:"sell"`
}

// ticker is the venue's ticker row; MarkPrice is the live display price.
type ticker struct {
	Symbol    string `json:"symbol"`
	MarkPrice Number `json:"mark_price"`
}

// OrderRequest is a limit order placement payload. LimitPrice is serialized
// as a string, as the venue expects.
type OrderRequest struct {
	ProductID   int64   `json:"product_id"`
	Size        float64 `json:"size"`
	Side        string  `json:"side"` // "buy" or "sell"
	LimitPrice  string  `json:"limit_price"`
	OrderType   string  `json:"order_type"`    // always "limit_order"
	TimeInForce string  `json:"time_in_force"` // always "gtc"
	PostOnly    bool    `json:"post_only"`
}
