package model

import "time"

// OrderSide is the venue order side ("buy" or "sell").
type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// Order represents a placed venue order.
type Order struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Side       OrderSide `json:"side"`
	Size       float64   `json:"size"`
	LimitPrice float64   `json:"limit_price"`
	State      string    `json:"state"` // open, pending, closed, cancelled
	CreatedAt  time.Time `json:"created_at"`
}

// OrderBook is a top-of-book snapshot. Spread is derived, kept for logging.
type OrderBook struct {
	BestBid float64 `json:"best_bid"`
	BestAsk float64 `json:"best_ask"`
}

// Spread returns the bid/ask spread.
func (b *OrderBook) Spread() float64 {
	return b.BestAsk - b.BestBid
}
