package execution

import (
	"context"
	"log"
	"sync"

	"deltabot/internal/model"
)

// PaperVenue is an in-memory Venue for dry runs. Orders fill instantly at
// their limit price against a book mirrored from a real quote source, and
// the simulated position is what Position reports back.
type PaperVenue struct {
	mu    sync.Mutex
	quote Quoter
	pos   model.Position
}

// Quoter provides top-of-book quotes for paper fills, normally backed by
// the real venue's public order book endpoint.
type Quoter interface {
	OrderBook(ctx context.Context) (model.OrderBook, error)
}

// NewPaperVenue creates a dry-run venue priced off quote.
func NewPaperVenue(quote Quoter) *PaperVenue {
	return &PaperVenue{quote: quote}
}

func (p *PaperVenue) Position(ctx context.Context) (model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos, nil
}

func (p *PaperVenue) OrderBook(ctx context.Context) (model.OrderBook, error) {
	return p.quote.OrderBook(ctx)
}

// PlaceLimitOrder fills immediately at price and nets the fill against the
// simulated position.
func (p *PaperVenue) PlaceLimitOrder(ctx context.Context, side model.OrderSide, size, price float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	signed := signedSize(p.pos)
	if side == model.OrderBuy {
		signed += size
	} else {
		signed -= size
	}

	pnl := p.pos.UnrealizedPnL
	if signed == 0 {
		pnl = 0
	}
	p.pos = model.PositionFromSize(signed, price, pnl)

	log.Printf("[paper] filled %s %.4f @ %.2f, position now %s %.4f",
		side, size, price, p.pos.Side, p.pos.Size)
	return nil
}

func signedSize(pos model.Position) float64 {
	if pos.Side == model.SideShort {
		return -pos.Size
	}
	if pos.Side == model.SideFlat {
		return 0
	}
	return pos.Size
}
