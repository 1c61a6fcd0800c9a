// Package execution reconciles trade signals against the live venue
// position: close whatever opposes the signal first, verify the close
// settled, then open in the signal direction. The venue is the single
// source of truth — the executor re-fetches position state at every
// decision point and never acts on a cached view.
package execution

import (
	"context"
	"log"
	"time"

	"deltabot/internal/model"
	"deltabot/internal/strategy"
	"deltabot/internal/traderr"
)

// Venue is the subset of exchange operations the executor needs.
type Venue interface {
	// Position returns the current open position for the traded product.
	Position(ctx context.Context) (model.Position, error)

	// OrderBook returns the current top of book.
	OrderBook(ctx context.Context) (model.OrderBook, error)

	// PlaceLimitOrder submits a limit order for size contracts at price.
	PlaceLimitOrder(ctx context.Context, side model.OrderSide, size, price float64) error
}

// Executor turns signals into close-then-open order sequences.
type Executor struct {
	venue   Venue
	journal *Journal
	symbol  string
	lotSize float64

	// settleDelay is how long to wait after a closing order before
	// re-verifying the position. Aggressive limit prices (sell at bid,
	// buy at ask) normally fill within this window.
	settleDelay time.Duration
	sleep       func(time.Duration)
}

// NewExecutor creates an executor. journal may be nil to skip persistence.
func NewExecutor(venue Venue, journal *Journal, symbol string, lotSize float64, settleDelay time.Duration) *Executor {
	return &Executor{
		venue:       venue,
		journal:     journal,
		symbol:      symbol,
		lotSize:     lotSize,
		settleDelay: settleDelay,
		sleep:       time.Sleep,
	}
}

// Execute runs one signal through the close-then-open sequence. indicators
// is an opaque indicator-state blob journaled alongside each trade.
//
// If an opposing position cannot be confirmed closed, Execute aborts with
// an execution error and never places the opening order.
func (e *Executor) Execute(ctx context.Context, sig *strategy.Signal, indicators []byte) error {
	pos, err := e.venue.Position(ctx)
	if err != nil {
		return err
	}
	if pos.Side == sig.Direction {
		// Normally the strategy hysteresis prevents this, but the venue
		// state wins.
		log.Printf("[executor] already %s, skipping signal", pos.Side)
		return nil
	}

	book, err := e.venue.OrderBook(ctx)
	if err != nil {
		return err
	}

	if pos.Side.Opposes(sig.Direction) {
		if err := e.closePosition(ctx, pos, book, indicators); err != nil {
			return err
		}
		// Top of book may have moved while the close settled.
		book, err = e.venue.OrderBook(ctx)
		if err != nil {
			return err
		}
	}

	return e.openPosition(ctx, sig, book, indicators)
}

// closePosition closes pos with an aggressive limit order and verifies the
// venue reports it gone before returning.
func (e *Executor) closePosition(ctx context.Context, pos model.Position, book model.OrderBook, indicators []byte) error {
	side, price := closingOrder(pos.Side, book)
	log.Printf("[executor] closing %s %.4f %s: %s %.4f @ %.2f",
		pos.Side, pos.Size, e.symbol, side, pos.Size, price)

	if err := e.venue.PlaceLimitOrder(ctx, side, pos.Size, price); err != nil {
		return err
	}

	e.sleep(e.settleDelay)

	after, err := e.venue.Position(ctx)
	if err != nil {
		return err
	}
	if after.Side != model.SideFlat {
		// Anything other than FLAT means the close did not settle the way
		// we asked — opening on top of it would grow exposure.
		return traderr.Newf(traderr.KindExecution, "executor.close",
			"close of %s position not confirmed after %s (venue reports %s), aborting",
			pos.Side, e.settleDelay, after.Side)
	}

	e.record(TradeRecord{
		Timestamp:    time.Now().UTC(),
		Action:       ActionClose,
		Side:         string(side),
		Size:         pos.Size,
		Price:        price,
		PositionSide: string(pos.Side),
		Indicators:   string(indicators),
		PnL:          &pos.UnrealizedPnL,
	})
	return nil
}

func (e *Executor) openPosition(ctx context.Context, sig *strategy.Signal, book model.OrderBook, indicators []byte) error {
	side, price := openingOrder(sig.Direction, book)
	log.Printf("[executor] opening %s %.4f %s: %s @ %.2f (%s)",
		sig.Direction, e.lotSize, e.symbol, side, price, sig.Reason)

	if err := e.venue.PlaceLimitOrder(ctx, side, e.lotSize, price); err != nil {
		return err
	}

	e.record(TradeRecord{
		Timestamp:    time.Now().UTC(),
		Action:       ActionOpen,
		Side:         string(side),
		Size:         e.lotSize,
		Price:        price,
		PositionSide: string(sig.Direction),
		Indicators:   string(indicators),
	})
	return nil
}

// closingOrder picks the side and aggressive price that flattens pos:
// a long is sold into the bid, a short is bought back at the ask.
func closingOrder(held model.Side, book model.OrderBook) (model.OrderSide, float64) {
	if held == model.SideLong {
		return model.OrderSell, book.BestBid
	}
	return model.OrderBuy, book.BestAsk
}

// openingOrder picks the side and aggressive price that establishes dir.
func openingOrder(dir model.Side, book model.OrderBook) (model.OrderSide, float64) {
	if dir == model.SideLong {
		return model.OrderBuy, book.BestAsk
	}
	return model.OrderSell, book.BestBid
}

func (e *Executor) record(rec TradeRecord) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(rec); err != nil {
		// Journal failures must never block trading.
		log.Printf("[executor] journal write failed: %v", err)
	}
}
