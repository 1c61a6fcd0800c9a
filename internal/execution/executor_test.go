package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"deltabot/internal/model"
	"deltabot/internal/strategy"
	"deltabot/internal/traderr"
)

// fakeVenue scripts position responses in order and records every order.
type fakeVenue struct {
	positions []model.Position
	posIdx    int
	book      model.OrderBook
	bookErr   error
	orderErr  error
	orders    []placedOrder
}

type placedOrder struct {
	side  model.OrderSide
	size  float64
	price float64
}

func (f *fakeVenue) Position(ctx context.Context) (model.Position, error) {
	if f.posIdx >= len(f.positions) {
		return f.positions[len(f.positions)-1], nil
	}
	p := f.positions[f.posIdx]
	f.posIdx++
	return p, nil
}

func (f *fakeVenue) OrderBook(ctx context.Context) (model.OrderBook, error) {
	return f.book, f.bookErr
}

func (f *fakeVenue) PlaceLimitOrder(ctx context.Context, side model.OrderSide, size, price float64) error {
	if f.orderErr != nil {
		return f.orderErr
	}
	f.orders = append(f.orders, placedOrder{side, size, price})
	return nil
}

func newTestExecutor(v Venue) *Executor {
	e := NewExecutor(v, nil, "BTCUSD", 2, time.Second)
	e.sleep = func(time.Duration) {}
	return e
}

func longSignal() *strategy.Signal {
	return &strategy.Signal{Direction: model.SideLong, Boundary: 900, Reason: "test"}
}

func TestExecuteOpensFromFlat(t *testing.T) {
	v := &fakeVenue{
		positions: []model.Position{{Side: model.SideFlat}},
		book:      model.OrderBook{BestBid: 49990, BestAsk: 50010},
	}

	if err := newTestExecutor(v).Execute(context.Background(), longSignal(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(v.orders))
	}
	// Longs are opened by buying at the ask.
	got := v.orders[0]
	if got.side != model.OrderBuy || got.size != 2 || got.price != 50010 {
		t.Fatalf("wrong opening order: %+v", got)
	}
}

func TestExecuteClosesThenOpens(t *testing.T) {
	v := &fakeVenue{
		positions: []model.Position{
			{Side: model.SideShort, Size: 3, UnrealizedPnL: 12.5}, // initial fetch
			{Side: model.SideFlat}, // re-verify after close
		},
		book: model.OrderBook{BestBid: 49990, BestAsk: 50010},
	}

	if err := newTestExecutor(v).Execute(context.Background(), longSignal(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.orders) != 2 {
		t.Fatalf("expected close + open, got %d orders", len(v.orders))
	}
	// Shorts are bought back at the ask, full venue-reported size.
	if v.orders[0].side != model.OrderBuy || v.orders[0].size != 3 || v.orders[0].price != 50010 {
		t.Fatalf("wrong closing order: %+v", v.orders[0])
	}
	if v.orders[1].side != model.OrderBuy || v.orders[1].size != 2 {
		t.Fatalf("wrong opening order: %+v", v.orders[1])
	}
}

func TestExecuteAbortsOnUnconfirmedClose(t *testing.T) {
	// The short survives the settle delay: close unconfirmed, no open ever.
	v := &fakeVenue{
		positions: []model.Position{
			{Side: model.SideShort, Size: 3},
			{Side: model.SideShort, Size: 3},
		},
		book: model.OrderBook{BestBid: 49990, BestAsk: 50010},
	}

	err := newTestExecutor(v).Execute(context.Background(), longSignal(), nil)
	if !traderr.IsExecution(err) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if len(v.orders) != 1 {
		t.Fatalf("only the closing order may be placed, got %d orders", len(v.orders))
	}
}

func TestExecuteAbortsWhenCloseLeavesNonFlat(t *testing.T) {
	// The venue reports a LONG after the short was closed (e.g. a resting
	// order filled during the settle window). Not FLAT means not confirmed:
	// abort rather than stack an open on top of it.
	v := &fakeVenue{
		positions: []model.Position{
			{Side: model.SideShort, Size: 3},
			{Side: model.SideLong, Size: 1},
		},
		book: model.OrderBook{BestBid: 49990, BestAsk: 50010},
	}

	err := newTestExecutor(v).Execute(context.Background(), longSignal(), nil)
	if !traderr.IsExecution(err) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if len(v.orders) != 1 {
		t.Fatalf("only the closing order may be placed, got %d orders", len(v.orders))
	}
}

func TestExecuteSkipsWhenAlreadyPositioned(t *testing.T) {
	v := &fakeVenue{
		positions: []model.Position{{Side: model.SideLong, Size: 2}},
		book:      model.OrderBook{BestBid: 49990, BestAsk: 50010},
	}

	if err := newTestExecutor(v).Execute(context.Background(), longSignal(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.orders) != 0 {
		t.Fatalf("no orders expected, got %d", len(v.orders))
	}
}

func TestExecuteOrderErrorPropagates(t *testing.T) {
	boom := traderr.Newf(traderr.KindExecution, "test", "rejected")
	v := &fakeVenue{
		positions: []model.Position{{Side: model.SideFlat}},
		book:      model.OrderBook{BestBid: 49990, BestAsk: 50010},
		orderErr:  boom,
	}

	if err := newTestExecutor(v).Execute(context.Background(), longSignal(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected order error, got %v", err)
	}
}

func TestExecuteShortFromFlatSellsAtBid(t *testing.T) {
	v := &fakeVenue{
		positions: []model.Position{{Side: model.SideFlat}},
		book:      model.OrderBook{BestBid: 49990, BestAsk: 50010},
	}
	sig := &strategy.Signal{Direction: model.SideShort, Boundary: 900}

	if err := newTestExecutor(v).Execute(context.Background(), sig, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.orders[0].side != model.OrderSell || v.orders[0].price != 49990 {
		t.Fatalf("wrong short open: %+v", v.orders[0])
	}
}

type staticQuote struct{ book model.OrderBook }

func (s staticQuote) OrderBook(ctx context.Context) (model.OrderBook, error) {
	return s.book, nil
}

func TestPaperVenueRoundTrip(t *testing.T) {
	p := NewPaperVenue(staticQuote{model.OrderBook{BestBid: 100, BestAsk: 101}})
	ex := newTestExecutor(p)

	// Flat -> long.
	if err := ex.Execute(context.Background(), longSignal(), nil); err != nil {
		t.Fatalf("open long: %v", err)
	}
	pos, _ := p.Position(context.Background())
	if pos.Side != model.SideLong || pos.Size != 2 {
		t.Fatalf("expected LONG 2, got %+v", pos)
	}

	// Long -> short reverses through flat.
	short := &strategy.Signal{Direction: model.SideShort, Boundary: 1800}
	if err := ex.Execute(context.Background(), short, nil); err != nil {
		t.Fatalf("reverse to short: %v", err)
	}
	pos, _ = p.Position(context.Background())
	if pos.Side != model.SideShort || pos.Size != 2 {
		t.Fatalf("expected SHORT 2, got %+v", pos)
	}
}

func TestJournalRecordAndPrune(t *testing.T) {
	j, err := NewJournal(t.TempDir()+"/trades.db", 3)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	pnl := 5.5
	for i := 0; i < 5; i++ {
		rec := TradeRecord{
			Timestamp:    time.Now().UTC(),
			Action:       ActionOpen,
			Side:         "buy",
			Size:         2,
			Price:        float64(50000 + i),
			PositionSide: "LONG",
		}
		if i == 4 {
			rec.Action = ActionClose
			rec.PnL = &pnl
		}
		if err := j.Record(rec); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	trades, err := j.Trades(10)
	if err != nil {
		t.Fatalf("read trades: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("retention should keep 3 rows, got %d", len(trades))
	}
	if trades[0].Action != ActionClose || trades[0].PnL == nil || *trades[0].PnL != 5.5 {
		t.Fatalf("newest row wrong: %+v", trades[0])
	}
	if trades[2].Price != 50002 {
		t.Fatalf("oldest surviving row should be price 50002, got %v", trades[2].Price)
	}
}
