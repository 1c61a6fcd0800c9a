package bot

import (
	"context"

	"deltabot/internal/model"
	"deltabot/pkg/deltaex"
)

// liveVenue binds the Delta Exchange client to one resolved product so the
// executor never handles product IDs.
type liveVenue struct {
	client  *deltaex.Client
	product deltaex.Product
}

func newLiveVenue(client *deltaex.Client, product deltaex.Product) *liveVenue {
	return &liveVenue{client: client, product: product}
}

func (v *liveVenue) Position(ctx context.Context) (model.Position, error) {
	return v.client.Position(ctx, v.product.ID)
}

func (v *liveVenue) OrderBook(ctx context.Context) (model.OrderBook, error) {
	return v.client.OrderBook(ctx, v.product.Symbol)
}

func (v *liveVenue) PlaceLimitOrder(ctx context.Context, side model.OrderSide, size, price float64) error {
	_, err := v.client.PlaceLimitOrder(ctx, v.product.ID, side, size, price)
	return err
}
