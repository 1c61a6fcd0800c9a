package feed

import (
	"context"
	"time"

	"deltabot/internal/model"
	"deltabot/internal/traderr"
	"deltabot/pkg/deltaex"
)

// DeltaSource fetches candle history from the Delta Exchange venue itself.
// Used by the EMA variant, where the venue's own closes drive the signal.
type DeltaSource struct {
	client           *deltaex.Client
	symbol           string
	timeframeMinutes int
	now              func() time.Time
}

func NewDeltaSource(client *deltaex.Client, symbol string, timeframeMinutes int) *DeltaSource {
	return &DeltaSource{
		client:           client,
		symbol:           symbol,
		timeframeMinutes: timeframeMinutes,
		now:              time.Now,
	}
}

func (s *DeltaSource) Candle(ctx context.Context, boundary int64) (model.Candle, error) {
	tf := int64(s.timeframeMinutes) * 60
	// The range end is exclusive of the forming candle: asking up to
	// boundary+tf-1 can only return candles that have fully closed.
	candles, err := s.client.Candles(ctx, s.symbol, Resolution(s.timeframeMinutes), boundary, boundary+tf-1)
	if err != nil {
		return model.Candle{}, err
	}
	for _, c := range candles {
		if c.StartTime == boundary {
			return c, nil
		}
	}
	return model.Candle{}, traderr.Newf(traderr.KindDataIntegrity, "deltaex.candle",
		"no candle with start %d for %s", boundary, s.symbol)
}

func (s *DeltaSource) History(ctx context.Context, n int) ([]model.Candle, error) {
	tf := int64(s.timeframeMinutes) * 60
	end := LastCompletedBoundary(s.now(), s.timeframeMinutes) + tf - 1
	start := end - int64(n)*tf
	candles, err := s.client.Candles(ctx, s.symbol, Resolution(s.timeframeMinutes), start, end)
	if err != nil {
		return nil, err
	}
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}
