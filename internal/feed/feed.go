// Package feed detects candle boundaries and fetches completed candles from
// an upstream price source. Only fully elapsed, boundary-aligned candles
// ever come out of here — forming or misaligned candles are rejected before
// they can reach indicator state.
package feed

import (
	"context"
	"fmt"
	"log"
	"time"

	"deltabot/internal/model"
	"deltabot/internal/traderr"
)

// Source fetches candles from an upstream provider. Implementations return
// traderr-classified errors at the network boundary.
type Source interface {
	// Candle fetches the completed candle whose start time equals boundary
	// (epoch seconds).
	Candle(ctx context.Context, boundary int64) (model.Candle, error)

	// History returns the most recent n completed candles, oldest-first.
	History(ctx context.Context, n int) ([]model.Candle, error)
}

// LastCompletedBoundary returns the start time (epoch seconds) of the most
// recently fully elapsed candle: floor(now, timeframe) - timeframe. The
// candle starting at floor(now) is still forming and is never eligible.
func LastCompletedBoundary(now time.Time, timeframeMinutes int) int64 {
	tf := int64(timeframeMinutes) * 60
	return now.Unix()/tf*tf - tf
}

// Resolution converts a timeframe in minutes to the provider resolution
// string convention ("15m", "1h", "4h").
func Resolution(timeframeMinutes int) string {
	if timeframeMinutes >= 60 {
		return fmt.Sprintf("%dh", timeframeMinutes/60)
	}
	return fmt.Sprintf("%dm", timeframeMinutes)
}

// Poller tracks the last consumed candle boundary and surfaces each newly
// completed candle exactly once.
type Poller struct {
	src              Source
	timeframeMinutes int
	lastBoundary     int64
	now              func() time.Time
}

// NewPoller creates a poller. lastBoundary is the boundary of the most
// recent candle already consumed (e.g. from warm-up history), so the first
// Poll does not re-deliver it.
func NewPoller(src Source, timeframeMinutes int, lastBoundary int64) *Poller {
	return &Poller{
		src:              src,
		timeframeMinutes: timeframeMinutes,
		lastBoundary:     lastBoundary,
		now:              time.Now,
	}
}

// Poll recomputes the last completed boundary and, if it moved past the last
// consumed one, fetches and validates that candle. Returns (nil, nil) when no
// new candle has completed. On any error nothing is mutated, so the same
// boundary is naturally retried on the next tick.
func (p *Poller) Poll(ctx context.Context) (*model.Candle, error) {
	boundary := LastCompletedBoundary(p.now(), p.timeframeMinutes)
	if boundary == p.lastBoundary {
		return nil, nil
	}

	c, err := p.src.Candle(ctx, boundary)
	if err != nil {
		return nil, err
	}

	if !c.Aligned(p.timeframeMinutes) || c.StartTime != boundary {
		// Discard, do not retry mid-tick
		log.Printf("[feed] discarding misaligned candle: start=%d want=%d tf=%dm",
			c.StartTime, boundary, p.timeframeMinutes)
		return nil, traderr.Newf(traderr.KindDataIntegrity, "feed.poll",
			"candle start %d does not match boundary %d", c.StartTime, boundary)
	}

	p.lastBoundary = boundary
	return &c, nil
}

// LastBoundary returns the boundary of the last candle Poll delivered.
func (p *Poller) LastBoundary() int64 { return p.lastBoundary }

// SetClock overrides the poller's time source. Tests only.
func (p *Poller) SetClock(now func() time.Time) { p.now = now }
