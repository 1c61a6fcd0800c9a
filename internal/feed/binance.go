package feed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"

	"deltabot/internal/model"
	"deltabot/internal/traderr"
)

// BinanceSource fetches spot klines from Binance. Used as the indicator
// price source when the execution venue's own candle history is not the
// reference series (Binance spot closes are the TradingView reference for
// the RSI variant).
type BinanceSource struct {
	client   *binance.Client
	symbol   string
	interval string
}

// NewBinanceSource creates an unauthenticated Binance spot client. Kline
// endpoints are public, no keys are needed.
func NewBinanceSource(symbol string, timeframeMinutes int) *BinanceSource {
	return &BinanceSource{
		client:   binance.NewClient("", ""),
		symbol:   symbol,
		interval: Resolution(timeframeMinutes),
	}
}

func (s *BinanceSource) Candle(ctx context.Context, boundary int64) (model.Candle, error) {
	// Fetch the last two klines: the newest is the forming candle, the one
	// before it is the completed candle at the boundary.
	candles, err := s.fetch(ctx, 2)
	if err != nil {
		return model.Candle{}, err
	}
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].StartTime == boundary {
			return candles[i], nil
		}
	}
	return model.Candle{}, traderr.Newf(traderr.KindDataIntegrity, "binance.candle",
		"no kline with open time %d for %s", boundary, s.symbol)
}

func (s *BinanceSource) History(ctx context.Context, n int) ([]model.Candle, error) {
	// Request one extra so the forming candle can be dropped.
	candles, err := s.fetch(ctx, n+1)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		candles = candles[:len(candles)-1]
	}
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}

func (s *BinanceSource) fetch(ctx context.Context, limit int) ([]model.Candle, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(s.symbol).
		Interval(s.interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, traderr.New(traderr.KindTransient, "binance.klines", err)
	}

	out := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := klineToCandle(s.symbol, k)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func klineToCandle(symbol string, k *binance.Kline) (model.Candle, error) {
	c := model.Candle{
		Symbol: symbol,
		// Binance open times are milliseconds
		StartTime: k.OpenTime / 1000,
	}
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&c.Open, k.Open},
		{&c.High, k.High},
		{&c.Low, k.Low},
		{&c.Close, k.Close},
		{&c.Volume, k.Volume},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return model.Candle{}, traderr.New(traderr.KindDataIntegrity, "binance.klines",
				fmt.Errorf("parse kline field %q: %w", f.src, err))
		}
		*f.dst = v
	}
	return c, nil
}
