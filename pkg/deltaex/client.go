// Package deltaex is a minimal Delta Exchange REST client covering the
// endpoints the bot consumes: product lookup, wallet balances, margined
// positions, limit order placement, L2 order book and candle history.
//
// Authenticated requests are signed with HMAC-SHA256 over the concatenation
// method + timestamp + path + body, sent via the api-key / timestamp /
// signature header set.
package deltaex

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"deltabot/internal/model"
	"deltabot/internal/traderr"
)

const (
	mainnetURL      = "https://api.delta.exchange"
	mainnetIndiaURL = "https://api.india.delta.exchange"
	testnetURL      = "https://cdn-ind.testnet.deltaex.org"

	defaultTimeout = 10 * time.Second
	userAgent      = "deltabot"
)

// Config configures the client. APIKey/APISecret may be empty for
// public-endpoint-only use.
type Config struct {
	APIKey    string
	APISecret string
	Region    string // "india" selects the India cluster
	Testnet   bool
	BaseURL   string        // override, mainly for tests
	Timeout   time.Duration // default 10s
}

// Client is a Delta Exchange REST client. Safe for use from a single
// control loop; it keeps no mutable state beyond the HTTP client.
type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *http.Client
	now       func() time.Time
}

// New creates a client. The base URL is selected from region/testnet the
// same way the production deployment does.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		switch {
		case cfg.Testnet:
			base = testnetURL
		case cfg.Region == "india":
			base = mainnetIndiaURL
		default:
			base = mainnetURL
		}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
		now:       time.Now,
	}
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Sign computes the hex HMAC-SHA256 signature of message with the client's
// API secret.
func (c *Client) Sign(message string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// authHeaders builds the signed header set for method + path + body.
func (c *Client) authHeaders(method, path, body string) map[string]string {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	return map[string]string{
		"api-key":      c.apiKey,
		"timestamp":    timestamp,
		"signature":    c.Sign(method + timestamp + path + body),
		"Content-Type": "application/json",
		"User-Agent":   userAgent,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// do performs one request and decodes the result envelope into out.
// HTTP-level failures are classified here (network/5xx → transient,
// 401/403 → auth); an API-level rejection (success=false) is returned as
// *apiError for the caller to classify.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, signed bool, out any) error {
	op := "deltaex." + method + " " + path

	var body string
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return traderr.New(traderr.KindExecution, op, err)
		}
		body = string(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader([]byte(body)))
	if err != nil {
		return traderr.New(traderr.KindTransient, op, err)
	}
	if signed {
		// Signature covers the path only, not the query string
		for k, v := range c.authHeaders(method, path, body) {
			req.Header.Set(k, v)
		}
	} else {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return traderr.New(traderr.KindTransient, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return traderr.New(traderr.KindTransient, op, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return traderr.Newf(traderr.KindAuth, op, "status %d: %s", resp.StatusCode, truncate(raw))
	case resp.StatusCode >= 500:
		return traderr.Newf(traderr.KindTransient, op, "status %d: %s", resp.StatusCode, truncate(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return traderr.Newf(traderr.KindTransient, op, "decode response: %v", err)
	}
	if !env.Success {
		return &apiError{op: op, status: resp.StatusCode, detail: string(env.Error)}
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return traderr.Newf(traderr.KindTransient, op, "decode result: %v", err)
		}
	}
	return nil
}

// apiError is an API-level rejection (HTTP 2xx/4xx with success=false).
type apiError struct {
	op     string
	status int
	detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: api rejection (status %d): %s", e.op, e.status, e.detail)
}

// classify wraps an error from do() with the given kind for API-level
// rejections, passing already-classified errors through untouched.
func classify(err error, kind traderr.Kind, op string) error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*apiError); ok {
		return traderr.New(kind, op, ae)
	}
	return err
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// ── Public endpoints ──

// Products lists live products.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.do(ctx, http.MethodGet, "/v2/products", nil, nil, false, &out)
	return out, classify(err, traderr.KindTransient, "deltaex.products")
}

// FindProduct resolves a symbol to its product listing.
func (c *Client) FindProduct(ctx context.Context, symbol string) (Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.Symbol == symbol {
			return p, nil
		}
	}
	return Product{}, traderr.Newf(traderr.KindDataIntegrity, "deltaex.products", "symbol %q not listed", symbol)
}

// OrderBook returns the top-of-book snapshot for a symbol. An empty side is
// an execution error: no order may be priced from it.
func (c *Client) OrderBook(ctx context.Context, symbol string) (model.OrderBook, error) {
	op := "deltaex.orderbook"
	var raw rawOrderBook
	err := c.do(ctx, http.MethodGet, "/v2/l2orderbook/"+symbol, nil, nil, false, &raw)
	if err != nil {
		return model.OrderBook{}, classify(err, traderr.KindTransient, op)
	}
	if len(raw.Buy) == 0 || len(raw.Sell) == 0 {
		return model.OrderBook{}, traderr.Newf(traderr.KindExecution, op, "empty order book for %s", symbol)
	}
	return model.OrderBook{
		BestBid: raw.Buy[0].Price.Float(),
		BestAsk: raw.Sell[0].Price.Float(),
	}, nil
}

// Ticker returns the current mark price for a symbol (display only).
func (c *Client) Ticker(ctx context.Context, symbol string) (float64, error) {
	var t ticker
	err := c.do(ctx, http.MethodGet, "/v2/tickers/"+symbol, nil, nil, false, &t)
	if err != nil {
		return 0, classify(err, traderr.KindTransient, "deltaex.ticker")
	}
	return t.MarkPrice.Float(), nil
}

// Candles fetches history rows for [start, end] at the given resolution
// (e.g. "15m", "1h") and returns them as candles sorted oldest-first.
func (c *Client) Candles(ctx context.Context, symbol, resolution string, start, end int64) ([]model.Candle, error) {
	q := url.Values{
		"resolution": {resolution},
		"symbol":     {symbol},
		"start":      {strconv.FormatInt(start, 10)},
		"end":        {strconv.FormatInt(end, 10)},
	}
	var rows []rawCandle
	err := c.do(ctx, http.MethodGet, "/v2/history/candles", q, nil, false, &rows)
	if err != nil {
		return nil, classify(err, traderr.KindTransient, "deltaex.candles")
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, model.Candle{
			Symbol:    symbol,
			StartTime: r.Time,
			Open:      r.Open.Float(),
			High:      r.High.Float(),
			Low:       r.Low.Float(),
			Close:     r.Close.Float(),
			Volume:    r.Volume.Float(),
		})
	}
	// The venue does not guarantee ordering
	sort.Slice(candles, func(i, j int) bool { return candles[i].StartTime < candles[j].StartTime })
	return candles, nil
}

// ── Signed endpoints ──

// WalletBalances returns all wallet balances. Used at startup as the
// authenticated-connectivity probe.
func (c *Client) WalletBalances(ctx context.Context) ([]Balance, error) {
	var out []Balance
	err := c.do(ctx, http.MethodGet, "/v2/wallet/balances", nil, nil, true, &out)
	return out, classify(err, traderr.KindAuth, "deltaex.wallet")
}

// Position returns the venue-reported position for a product. A product with
// no open position reports FLAT. The signed size encodes the side.
func (c *Client) Position(ctx context.Context, productID int64) (model.Position, error) {
	var rows []rawPosition
	err := c.do(ctx, http.MethodGet, "/v2/positions/margined", nil, nil, true, &rows)
	if err != nil {
		return model.Position{}, classify(err, traderr.KindTransient, "deltaex.positions")
	}
	for _, r := range rows {
		if r.ProductID == productID {
			return model.PositionFromSize(r.Size.Float(), r.EntryPrice.Float(), r.UnrealizedPnL.Float()), nil
		}
	}
	return model.Position{Side: model.SideFlat}, nil
}

// PlaceLimitOrder places a GTC limit order. Rejections come back as
// execution errors and are never retried here.
func (c *Client) PlaceLimitOrder(ctx context.Context, productID int64, side model.OrderSide, size, price float64) (model.Order, error) {
	op := "deltaex.orders"
	req := OrderRequest{
		ProductID:   productID,
		Size:        size,
		Side:        string(side),
		LimitPrice:  strconv.FormatFloat(price, 'f', -1, 64),
		OrderType:   "limit_order",
		TimeInForce: "gtc",
	}

	var raw rawOrder
	err := c.do(ctx, http.MethodPost, "/v2/orders", nil, req, true, &raw)
	if err != nil {
		return model.Order{}, classify(err, traderr.KindExecution, op)
	}

	log.Printf("[deltaex] order placed: id=%d %s %v @ %v", raw.ID, raw.Side, raw.Size.Float(), raw.LimitPrice.Float())
	return model.Order{
		ID:         raw.ID,
		ProductID:  raw.ProductID,
		Side:       model.OrderSide(raw.Side),
		Size:       raw.Size.Float(),
		LimitPrice: raw.LimitPrice.Float(),
		State:      raw.State,
		CreatedAt:  c.now(),
	}, nil
}
