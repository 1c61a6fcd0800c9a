package deltaex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deltabot/internal/model"
	"deltabot/internal/traderr"
)

func fixedClient(baseURL string) *Client {
	c := New(Config{APIKey: "key", APISecret: "secret", BaseURL: baseURL})
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestSign_KnownVectors(t *testing.T) {
	c := fixedClient("")
	// message = method + timestamp + path + body
	got := c.Sign("GET" + "1700000000" + "/v2/positions/margined")
	want := "7612c62b31f3fe0f394c90e852bb69a04901ec6237faf6cbb10d8e5963eef48d"
	if got != want {
		t.Errorf("Sign()=%s, want %s", got, want)
	}

	c.apiSecret = "topsecret"
	got = c.Sign("POST" + "1700000000" + "/v2/orders" + `{"a":1}`)
	want = "8eac41f725a4574627cc2f7decd2932d3fa87545882152e37d2ccd2fa93eecd1"
	if got != want {
		t.Errorf("Sign()=%s, want %s", got, want)
	}
}

func TestAuthHeaders(t *testing.T) {
	c := fixedClient("")
	h := c.authHeaders("GET", "/v2/wallet/balances", "")
	if h["api-key"] != "key" {
		t.Errorf("api-key=%q, want key", h["api-key"])
	}
	if h["timestamp"] != "1700000000" {
		t.Errorf("timestamp=%q, want 1700000000", h["timestamp"])
	}
	if h["signature"] == "" {
		t.Error("signature header missing")
	}
}

func TestBaseURL_Selection(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{Testnet: true}, testnetURL},
		{Config{Region: "india"}, mainnetIndiaURL},
		{Config{}, mainnetURL},
		{Config{Testnet: true, Region: "india"}, testnetURL}, // testnet wins
	}
	for _, tc := range cases {
		if got := New(tc.cfg).BaseURL(); got != tc.want {
			t.Errorf("cfg=%+v: BaseURL()=%s, want %s", tc.cfg, got, tc.want)
		}
	}
}

func TestNumber_MixedRepresentations(t *testing.T) {
	var row struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 42.5, "b": "-0.001", "c": null}`), &row); err != nil {
		t.Fatal(err)
	}
	if row.A.Float() != 42.5 || row.B.Float() != -0.001 || row.C.Float() != 0 {
		t.Errorf("got %v %v %v, want 42.5 -0.001 0", row.A, row.B, row.C)
	}
}

func TestPosition_SignedSizeEncodesSide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("signature") == "" {
			t.Error("positions request not signed")
		}
		w.Write([]byte(`{"success": true, "result": [
			{"product_id": 1, "size": -3, "entry_price": "2500.5", "unrealized_pnl": "12.25"},
			{"product_id": 2, "size": 5, "entry_price": "100", "unrealized_pnl": 0}
		]}`))
	}))
	defer srv.Close()

	c := fixedClient(srv.URL)

	pos, err := c.Position(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if pos.Side != model.SideShort || pos.Size != 3 || pos.EntryPrice != 2500.5 {
		t.Errorf("got %+v, want SHORT size=3 entry=2500.5", pos)
	}

	pos, err = c.Position(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if pos.Side != model.SideLong || pos.Size != 5 {
		t.Errorf("got %+v, want LONG size=5", pos)
	}

	// Unlisted product reports FLAT
	pos, err = c.Position(context.Background(), 99)
	if err != nil {
		t.Fatal(err)
	}
	if pos.Side != model.SideFlat {
		t.Errorf("got %+v, want FLAT", pos)
	}
}

func TestOrderBook_EmptySideIsExecutionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "result": {"buy": [], "sell": [{"price": "101", "size": 1}]}}`))
	}))
	defer srv.Close()

	_, err := fixedClient(srv.URL).OrderBook(context.Background(), "BTCUSD")
	if !traderr.IsExecution(err) {
		t.Errorf("err=%v, want execution kind", err)
	}
}

func TestDo_AuthStatusIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success": false, "error": {"code": "invalid_api_key"}}`))
	}))
	defer srv.Close()

	_, err := fixedClient(srv.URL).WalletBalances(context.Background())
	if !traderr.IsAuth(err) {
		t.Errorf("err=%v, want auth kind", err)
	}
}

func TestPlaceLimitOrder_RejectionIsExecutionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode order request: %v", err)
		}
		if req.OrderType != "limit_order" || req.TimeInForce != "gtc" {
			t.Errorf("unexpected order fields: %+v", req)
		}
		if req.LimitPrice != "2501.5" {
			t.Errorf("limit_price=%q, want string 2501.5", req.LimitPrice)
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "error": {"code": "insufficient_margin"}}`))
	}))
	defer srv.Close()

	_, err := fixedClient(srv.URL).PlaceLimitOrder(context.Background(), 1, model.OrderBuy, 2, 2501.5)
	if !traderr.IsExecution(err) {
		t.Errorf("err=%v, want execution kind", err)
	}
}

func TestCandles_SortedOldestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "result": [
			{"time": 1800, "open": 2, "high": 3, "low": 1, "close": 2.5, "volume": 10},
			{"time": 900, "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 20}
		]}`))
	}))
	defer srv.Close()

	candles, err := fixedClient(srv.URL).Candles(context.Background(), "BTCUSD", "15m", 0, 3600)
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 2 || candles[0].StartTime != 900 || candles[1].StartTime != 1800 {
		t.Errorf("candles not sorted oldest-first: %+v", candles)
	}
}
