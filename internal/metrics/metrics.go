// Package metrics exposes Prometheus metrics and a health endpoint for the
// trading bot.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	CandlesTotal  prometheus.Counter
	SignalsTotal  *prometheus.CounterVec // labels: direction
	OrdersTotal   *prometheus.CounterVec // labels: action
	ErrorsTotal   *prometheus.CounterVec // labels: kind
	TickDur       prometheus.Histogram
	SnapshotSaves prometheus.Counter

	FastValue     prometheus.Gauge
	SlowValue     prometheus.Gauge
	PositionState prometheus.Gauge // -1=short, 0=flat, 1=long
	TradingHalted prometheus.Gauge // 1 while halted on auth failure
	LastCandleAge prometheus.Gauge // seconds since the last consumed candle closed
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deltabot_candles_total",
			Help: "Completed candles consumed by the indicator engine",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deltabot_signals_total",
			Help: "Crossover signals emitted (by direction)",
		}, []string{"direction"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deltabot_orders_total",
			Help: "Orders placed (by action: OPEN, CLOSE)",
		}, []string{"action"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deltabot_errors_total",
			Help: "Errors observed in the trading loop (by kind)",
		}, []string{"kind"}),
		TickDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deltabot_tick_duration_seconds",
			Help:    "Wall time of one poll tick (fetch, compute, execute)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		SnapshotSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deltabot_snapshot_saves_total",
			Help: "Indicator engine snapshots written to Redis",
		}),
		FastValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deltabot_indicator_fast_value",
			Help: "Latest fast line value (RSI or close)",
		}),
		SlowValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deltabot_indicator_slow_value",
			Help: "Latest slow line value (SMA of RSI or EMA)",
		}),
		PositionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deltabot_position_state",
			Help: "Current position side (-1=short, 0=flat, 1=long)",
		}),
		TradingHalted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deltabot_trading_halted",
			Help: "1 while order placement is halted after an auth failure",
		}),
		LastCandleAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deltabot_last_candle_age_seconds",
			Help: "Seconds since the last consumed candle boundary",
		}),
	}

	prometheus.MustRegister(
		m.CandlesTotal,
		m.SignalsTotal,
		m.OrdersTotal,
		m.ErrorsTotal,
		m.TickDur,
		m.SnapshotSaves,
		m.FastValue,
		m.SlowValue,
		m.PositionState,
		m.TradingHalted,
		m.LastCandleAge,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedOK         bool      `json:"feed_ok"`
	VenueOK        bool      `json:"venue_ok"`
	LastCandleTime time.Time `json:"last_candle_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	TradingHalted  bool      `json:"trading_halted"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetFeedOK(v bool) {
	h.mu.Lock()
	h.FeedOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetVenueOK(v bool) {
	h.mu.Lock()
	h.VenueOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCandleTime(t time.Time) {
	h.mu.Lock()
	h.LastCandleTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetTradingHalted(v bool) {
	h.mu.Lock()
	h.TradingHalted = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.FeedOK || !h.VenueOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if h.TradingHalted {
		overallStatus = "halted"
		httpCode = http.StatusServiceUnavailable
	}

	candleAge := ""
	if !h.LastCandleTime.IsZero() {
		candleAge = time.Since(h.LastCandleTime).Round(time.Second).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		FeedOK          bool    `json:"feed_ok"`
		VenueOK         bool    `json:"venue_ok"`
		LastCandleTime  string  `json:"last_candle_time"`
		CandleAge       string  `json:"candle_age"`
		TradingHalted   bool    `json:"trading_halted"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		FeedOK:          h.FeedOK,
		VenueOK:         h.VenueOK,
		LastCandleTime:  h.LastCandleTime.Format(time.RFC3339),
		CandleAge:       candleAge,
		TradingHalted:   h.TradingHalted,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
