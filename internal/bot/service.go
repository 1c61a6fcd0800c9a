// Package bot is the top-level orchestrator: it wires the feed, indicator
// engine, strategy, executor, and notification channels, and runs the poll
// loop. All trading decisions happen on a single goroutine, so ticks never
// overlap and indicator state needs no locking.
package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"deltabot/config"
	"deltabot/internal/execution"
	"deltabot/internal/feed"
	"deltabot/internal/indicator"
	"deltabot/internal/logger"
	"deltabot/internal/metrics"
	"deltabot/internal/model"
	"deltabot/internal/notification"
	"deltabot/internal/strategy"
	redisstore "deltabot/internal/store/redis"
	"deltabot/internal/traderr"
	"deltabot/pkg/deltaex"
)

const snapshotInterval = time.Minute

// checkpointStore is the slice of the Redis store the bot uses.
type checkpointStore interface {
	SaveSnapshot(ctx context.Context, snap *indicator.EngineSnapshot) error
	LoadSnapshot(ctx context.Context) (*indicator.EngineSnapshot, error)
	PublishStatus(ctx context.Context, st redisstore.Status) error
	Client() *goredis.Client
	Close() error
}

// Service is the trading bot. One Service trades one symbol.
type Service struct {
	cfg *config.Config

	delta    *deltaex.Client
	product  deltaex.Product
	venue    execution.Venue
	source   feed.Source
	poller   *feed.Poller
	engine   *indicator.Engine
	executor *execution.Executor
	journal  *execution.Journal
	notifier notification.Notifier
	store    checkpointStore // nil when REDIS_ADDR is empty
	prom     *metrics.Metrics
	health   *metrics.HealthStatus
	msrv     *metrics.Server
	cron     *cron.Cron

	// pending holds the latest unexecuted signal. A newer signal overwrites
	// an older one; there is never more than one in flight.
	pending *strategy.Signal

	// lastSide is the most recently observed position side, used for
	// crossover hysteresis when the venue is briefly unreachable.
	lastSide model.Side

	// halted disables order placement after an auth failure. Polling and
	// indicator updates continue so readings stay warm.
	halted bool

	// lastSnapshot is when the engine was last checkpointed. Snapshots run
	// on the tick goroutine, which owns the engine.
	lastSnapshot time.Time

	// statusDue is set by the cron goroutine and serviced by the next tick,
	// so the engine is only ever read from the tick goroutine.
	statusDue atomic.Bool
}

// New wires a Service from config. It connects to the venue and optional
// infrastructure but does not fetch history yet — that happens in Run.
func New(cfg *config.Config) (*Service, error) {
	svc := &Service{
		cfg:      cfg,
		prom:     metrics.NewMetrics(),
		health:   metrics.NewHealthStatus(),
		lastSide: model.SideFlat,
	}

	svc.delta = deltaex.New(deltaex.Config{
		APIKey:    cfg.DeltaAPIKey,
		APISecret: cfg.DeltaAPISecret,
		Region:    cfg.DeltaRegion,
		Testnet:   cfg.UseTestnet,
	})

	if cfg.RedisAddr != "" {
		store, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, cfg.Symbol)
		if err != nil {
			log.Printf("[bot] WARNING: redis unavailable, running without checkpoints: %v", err)
		} else {
			svc.store = store
		}
	}

	os.MkdirAll("data", 0o755)
	journal, err := execution.NewJournal(cfg.SQLitePath, cfg.JournalRetain)
	if err != nil {
		log.Printf("[bot] WARNING: trade journal init failed: %v (continuing without journal)", err)
	} else {
		svc.journal = journal
	}

	svc.notifier = buildNotifier(cfg)
	svc.msrv = metrics.NewServer(cfg.MetricsAddr, svc.health)
	return svc, nil
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	var channels []notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		channels = append(channels, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.LogStreamURL != "" {
		channels = append(channels, notification.NewLogStreamNotifier(cfg.LogStreamURL))
	}
	if len(channels) == 0 {
		return notification.NewLogNotifier()
	}
	return notification.NewMulti(channels...)
}

// Run starts the bot and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	cfg := svc.cfg
	log.Printf("[bot] starting: symbol=%s strategy=%s tf=%dm testnet=%v dry_run=%v",
		cfg.Symbol, cfg.Strategy, cfg.TimeframeMin, cfg.UseTestnet, cfg.DryRun)

	// ---- Resolve the traded product ----
	product, err := svc.delta.FindProduct(ctx, cfg.Symbol)
	if err != nil {
		return fmt.Errorf("resolve product %s: %w", cfg.Symbol, err)
	}
	svc.product = product
	log.Printf("[bot] product %s resolved: id=%d state=%s", product.Symbol, product.ID, product.State)

	// ---- Probe credentials and log balances ----
	svc.checkWallet(ctx)

	// ---- Venue: live or paper ----
	if cfg.DryRun {
		svc.venue = execution.NewPaperVenue(newLiveVenue(svc.delta, product))
		log.Printf("[bot] DRY RUN: orders are simulated, quotes are live")
	} else {
		svc.venue = newLiveVenue(svc.delta, product)
	}
	svc.executor = execution.NewExecutor(svc.venue, svc.journal, cfg.Symbol, cfg.LotSize, cfg.SettleDelay)

	// ---- Candle source per strategy variant ----
	variant := indicator.VariantRSISMA
	if cfg.Strategy == "ema" {
		variant = indicator.VariantPriceEMA
	}
	if variant == indicator.VariantRSISMA {
		svc.source = feed.NewBinanceSource(cfg.BinanceSymbol, cfg.TimeframeMin)
	} else {
		svc.source = feed.NewDeltaSource(svc.delta, cfg.Symbol, cfg.TimeframeMin)
	}

	// ---- Indicator engine: restore from checkpoint or warm up ----
	engineCfg := indicator.Config{
		Variant:   variant,
		RSIPeriod: cfg.RSIPeriod,
		SMAPeriod: cfg.SMAPeriod,
		EMAPeriod: cfg.EMAPeriod,
	}
	lastBoundary, err := svc.initEngine(ctx, engineCfg)
	if err != nil {
		return fmt.Errorf("indicator init: %w", err)
	}
	svc.poller = feed.NewPoller(svc.source, cfg.TimeframeMin, lastBoundary)

	// ---- Periodic status reports ----
	// The cron goroutine only flags the report; the next tick renders it,
	// keeping all engine reads on the tick goroutine.
	if cfg.StatusCron != "" {
		svc.cron = cron.New()
		if _, err := svc.cron.AddFunc(cfg.StatusCron, func() { svc.statusDue.Store(true) }); err != nil {
			log.Printf("[bot] WARNING: invalid STATUS_CRON %q: %v", cfg.StatusCron, err)
		} else {
			svc.cron.Start()
		}
	}

	// ---- Observability ----
	svc.msrv.Start()
	if svc.store != nil {
		svc.health.StartLivenessChecker(ctx, svc.store.Client(), nil, 30*time.Second)
	}
	svc.lastSnapshot = time.Now()
	svc.health.SetVenueOK(true)

	svc.notify(ctx, notification.AlertInfo, "bot started",
		fmt.Sprintf("strategy=%s timeframe=%dm state=%s", cfg.Strategy, cfg.TimeframeMin, svc.engine.State()))

	// ---- Poll loop: single goroutine, ticks never overlap ----
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			svc.shutdown()
			return nil
		case <-ticker.C:
			svc.tick(ctx)
		}
	}
}

// checkWallet probes the authenticated API and logs non-zero balances. A
// rejected key is not fatal: it halts order placement via onError while
// polling continues, so indicator state stays warm for a later restart.
func (svc *Service) checkWallet(ctx context.Context) {
	balances, err := svc.delta.WalletBalances(ctx)
	if err != nil {
		svc.onError(ctx, err, "wallet")
		return
	}
	for _, b := range balances {
		if b.Balance.Float() > 0 {
			log.Printf("[bot] balance: %s %.8f (available %.8f)",
				b.AssetSymbol, b.Balance.Float(), b.AvailableBalance.Float())
		}
	}
}

// initEngine restores the engine from a Redis checkpoint when one is fresh
// enough, otherwise warms up from history. Returns the boundary of the last
// candle the engine has consumed.
func (svc *Service) initEngine(ctx context.Context, engineCfg indicator.Config) (int64, error) {
	tf := int64(svc.cfg.TimeframeMin) * 60
	boundary := feed.LastCompletedBoundary(time.Now(), svc.cfg.TimeframeMin)

	if svc.store != nil {
		snap, err := svc.store.LoadSnapshot(ctx)
		if err != nil {
			log.Printf("[bot] snapshot load failed: %v", err)
		}
		if snap != nil {
			behind := int((boundary - snap.LastBoundary) / tf)
			if snap.LastBoundary > 0 && behind >= 0 && behind <= svc.engineReplayLimit() {
				engine, err := indicator.RestoreEngine(engineCfg, snap)
				if err != nil {
					log.Printf("[bot] snapshot rejected: %v", err)
				} else {
					svc.engine = engine
					replayed, err := svc.replayDelta(ctx, snap.LastBoundary)
					if err != nil {
						log.Printf("[bot] delta replay failed: %v", err)
					}
					log.Printf("[bot] engine restored from checkpoint (boundary=%d, replayed %d candles)",
						svc.engine.LastBoundary(), replayed)
					last := svc.engine.LastBoundary()
					if last == 0 {
						last = snap.LastBoundary
					}
					return last, nil
				}
			} else {
				log.Printf("[bot] snapshot stale (%d candles behind), warming up from history", behind)
			}
		}
	}

	// Cold start: fetch enough history for warm-up plus a comparison buffer.
	n := svc.engineMinWarmup(engineCfg) + 10
	candles, err := svc.source.History(ctx, n)
	if err != nil {
		return 0, err
	}
	engine, err := indicator.NewEngine(engineCfg)
	if err != nil {
		return 0, err
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	if err := engine.Warmup(closes); err != nil {
		return 0, err
	}
	svc.engine = engine
	last := int64(0)
	if len(candles) > 0 {
		last = candles[len(candles)-1].StartTime
	}
	log.Printf("[bot] engine warmed up on %d candles, state=%s", len(candles), engine.State())
	return last, nil
}

func (svc *Service) engineMinWarmup(engineCfg indicator.Config) int {
	e, err := indicator.NewEngine(engineCfg)
	if err != nil {
		return 0
	}
	return e.MinWarmup()
}

// engineReplayLimit bounds how many missed candles a checkpoint restore may
// replay before a clean warm-up is cheaper and safer.
func (svc *Service) engineReplayLimit() int { return 50 }

// replayDelta feeds the engine every completed candle after since.
func (svc *Service) replayDelta(ctx context.Context, since int64) (int, error) {
	boundary := feed.LastCompletedBoundary(time.Now(), svc.cfg.TimeframeMin)
	if boundary <= since {
		return 0, nil
	}
	tf := int64(svc.cfg.TimeframeMin) * 60
	missed := int((boundary - since) / tf)
	candles, err := svc.source.History(ctx, missed)
	if err != nil {
		return 0, err
	}
	replayed := 0
	for _, c := range candles {
		if c.StartTime > since {
			svc.engine.Advance(c)
			replayed++
		}
	}
	return replayed, nil
}

// tick runs one poll cycle: fetch, compute, maybe trade.
func (svc *Service) tick(ctx context.Context) {
	start := time.Now()
	defer func() { svc.prom.TickDur.Observe(time.Since(start).Seconds()) }()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(svc.cfg.Symbol, start))

	candle, err := svc.poller.Poll(ctx)
	if err != nil {
		svc.onError(ctx, err, "feed")
		svc.health.SetFeedOK(false)
		return
	}
	svc.health.SetFeedOK(true)
	svc.prom.LastCandleAge.Set(float64(start.Unix() - svc.poller.LastBoundary()))

	if candle != nil {
		svc.onCandle(ctx, *candle)
	}

	if svc.pending != nil {
		svc.executePending(ctx)
	}

	if svc.store != nil {
		svc.publishStatus(ctx)
		svc.maybeSnapshot(ctx)
	}

	if svc.statusDue.Swap(false) {
		svc.statusReport(ctx)
	}
}

// onCandle advances the engine and evaluates the crossover.
func (svc *Service) onCandle(ctx context.Context, candle model.Candle) {
	cur := svc.engine.Advance(candle)
	prev := svc.engine.Previous()
	svc.prom.CandlesTotal.Inc()
	svc.health.SetLastCandleTime(time.Unix(candle.StartTime, 0))
	if cur.Ready {
		svc.prom.FastValue.Set(cur.Fast)
		svc.prom.SlowValue.Set(cur.Slow)
	}
	log.Printf("[bot] candle %d close=%.2f fast=%.2f slow=%.2f state=%s",
		candle.StartTime, candle.Close, cur.Fast, cur.Slow, svc.engine.State())
	svc.notify(ctx, notification.AlertInfo, "candle closed",
		fmt.Sprintf("close=%.2f fast=%.2f slow=%.2f state=%s",
			candle.Close, cur.Fast, cur.Slow, svc.engine.State()))

	held := svc.refreshPosition(ctx)
	sig := strategy.Evaluate(prev, cur, held, candle.StartTime)
	if sig == nil {
		return
	}
	if svc.pending != nil {
		log.Printf("[bot] overwriting pending %s signal with new %s signal",
			svc.pending.Direction, sig.Direction)
	}
	svc.pending = sig
	svc.prom.SignalsTotal.WithLabelValues(string(sig.Direction)).Inc()
	svc.notify(ctx, notification.AlertInfo, fmt.Sprintf("%s signal", sig.Direction), sig.Reason)
}

// refreshPosition fetches the venue position, falling back to the last
// observed side when the venue is unreachable.
func (svc *Service) refreshPosition(ctx context.Context) model.Side {
	pos, err := svc.venue.Position(ctx)
	if err != nil {
		svc.onError(ctx, err, "position")
		return svc.lastSide
	}
	svc.lastSide = pos.Side
	svc.prom.PositionState.Set(sideGauge(pos.Side))
	return pos.Side
}

// executePending runs the pending signal through the executor exactly once.
// The signal is consumed whatever the outcome — a failed attempt is never
// retried against a market that has moved on; the next crossover produces
// the next signal. Order placement is skipped entirely while halted, the
// signal stays pending only in that case so state remains visible.
func (svc *Service) executePending(ctx context.Context) {
	if svc.halted {
		return
	}
	sig := svc.pending
	svc.pending = nil

	snapJSON, err := svc.engine.Snapshot().Marshal()
	if err != nil {
		snapJSON = nil
	}

	wasOpposed := svc.lastSide.Opposes(sig.Direction)
	if err := svc.executor.Execute(ctx, sig, snapJSON); err != nil {
		svc.onError(ctx, err, "execute")
		if traderr.IsExecution(err) {
			svc.notify(ctx, notification.AlertCritical, "execution aborted", err.Error())
		}
		return
	}

	if wasOpposed {
		svc.prom.OrdersTotal.WithLabelValues(string(execution.ActionClose)).Inc()
	}
	svc.prom.OrdersTotal.WithLabelValues(string(execution.ActionOpen)).Inc()
	svc.lastSide = sig.Direction
	svc.prom.PositionState.Set(sideGauge(sig.Direction))
	svc.notify(ctx, notification.AlertInfo, fmt.Sprintf("position now %s", sig.Direction),
		fmt.Sprintf("%s — lot %.4f", sig.Reason, svc.cfg.LotSize))
}

// onError classifies, counts, and logs an error. Auth errors halt trading.
func (svc *Service) onError(ctx context.Context, err error, where string) {
	kind := traderr.KindOf(err)
	svc.prom.ErrorsTotal.WithLabelValues(kind.String()).Inc()
	log.Printf("[bot] %s error (%s): %v", where, kind, err)

	switch {
	case traderr.IsAuth(err):
		if !svc.halted {
			svc.halted = true
			svc.prom.TradingHalted.Set(1)
			svc.health.SetTradingHalted(true)
			svc.notify(ctx, notification.AlertCritical, "trading halted",
				"venue rejected credentials; polling continues, orders disabled until restart")
		}
	case traderr.IsDataIntegrity(err):
		svc.notify(ctx, notification.AlertWarning, "data integrity", err.Error())
	}
}

func (svc *Service) publishStatus(ctx context.Context) {
	cur := svc.engine.Current()
	st := redisstore.Status{
		Symbol:       svc.cfg.Symbol,
		Variant:      string(svc.engine.Variant()),
		State:        svc.engine.State().String(),
		Fast:         cur.Fast,
		Slow:         cur.Slow,
		Position:     string(svc.lastSide),
		LastBoundary: svc.poller.LastBoundary(),
		Halted:       svc.halted,
	}
	if err := svc.store.PublishStatus(ctx, st); err != nil {
		log.Printf("[bot] status publish failed: %v", err)
	}
}

// statusReport sends a periodic human-readable summary, including a live
// projection of what the readings would be if the forming candle closed at
// the current mark price.
func (svc *Service) statusReport(ctx context.Context) {
	cur := svc.engine.Current()
	msg := fmt.Sprintf("state=%s fast=%.2f slow=%.2f position=%s halted=%v",
		svc.engine.State(), cur.Fast, cur.Slow, svc.lastSide, svc.halted)
	if mark, err := svc.delta.Ticker(ctx, svc.cfg.Symbol); err == nil {
		proj := svc.engine.Project(mark)
		msg += fmt.Sprintf(" | mark=%.2f projected fast=%.2f slow=%.2f", mark, proj.Fast, proj.Slow)
	}
	svc.notify(ctx, notification.AlertInfo, "status", msg)
}

// maybeSnapshot checkpoints engine state at most once per snapshotInterval.
// It runs on the tick goroutine, which owns the engine, so a checkpoint can
// never capture a half-applied candle.
func (svc *Service) maybeSnapshot(ctx context.Context) {
	if time.Since(svc.lastSnapshot) < snapshotInterval {
		return
	}
	svc.lastSnapshot = time.Now()
	if err := svc.store.SaveSnapshot(ctx, svc.engine.Snapshot()); err != nil {
		log.Printf("[bot] snapshot save failed: %v", err)
		return
	}
	svc.prom.SnapshotSaves.Inc()
}

// shutdown saves a final checkpoint and closes connections.
func (svc *Service) shutdown() {
	log.Printf("[bot] shutdown signal received")
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if svc.cron != nil {
		svc.cron.Stop()
	}
	if svc.store != nil {
		if err := svc.store.SaveSnapshot(shutCtx, svc.engine.Snapshot()); err != nil {
			log.Printf("[bot] final snapshot failed: %v", err)
		} else {
			log.Printf("[bot] final snapshot saved")
		}
	}

	svc.notify(shutCtx, notification.AlertWarning, "bot stopped",
		fmt.Sprintf("last position %s, state %s", svc.lastSide, svc.engine.State()))

	if closer, ok := svc.notifier.(interface{ Close() error }); ok {
		closer.Close()
	}
	if svc.journal != nil {
		svc.journal.Close()
	}
	if svc.store != nil {
		svc.store.Close()
	}
	svc.msrv.Stop(shutCtx)
	log.Printf("[bot] shutdown complete")
}

func (svc *Service) notify(ctx context.Context, level notification.AlertLevel, title, msg string) {
	alert := notification.Alert{Level: level, Symbol: svc.cfg.Symbol, Title: title, Message: msg}
	if err := svc.notifier.Send(ctx, alert); err != nil {
		log.Printf("[bot] notification failed: %v", err)
	}
}

func sideGauge(s model.Side) float64 {
	switch s {
	case model.SideLong:
		return 1
	case model.SideShort:
		return -1
	default:
		return 0
	}
}
