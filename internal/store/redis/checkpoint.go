// Package redis checkpoints indicator engine state and publishes bot status
// so a restart can resume without a full history warm-up and dashboards can
// read the latest readings.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"deltabot/internal/indicator"
)

const (
	// A snapshot older than this is stale: too many candles have passed to
	// trust replay, fall back to a fresh history warm-up.
	defaultSnapshotTTL = 24 * time.Hour

	statusTTL = 10 * time.Minute
)

// Config configures the checkpoint store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Store persists engine snapshots and status keys in Redis.
type Store struct {
	client *goredis.Client
	symbol string
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// New creates a checkpoint store and pings the server.
func New(cfg Config, symbol string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Store{client: client, symbol: symbol}, nil
}

func (s *Store) snapshotKey() string {
	return fmt.Sprintf("deltabot:snapshot:%s", s.symbol)
}

func (s *Store) statusKey() string {
	return fmt.Sprintf("deltabot:status:%s", s.symbol)
}

// SaveSnapshot writes the engine snapshot with a staleness TTL.
func (s *Store) SaveSnapshot(ctx context.Context, snap *indicator.EngineSnapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(), data, defaultSnapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.snapshotKey(), err)
	}
	return nil
}

// LoadSnapshot reads the last saved engine snapshot. Returns (nil, nil)
// when no snapshot exists or it has expired.
func (s *Store) LoadSnapshot(ctx context.Context) (*indicator.EngineSnapshot, error) {
	data, err := s.client.Get(ctx, s.snapshotKey()).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.snapshotKey(), err)
	}
	snap, err := indicator.UnmarshalSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Status is the dashboard-facing view of the bot, refreshed every tick.
type Status struct {
	Symbol       string  `json:"symbol"`
	Variant      string  `json:"variant"`
	State        string  `json:"state"`
	Fast         float64 `json:"fast"`
	Slow         float64 `json:"slow"`
	Position     string  `json:"position"`
	LastBoundary int64   `json:"last_boundary"`
	Halted       bool    `json:"halted"`
	UpdatedAt    string  `json:"updated_at"`
}

// PublishStatus writes the status key with a short TTL so a dead bot's
// status disappears instead of going stale.
func (s *Store) PublishStatus(ctx context.Context, st Status) error {
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.statusKey(), data, statusTTL).Err()
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
