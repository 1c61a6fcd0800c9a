package execution

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Action labels what a journaled order did to the position.
type Action string

const (
	ActionOpen  Action = "OPEN"
	ActionClose Action = "CLOSE"
)

// TradeRecord is one journaled order.
type TradeRecord struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	Side         string    `json:"side"`          // buy / sell
	Size         float64   `json:"size"`          // contracts
	Price        float64   `json:"price"`         // limit price
	PositionSide string    `json:"position_side"` // LONG / SHORT being opened or closed
	Indicators   string    `json:"indicators"`    // indicator snapshot JSON at signal time
	PnL          *float64  `json:"pnl,omitempty"` // realized on close, nil on open
}

// Journal persists trade records to SQLite for audit.
type Journal struct {
	mu sync.Mutex
	db *sql.DB

	// keep only this many most recent rows; 0 disables pruning
	retain int
}

// NewJournal opens (or creates) a SQLite trade journal. retain bounds the
// number of rows kept, oldest rows are pruned past it.
func NewJournal(dbPath string, retain int) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp     DATETIME NOT NULL,
		action        TEXT NOT NULL,
		side          TEXT NOT NULL,
		size          REAL NOT NULL,
		price         REAL NOT NULL,
		position_side TEXT NOT NULL,
		indicators    TEXT,
		pnl           REAL,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_action ON trades(action);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db, retain: retain}, nil
}

// Record persists one trade record and prunes past the retention bound.
func (j *Journal) Record(rec TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (timestamp, action, side, size, price, position_side, indicators, pnl)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Format(time.RFC3339),
		string(rec.Action),
		rec.Side,
		rec.Size,
		rec.Price,
		rec.PositionSide,
		rec.Indicators,
		rec.PnL,
	)
	if err != nil {
		return err
	}

	if j.retain > 0 {
		_, err = j.db.Exec(
			`DELETE FROM trades WHERE id NOT IN (SELECT id FROM trades ORDER BY id DESC LIMIT ?)`,
			j.retain)
	}
	return err
}

// Trades returns the last limit records, newest first.
func (j *Journal) Trades(limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, timestamp, action, side, size, price, position_side, indicators, pnl
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var (
			t  TradeRecord
			ts string
		)
		if err := rows.Scan(&t.ID, &ts, &t.Action, &t.Side, &t.Size, &t.Price,
			&t.PositionSide, &t.Indicators, &t.PnL); err != nil {
			return nil, err
		}
		t.Timestamp, _ = time.Parse(time.RFC3339, ts)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
