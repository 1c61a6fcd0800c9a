// Package config loads all bot configuration from environment variables,
// optionally seeded from a .env file. Configuration is read once at startup
// and never mutated; a missing required variable is fatal.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Delta Exchange credentials
	DeltaAPIKey    string
	DeltaAPISecret string
	DeltaRegion    string // "india" or "global"
	UseTestnet     bool

	// Trading
	Symbol        string // Delta product symbol, e.g. "BTCUSD"
	LotSize       float64
	TimeframeMin  int
	PollInterval  time.Duration
	SettleDelay   time.Duration
	Strategy      string // "rsi_sma" or "ema"
	BinanceSymbol string // spot symbol feeding the RSI variant, e.g. "BTCUSDT"
	DryRun        bool

	// Indicator periods
	RSIPeriod int
	SMAPeriod int
	EMAPeriod int

	// Notification channels (each optional)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
	LogStreamURL     string

	// Infrastructure (each optional except SQLite)
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	JournalRetain int
	MetricsAddr   string

	// Cron expression for periodic status reports, empty disables them
	StatusCron string

	LogLevel string
}

// Load reads configuration, first merging a .env file if one exists.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env file")
	}

	return &Config{
		DeltaAPIKey:    mustEnv("DELTA_API_KEY"),
		DeltaAPISecret: mustEnv("DELTA_API_SECRET"),
		DeltaRegion:    getEnv("DELTA_REGION", "india"),
		UseTestnet:     getBool("USE_TESTNET", false),

		Symbol:        mustEnv("SYMBOL"),
		LotSize:       getFloat("LOT_SIZE", 1),
		TimeframeMin:  getInt("TIMEFRAME_MINUTES", 15),
		PollInterval:  getDuration("POLL_INTERVAL_S", 30*time.Second),
		SettleDelay:   getDuration("SETTLE_DELAY_S", 5*time.Second),
		Strategy:      getEnv("STRATEGY", "rsi_sma"),
		BinanceSymbol: getEnv("BINANCE_SYMBOL", ""),
		DryRun:        getBool("DRY_RUN", false),

		RSIPeriod: getInt("RSI_PERIOD", 14),
		SMAPeriod: getInt("SMA_PERIOD", 21),
		EMAPeriod: getInt("EMA_PERIOD", 200),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		LogStreamURL:     getEnv("LOGSTREAM_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/trades.db"),
		JournalRetain: getInt("JOURNAL_RETAIN", 10000),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		StatusCron: getEnv("STATUS_CRON", "0 * * * *"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate enforces cross-field constraints that mustEnv cannot express.
func (c *Config) Validate() {
	switch c.Strategy {
	case "rsi_sma":
		if c.BinanceSymbol == "" {
			log.Fatalf("[config] BINANCE_SYMBOL required for the rsi_sma strategy")
		}
	case "ema":
	default:
		log.Fatalf("[config] unknown STRATEGY %q (want rsi_sma or ema)", c.Strategy)
	}
	if c.LotSize <= 0 {
		log.Fatalf("[config] LOT_SIZE must be positive, got %v", c.LotSize)
	}
	if c.TimeframeMin <= 0 {
		log.Fatalf("[config] TIMEFRAME_MINUTES must be positive, got %d", c.TimeframeMin)
	}
	if c.RSIPeriod < 2 || c.SMAPeriod < 1 || c.EMAPeriod < 2 {
		log.Fatalf("[config] invalid indicator periods: rsi=%d sma=%d ema=%d",
			c.RSIPeriod, c.SMAPeriod, c.EMAPeriod)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("[config] %s must be an integer, got %q", key, v)
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("[config] %s must be a number, got %q", key, v)
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("[config] %s must be a boolean, got %q", key, v)
	}
	return b
}

// getDuration reads a whole number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("[config] %s must be a positive number of seconds, got %q", key, v)
	}
	return time.Duration(n) * time.Second
}
