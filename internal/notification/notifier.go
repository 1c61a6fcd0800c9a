// Package notification delivers trading events (signals, fills, errors,
// lifecycle) to external channels: Telegram, generic webhooks, and a
// websocket log stream. Delivery is best-effort — a dead channel never
// blocks or fails the trading loop.
package notification

import (
	"context"
	"log"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Symbol  string     `json:"symbol,omitempty"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts to the process log. It is the fallback channel
// when no external channel is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans one alert out to every configured channel. Individual channel
// failures are logged and swallowed.
type Multi struct {
	channels []Notifier
}

func NewMulti(channels ...Notifier) *Multi {
	return &Multi{channels: channels}
}

func (m *Multi) Send(ctx context.Context, alert Alert) error {
	for _, ch := range m.channels {
		if err := ch.Send(ctx, alert); err != nil {
			log.Printf("[notify] channel %T failed: %v", ch, err)
		}
	}
	return nil
}

// Close shuts down channels that hold connections.
func (m *Multi) Close() error {
	for _, ch := range m.channels {
		if closer, ok := ch.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
	return nil
}
