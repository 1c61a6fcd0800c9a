package notification

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// LogStreamNotifier pushes alerts as JSON frames over a websocket to a
// monitoring endpoint (e.g. an orchestrator dashboard). The connection is
// dialed lazily and redialed after a failure on the next Send.
type LogStreamNotifier struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewLogStreamNotifier(url string) *LogStreamNotifier {
	return &LogStreamNotifier{url: url}
}

type logStreamFrame struct {
	Level   string `json:"level"`
	Symbol  string `json:"symbol,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
	TS      string `json:"ts"`
}

func (n *LogStreamNotifier) Send(ctx context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		if err := n.dial(ctx); err != nil {
			return err
		}
	}

	frame, _ := json.Marshal(logStreamFrame{
		Level:   string(alert.Level),
		Symbol:  alert.Symbol,
		Title:   alert.Title,
		Message: alert.Message,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
	})

	n.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := n.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		// Drop the connection, redial on the next alert.
		n.conn.Close()
		n.conn = nil
		return err
	}
	return nil
}

func (n *LogStreamNotifier) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, n.url, nil)
	if err != nil {
		return err
	}
	n.conn = conn
	log.Printf("[logstream] connected to %s", n.url)
	return nil
}

// Close shuts the stream down cleanly.
func (n *LogStreamNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	n.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
	err := n.conn.Close()
	n.conn = nil
	return err
}
