package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"keychat/domain"
	"keychat/errors"

	"github.com/gorilla/websocket"
)

// frameOverhead leaves room for the JSON envelope around a maximal message.
const frameOverhead = 1024

type ConnOptions struct {
	MaxMessageSize int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
}

func (o ConnOptions) pingPeriod() time.Duration {
	return (o.PongTimeout * 9) / 10
}

func (o ConnOptions) controlDeadline() time.Time {
	if o.WriteTimeout > 0 {
		return time.Now().Add(o.WriteTimeout)
	}
	return time.Now().Add(time.Second)
}

// Conn adapts a gorilla connection to the session transport.
// Reads happen on one goroutine, writes are serialized, Close and Reject are idempotent.
type Conn struct {
	ws      *websocket.Conn
	log     *slog.Logger
	options ConnOptions

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func NewConn(ws *websocket.Conn, log *slog.Logger, options ConnOptions) *Conn {
	if options.MaxMessageSize > 0 {
		ws.SetReadLimit(options.MaxMessageSize + frameOverhead)
	}
	if options.PongTimeout > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(options.PongTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(options.PongTimeout))
		})
	}
	return &Conn{ws: ws, log: log, options: options, done: make(chan struct{})}
}

func (c *Conn) Read(context.Context) (string, error) {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return "", err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		text, ok := parseMessage(data)
		if !ok {
			c.log.Debug("Ignoring frame", "size", len(data))
			continue
		}
		if c.options.MaxMessageSize > 0 && int64(len(text)) > c.options.MaxMessageSize {
			return "", fmt.Errorf("%w: %d bytes", errors.ErrMessageTooLarge, len(text))
		}
		return text, nil
	}
}

func (c *Conn) Write(_ context.Context, broadcast domain.Broadcast) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.options.WriteTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
	}
	return c.ws.WriteJSON(OutboundFrame{Event: EventMessageBroadcast, Data: broadcast})
}

// Reject sends a policy violation close frame with no reason, then closes.
func (c *Conn) Reject() error {
	return c.closeWith(websocket.ClosePolicyViolation)
}

func (c *Conn) Close() error {
	return c.closeWith(websocket.CloseNormalClosure)
}

func (c *Conn) closeWith(code int) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		// WriteControl is safe concurrently with the other writers
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), c.options.controlDeadline())
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// KeepAlive pings the peer until the connection closes or ctx ends.
// A peer missing pongs for PongTimeout makes the pending Read fail.
func (c *Conn) KeepAlive(ctx context.Context) {
	if c.options.PongTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(c.options.pingPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, c.options.controlDeadline()); err != nil {
				c.log.Debug("Ping failed", "error", err)
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
