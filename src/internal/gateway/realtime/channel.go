// Package realtime is the WebSocket client the wallet uses to talk to the
// backend in real time.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/log"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Config struct {
	URL          string
	Header       http.Header
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Channel keeps one connection open and reconnects with exponential backoff
// when it drops. Handlers run on the reader goroutine.
type Channel struct {
	cfg    Config
	dialer *websocket.Dialer
	log    log.Log

	connected atomic.Bool

	connMu sync.Mutex
	conn   *websocket.Conn

	handlersMu sync.RWMutex
	onMessage  []func(model.InboundMessage)
	onChange   []func(bool)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewChannel(cfg Config, logger log.Log) *Channel {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 30 * time.Second
	}
	return &Channel{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

func (c *Channel) OnMessage(fn func(model.InboundMessage)) {
	c.handlersMu.Lock()
	c.onMessage = append(c.onMessage, fn)
	c.handlersMu.Unlock()
}

func (c *Channel) OnConnectionChange(fn func(connected bool)) {
	c.handlersMu.Lock()
	c.onChange = append(c.onChange, fn)
	c.handlersMu.Unlock()
}

func (c *Channel) IsConnected() bool {
	return c.connected.Load()
}

// Start connects in the background. It returns immediately; use
// OnConnectionChange to learn when the connection is up.
func (c *Channel) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	backoff := c.cfg.ReconnectMin
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("realtime-channel", fmt.Sprintf("dial failed: %v", err), "run", fmt.Sprintf("retry_in=%s", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.cfg.ReconnectMax {
				backoff = c.cfg.ReconnectMax
			}
			continue
		}
		backoff = c.cfg.ReconnectMin

		c.connMu.Lock()
		c.conn = conn
		c.connMu.Unlock()
		c.setConnected(true)

		stopPing := make(chan struct{})
		go c.ping(conn, stopPing)
		c.read(ctx, conn)
		close(stopPing)

		c.connMu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()
		_ = conn.Close()
		c.setConnected(false)

		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Channel) read(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				c.log.Error("realtime-channel", fmt.Sprintf("connection lost: %v", err), "read", "")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg model.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			c.log.Error("realtime-channel", "dropping malformed message", "read", string(data))
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Channel) ping(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Channel) dispatch(msg model.InboundMessage) {
	c.handlersMu.RLock()
	handlers := append([]func(model.InboundMessage){}, c.onMessage...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(msg)
	}
}

func (c *Channel) setConnected(connected bool) {
	if c.connected.Swap(connected) == connected {
		return
	}
	c.log.Info("realtime-channel", "connection state changed", "setConnected", fmt.Sprintf("connected=%t", connected))
	c.handlersMu.RLock()
	handlers := append([]func(bool){}, c.onChange...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(connected)
	}
}

// Emit writes one event. It fails with NetworkUnavailable when there is no
// open connection.
func (c *Channel) Emit(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return model.NewError(model.KindNetworkUnavailable, "real-time channel is not connected")
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = c.conn.Close()
		return model.WrapError(model.KindNetworkUnavailable, err, "emit %s", event)
	}
	return nil
}

// Close stops reconnecting and closes the current connection.
func (c *Channel) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}
	c.connMu.Unlock()

	<-c.done
	return nil
}
