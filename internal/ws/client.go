// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ws implements the agent's WebSocket client. The client speaks
// msgpack event frames with a coordinating Cloudflare Durable Object,
// keeps the connection alive through the hibernation API's ping/pong
// cycle, and fans incoming events out to registered callbacks.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cvpc/internal/event"
	"cvpc/pkg/types"
)

// ErrClosed is returned by SendEvent after the client has shut down.
var ErrClosed = errors.New("ws: client closed")

// ErrNotConnected is returned by SendEvent before Connect has completed.
var ErrNotConnected = errors.New("ws: not connected")

// sendQueueSize bounds the outbound frame queue.
const sendQueueSize = 64

// Callback receives every decoded incoming event.
type Callback func(ctx context.Context, ev event.Event)

// Client is a WebSocket client for a single connection lifecycle:
// configure, Connect, exchange events, Close. It is not reusable after
// Close.
type Client struct {
	cfg    types.WSConfig
	logger *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	dialing   bool
	callbacks []Callback

	outbound  chan []byte
	connected chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient returns an unconnected client for cfg. Zero timeouts fall
// back to the package defaults.
func NewClient(cfg types.WSConfig, logger *zap.Logger) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = types.DefaultWSConnectTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = types.DefaultWSPingInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = types.DefaultWSPingTimeout
	}

	return &Client{
		cfg:       cfg,
		logger:    logger,
		outbound:  make(chan []byte, sendQueueSize),
		connected: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// OnEvent registers a callback for incoming events. Callbacks added after
// Connect still receive subsequent events.
func (c *Client) OnEvent(cb Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// Connect performs the opening handshake and starts the read and write
// loops. When cfg.Token is set it is sent as a bearer Authorization
// header during the handshake. Calling Connect on a client that is
// already connected (or mid-handshake) is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.URL == "" {
		return errors.New("ws: URL is required")
	}

	c.mu.Lock()
	if c.dialing || c.conn != nil {
		c.mu.Unlock()
		c.logger.Warn("already connected")
		return nil
	}
	c.dialing = true
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	c.logger.Info("connecting", zap.String("url", c.cfg.URL))
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
		if resp != nil {
			return fmt.Errorf("dialing %s (status %d): %w", c.cfg.URL, resp.StatusCode, err)
		}
		return fmt.Errorf("dialing %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.dialing = false
	c.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(c.cfg.PingInterval + c.cfg.PingTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PingInterval + c.cfg.PingTimeout))
	})

	close(c.connected)
	c.logger.Info("connected")

	go c.readLoop(ctx)
	go c.writeLoop()

	return nil
}

// WaitConnected blocks until the handshake completes, the client shuts
// down, or ctx ends.
func (c *Client) WaitConnected(ctx context.Context) error {
	select {
	case <-c.connected:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the connection has ended for any reason.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendEvent encodes an event and queues it for delivery. It fails fast
// when the client is not connected or already closed, and when the
// outbound queue is full.
func (c *Client) SendEvent(eventType string, data any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case <-c.connected:
	default:
		return ErrNotConnected
	}

	frame, err := event.Encode(event.New(eventType, data))
	if err != nil {
		return err
	}

	select {
	case c.outbound <- frame:
		c.logger.Debug("event queued", zap.String("type", eventType), zap.Int("bytes", len(frame)))
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return fmt.Errorf("ws: outbound queue full, dropping %q event", eventType)
	}
}

// Close shuts the connection down. It is safe to call more than once and
// from any goroutine.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			deadline := time.Now().Add(time.Second)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			conn.Close()
			c.logger.Info("disconnected")
		}
	})
	return nil
}

// readLoop receives frames until the connection ends. Only binary frames
// carry events; text frames are logged and dropped.
func (c *Client) readLoop(ctx context.Context) {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("connection closed by server")
			} else if !isShutdown(c.done) {
				c.logger.Error("read failed", zap.Error(err))
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			c.logger.Warn("non-binary frame dropped", zap.Int("message_type", messageType))
			continue
		}

		ev, err := event.Decode(data)
		if err != nil {
			c.logger.Error("bad event frame", zap.Error(err))
			continue
		}

		c.logger.Debug("event received", zap.String("type", ev.Type))
		c.dispatch(ctx, ev)
	}
}

func (c *Client) dispatch(ctx context.Context, ev event.Event) {
	c.mu.Lock()
	callbacks := make([]Callback, len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(ctx, ev)
	}
}

// writeLoop is the single writer for the connection: it drains the
// outbound queue and emits keepalive pings.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.outbound:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.PingTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				if !isShutdown(c.done) {
					c.logger.Error("write failed", zap.Error(err))
				}
				c.Close()
				return
			}
			c.logger.Debug("frame sent", zap.Int("bytes", len(frame)))
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.PingTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isShutdown(c.done) {
					c.logger.Error("ping failed", zap.Error(err))
				}
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func isShutdown(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
