// Package chat manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package chat

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// side gives up on it.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client represents one live connection. It owns its inbound and outbound
// message flow; the hub's registries hold references to it but never take
// ownership.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	addr string

	identity      string
	authenticated bool
	room          string

	// closed and departing are guarded by hub.connMu.
	closed    bool
	departing bool

	maxMessageSize int64
	limiter        *rateLimiter
	logger         *slog.Logger
}

// NewClient creates a Client for an accepted connection. The identity and
// room come from the transport layer; the chat core never resolves either
// itself.
func NewClient(conn *websocket.Conn, hub *Hub, addr, identity string, authenticated bool, room string) *Client {
	if conn != nil {
		conn.SetReadLimit(hub.opts.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, hub.opts.SendBuffer),
		hub:            hub,
		addr:           addr,
		identity:       identity,
		authenticated:  authenticated,
		room:           room,
		maxMessageSize: hub.opts.MaxMessageSize,
		limiter:        newRateLimiter(hub.opts.RateLimitBurst, hub.opts.RateLimitRefill),
		logger:         hub.logger,
	}
}

// ID returns the connection's unique id.
func (c *Client) ID() string {
	return c.id
}

// Identity returns the identity this connection was accepted with.
func (c *Client) Identity() string {
	return c.identity
}

// Room returns the room this connection is subscribed to.
func (c *Client) Room() string {
	return c.room
}

// SendQueue returns the client's outbound frame queue for reading.
func (c *Client) SendQueue() <-chan []byte {
	return c.send
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("set initial read deadline", "client", c.id, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("set read deadline in pong handler", "client", c.id, "error", err)
		}
		return nil
	})
}

// handleReadError logs the error and reports whether the read loop should
// stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("inbound message exceeded size limit",
			"client", c.id, "addr", c.addr, "limit", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Info("client disconnected", "client", c.id, "addr", c.addr, "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Info("client connection closed", "client", c.id, "addr", c.addr)
	default:
		c.logger.Warn("websocket read error", "client", c.id, "addr", c.addr, "error", err)
	}
	return true
}

// checkRateLimit reports whether the next inbound message may be processed.
func (c *Client) checkRateLimit() bool {
	if c.limiter != nil && !c.limiter.allow() {
		c.logger.Warn("rate limit exceeded; discarding message",
			"client", c.id, "identity", c.identity)
		return false
	}
	return true
}

// readPump drives the connection's inbound flow and triggers the full
// disconnect sequence when the transport fails or the peer leaves.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Error("close connection in readPump", "client", c.id, "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		if !c.checkRateLimit() {
			continue
		}

		c.hub.router.Route(c, raw)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings. It exits when the send channel closes or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Error("close connection in writePump", "client", c.id, "error", err)
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !c.writeMessage(payload, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeMessage writes one frame plus any queued frames, newline separated.
func (c *Client) writeMessage(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error("set write deadline", "client", c.id, "error", err)
		return false
	}

	if !ok {
		// The hub closed the channel.
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.logger.Error("write close message", "client", c.id, "error", err)
		}
		return false
	}

	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return false
	}
	if _, err := w.Write(payload); err != nil {
		return false
	}

	queued := len(c.send)
	for i := 0; i < queued; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			return false
		}
	}

	if err := w.Close(); err != nil {
		c.logger.Error("close frame writer", "client", c.id, "error", err)
		return false
	}
	return true
}

// writePing sends a keepalive ping.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("write ping", "client", c.id, "error", err)
		}
		return false
	}
	return true
}
