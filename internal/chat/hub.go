// Package chat coordinates connection registration, room broadcast, direct
// delivery, and connection cleanup via the Hub type.
package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrShuttingDown is returned by Connect once shutdown has begun.
var ErrShuttingDown = errors.New("hub is shutting down")

// Recorder is the persistence collaborator. Writes are fire-and-forget; the
// hub and router never read messages back and never wait on a write.
type Recorder interface {
	RecordRoomMessage(username, room, text string, ts time.Time)
	RecordDirectMessage(sender, recipient, text string, ts time.Time)
}

// Options tune per-connection behavior applied by the hub.
type Options struct {
	NoticeTimestamps bool
	SendBuffer       int
	MaxMessageSize   int64
	RateLimitBurst   int
	RateLimitRefill  time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 512
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 5
	}
	if o.RateLimitRefill <= 0 {
		o.RateLimitRefill = time.Second
	}
	return o
}

// Hub owns the identity registry, the room directory, and the liveness state
// of every connection. Each map has its own lock, and no lock is ever held
// across a network write or a persistence call.
type Hub struct {
	opts   Options
	logger *slog.Logger
	router *Router

	connMu       sync.RWMutex
	conns        map[*Client]bool
	shuttingDown bool

	identityMu sync.RWMutex
	identities map[string]*Client

	roomMu sync.RWMutex
	rooms  map[string]map[*Client]bool

	wg sync.WaitGroup
}

// NewHub creates a Hub that records delivered messages through rec.
func NewHub(opts Options, rec Recorder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		opts:       opts.withDefaults(),
		logger:     logger,
		conns:      make(map[*Client]bool),
		identities: make(map[string]*Client),
		rooms:      make(map[string]map[*Client]bool),
	}
	h.router = NewRouter(h, rec, logger)
	return h
}

// Router returns the hub's message router.
func (h *Hub) Router() *Router {
	return h.router
}

// Connect registers a connection and starts its pumps. Registration is
// atomic from the caller's perspective: either the connection ends up fully
// registered with its join notice emitted, or an error is returned and no
// state is retained.
func (h *Hub) Connect(c *Client) error {
	h.connMu.Lock()
	if h.shuttingDown {
		h.connMu.Unlock()
		return ErrShuttingDown
	}
	c.closed = false
	h.conns[c] = true
	total := len(h.conns)
	h.connMu.Unlock()

	if c.authenticated {
		h.Register(c.identity, c)
	}
	h.JoinRoom(c.room, c)

	h.logger.Info("client connected",
		"client", c.id, "identity", c.identity, "room", c.room,
		"addr", c.addr, "total", total)

	h.broadcastRoom(c.room, Event{
		Kind:      EventJoinNotice,
		Message:   joinNotice(c),
		Timestamp: time.Now().Format(TimeFormat),
	})

	if c.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			c.writePump()
		}()
		go func() {
			defer h.wg.Done()
			c.readPump()
		}()
	}
	return nil
}

// Disconnect unwinds a connection: leave notice first, while the departing
// connection is still a room member, then membership and identity removal,
// then the send channel is closed. Safe to call more than once.
func (h *Hub) Disconnect(c *Client) {
	h.connMu.Lock()
	if c.departing || !h.conns[c] {
		h.connMu.Unlock()
		return
	}
	c.departing = true
	h.connMu.Unlock()

	h.broadcastRoom(c.room, Event{
		Kind:      EventLeaveNotice,
		Message:   fmt.Sprintf("%s has left the chat.", c.identity),
		Timestamp: time.Now().Format(TimeFormat),
	})

	h.LeaveRoom(c.room, c)
	if c.authenticated {
		h.Unregister(c.identity, c)
	}

	h.connMu.Lock()
	delete(h.conns, c)
	c.closed = true
	total := len(h.conns)
	h.connMu.Unlock()
	close(c.send)

	h.logger.Info("client disconnected",
		"client", c.id, "identity", c.identity, "room", c.room, "total", total)
}

func joinNotice(c *Client) string {
	if !c.authenticated {
		return fmt.Sprintf("%s has joined the unauthorized room: Please login to participate in the full chat experience.", c.identity)
	}
	return fmt.Sprintf("%s has joined the chat.", c.identity)
}

// safeSend enqueues a payload on the client's send channel without blocking.
// It reports false when the client is gone or its buffer is full.
func (h *Hub) safeSend(c *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("recovered from panic in safeSend", "panic", r)
		}
	}()

	h.connMu.RLock()
	defer h.connMu.RUnlock()

	if !h.conns[c] || c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// sendEvent encodes and enqueues an event for a single connection.
func (h *Hub) sendEvent(c *Client, ev Event) bool {
	payload, err := ev.encode(h.opts.NoticeTimestamps)
	if err != nil {
		h.logger.Error("encode event", "error", err)
		return false
	}
	return h.safeSend(c, payload)
}

// broadcastRoom delivers an event to every current member of a room,
// including the sender. Delivery to each peer is best-effort: a dead or
// backpressured peer is dropped and the rest still receive the event.
func (h *Hub) broadcastRoom(room string, ev Event) {
	payload, err := ev.encode(h.opts.NoticeTimestamps)
	if err != nil {
		h.logger.Error("encode event", "error", err)
		return
	}

	var failed []*Client
	for _, member := range h.MembersOf(room) {
		if !h.safeSend(member, payload) {
			failed = append(failed, member)
		}
	}

	for _, member := range failed {
		h.logger.Warn("dropping unresponsive client",
			"client", member.id, "identity", member.identity, "room", room)
		h.Disconnect(member)
	}
}

// shutdownClients closes every active websocket connection.
func (h *Hub) shutdownClients() {
	h.connMu.Lock()
	h.shuttingDown = true
	clients := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.connMu.Unlock()

	for _, c := range clients {
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.logger.Error("close client connection", "client", c.id, "error", err)
			}
		}
	}

	h.logger.Info("closed client connections", "count", len(clients))
}

// Shutdown closes all client connections and waits for their pumps to
// finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")
	h.shutdownClients()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached")
		return errors.New("hub shutdown timed out")
	}
}
