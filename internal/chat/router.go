// Package chat routes inbound payloads: it validates them, decides between
// room broadcast and direct delivery, and drives persistence alongside
// delivery.
package chat

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Error and acknowledgment texts sent back to the originating connection.
const (
	invalidPayloadText = "Invalid message format. Please send a valid JSON."
	directUnauthText   = "Direct messages require a logged-in account."
	directAckText      = "Direct message sent successfully"
)

// Router turns raw inbound payloads into deliveries. A Router never fails a
// connection: malformed input is answered with an error frame to the sender
// and nothing else.
type Router struct {
	hub      *Hub
	recorder Recorder
	logger   *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewRouter creates a Router delivering through hub and recording through rec.
func NewRouter(hub *Hub, rec Recorder, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		hub:      hub,
		recorder: rec,
		logger:   logger,
		now:      time.Now,
	}
}

// Route handles one inbound payload from c. The timestamp is captured once
// and shared by persistence and delivery so both record the same instant.
func (r *Router) Route(c *Client, raw []byte) {
	var in InboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		r.logger.Warn("invalid payload", "client", c.id, "error", err)
		r.sendError(c, invalidPayloadText)
		return
	}
	if in.Message == nil {
		r.logger.Warn("payload missing message field", "client", c.id)
		r.sendError(c, invalidPayloadText)
		return
	}

	text := *in.Message
	now := r.now()
	stamp := now.Format(TimeFormat)

	// A self-addressed message is never direct.
	if in.Recipient != "" && in.Recipient != c.identity {
		r.routeDirect(c, in.Recipient, text, now, stamp)
		return
	}
	r.routeBroadcast(c, text, now, stamp)
}

// routeDirect persists the message unconditionally, then delivers it if the
// recipient is online. The sender is acknowledged either way; an offline
// recipient only ever sees the message in the persisted log.
func (r *Router) routeDirect(c *Client, recipient, text string, now time.Time, stamp string) {
	if !c.authenticated {
		// An anonymous sender has no stable identity to answer back to.
		r.sendError(c, directUnauthText)
		return
	}

	r.recorder.RecordDirectMessage(c.identity, recipient, text, now)

	if peer, ok := r.hub.Lookup(recipient); ok {
		delivered := r.hub.sendEvent(peer, Event{
			Kind:      EventDirectDeliver,
			Message:   text,
			Sender:    c.identity,
			Timestamp: stamp,
		})
		if !delivered {
			r.logger.Warn("direct delivery failed",
				"sender", c.identity, "recipient", recipient)
		}
	} else {
		r.logger.Debug("direct recipient offline",
			"sender", c.identity, "recipient", recipient)
	}

	ack, err := json.Marshal(ackFrame{Message: directAckText, Timestamp: stamp})
	if err != nil {
		return
	}
	r.hub.safeSend(c, ack)
}

// routeBroadcast persists the message, then fans it out to every member of
// the sender's room, the sender included.
func (r *Router) routeBroadcast(c *Client, text string, now time.Time, stamp string) {
	r.recorder.RecordRoomMessage(c.identity, c.room, text, now)

	r.hub.broadcastRoom(c.room, Event{
		Kind:      EventRoomBroadcast,
		Message:   text,
		Sender:    c.identity,
		Timestamp: stamp,
	})
}

// sendError reports a problem to the originating connection only.
func (r *Router) sendError(c *Client, text string) {
	payload, err := json.Marshal(errorFrame{Error: text})
	if err != nil {
		return
	}
	r.hub.safeSend(c, payload)
}
