// Package chat defines the wire payload shapes and the tagged outbound
// event variants shared across hub, client, and router logic.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TimeFormat is the timestamp layout carried in outbound frames.
const TimeFormat = "2006-01-02 15:04:05"

// InboundMessage is the JSON payload clients send. Message is a pointer so
// that a payload missing the field entirely can be told apart from an empty
// string.
type InboundMessage struct {
	Message   *string `json:"message"`
	Recipient string  `json:"recipient,omitempty"`
}

// EventKind tags an outbound event so the delivery path can pick the frame
// shape without string dispatch.
type EventKind int

// Outbound event variants.
const (
	EventRoomBroadcast EventKind = iota
	EventDirectDeliver
	EventJoinNotice
	EventLeaveNotice
)

// Event is one outbound occurrence addressed to a connection or a room.
type Event struct {
	Kind      EventKind
	Message   string
	Sender    string
	Timestamp string
}

// chatFrame is the wire shape for both broadcast and direct deliveries.
type chatFrame struct {
	Message   string `json:"message"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	Direct    bool   `json:"direct"`
}

// noticeFrame is the wire shape for join/leave notices. The timestamp field
// is only populated when the server is configured to include it.
type noticeFrame struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// errorFrame reports a problem back to the originating connection only.
type errorFrame struct {
	Error string `json:"error"`
}

// ackFrame confirms a direct send to its sender.
type ackFrame struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// encode renders the event into its wire frame.
func (e Event) encode(noticeTimestamps bool) ([]byte, error) {
	switch e.Kind {
	case EventRoomBroadcast:
		return json.Marshal(chatFrame{
			Message:   e.Message,
			Username:  e.Sender,
			Timestamp: e.Timestamp,
			Direct:    false,
		})
	case EventDirectDeliver:
		return json.Marshal(chatFrame{
			Message:   e.Message,
			Username:  e.Sender,
			Timestamp: e.Timestamp,
			Direct:    true,
		})
	case EventJoinNotice, EventLeaveNotice:
		frame := noticeFrame{Message: e.Message}
		if noticeTimestamps {
			frame.Timestamp = e.Timestamp
		}
		return json.Marshal(frame)
	}
	return nil, fmt.Errorf("unknown event kind %d", e.Kind)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
