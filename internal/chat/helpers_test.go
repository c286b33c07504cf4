package chat

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureRecorder remembers everything recorded through it.
type captureRecorder struct {
	mu     sync.Mutex
	room   []roomRecord
	direct []directRecord
}

type roomRecord struct {
	username, room, text string
	ts                   time.Time
}

type directRecord struct {
	sender, recipient, text string
	ts                      time.Time
}

func (r *captureRecorder) RecordRoomMessage(username, room, text string, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room = append(r.room, roomRecord{username, room, text, ts})
}

func (r *captureRecorder) RecordDirectMessage(sender, recipient, text string, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = append(r.direct, directRecord{sender, recipient, text, ts})
}

func (r *captureRecorder) roomRecords() []roomRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]roomRecord(nil), r.room...)
}

func (r *captureRecorder) directRecords() []directRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]directRecord(nil), r.direct...)
}

// nextFrame pops one queued outbound frame from a client, decoded into a
// generic map. Fails the test if nothing is queued.
func nextFrame(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case payload := <-c.SendQueue():
		var frame map[string]any
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("outbound frame is not valid JSON: %v (%q)", err, payload)
		}
		return frame
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no outbound frame queued")
		return nil
	}
}

// drainQueue discards whatever frames are already queued for a client.
func drainQueue(c *Client) {
	for {
		select {
		case <-c.SendQueue():
		default:
			return
		}
	}
}

// queueLen reports how many frames are currently queued for a client.
func queueLen(c *Client) int {
	return len(c.SendQueue())
}
