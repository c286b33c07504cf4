package chat

import (
	"strings"
	"testing"
	"time"
)

// routerFixture builds a hub with a capturing recorder, a fixed clock, and
// connected (but transport-less) clients.
type routerFixture struct {
	hub      *Hub
	recorder *captureRecorder
	now      time.Time
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	rec := &captureRecorder{}
	hub := NewHub(Options{}, rec, testLogger())
	now := time.Date(2024, 5, 17, 12, 30, 45, 0, time.UTC)
	hub.router.now = func() time.Time { return now }
	return &routerFixture{hub: hub, recorder: rec, now: now}
}

func (f *routerFixture) connect(t *testing.T, identity, room string) *Client {
	t.Helper()
	c := NewClient(nil, f.hub, "127.0.0.1:1", identity, true, room)
	if err := f.hub.Connect(c); err != nil {
		t.Fatalf("Connect(%s): %v", identity, err)
	}
	return c
}

func (f *routerFixture) connectAnonymous(t *testing.T) *Client {
	t.Helper()
	c := NewClient(nil, f.hub, "127.0.0.1:1", "Anonymous User", false, "unauthorized")
	if err := f.hub.Connect(c); err != nil {
		t.Fatalf("Connect(anonymous): %v", err)
	}
	return c
}

func (f *routerFixture) drainAll(clients ...*Client) {
	for _, c := range clients {
		drainQueue(c)
	}
}

func TestBroadcastReachesWholeRoomIncludingSender(t *testing.T) {
	f := newRouterFixture(t)
	alice := f.connect(t, "alice", "general")
	bob := f.connect(t, "bob", "general")
	f.drainAll(alice, bob)

	f.hub.router.Route(alice, []byte(`{"message":"hi"}`))

	wantStamp := f.now.Format(TimeFormat)
	for _, c := range []*Client{alice, bob} {
		frame := nextFrame(t, c)
		if frame["message"] != "hi" || frame["username"] != "alice" {
			t.Errorf("frame for %s = %v", c.Identity(), frame)
		}
		if frame["direct"] != false {
			t.Errorf("broadcast frame for %s has direct = %v", c.Identity(), frame["direct"])
		}
		if frame["timestamp"] != wantStamp {
			t.Errorf("frame timestamp %v, want %v", frame["timestamp"], wantStamp)
		}
	}

	records := f.recorder.roomRecords()
	if len(records) != 1 {
		t.Fatalf("got %d room records, want 1", len(records))
	}
	rec := records[0]
	if rec.username != "alice" || rec.room != "general" || rec.text != "hi" || !rec.ts.Equal(f.now) {
		t.Errorf("room record = %+v", rec)
	}
}

func TestDirectMessageDeliveredToRecipientOnly(t *testing.T) {
	f := newRouterFixture(t)
	alice := f.connect(t, "alice", "general")
	bob := f.connect(t, "bob", "general")
	f.drainAll(alice, bob)

	f.hub.router.Route(alice, []byte(`{"message":"hey","recipient":"bob"}`))

	frame := nextFrame(t, bob)
	if frame["message"] != "hey" || frame["username"] != "alice" || frame["direct"] != true {
		t.Errorf("direct frame = %v", frame)
	}

	// The sender gets the acknowledgment, not a broadcast.
	ack := nextFrame(t, alice)
	if !strings.Contains(ack["message"].(string), "sent successfully") {
		t.Errorf("sender frame = %v, want acknowledgment", ack)
	}
	if _, hasDirect := ack["direct"]; hasDirect {
		t.Errorf("acknowledgment looks like a delivery frame: %v", ack)
	}
	if queueLen(alice) != 0 {
		t.Error("sender received an extra frame for a direct message")
	}

	records := f.recorder.directRecords()
	if len(records) != 1 {
		t.Fatalf("got %d direct records, want 1", len(records))
	}
	if rec := records[0]; rec.sender != "alice" || rec.recipient != "bob" || rec.text != "hey" {
		t.Errorf("direct record = %+v", rec)
	}
}

func TestDirectMessageToOfflineRecipientIsPersistedAndAcked(t *testing.T) {
	f := newRouterFixture(t)
	alice := f.connect(t, "alice", "general")
	bob := f.connect(t, "bob", "general")
	f.drainAll(alice, bob)

	f.hub.router.Route(alice, []byte(`{"message":"hello?","recipient":"carol"}`))

	if records := f.recorder.directRecords(); len(records) != 1 || records[0].recipient != "carol" {
		t.Fatalf("direct records = %+v, want one for carol", records)
	}

	ack := nextFrame(t, alice)
	if !strings.Contains(ack["message"].(string), "sent successfully") {
		t.Errorf("sender frame = %v, want acknowledgment", ack)
	}
	if queueLen(bob) != 0 {
		t.Error("bystander received a frame for someone else's direct message")
	}
}

func TestSelfAddressedMessageIsBroadcast(t *testing.T) {
	f := newRouterFixture(t)
	alice := f.connect(t, "alice", "general")
	bob := f.connect(t, "bob", "general")
	f.drainAll(alice, bob)

	f.hub.router.Route(alice, []byte(`{"message":"note to self","recipient":"alice"}`))

	frame := nextFrame(t, bob)
	if frame["direct"] != false {
		t.Errorf("self-addressed message delivered as direct: %v", frame)
	}
	if len(f.recorder.directRecords()) != 0 {
		t.Error("self-addressed message recorded as direct")
	}
	if len(f.recorder.roomRecords()) != 1 {
		t.Error("self-addressed message not recorded as room message")
	}
}

func TestMalformedPayloadYieldsSingleErrorFrame(t *testing.T) {
	for _, payload := range []string{"not json", "{}", `{"recipient":"bob"}`} {
		t.Run(payload, func(t *testing.T) {
			f := newRouterFixture(t)
			alice := f.connect(t, "alice", "general")
			bob := f.connect(t, "bob", "general")
			f.drainAll(alice, bob)

			f.hub.router.Route(alice, []byte(payload))

			frame := nextFrame(t, alice)
			if _, ok := frame["error"]; !ok {
				t.Fatalf("sender frame = %v, want error frame", frame)
			}
			if queueLen(alice) != 0 {
				t.Error("sender received more than one frame")
			}
			if queueLen(bob) != 0 {
				t.Error("error frame leaked to another connection")
			}
			if len(f.recorder.roomRecords())+len(f.recorder.directRecords()) != 0 {
				t.Error("malformed payload was persisted")
			}

			// The connection survives and keeps working.
			f.hub.router.Route(alice, []byte(`{"message":"still here"}`))
			if frame := nextFrame(t, alice); frame["message"] != "still here" {
				t.Errorf("connection unusable after malformed payload: %v", frame)
			}
		})
	}
}

func TestAnonymousSenderCannotSendDirect(t *testing.T) {
	f := newRouterFixture(t)
	bob := f.connect(t, "bob", "general")
	anon := f.connectAnonymous(t)
	f.drainAll(bob, anon)

	f.hub.router.Route(anon, []byte(`{"message":"psst","recipient":"bob"}`))

	frame := nextFrame(t, anon)
	if _, ok := frame["error"]; !ok {
		t.Fatalf("anonymous sender frame = %v, want error frame", frame)
	}
	if len(f.recorder.directRecords()) != 0 {
		t.Error("anonymous direct message was persisted")
	}
	if queueLen(bob) != 0 {
		t.Error("anonymous direct message was delivered")
	}
}

func TestAnonymousBroadcastStaysInQuarantineRoom(t *testing.T) {
	f := newRouterFixture(t)
	alice := f.connect(t, "alice", "general")
	anon1 := f.connectAnonymous(t)
	anon2 := f.connectAnonymous(t)
	f.drainAll(alice, anon1, anon2)

	f.hub.router.Route(anon1, []byte(`{"message":"anyone here?"}`))

	for _, c := range []*Client{anon1, anon2} {
		if frame := nextFrame(t, c); frame["message"] != "anyone here?" {
			t.Errorf("quarantine member missed broadcast: %v", frame)
		}
	}
	if queueLen(alice) != 0 {
		t.Error("quarantine broadcast leaked into another room")
	}
}
