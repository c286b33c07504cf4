package history

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// writeTimeout bounds a single store write so one stuck write cannot wedge
// the worker forever.
const writeTimeout = 5 * time.Second

type job struct {
	chat   *ChatMessage
	direct *DirectMessage
}

// Gateway is the asynchronous write path between message delivery and the
// Store. Records are enqueued without blocking; when the queue is full the
// record is dropped and counted rather than stalling the caller.
type Gateway struct {
	store  Store
	logger *slog.Logger

	jobs chan job
	wg   sync.WaitGroup

	// mu makes the stopped check and the channel send atomic, so a
	// concurrent Stop cannot close jobs between them.
	mu      sync.RWMutex
	stopped bool

	dropped  atomic.Int64
	failures atomic.Int64
}

// NewGateway creates a Gateway writing to store with the given queue size.
func NewGateway(store Store, queueSize int, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Gateway{
		store:  store,
		logger: logger,
		jobs:   make(chan job, queueSize),
	}
}

// Start launches the background writer.
func (g *Gateway) Start() {
	g.wg.Add(1)
	go g.writeLoop()
	g.logger.Info("history gateway started", "queue", cap(g.jobs))
}

// Stop drains queued writes and waits for the worker, or gives up when ctx
// expires. Records enqueued after Stop are dropped.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return nil
	}
	g.stopped = true
	close(g.jobs)
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info("history gateway stopped",
			"dropped", g.dropped.Load(),
			"failures", g.failures.Load(),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordRoomMessage enqueues a room message for persistence. It never blocks.
func (g *Gateway) RecordRoomMessage(username, room, text string, ts time.Time) {
	g.enqueue(job{chat: &ChatMessage{
		Username:  username,
		RoomName:  room,
		Message:   text,
		Timestamp: ts,
	}})
}

// RecordDirectMessage enqueues a direct message for persistence. It never
// blocks, and is called regardless of whether the recipient was reachable.
func (g *Gateway) RecordDirectMessage(sender, recipient, text string, ts time.Time) {
	g.enqueue(job{direct: &DirectMessage{
		Sender:    sender,
		Recipient: recipient,
		Message:   text,
		Timestamp: ts,
	}})
}

// Dropped returns the number of records discarded because the queue was full
// or the gateway was stopped.
func (g *Gateway) Dropped() int64 {
	return g.dropped.Load()
}

func (g *Gateway) enqueue(j job) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.stopped {
		g.dropped.Add(1)
		return
	}

	// The send stays non-blocking, so holding the read lock here never
	// stalls Stop for longer than one select.
	select {
	case g.jobs <- j:
	default:
		g.dropped.Add(1)
		g.logger.Warn("history queue full; dropping record")
	}
}

func (g *Gateway) writeLoop() {
	defer g.wg.Done()

	for j := range g.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		switch {
		case j.chat != nil:
			err = g.store.SaveChatMessage(ctx, j.chat)
		case j.direct != nil:
			err = g.store.SaveDirectMessage(ctx, j.direct)
		}
		cancel()

		if err != nil {
			// Persistence is best-effort; delivery already happened.
			g.failures.Add(1)
			g.logger.Error("history write failed", "error", err)
		}
	}
}
