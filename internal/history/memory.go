package history

import (
	"context"
	"sync"
)

// memoryLimit bounds each in-memory log so an idle deployment without a
// database cannot grow without bound.
const memoryLimit = 10000

// MemoryStore keeps the most recent messages in process memory. It is the
// zero-configuration default and the store used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	chat   []ChatMessage
	direct []DirectMessage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveChatMessage appends a room message, evicting the oldest at capacity.
func (s *MemoryStore) SaveChatMessage(_ context.Context, msg *ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chat = append(s.chat, *msg)
	if len(s.chat) > memoryLimit {
		s.chat = s.chat[1:]
	}
	return nil
}

// SaveDirectMessage appends a direct message, evicting the oldest at capacity.
func (s *MemoryStore) SaveDirectMessage(_ context.Context, msg *DirectMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.direct = append(s.direct, *msg)
	if len(s.direct) > memoryLimit {
		s.direct = s.direct[1:]
	}
	return nil
}

// ChatMessages returns a copy of the recorded room messages.
func (s *MemoryStore) ChatMessages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.chat...)
}

// DirectMessages returns a copy of the recorded direct messages.
func (s *MemoryStore) DirectMessages() []DirectMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DirectMessage(nil), s.direct...)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
