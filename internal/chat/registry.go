// Package chat tracks live connections by identity and room membership.
// Both maps are process-local; there is no cross-process registry.
package chat

// Register maps an identity to its connection. A later registration for the
// same identity supersedes any earlier one; the superseded connection stays
// open and keeps its room membership, it just no longer receives direct
// messages.
func (h *Hub) Register(identity string, c *Client) {
	h.identityMu.Lock()
	defer h.identityMu.Unlock()

	if prev, ok := h.identities[identity]; ok && prev != c {
		h.logger.Info("superseding connection for identity",
			"identity", identity, "old_client", prev.id, "new_client", c.id)
	}
	h.identities[identity] = c
}

// Unregister removes the identity mapping, but only if it still points at c.
// A connection superseded by a fresh login must not tear down its
// replacement's entry on disconnect.
func (h *Hub) Unregister(identity string, c *Client) {
	h.identityMu.Lock()
	defer h.identityMu.Unlock()

	if h.identities[identity] == c {
		delete(h.identities, identity)
	}
}

// Lookup returns the live connection for an identity, if any.
func (h *Hub) Lookup(identity string) (*Client, bool) {
	h.identityMu.RLock()
	defer h.identityMu.RUnlock()

	c, ok := h.identities[identity]
	return c, ok
}

// JoinRoom adds a connection to a room's member set.
func (h *Hub) JoinRoom(room string, c *Client) {
	h.roomMu.Lock()
	defer h.roomMu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
}

// LeaveRoom removes a connection from a room's member set. Leaving a room
// the connection is not in is a no-op.
func (h *Hub) LeaveRoom(room string, c *Client) {
	h.roomMu.Lock()
	defer h.roomMu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// MembersOf returns a snapshot of a room's member set, so callers never send
// frames while a registry lock is held.
func (h *Hub) MembersOf(room string) []*Client {
	h.roomMu.RLock()
	defer h.roomMu.RUnlock()

	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	return members
}
