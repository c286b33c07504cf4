// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	"chatrelay/internal/identity"
)

const (
	// defaultRoom is used when the URL carries no room name.
	defaultRoom = "default_room"

	// quarantineRoom is where unauthenticated connections land under the
	// quarantine policy.
	quarantineRoom = "unauthorized"
)

// Handler carries the dependencies of the HTTP handlers.
type Handler struct {
	hub          *chat.Hub
	provider     identity.Provider
	unauthPolicy string
	upgrader     websocket.Upgrader
	logger       *slog.Logger
}

// NewHandler creates a Handler serving connections into hub, resolving
// identities through provider.
func NewHandler(hub *chat.Hub, provider identity.Provider, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	origins := newOriginPolicy(cfg.AllowedOrigins, logger)

	return &Handler{
		hub:          hub,
		provider:     provider,
		unauthPolicy: cfg.UnauthPolicy,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		logger: logger,
	}
}

// ServeWS handles WebSocket upgrade requests. The room name comes from the
// URL, the identity from the configured provider; unauthenticated attempts
// are either closed immediately or quarantined, per policy.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if room == "" {
		room = defaultRoom
	}

	ident := h.provider.Resolve(r)
	if !ident.Authenticated {
		if h.unauthPolicy == config.UnauthReject {
			h.rejectUnauthenticated(w, r)
			return
		}
		room = quarantineRoom
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := chat.NewClient(conn, h.hub, r.RemoteAddr, ident.Name, ident.Authenticated, room)
	if err := h.hub.Connect(client); err != nil {
		h.logger.Warn("connection refused", "addr", r.RemoteAddr, "error", err)
		_ = conn.Close()
	}
}

// rejectUnauthenticated accepts the handshake and immediately closes the
// connection with a policy-violation close frame.
func (h *Handler) rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		h.logger.Warn("write reject close message", "addr", r.RemoteAddr, "error", err)
	}
	_ = conn.Close()
	h.logger.Info("rejected unauthenticated connection", "addr", r.RemoteAddr)
}

func isExpectedCloseError(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}

// Health provides a simple health check endpoint that returns server status.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat relay is running!")
}
