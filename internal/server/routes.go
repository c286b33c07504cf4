// Package server wires HTTP handlers into a chi router for the chat relay.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures and returns the application's HTTP routes: health
// check, WebSocket endpoints (with and without an explicit room), and the
// test page.
func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Health)
	r.Get("/test", h.TestPage)
	r.Get("/ws", h.ServeWS)
	r.Get("/ws/{room}", h.ServeWS)
	return r
}
