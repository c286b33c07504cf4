// Package server implements the HTTP surface of the chat relay.
//
// It upgrades WebSocket requests, resolves the room name and identity for
// each connection attempt, enforces the origin allow-list, and hands the
// accepted connection to the chat hub. The implementation is organized into
// specialized files for routing, handlers, origin policy, and HTTP server
// lifecycle to keep the codebase maintainable and testable.
package server
