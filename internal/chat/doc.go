// Package chat implements the core of the relay: the hub that tracks live
// connections by identity and room, the per-connection read/write pumps, and
// the router that turns inbound payloads into room broadcasts or direct
// deliveries with a best-effort persistence side effect.
package chat
