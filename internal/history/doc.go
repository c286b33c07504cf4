// Package history persists delivered chat messages. Writes go through an
// asynchronous gateway so a slow or failing store can never stall message
// delivery; storage backends are selected by configuration.
package history
