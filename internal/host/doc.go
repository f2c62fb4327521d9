// Package host is the native side of the bridge: a shell that owns the
// event relay, the boundary symbol table, and a main loop with UI affinity.
//
// Code arriving from the scene (symbol handlers, relay observers) runs on
// the scene's goroutine. Anything that touches UI state must be moved onto
// the main loop with Dispatch; Observe does that for relay observers. The
// shell does not detect affinity violations.
//
// Components hook into start-up and teardown by registering a Lifecycle
// rather than by extending the shell.
package host
