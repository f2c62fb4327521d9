// Package gateway holds the two narrow, string-addressed entry points that
// cross between the embedded scene runtime and the host.
//
// Outbound is the boundary symbol table: a fixed set of named, zero-argument
// functions the scene may call, each implemented by the host. Resolution
// failures here are configuration errors and surface at start-up through
// Link, never silently.
//
// Inbound lets the host address a method on a named scene object with one
// string argument. It is fire-and-forget: the call is queued for the scene's
// next frame, and an unresolvable target is dropped without any signal.
// The two directions are deliberately asymmetric.
package gateway
