// Package router dispatches compiler-guest calls to the behaviors
// registered for their context handle.
//
// The guest addresses the host through two fixed entry points carrying
// only an integer handle; the router resolves the handle against an
// explicitly passed registry and forwards the call. It is a pure routing
// layer: no retries, no recovery, no state of its own.
package router
