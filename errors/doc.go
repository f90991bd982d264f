// Package errors provides structured error types for the compiler-host
// bridge.
//
// Errors carry a Phase (where in processing the failure occurred) and a
// Kind (what went wrong), so callers can distinguish a bad handle from a
// misbehaving caller-supplied callback from a failed compilation without
// string matching.
package errors
