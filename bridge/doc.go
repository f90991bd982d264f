// Package bridge is the public session API of the compiler host.
//
// A Bridge owns a context registry and a lazily loaded compiler module.
// Callers create contexts (pairs of log and fetch behavior), run
// compilations against them, and destroy them when done. Handle lifetime
// is the caller's responsibility: destroying a context with a compile in
// flight fails that compile fast instead of using stale behavior.
package bridge
