// Package registry maintains the table of active compilation contexts.
//
// A context pairs two caller-supplied behaviors, a log sink and a
// dependency fetcher, under an opaque integer handle. Handles are table
// indices issued monotonically from zero and never reused: destroying a
// context leaves a hole, so a stale handle fails lookup instead of
// resolving to a later context.
//
// The registry is an injectable value, not a process-wide singleton;
// independent registries (one per test, one per bridge) cannot see each
// other's contexts.
package registry
