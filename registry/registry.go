package registry

import (
	"context"
	"sync"

	"github.com/wippyai/compiler-host/errors"
)

// Handle is an opaque reference to one compilation context. Handles are
// non-negative, strictly increasing from zero, and never reused.
type Handle int64

// LogFunc receives a diagnostic message emitted by the compiler guest.
// A panic in a LogFunc propagates to the guest invocation that triggered
// it; the router does not catch it.
type LogFunc func(message string)

// FetchFunc resolves the contents of a named dependency. It runs on the
// goroutine of the guest invocation that requested it and may block until
// the contents are available.
type FetchFunc func(ctx context.Context, name string) (string, error)

// Entry is the pair of behaviors stored for one handle. Behaviors are
// immutable once registered.
type Entry struct {
	Log   LogFunc
	Fetch FetchFunc
}

type slot struct {
	entry Entry
	valid bool
	inUse bool
}

// Registry is a growable table from handle to context entry. Destroyed
// handles leave holes; the slice never shrinks, which is what makes
// destroyed handles distinguishable from never-issued ones.
type Registry struct {
	slots []slot
	mu    sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		slots: make([]slot, 0, 8),
	}
}

// Create registers a new context and returns its handle. Handles are the
// current table length, so they are strictly increasing from zero.
func (r *Registry) Create(log LogFunc, fetch FetchFunc) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := Handle(len(r.slots))
	r.slots = append(r.slots, slot{
		entry: Entry{Log: log, Fetch: fetch},
		valid: true,
	})
	return h
}

// Lookup returns the entry for a live handle. A negative, never-issued,
// or destroyed handle fails with an unknown_context error and never
// resolves to another context's entry.
func (r *Registry) Lookup(h Handle) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h < 0 || int(h) >= len(r.slots) || !r.slots[h].valid {
		return Entry{}, errors.UnknownContext(errors.PhaseRegistry, int64(h))
	}
	return r.slots[h].entry, nil
}

// Destroy removes the entry for h, leaving a hole. Destroying a handle
// that was never issued or is already destroyed is a reported error, not
// a silent no-op. Destroying a handle with a compile in flight is
// permitted: subsequent callbacks for it fail lookup, failing that
// compile fast rather than using stale behavior.
func (r *Registry) Destroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h < 0 || int(h) >= len(r.slots) || !r.slots[h].valid {
		return errors.UnknownContext(errors.PhaseRegistry, int64(h))
	}
	r.slots[h] = slot{}
	return nil
}

// Acquire marks h as having a compile in flight. A second Acquire before
// Release fails with context_busy; an unknown handle fails with
// unknown_context.
func (r *Registry) Acquire(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h < 0 || int(h) >= len(r.slots) || !r.slots[h].valid {
		return errors.UnknownContext(errors.PhaseRegistry, int64(h))
	}
	if r.slots[h].inUse {
		return errors.ContextBusy(int64(h))
	}
	r.slots[h].inUse = true
	return nil
}

// Release clears the in-flight mark set by Acquire. Releasing a handle
// destroyed mid-flight is a no-op.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h < 0 || int(h) >= len(r.slots) || !r.slots[h].valid {
		return
	}
	r.slots[h].inUse = false
}

// Len returns the number of live contexts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.slots {
		if s.valid {
			n++
		}
	}
	return n
}
