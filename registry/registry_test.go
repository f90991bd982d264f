package registry

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/compiler-host/errors"
)

func noopLog(string) {}

func noopFetch(context.Context, string) (string, error) { return "", nil }

func TestRegistry_HandlesMonotonicFromZero(t *testing.T) {
	reg := New()

	for want := Handle(0); want < 5; want++ {
		h := reg.Create(noopLog, noopFetch)
		if h != want {
			t.Fatalf("Create returned handle %d, want %d", h, want)
		}
	}
}

func TestRegistry_LookupReturnsRegisteredBehaviors(t *testing.T) {
	reg := New()

	var logged string
	h := reg.Create(
		func(msg string) { logged = msg },
		func(_ context.Context, name string) (string, error) { return "dep:" + name, nil },
	)

	ent, err := reg.Lookup(h)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	ent.Log("hello")
	if logged != "hello" {
		t.Fatalf("log behavior not the registered one: got %q", logged)
	}

	got, err := ent.Fetch(context.Background(), "math")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != "dep:math" {
		t.Fatalf("fetch behavior not the registered one: got %q", got)
	}
}

func TestRegistry_LookupUnknownHandles(t *testing.T) {
	reg := New()
	reg.Create(noopLog, noopFetch)

	for _, h := range []Handle{-1, 1, 99} {
		if _, err := reg.Lookup(h); !errors.IsKind(err, errors.KindUnknownContext) {
			t.Errorf("Lookup(%d) = %v, want unknown_context", h, err)
		}
	}
}

func TestRegistry_DestroyLeavesHole(t *testing.T) {
	reg := New()

	h0 := reg.Create(noopLog, noopFetch)
	h1 := reg.Create(noopLog, noopFetch)
	h2 := reg.Create(noopLog, noopFetch)

	if err := reg.Destroy(h1); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	if _, err := reg.Lookup(h1); !errors.IsKind(err, errors.KindUnknownContext) {
		t.Fatalf("Lookup after destroy = %v, want unknown_context", err)
	}

	// Neighbors stay live.
	if _, err := reg.Lookup(h0); err != nil {
		t.Fatalf("h0 lookup after destroying h1: %v", err)
	}
	if _, err := reg.Lookup(h2); err != nil {
		t.Fatalf("h2 lookup after destroying h1: %v", err)
	}

	// The hole is never reissued; the next handle continues the sequence.
	if h3 := reg.Create(noopLog, noopFetch); h3 != 3 {
		t.Fatalf("Create after destroy returned %d, want 3", h3)
	}

	if reg.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", reg.Len())
	}
}

func TestRegistry_DoubleDestroyIsError(t *testing.T) {
	reg := New()
	h := reg.Create(noopLog, noopFetch)

	if err := reg.Destroy(h); err != nil {
		t.Fatalf("first destroy: %v", err)
	}
	if err := reg.Destroy(h); !errors.IsKind(err, errors.KindUnknownContext) {
		t.Fatalf("second destroy = %v, want unknown_context", err)
	}
	if err := reg.Destroy(42); !errors.IsKind(err, errors.KindUnknownContext) {
		t.Fatalf("destroy of never-issued handle = %v, want unknown_context", err)
	}
}

func TestRegistry_AcquireRelease(t *testing.T) {
	reg := New()
	h := reg.Create(noopLog, noopFetch)

	if err := reg.Acquire(h); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := reg.Acquire(h); !errors.IsKind(err, errors.KindContextBusy) {
		t.Fatalf("second acquire = %v, want context_busy", err)
	}

	reg.Release(h)
	if err := reg.Acquire(h); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}

	if err := reg.Acquire(99); !errors.IsKind(err, errors.KindUnknownContext) {
		t.Fatalf("acquire of unknown handle = %v, want unknown_context", err)
	}
}

func TestRegistry_DestroyWhileInFlight(t *testing.T) {
	reg := New()
	h := reg.Create(noopLog, noopFetch)

	if err := reg.Acquire(h); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// Destroy mid-flight succeeds; later callbacks fail lookup instead.
	if err := reg.Destroy(h); err != nil {
		t.Fatalf("destroy of in-flight handle: %v", err)
	}
	if _, err := reg.Lookup(h); !errors.IsKind(err, errors.KindUnknownContext) {
		t.Fatalf("lookup after mid-flight destroy = %v, want unknown_context", err)
	}
	// Release on the destroyed handle is a no-op.
	reg.Release(h)
}

func TestRegistry_ErrorsCarryHandle(t *testing.T) {
	reg := New()

	_, err := reg.Lookup(7)
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("lookup error is %T, want *errors.Error", err)
	}
	if e.Value != int64(7) {
		t.Fatalf("error value = %v, want 7", e.Value)
	}
}
