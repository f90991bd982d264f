package bridge

import (
	"bytes"
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	compilerhost "github.com/wippyai/compiler-host"
	"github.com/wippyai/compiler-host/errors"
	"github.com/wippyai/compiler-host/registry"
	"github.com/wippyai/compiler-host/wasmgen"
)

type collector struct {
	mu      sync.Mutex
	logs    []string
	fetches []string
	deps    map[string]string
	block   chan struct{}
	fetchEr error
}

func (c *collector) logFunc() registry.LogFunc {
	return func(msg string) {
		c.mu.Lock()
		c.logs = append(c.logs, msg)
		c.mu.Unlock()
	}
}

func (c *collector) fetchFunc() registry.FetchFunc {
	return func(_ context.Context, name string) (string, error) {
		if c.block != nil {
			<-c.block
		}
		c.mu.Lock()
		c.fetches = append(c.fetches, name)
		c.mu.Unlock()
		if c.fetchEr != nil {
			return "", c.fetchEr
		}
		return c.deps[name], nil
	}
}

func TestBridge_CompileScenario(t *testing.T) {
	ctx := context.Background()

	b := New(StubLoader{})
	defer b.Close(ctx)

	c := &collector{deps: map[string]string{"math": "export function sq(x){return x*x;}"}}
	h := b.CreateContext(c.logFunc(), c.fetchFunc())

	artifact, err := b.Compile(ctx, h, "import sq from 'math'; sq(5);")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !bytes.Equal(artifact.Wasm, wasmgen.StubArtifact()) {
		t.Fatal("unexpected artifact bytes")
	}

	if len(c.fetches) != 1 || c.fetches[0] != "math" {
		t.Fatalf("fetch invocations = %v, want exactly one %q", c.fetches, "math")
	}
	if len(c.logs) != 1 {
		t.Fatalf("log invocations = %v, want one", c.logs)
	}

	if err := b.DestroyContext(h); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestBridge_StaleHandleRejects(t *testing.T) {
	ctx := context.Background()

	b := New(StubLoader{})
	defer b.Close(ctx)

	c := &collector{}
	h := b.CreateContext(c.logFunc(), c.fetchFunc())
	if err := b.DestroyContext(h); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	_, err := b.Compile(ctx, h, "anything")
	if !errors.IsKind(err, errors.KindUnknownContext) {
		t.Fatalf("compile with stale handle = %v, want unknown_context", err)
	}
	if len(c.logs) != 0 {
		t.Fatalf("destroyed context received logs: %v", c.logs)
	}
}

func TestBridge_DoubleDestroyRejects(t *testing.T) {
	ctx := context.Background()

	b := New(StubLoader{})
	defer b.Close(ctx)

	h := b.CreateContext(func(string) {}, func(context.Context, string) (string, error) { return "", nil })
	if err := b.DestroyContext(h); err != nil {
		t.Fatalf("first destroy: %v", err)
	}
	if err := b.DestroyContext(h); !errors.IsKind(err, errors.KindUnknownContext) {
		t.Fatalf("second destroy = %v, want unknown_context", err)
	}
}

func TestBridge_ConcurrentContextsDoNotCrossDeliver(t *testing.T) {
	ctx := context.Background()

	b := New(StubLoader{})
	defer b.Close(ctx)

	a := &collector{deps: map[string]string{"one": "1"}}
	c := &collector{deps: map[string]string{"two": "2"}}
	hA := b.CreateContext(a.logFunc(), a.fetchFunc())
	hB := b.CreateContext(c.logFunc(), c.fetchFunc())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := b.Compile(ctx, hA, "import a from 'one';"); err != nil {
			t.Errorf("compile A: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := b.Compile(ctx, hB, "import b from 'two';"); err != nil {
			t.Errorf("compile B: %v", err)
		}
	}()
	wg.Wait()

	if len(a.logs) != 1 || len(a.fetches) != 1 || a.fetches[0] != "one" {
		t.Fatalf("context A saw logs=%v fetches=%v", a.logs, a.fetches)
	}
	if len(c.logs) != 1 || len(c.fetches) != 1 || c.fetches[0] != "two" {
		t.Fatalf("context B saw logs=%v fetches=%v", c.logs, c.fetches)
	}
}

func TestBridge_ConcurrentCompileOnSameHandleRejects(t *testing.T) {
	ctx := context.Background()

	b := New(StubLoader{})
	defer b.Close(ctx)

	c := &collector{deps: map[string]string{"dep": "x"}, block: make(chan struct{})}
	h := b.CreateContext(c.logFunc(), c.fetchFunc())

	firstDone := make(chan error, 1)
	go func() {
		_, err := b.Compile(ctx, h, "import d from 'dep';")
		firstDone <- err
	}()

	// Wait until the first compile is inside the blocking fetch.
	for {
		c.mu.Lock()
		started := len(c.logs) > 0
		c.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	_, err := b.Compile(ctx, h, "second attempt")
	if !errors.IsKind(err, errors.KindContextBusy) {
		t.Fatalf("second concurrent compile = %v, want context_busy", err)
	}

	close(c.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first compile: %v", err)
	}

	// The handle is reusable once the first compile settled.
	if _, err := b.Compile(ctx, h, "third attempt"); err != nil {
		t.Fatalf("compile after release: %v", err)
	}
}

func TestBridge_DestroyMidFlightFailsCompile(t *testing.T) {
	ctx := context.Background()

	b := New(StubLoader{})
	defer b.Close(ctx)

	c := &collector{deps: map[string]string{"dep": "x", "late": "y"}, block: make(chan struct{})}
	h := b.CreateContext(c.logFunc(), c.fetchFunc())

	done := make(chan error, 1)
	go func() {
		_, err := b.Compile(ctx, h, "import d from 'dep'; import l from 'late';")
		done <- err
	}()

	// Wait for the compile to reach the first (blocking) fetch, destroy
	// the handle underneath it, then let it continue.
	for {
		c.mu.Lock()
		started := len(c.logs) > 0
		c.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err := b.DestroyContext(h); err != nil {
		t.Fatalf("destroy mid-flight: %v", err)
	}
	close(c.block)

	if err := <-done; !errors.IsKind(err, errors.KindUnknownContext) {
		t.Fatalf("mid-flight destroyed compile = %v, want unknown_context", err)
	}
}

func TestBridge_CallbackErrorSurfaces(t *testing.T) {
	ctx := context.Background()

	b := New(StubLoader{})
	defer b.Close(ctx)

	cause := stderrors.New("mirror down")
	c := &collector{fetchEr: cause}
	h := b.CreateContext(c.logFunc(), c.fetchFunc())

	_, err := b.Compile(ctx, h, "import m from 'mirror';")
	if !errors.IsKind(err, errors.KindCallbackFailed) {
		t.Fatalf("compile with failing callback = %v, want callback_failed", err)
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestBridge_CompileFailedSurfaces(t *testing.T) {
	ctx := context.Background()

	b := New(StubLoader{})
	defer b.Close(ctx)

	h := b.CreateContext(func(string) {}, func(context.Context, string) (string, error) { return "", nil })

	_, err := b.Compile(ctx, h, "")
	if !errors.IsKind(err, errors.KindCompileFailed) {
		t.Fatalf("compile of rejected source = %v, want compile_failed", err)
	}
}

func TestBridge_ModuleLoadedOnce(t *testing.T) {
	ctx := context.Background()

	loader := &countingLoader{}
	b := New(loader)
	defer b.Close(ctx)

	h1 := b.CreateContext(func(string) {}, func(context.Context, string) (string, error) { return "", nil })
	h2 := b.CreateContext(func(string) {}, func(context.Context, string) (string, error) { return "", nil })

	if _, err := b.Compile(ctx, h1, "a"); err != nil {
		t.Fatalf("compile 1: %v", err)
	}
	if _, err := b.Compile(ctx, h2, "b"); err != nil {
		t.Fatalf("compile 2: %v", err)
	}

	if loader.loads != 1 {
		t.Fatalf("loader invoked %d times, want once", loader.loads)
	}
}

type countingLoader struct {
	loads int
}

func (l *countingLoader) Load(ctx context.Context, reg *registry.Registry) (compilerhost.CompilerModule, error) {
	l.loads++
	return StubLoader{}.Load(ctx, reg)
}
