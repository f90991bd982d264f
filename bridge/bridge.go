package bridge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	compilerhost "github.com/wippyai/compiler-host"
	"github.com/wippyai/compiler-host/errors"
	"github.com/wippyai/compiler-host/registry"
)

// Bridge ties a registry to a compiler module and exposes the session
// operations. Multiple compiles may run concurrently against different
// handles; a second compile on a handle already in flight is a reported
// error.
type Bridge struct {
	loader   compilerhost.Loader
	reg      *registry.Registry
	logger   *zap.Logger
	loadOnce sync.Once
	module   compilerhost.CompilerModule
	loadErr  error
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithRegistry injects a registry instead of creating a fresh one.
func WithRegistry(reg *registry.Registry) Option {
	return func(b *Bridge) { b.reg = reg }
}

// New creates a bridge. The compiler module is not loaded until the
// first Compile call.
func New(loader compilerhost.Loader, opts ...Option) *Bridge {
	b := &Bridge{
		loader: loader,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.reg == nil {
		b.reg = registry.New()
	}
	return b
}

// Registry returns the bridge's context registry.
func (b *Bridge) Registry() *registry.Registry {
	return b.reg
}

// CreateContext registers a new compilation context and returns its
// handle. The behaviors are immutable once registered.
func (b *Bridge) CreateContext(onLog registry.LogFunc, onFetch registry.FetchFunc) registry.Handle {
	h := b.reg.Create(onLog, onFetch)
	b.logger.Debug("context created", zap.Int64("handle", int64(h)))
	return h
}

// DestroyContext releases the context for h. Destroying an unknown or
// already-destroyed handle is an error. Destroying a context with a
// compile in flight is permitted and fails that compile fast.
func (b *Bridge) DestroyContext(h registry.Handle) error {
	if err := b.reg.Destroy(h); err != nil {
		return err
	}
	b.logger.Debug("context destroyed", zap.Int64("handle", int64(h)))
	return nil
}

// Compile runs the compiler module against the context h with the given
// source text. The module is loaded on first use and cached for the
// lifetime of the bridge. The handle must be live, with no other compile
// in flight on it.
func (b *Bridge) Compile(ctx context.Context, h registry.Handle, source string) (*compilerhost.Artifact, error) {
	if err := b.reg.Acquire(h); err != nil {
		return nil, err
	}
	defer b.reg.Release(h)

	mod, err := b.loadModule(ctx)
	if err != nil {
		return nil, err
	}

	artifact, err := mod.Compile(ctx, h, source)
	if err != nil {
		b.logger.Debug("compilation failed",
			zap.Int64("handle", int64(h)),
			zap.Error(err))
		return nil, err
	}
	return artifact, nil
}

// Close releases the cached module. Live contexts are not destroyed;
// a bridge with no module loaded closes trivially.
func (b *Bridge) Close(ctx context.Context) error {
	b.loadOnce.Do(func() {
		b.loadErr = errors.NotInitialized(errors.PhaseLoad, "compiler module")
	})
	if b.module == nil {
		return nil
	}
	return b.module.Close(ctx)
}

func (b *Bridge) loadModule(ctx context.Context) (compilerhost.CompilerModule, error) {
	b.loadOnce.Do(func() {
		b.module, b.loadErr = b.loader.Load(ctx, b.reg)
		if b.loadErr == nil {
			b.logger.Debug("compiler module ready")
		}
	})
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.module, nil
}
