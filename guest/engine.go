package guest

import (
	"context"

	"github.com/tetratelabs/wazero"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages
	// (64KB each). 0 means the wazero default.
	MemoryLimitPages uint32
}

// Engine wraps a wazero runtime. One engine hosts one compiler module;
// loaders create their own engine unless given one.
type Engine struct {
	runtime wazero.Runtime
}

// NewEngine creates a wazero-backed engine.
func NewEngine(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}, nil
}

// Close releases all modules instantiated in this engine.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
