package guest

import (
	"context"
	"math"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	compilerhost "github.com/wippyai/compiler-host"
	"github.com/wippyai/compiler-host/errors"
	"github.com/wippyai/compiler-host/registry"
	"github.com/wippyai/compiler-host/router"
	"github.com/wippyai/compiler-host/wasmgen"
)

const hostModuleName = "env"

// ModuleLoader loads a compiler guest binary into a wazero engine and
// wires the env host module to a registry.
type ModuleLoader struct {
	engine *Engine
	logger *zap.Logger
	wasm   []byte
}

// LoaderOption configures a ModuleLoader.
type LoaderOption func(*ModuleLoader)

// WithEngine makes the loader use an existing engine instead of creating
// and owning one. The caller keeps responsibility for closing it.
func WithEngine(e *Engine) LoaderOption {
	return func(l *ModuleLoader) { l.engine = e }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *ModuleLoader) { l.logger = logger }
}

// NewModuleLoader creates a loader for a compiler guest binary.
func NewModuleLoader(wasm []byte, opts ...LoaderOption) *ModuleLoader {
	l := &ModuleLoader{
		wasm:   wasm,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load instantiates the env host module and the guest, verifies the
// guest's exports against the bridge WIT surface, and returns the
// ready-to-use module. Callbacks route through reg for the lifetime of
// the module.
func (l *ModuleLoader) Load(ctx context.Context, reg *registry.Registry) (compilerhost.CompilerModule, error) {
	if reg == nil {
		return nil, errors.NotInitialized(errors.PhaseLoad, "registry")
	}
	if err := wasmgen.Header(l.wasm); err != nil {
		return nil, errors.Load("validate module header", err)
	}

	engine := l.engine
	ownsEngine := false
	if engine == nil {
		var err error
		engine, err = NewEngine(ctx, nil)
		if err != nil {
			return nil, errors.Load("create engine", err)
		}
		ownsEngine = true
	}

	gm := &guestModule{
		engine:     engine,
		ownsEngine: ownsEngine,
		reg:        reg,
		logger:     l.logger,
		pending:    make(map[registry.Handle]error),
	}

	fail := func(err error) (compilerhost.CompilerModule, error) {
		if ownsEngine {
			_ = engine.Close(ctx)
		} else if gm.hostMod != nil {
			// Leave a shared engine the way we found it.
			_ = gm.hostMod.Close(ctx)
		}
		return nil, err
	}

	hostMod, err := instantiateHostModule(ctx, engine.runtime, gm)
	if err != nil {
		return fail(errors.New(errors.PhaseHost, errors.KindInstantiation).
			Cause(err).
			Detail("instantiate %s host module", hostModuleName).
			Build())
	}
	gm.hostMod = hostMod

	compiled, err := engine.runtime.CompileModule(ctx, l.wasm)
	if err != nil {
		return fail(errors.Load("compile module", err))
	}

	sigs, err := parseSignatures(BridgeWIT)
	if err != nil {
		return fail(err)
	}
	if err := verifyExports(sigs, compiled.ExportedFunctions(), "alloc", "compile"); err != nil {
		return fail(err)
	}

	mod, err := engine.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName("compiler"))
	if err != nil {
		return fail(errors.Instantiation(err))
	}
	gm.mod = mod
	gm.allocFn = mod.ExportedFunction("alloc")
	gm.compileFn = mod.ExportedFunction("compile")

	if mod.Memory() == nil {
		_ = mod.Close(ctx)
		return fail(errors.SignatureMismatch("memory", "guest has no memory"))
	}

	l.logger.Debug("compiler module loaded",
		zap.Int("binary_bytes", len(l.wasm)))

	return gm, nil
}

// guestModule is a loaded compiler guest. Safe for concurrent Compile
// calls on distinct handles; per-handle serialization is the registry's
// Acquire contract.
type guestModule struct {
	engine     *Engine
	reg        *registry.Registry
	logger     *zap.Logger
	hostMod    api.Module
	mod        api.Module
	allocFn    api.Function
	compileFn  api.Function
	mu         sync.Mutex
	pending    map[registry.Handle]error
	ownsEngine bool
}

func (gm *guestModule) Compile(ctx context.Context, h registry.Handle, source string) (*compilerhost.Artifact, error) {
	if h < 0 || h > math.MaxInt32 {
		return nil, errors.InvalidInput(errors.PhaseCompile, "handle outside guest i32 range")
	}
	gm.clearPending(h)

	src := []byte(source)
	var ptr uint32
	if len(src) > 0 {
		res, err := gm.allocFn.Call(ctx, uint64(len(src)))
		if err != nil {
			return nil, errors.CompileFailed("guest allocation failed", err)
		}
		ptr = uint32(res[0])
		if !gm.mod.Memory().Write(ptr, src) {
			return nil, errors.InvalidData(errors.PhaseCompile, "source text write out of bounds")
		}
	}

	out, err := gm.compileFn.Call(ctx, uint64(uint32(h)), uint64(ptr), uint64(len(src)))
	if err != nil {
		// A routing or callback failure unwinds the guest; prefer the
		// structured error recorded before the panic.
		if routed := gm.takePending(h); routed != nil {
			return nil, routed
		}
		return nil, errors.CompileFailed("module invocation failed", err)
	}

	packed := out[0]
	artPtr := uint32(packed >> 32)
	artLen := uint32(packed)
	if artLen == 0 {
		return nil, errors.CompileFailed("compiler reported failure for the supplied source", nil)
	}
	data, ok := gm.mod.Memory().Read(artPtr, artLen)
	if !ok {
		return nil, errors.InvalidData(errors.PhaseCompile, "artifact location out of bounds")
	}
	artifact := make([]byte, artLen)
	copy(artifact, data)

	gm.logger.Debug("compilation finished",
		zap.Int64("handle", int64(h)),
		zap.Int("artifact_bytes", len(artifact)))

	return &compilerhost.Artifact{Wasm: artifact}, nil
}

func (gm *guestModule) Close(ctx context.Context) error {
	var first error
	if gm.mod != nil {
		first = gm.mod.Close(ctx)
	}
	if gm.hostMod != nil {
		if err := gm.hostMod.Close(ctx); first == nil {
			first = err
		}
	}
	if gm.ownsEngine {
		if err := gm.engine.Close(ctx); first == nil {
			first = err
		}
	}
	return first
}

// fail records the first routing error for a handle and unwinds the
// guest invocation. wazero recovers the panic and fails the compile call.
func (gm *guestModule) fail(h registry.Handle, err error) {
	gm.mu.Lock()
	if gm.pending[h] == nil {
		gm.pending[h] = err
	}
	gm.mu.Unlock()
	panic(err)
}

func (gm *guestModule) takePending(h registry.Handle) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	err := gm.pending[h]
	delete(gm.pending, h)
	return err
}

func (gm *guestModule) clearPending(h registry.Handle) {
	gm.mu.Lock()
	delete(gm.pending, h)
	gm.mu.Unlock()
}

// instantiateHostModule builds the env module with the two entry points
// the guest addresses by name.
func instantiateHostModule(ctx context.Context, rt wazero.Runtime, gm *guestModule) (api.Module, error) {
	i32 := api.ValueTypeI32

	return rt.NewHostModuleBuilder(hostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(gm.hostLog), []api.ValueType{i32, i32, i32}, nil).
		Export("log").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(gm.hostFetchDependency), []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		Export("fetch-dependency").
		Instantiate(ctx)
}

func (gm *guestModule) hostLog(_ context.Context, mod api.Module, stack []uint64) {
	h := registry.Handle(int32(uint32(stack[0])))
	ptr := uint32(stack[1])
	length := uint32(stack[2])

	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		gm.fail(h, errors.InvalidData(errors.PhaseRoute, "log message out of bounds"))
	}
	if err := router.Log(gm.reg, h, string(data)); err != nil {
		gm.fail(h, err)
	}
}

func (gm *guestModule) hostFetchDependency(ctx context.Context, mod api.Module, stack []uint64) {
	h := registry.Handle(int32(uint32(stack[0])))
	ptr := uint32(stack[1])
	length := uint32(stack[2])
	buf := uint32(stack[3])
	capacity := uint32(stack[4])

	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		gm.fail(h, errors.InvalidData(errors.PhaseRoute, "dependency name out of bounds"))
	}

	contents, err := router.FetchDependency(ctx, gm.reg, h, string(data))
	if err != nil {
		gm.fail(h, err)
	}

	n := uint32(len(contents))
	write := n
	if write > capacity {
		write = capacity
	}
	if write > 0 {
		if !mod.Memory().Write(buf, []byte(contents)[:write]) {
			gm.fail(h, errors.InvalidData(errors.PhaseRoute, "dependency buffer out of bounds"))
		}
	}
	stack[0] = uint64(n)
}
