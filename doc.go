// Package compilerhost bridges a pre-built WebAssembly compiler module to
// host-supplied behavior.
//
// The compiler guest cannot call back into the host by reference: it only
// carries a small integer context handle across the wasm boundary and
// addresses two host entry points by fixed name. This library provides the
// registry that maps handles to caller-supplied callbacks, the router that
// dispatches guest calls to the right context, and the session API that
// runs compilations against a context.
//
// # Architecture Overview
//
//	compilerhost/     Root package with the boundary types
//	├── bridge/       Session API: contexts and Compile
//	├── registry/     Handle table mapping contexts to callbacks
//	├── router/       Dispatch of guest log/fetch calls to callbacks
//	├── guest/        wazero engine, loader and the env host module
//	├── wasmgen/      Minimal wasm emission for stub compiler guests
//	└── errors/       Structured error types
//
// # Quick Start
//
//	loader := guest.NewModuleLoader(wasmBytes)
//	b := bridge.New(loader)
//	defer b.Close(ctx)
//
//	h := b.CreateContext(
//	    func(msg string) { fmt.Println("compiler:", msg) },
//	    func(ctx context.Context, name string) (string, error) {
//	        return depSources[name], nil
//	    },
//	)
//	defer b.DestroyContext(h)
//
//	artifact, err := b.Compile(ctx, h, source)
//
// Handles are issued monotonically and never reused, so a stale handle
// kept after DestroyContext fails lookup instead of silently addressing
// another context.
package compilerhost
