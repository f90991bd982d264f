// Package wasmgen emits minimal WebAssembly binaries.
//
// It exists to synthesize stub compiler guests that speak the bridge ABI
// without a real compiler toolchain: a stub logs a message, fetches a
// named dependency, and returns a canned artifact. The package is not a
// compiler; it covers exactly the sections and instructions the stubs
// need.
package wasmgen
