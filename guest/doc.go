// Package guest loads and drives the compiler module on wazero.
//
// The compiler is an opaque core-wasm binary. It addresses the host
// through two entry points under fixed, well-known names, carrying only
// an integer context handle:
//
//	env.log              (ctx: i32, ptr: i32, len: i32)
//	env.fetch-dependency (ctx: i32, ptr: i32, len: i32, buf: i32, cap: i32) -> i32
//
// log routes a UTF-8 message at ptr/len to the context's log behavior.
// fetch-dependency resolves the dependency named at ptr/len, writes up to
// cap bytes of its contents at buf, and returns the full length; a guest
// that passed too small a buffer re-allocates and retries.
//
// The guest in turn exports:
//
//	memory
//	alloc   (size: i32) -> i32
//	compile (ctx: i32, ptr: i32, len: i32) -> i64
//
// The host allocs and writes the source text into guest memory, then
// calls compile. The i64 result packs the artifact location as
// ptr<<32|len; a zero-length artifact means the compilation failed.
//
// Routing failures (unknown handle, failed callback) abort the guest
// invocation: the host function records the structured error and
// panics, wazero unwinds the guest call, and Compile surfaces the
// recorded error to the caller.
package guest
