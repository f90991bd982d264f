package wasmgen

// Guest memory layout used by stub compilers. Static strings live below
// the scratch buffer; alloc hands out bump-allocated space above it.
const (
	stubLogOffset      = 16
	stubDepOffset      = 256
	stubArtifactOffset = 512
	stubScratchOffset  = 1024
	stubScratchCap     = 512
	stubHeapBase       = 2048
)

// StubConfig controls the behavior of a synthesized compiler guest.
type StubConfig struct {
	// LogMessage is emitted through env.log at the start of compile.
	// Empty disables the call.
	LogMessage string

	// Dependency is fetched through env.fetch-dependency once per
	// compile. Empty disables the call.
	Dependency string

	// Artifact is what compile returns. Nil means StubArtifact().
	Artifact []byte

	// EmptyArtifact makes compile return a zero-length artifact, the
	// guest convention for a failed compilation.
	EmptyArtifact bool
}

// StubCompiler synthesizes a compiler guest speaking the bridge ABI:
// it exports memory, alloc and compile, imports env.log and
// env.fetch-dependency, and behaves per cfg regardless of the source
// text it is given.
func StubCompiler(cfg StubConfig) []byte {
	artifact := cfg.Artifact
	if artifact == nil {
		artifact = StubArtifact()
	}

	var m Module

	tLog := m.AddType(FuncType{Params: []ValType{I32, I32, I32}})
	tFetch := m.AddType(FuncType{Params: []ValType{I32, I32, I32, I32, I32}, Results: []ValType{I32}})
	tCompile := m.AddType(FuncType{Params: []ValType{I32, I32, I32}, Results: []ValType{I64}})
	tAlloc := m.AddType(FuncType{Params: []ValType{I32}, Results: []ValType{I32}})

	fnLog := m.AddImport("env", "log", tLog)
	fnFetch := m.AddImport("env", "fetch-dependency", tFetch)

	var compile Code
	if cfg.LogMessage != "" {
		compile.LocalGet(0).
			I32Const(stubLogOffset).
			I32Const(int32(len(cfg.LogMessage))).
			Call(fnLog)
	}
	if cfg.Dependency != "" {
		compile.LocalGet(0).
			I32Const(stubDepOffset).
			I32Const(int32(len(cfg.Dependency))).
			I32Const(stubScratchOffset).
			I32Const(stubScratchCap).
			Call(fnFetch).
			Drop()
	}
	if cfg.EmptyArtifact {
		compile.I64Const(0)
	} else {
		compile.I64Const(int64(stubArtifactOffset)<<32 | int64(len(artifact)))
	}
	compile.End()

	// Bump allocator: return the old heap pointer, advance by size.
	heap := m.AddGlobal(Global{Type: I32, Init: stubHeapBase, Mutable: true})
	var alloc Code
	alloc.GlobalGet(heap).
		GlobalGet(heap).
		LocalGet(0).
		I32Add().
		GlobalSet(heap).
		End()

	fnCompile := m.AddFunc(tCompile, compile.Bytes())
	fnAlloc := m.AddFunc(tAlloc, alloc.Bytes())

	m.SetMemory(1)
	m.ExportMemory("memory")
	m.ExportFunc("compile", fnCompile)
	m.ExportFunc("alloc", fnAlloc)

	if cfg.LogMessage != "" {
		m.AddData(stubLogOffset, []byte(cfg.LogMessage))
	}
	if cfg.Dependency != "" {
		m.AddData(stubDepOffset, []byte(cfg.Dependency))
	}
	if !cfg.EmptyArtifact {
		m.AddData(stubArtifactOffset, artifact)
	}

	return m.Encode()
}

// StubArtifact builds the canned compilation output: a module exporting
// main: func() -> i32 that returns 42.
func StubArtifact() []byte {
	var m Module

	tMain := m.AddType(FuncType{Results: []ValType{I32}})

	var main Code
	main.I32Const(42).End()

	fnMain := m.AddFunc(tMain, main.Bytes())
	m.ExportFunc("main", fnMain)

	return m.Encode()
}
