package compilerhost

import (
	"context"

	"github.com/wippyai/compiler-host/registry"
)

// Artifact is the output of one compilation. The bytes are opaque to the
// bridge; typically they are a wasm binary produced by the compiler guest.
type Artifact struct {
	Wasm []byte
}

// CompilerModule is a loaded, ready-to-use compiler guest.
//
// Compile invokes the guest's compile entry point with a context handle
// and source text. The handle must be live in the registry the module was
// loaded against: the guest calls back with it, and callbacks for a
// destroyed handle fail the invocation.
type CompilerModule interface {
	Compile(ctx context.Context, h registry.Handle, source string) (*Artifact, error)
	Close(ctx context.Context) error
}

// Loader yields a ready-to-use compiler module bound to a registry.
// Implementations may cache expensive setup; the bridge calls Load at
// most once per Bridge.
type Loader interface {
	Load(ctx context.Context, reg *registry.Registry) (CompilerModule, error)
}
