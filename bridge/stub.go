package bridge

import (
	"context"
	"regexp"

	compilerhost "github.com/wippyai/compiler-host"
	"github.com/wippyai/compiler-host/errors"
	"github.com/wippyai/compiler-host/registry"
	"github.com/wippyai/compiler-host/router"
	"github.com/wippyai/compiler-host/wasmgen"
)

// importPattern matches the dependency references a stub compilation
// resolves: import <ident> from '<name>';
var importPattern = regexp.MustCompile(`import\s+\w+\s+from\s+'([^']+)'`)

// StubLoader is an in-process Loader needing no wasm binary. Its module
// mimics a compiler guest: it logs once per compile, fetches every
// dependency the source imports, and returns a canned artifact. Useful
// for tests and for exercising a host integration before the real
// compiler module is available.
type StubLoader struct{}

// Load returns the stub module bound to reg.
func (StubLoader) Load(_ context.Context, reg *registry.Registry) (compilerhost.CompilerModule, error) {
	if reg == nil {
		return nil, errors.NotInitialized(errors.PhaseLoad, "registry")
	}
	return &stubModule{reg: reg}, nil
}

type stubModule struct {
	reg *registry.Registry
}

func (m *stubModule) Compile(ctx context.Context, h registry.Handle, source string) (*compilerhost.Artifact, error) {
	if err := router.Log(m.reg, h, "compiling"); err != nil {
		return nil, err
	}
	if source == "" {
		return nil, errors.CompileFailed("empty source", nil)
	}

	for _, match := range importPattern.FindAllStringSubmatch(source, -1) {
		if _, err := router.FetchDependency(ctx, m.reg, h, match[1]); err != nil {
			return nil, err
		}
	}

	return &compilerhost.Artifact{Wasm: wasmgen.StubArtifact()}, nil
}

func (m *stubModule) Close(context.Context) error {
	return nil
}
