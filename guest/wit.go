package guest

import (
	"regexp"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/compiler-host/errors"
)

// BridgeWIT declares the compiler module's surface. The u64 results carry
// packed ptr<<32|len pairs; see the package doc for the core lowering.
const BridgeWIT = `
package compiler:host;

world bridge {
    import log: func(ctx: s32, message: string);
    import fetch-dependency: func(ctx: s32, name: string, buf: u32, cap: u32) -> u32;
    export alloc: func(size: u32) -> u32;
    export compile: func(ctx: s32, source: string) -> u64;
}
`

type funcSignature struct {
	params  []wit.Type
	results []wit.Type
}

var funcPattern = regexp.MustCompile(`(?:import\s+|export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseSignatures extracts function signatures from WIT text.
// Pattern: [import|export] name: func(params) -> result;
func parseSignatures(witText string) (map[string]*funcSignature, error) {
	funcs := make(map[string]*funcSignature)

	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		name := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := strings.TrimSpace(match[3])

		sig := &funcSignature{}

		if paramsStr != "" {
			for _, p := range strings.Split(paramsStr, ",") {
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typStr = p[idx+1:]
				}
				t, err := wit.ParseType(strings.TrimSpace(typStr))
				if err != nil {
					return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
						Cause(err).
						Detail("parse param type %q", strings.TrimSpace(typStr)).
						Build()
				}
				sig.params = append(sig.params, t)
			}
		}

		if resultStr != "" {
			t, err := wit.ParseType(resultStr)
			if err != nil {
				return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
					Cause(err).
					Detail("parse result type %q", resultStr).
					Build()
			}
			sig.results = []wit.Type{t}
		}

		funcs[name] = sig
	}

	if len(funcs) == 0 {
		return nil, errors.InvalidData(errors.PhaseLoad, "no functions found in WIT text")
	}

	return funcs, nil
}

// lower maps one WIT type to its core value types under the bridge ABI:
// strings become ptr/len pairs, 64-bit integers become i64, everything
// else a single i32.
func lower(t wit.Type) []api.ValueType {
	switch t.(type) {
	case wit.String:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}
	default:
		return []api.ValueType{api.ValueTypeI32}
	}
}

func (s *funcSignature) coreParams() []api.ValueType {
	var out []api.ValueType
	for _, t := range s.params {
		out = append(out, lower(t)...)
	}
	return out
}

func (s *funcSignature) coreResults() []api.ValueType {
	var out []api.ValueType
	for _, t := range s.results {
		out = append(out, lower(t)...)
	}
	return out
}

// verifyExports checks the guest's exported functions against the WIT
// declarations, failing at load time instead of trapping mid-compile.
func verifyExports(sigs map[string]*funcSignature, exports map[string]api.FunctionDefinition, names ...string) error {
	for _, name := range names {
		sig, ok := sigs[name]
		if !ok {
			return errors.SignatureMismatch(name, "not declared in WIT surface")
		}
		def, ok := exports[name]
		if !ok {
			return errors.SignatureMismatch(name, "not exported by guest")
		}
		if !valueTypesEqual(def.ParamTypes(), sig.coreParams()) {
			return errors.SignatureMismatch(name, "parameter types do not match the bridge ABI")
		}
		if !valueTypesEqual(def.ResultTypes(), sig.coreResults()) {
			return errors.SignatureMismatch(name, "result types do not match the bridge ABI")
		}
	}
	return nil
}

func valueTypesEqual(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
