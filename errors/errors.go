package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegistry Phase = "registry" // context table operations
	PhaseRoute    Phase = "route"    // callback routing
	PhaseCompile  Phase = "compile"  // guest compile invocation
	PhaseLoad     Phase = "load"     // module loading
	PhaseHost     Phase = "host"     // host module setup
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownContext    Kind = "unknown_context"
	KindContextBusy       Kind = "context_busy"
	KindCallbackFailed    Kind = "callback_failed"
	KindCompileFailed     Kind = "compile_failed"
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidData       Kind = "invalid_data"
	KindNotInitialized    Kind = "not_initialized"
	KindInstantiation     Kind = "instantiation"
	KindSignatureMismatch Kind = "signature_mismatch"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Kind always participates;
// the target's Phase participates only when set, so a caller can match
// "unknown_context anywhere" with &Error{Kind: KindUnknownContext}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && e.Phase != t.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return stderrors.Is(err, &Error{Kind: k})
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownContext creates an error for a handle that was never issued or
// has been destroyed.
func UnknownContext(phase Phase, handle int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownContext,
		Detail: fmt.Sprintf("no context registered for handle %d", handle),
		Value:  handle,
	}
}

// ContextBusy creates an error for a compile issued against a handle that
// already has a compile in flight.
func ContextBusy(handle int64) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindContextBusy,
		Detail: fmt.Sprintf("context %d already has a compilation in flight", handle),
		Value:  handle,
	}
}

// CallbackFailed wraps a failure of a caller-supplied callback.
func CallbackFailed(what string, handle int64, cause error) *Error {
	return &Error{
		Phase:  PhaseRoute,
		Kind:   KindCallbackFailed,
		Detail: fmt.Sprintf("%s callback for handle %d failed", what, handle),
		Value:  handle,
		Cause:  cause,
	}
}

// CompileFailed creates an error for a compilation the guest reported as
// failed.
func CompileFailed(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindCompileFailed,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Instantiation creates a guest instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// SignatureMismatch creates an error for a guest export that does not
// match the bridge ABI.
func SignatureMismatch(name, detail string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSignatureMismatch,
		Detail: fmt.Sprintf("export %q: %s", name, detail),
	}
}
