package router

import (
	"context"

	"github.com/wippyai/compiler-host/errors"
	"github.com/wippyai/compiler-host/registry"
)

// Log routes a guest log message to the log behavior registered for h.
// Fire-and-forget: nothing flows back to the guest on success. A panic in
// the behavior is deliberately not recovered here; it propagates to the
// guest invocation that emitted the message.
func Log(reg *registry.Registry, h registry.Handle, message string) error {
	ent, err := reg.Lookup(h)
	if err != nil {
		return err
	}
	ent.Log(message)
	return nil
}

// FetchDependency routes a guest dependency request to the fetch behavior
// registered for h and returns its result unmodified. A behavior error is
// wrapped as callback_failed so callers can tell a misbehaving callback
// from a bad handle. The call runs on the invoking goroutine; nothing
// else is blocked while the behavior resolves.
func FetchDependency(ctx context.Context, reg *registry.Registry, h registry.Handle, name string) (string, error) {
	ent, err := reg.Lookup(h)
	if err != nil {
		return "", err
	}
	contents, err := ent.Fetch(ctx, name)
	if err != nil {
		return "", errors.CallbackFailed("fetch-dependency", int64(h), err)
	}
	return contents, nil
}
