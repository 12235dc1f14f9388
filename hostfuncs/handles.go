package hostfuncs

import (
	"context"
	"errors"
	"fmt"

	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/wireformat"
)

// HandleBundle returns the handle operations on the calling plugin's arena:
// toml_new, toml_get, toml_set, toml_clone, toml_drop, toml_field and
// toml_index.
func HandleBundle() Bundle {
	return Bundle{
		"toml_new":   jsonFunc(PerformHandleNew),
		"toml_get":   jsonFunc(PerformHandleGet),
		"toml_set":   jsonFunc(PerformHandleSet),
		"toml_clone": jsonFunc(PerformHandleClone),
		"toml_drop":  voidFunc(PerformHandleDrop),
		"toml_field": jsonFunc(PerformHandleChild),
		"toml_index": jsonFunc(PerformHandleChild),
	}
}

// PerformHandleNew stores a value in the arena and returns its first handle.
func PerformHandleNew(ctx context.Context, req wireformat.HandleValueWire) wireformat.HandleResponseWire {
	arena, err := arenaFrom(ctx)
	if err != nil {
		return wireformat.HandleResponseWire{Error: handleError(err)}
	}
	if req.Value == nil {
		return wireformat.HandleResponseWire{Error: handleError(fmt.Errorf("%w: value is required", value.ErrMalformed))}
	}
	v, err := wireformat.DecodeValue(*req.Value)
	if err != nil {
		return wireformat.HandleResponseWire{Error: handleError(err)}
	}
	return wireformat.HandleResponseWire{Handle: uint32(arena.New(v).ID())}
}

// PerformHandleGet returns a snapshot of the value behind a handle.
func PerformHandleGet(ctx context.Context, req wireformat.HandleWire) wireformat.HandleValueWire {
	h, err := lookupHandle(ctx, req.Handle)
	if err != nil {
		return wireformat.HandleValueWire{Handle: req.Handle, Error: handleError(err)}
	}
	v, err := h.Get()
	if err != nil {
		return wireformat.HandleValueWire{Handle: req.Handle, Error: handleError(err)}
	}
	w, err := wireformat.EncodeValue(v)
	if err != nil {
		return wireformat.HandleValueWire{Handle: req.Handle, Error: handleError(err)}
	}
	return wireformat.HandleValueWire{Handle: req.Handle, Value: &w}
}

// PerformHandleSet replaces the node behind a handle for every alias.
func PerformHandleSet(ctx context.Context, req wireformat.HandleValueWire) wireformat.ResultWire {
	h, err := lookupHandle(ctx, req.Handle)
	if err != nil {
		return wireformat.ResultWire{Error: handleError(err)}
	}
	if req.Value == nil {
		return wireformat.ResultWire{Error: handleError(fmt.Errorf("%w: value is required", value.ErrMalformed))}
	}
	v, err := wireformat.DecodeValue(*req.Value)
	if err != nil {
		return wireformat.ResultWire{Error: handleError(err)}
	}
	if err := h.Set(v); err != nil {
		return wireformat.ResultWire{Error: handleError(err)}
	}
	return wireformat.ResultWire{OK: true}
}

// PerformHandleClone issues a new alias to the node behind a handle.
func PerformHandleClone(ctx context.Context, req wireformat.HandleWire) wireformat.HandleResponseWire {
	h, err := lookupHandle(ctx, req.Handle)
	if err != nil {
		return wireformat.HandleResponseWire{Error: handleError(err)}
	}
	c, err := h.Clone()
	if err != nil {
		return wireformat.HandleResponseWire{Error: handleError(err)}
	}
	return wireformat.HandleResponseWire{Handle: uint32(c.ID())}
}

// PerformHandleDrop releases a handle. Unknown handles are ignored.
func PerformHandleDrop(ctx context.Context, req wireformat.HandleWire) {
	if h, err := lookupHandle(ctx, req.Handle); err == nil {
		_ = h.Drop()
	}
}

// PerformHandleChild issues an alias to a child node, by key when Index is
// nil and by position otherwise.
func PerformHandleChild(ctx context.Context, req wireformat.HandleChildWire) wireformat.HandleResponseWire {
	h, err := lookupHandle(ctx, req.Handle)
	if err != nil {
		return wireformat.HandleResponseWire{Error: handleError(err)}
	}
	var child value.Handle
	if req.Index != nil {
		child, err = h.Index(*req.Index)
	} else {
		child, err = h.Field(req.Key)
	}
	if err != nil {
		return wireformat.HandleResponseWire{Error: handleError(err)}
	}
	return wireformat.HandleResponseWire{Handle: uint32(child.ID())}
}

func arenaFrom(ctx context.Context) (*value.Arena, error) {
	scope, ok := ScopeFrom(ctx)
	if !ok || scope.Arena == nil {
		return nil, errNoScope
	}
	return scope.Arena, nil
}

func lookupHandle(ctx context.Context, id uint32) (value.Handle, error) {
	arena, err := arenaFrom(ctx)
	if err != nil {
		return value.Handle{}, err
	}
	return arena.Lookup(value.HandleID(id))
}

// handleError classifies err for the wire. Transport failures keep their
// own type so the guest can tell a bad payload from a bad handle.
func handleError(err error) *wireformat.ErrorDetail {
	var te *derrors.TransportError
	switch {
	case errors.As(err, &te):
		return errorDetail("transport", CodeTransport, err)
	case errors.Is(err, value.ErrInvalidHandle), errors.Is(err, value.ErrNotComposite):
		return errorDetail("validation", CodeHandle, err)
	case errors.Is(err, errNoScope):
		return errorDetail("internal", CodeInternal, err)
	default:
		return errorDetail("transport", CodeTransport, err)
	}
}
