package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultMaxRequestSize limits the size of incoming requests (1MB).
// This prevents a guest from triggering OOM by claiming a huge request size.
const DefaultMaxRequestSize = 1 * 1024 * 1024

// HostFunc is a generic function signature for host functions.
// It accepts a context and a typed request, and returns a typed response.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// VoidFunc is a host function with no response.
type VoidFunc[Req any] func(context.Context, Req)

// ByteHandler is a function that accepts raw bytes (JSON) and returns raw bytes (JSON).
// This is the common interface that WASM runtimes can easily use.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// HostFunction is a registered handler plus its return shape. Void
// functions return nothing to the guest.
type HostFunction struct {
	Handler ByteHandler
	Void    bool
}

// NewJSONHandler wraps a typed HostFunc into a ByteHandler.
// A request that does not decode is answered with a validation
// ErrorResponse rather than a Go error, so the guest sees a failure result
// instead of a trap.
//
// Usage:
//
//	platform := hostfuncs.NewJSONHandler(func(ctx context.Context, _ struct{}) wireformat.PlatformWire {
//	    return wireformat.PlatformWire{Platform: "web"}
//	})
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		req, errResp := decodeRequest[Req](payload)
		if errResp != nil {
			return errResp.ToJSON(), nil
		}

		resp := fn(ctx, req)

		respBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return respBytes, nil
	}
}

// NewVoidHandler wraps a VoidFunc into a ByteHandler that returns no bytes.
func NewVoidHandler[Req any](fn VoidFunc[Req]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		req, errResp := decodeRequest[Req](payload)
		if errResp != nil {
			return nil, *errResp
		}
		fn(ctx, req)
		return nil, nil
	}
}

// decodeRequest unmarshals payload. An empty payload decodes to the zero
// request so that argument-less functions can be called with no bytes.
func decodeRequest[Req any](payload []byte) (Req, *ErrorResponse) {
	var req Req
	if len(payload) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		e := NewValidationError(fmt.Sprintf("failed to unmarshal request: %v", err))
		return req, &e
	}
	return req, nil
}
