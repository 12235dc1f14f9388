package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/internal/abi"
)

// errOutOfBounds is a guest response pointing outside linear memory.
var errOutOfBounds = errors.New("response out of guest memory bounds")

// invokeExport calls export and returns its packed result, or zero for
// exports without one. A nil input calls the export with no arguments;
// otherwise the input is copied into a guest buffer and passed as
// (ptr, len).
func (p *PluginInstance) invokeExport(ctx context.Context, export string, input []byte) (uint64, error) {
	fn := p.module.ExportedFunction(export)
	if fn == nil {
		return 0, fmt.Errorf("%w: %q", ErrExportNotFound, export)
	}

	var params []uint64
	if input != nil {
		ptr, err := p.copyIn(ctx, input)
		if err != nil {
			return 0, err
		}
		params = []uint64{uint64(ptr), uint64(len(input))}
	}

	results, err := fn.Call(ctx, params...)
	if err != nil || len(results) == 0 {
		return 0, err
	}
	return results[0], nil
}

// copyIn writes data into memory obtained from the guest allocator. The
// guest owns the buffer from then on.
func (p *PluginInstance) copyIn(ctx context.Context, data []byte) (uint32, error) {
	allocate := p.module.ExportedFunction("allocate")
	if allocate == nil {
		return 0, fmt.Errorf("%w: %q", ErrExportNotFound, "allocate")
	}
	res, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("guest allocate of %d bytes: %w", len(data), err)
	}
	if len(res) == 0 {
		return 0, errors.New("guest allocate returned no pointer")
	}
	ptr := uint32(res[0]) //nolint:gosec // G115: wasm32 pointers fit in 32 bits
	if !p.module.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("guest buffer at %#x too small for %d bytes", ptr, len(data))
	}
	return ptr, nil
}

// decodeResult reads the JSON response packed points at into v. Guest
// memory is left for the guest to release.
func (p *PluginInstance) decodeResult(export string, packed uint64, v any) error {
	fail := func(err error) error {
		return &derrors.TransportError{Operation: "decode", Type: export, Err: err}
	}
	ptr, length := abi.Split(packed)
	if ptr == 0 || length == 0 {
		return fail(ErrNullResponse)
	}
	data, ok := p.module.Memory().Read(ptr, length)
	if !ok {
		return fail(errOutOfBounds)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fail(err)
	}
	return nil
}
