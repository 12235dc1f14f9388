package pluginsdk

import (
	"fmt"

	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/wireformat"
)

// Handle refers to a structured value owned by the host. Handles are only
// valid until the hook that obtained them returns; the host discards its
// arena after every call.
type Handle struct {
	id uint32
}

// NewHandle stores v in the host arena.
func NewHandle(v value.Value) (Handle, error) {
	w, err := wireformat.EncodeValue(v)
	if err != nil {
		return Handle{}, err
	}
	return issued("toml_new", wireformat.HandleValueWire{Value: &w})
}

// ID returns the raw handle number. Zero is never issued.
func (h Handle) ID() uint32 { return h.id }

// Get copies the value out of the host.
func (h Handle) Get() (value.Value, error) {
	resp, err := invoke[wireformat.HandleValueWire]("toml_get", wireformat.HandleWire{Handle: h.id})
	if err != nil {
		return value.Value{}, err
	}
	if resp.Error != nil {
		return value.Value{}, resp.Error
	}
	if resp.Value == nil {
		return value.Value{}, fmt.Errorf("pluginsdk: handle %d: %w: no value", h.id, value.ErrMalformed)
	}
	return wireformat.DecodeValue(*resp.Value)
}

// Set replaces the value behind the handle. Children obtained through
// Field or Index see the change.
func (h Handle) Set(v value.Value) error {
	w, err := wireformat.EncodeValue(v)
	if err != nil {
		return err
	}
	resp, err := invoke[wireformat.ResultWire]("toml_set", wireformat.HandleValueWire{Handle: h.id, Value: &w})
	if err != nil {
		return err
	}
	return resultErr("toml_set", resp)
}

// Clone returns a handle to an independent deep copy.
func (h Handle) Clone() (Handle, error) {
	return issued("toml_clone", wireformat.HandleWire{Handle: h.id})
}

// Drop releases the handle. Dropping an unknown handle is a no-op.
func (h Handle) Drop() error {
	return notify("toml_drop", wireformat.HandleWire{Handle: h.id})
}

// Field returns a handle to the value stored under key in a table.
func (h Handle) Field(key string) (Handle, error) {
	return issued("toml_field", wireformat.HandleChildWire{Handle: h.id, Key: key})
}

// Index returns a handle to element i of an array.
func (h Handle) Index(i int) (Handle, error) {
	return issued("toml_index", wireformat.HandleChildWire{Handle: h.id, Index: &i})
}

func issued(name string, req any) (Handle, error) {
	resp, err := invoke[wireformat.HandleResponseWire](name, req)
	if err != nil {
		return Handle{}, err
	}
	if resp.Error != nil {
		return Handle{}, resp.Error
	}
	if resp.Handle == 0 {
		return Handle{}, fmt.Errorf("pluginsdk: %s issued no handle", name)
	}
	return Handle{id: resp.Handle}, nil
}
