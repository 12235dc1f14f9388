package pluginsdk

import (
	"testing"

	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandle(t *testing.T) {
	f := useHost(t, map[string]any{"toml_new": wireformat.HandleResponseWire{Handle: 7}})

	v := value.Table(value.Field("input", value.String("src/app.css")))
	h, err := NewHandle(v)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), h.ID())

	var req wireformat.HandleValueWire
	f.request(t, 0, &req)
	require.NotNil(t, req.Value)
	got, err := wireformat.DecodeValue(*req.Value)
	require.NoError(t, err)
	assert.True(t, v.Equal(got))
}

func TestNewHandle_RejectsInvalidValue(t *testing.T) {
	f := useHost(t, nil)
	_, err := NewHandle(value.Table(value.Field("a", value.Integer(1)), value.Field("a", value.Integer(2))))
	assert.ErrorIs(t, err, value.ErrDuplicateKey)
	assert.Empty(t, f.calls, "invalid values never reach the host")
}

func TestHandle_Get(t *testing.T) {
	w, err := wireformat.EncodeValue(value.Array(value.Integer(1), value.Boolean(true)))
	require.NoError(t, err)

	t.Run("value", func(t *testing.T) {
		useHost(t, map[string]any{"toml_get": wireformat.HandleValueWire{Handle: 3, Value: &w}})
		v, err := Handle{id: 3}.Get()
		require.NoError(t, err)
		assert.Len(t, v.Elements(), 2)
	})

	t.Run("unknown handle", func(t *testing.T) {
		useHost(t, map[string]any{"toml_get": wireformat.HandleValueWire{
			Handle: 9,
			Error:  &wireformat.ErrorDetail{Type: "validation", Code: "INVALID_HANDLE", Message: "unknown handle 9"},
		}})
		_, err := Handle{id: 9}.Get()
		var detail *wireformat.ErrorDetail
		require.ErrorAs(t, err, &detail)
		assert.Equal(t, "INVALID_HANDLE", detail.Code)
	})

	t.Run("missing value", func(t *testing.T) {
		useHost(t, map[string]any{"toml_get": wireformat.HandleValueWire{Handle: 3}})
		_, err := Handle{id: 3}.Get()
		assert.ErrorIs(t, err, value.ErrMalformed)
	})
}

func TestHandle_Children(t *testing.T) {
	f := useHost(t, map[string]any{
		"toml_field": wireformat.HandleResponseWire{Handle: 4},
		"toml_index": wireformat.HandleResponseWire{Handle: 5},
		"toml_clone": wireformat.HandleResponseWire{Handle: 6},
	})
	root := Handle{id: 1}

	field, err := root.Field("entries")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), field.ID())

	elem, err := field.Index(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), elem.ID())

	clone, err := elem.Clone()
	require.NoError(t, err)
	assert.Equal(t, uint32(6), clone.ID())

	require.NoError(t, clone.Drop())

	var byKey, byIndex wireformat.HandleChildWire
	f.request(t, 0, &byKey)
	assert.Equal(t, "entries", byKey.Key)
	assert.Nil(t, byKey.Index)
	f.request(t, 1, &byIndex)
	require.NotNil(t, byIndex.Index, "index zero is sent")
	assert.Equal(t, 0, *byIndex.Index)
	assert.Equal(t, uint32(4), byIndex.Handle)

	assert.Equal(t, "toml_drop", f.calls[3].name)
	assert.True(t, f.calls[3].void)
}

func TestHandle_ZeroIssued(t *testing.T) {
	useHost(t, map[string]any{"toml_clone": wireformat.HandleResponseWire{}})
	_, err := Handle{id: 1}.Clone()
	assert.EqualError(t, err, "pluginsdk: toml_clone issued no handle")
}

func TestHandle_Set(t *testing.T) {
	f := useHost(t, map[string]any{"toml_set": wireformat.ResultWire{OK: true}})
	require.NoError(t, Handle{id: 2}.Set(value.String("dist")))

	var req wireformat.HandleValueWire
	f.request(t, 0, &req)
	assert.Equal(t, uint32(2), req.Handle)
	require.NotNil(t, req.Value)
	assert.Equal(t, "string", req.Value.Type)
}
