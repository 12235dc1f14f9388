package hostfuncs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nop(context.Context, []byte) ([]byte, error) { return nil, nil }

func TestNewRegistry_Empty(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Empty(t, reg.Names())
}

func TestNewRegistry_RejectsNames(t *testing.T) {
	tests := []struct {
		name    string
		opts    []RegistryOption
		wantErr []string
	}{
		{
			name:    "empty",
			opts:    []RegistryOption{WithByteHandler("", nop)},
			wantErr: []string{`invalid host function name ""`},
		},
		{
			name:    "not snake case",
			opts:    []RegistryOption{WithByteHandler("watchPath", nop), WithByteHandler("_private", nop)},
			wantErr: []string{`"watchPath"`, `"_private"`},
		},
		{
			name:    "missing handler",
			opts:    []RegistryOption{WithByteHandler("noop", nil)},
			wantErr: []string{`host function "noop" has no handler`},
		},
		{
			name: "clashes with a bundle",
			opts: []RegistryOption{
				WithByteHandler("watch_path", nop),
				WithBundle(CapabilityBundle(Capabilities{Paths: newFakePaths()})),
			},
			wantErr: []string{`host function "watch_path" registered twice`},
		},
		{
			name: "every problem is reported",
			opts: []RegistryOption{
				WithByteHandler("", nop),
				WithBundle(StateBundle(), StateBundle()),
			},
			wantErr: []string{`invalid host function name ""`, `"state_get" registered twice`, `"state_remove" registered twice`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.opts...)
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestHandlerRegistry_Invoke(t *testing.T) {
	reg, err := NewRegistry(WithByteHandler("echo", func(ctx context.Context, payload []byte) ([]byte, error) {
		name, _ := FunctionFrom(ctx)
		return append([]byte(name+":"), payload...), nil
	}))
	require.NoError(t, err)

	resp, err := reg.Invoke(context.Background(), "echo", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "echo:hello", string(resp))

	resp, err = reg.Invoke(context.Background(), "unknown", []byte("test"))
	require.NoError(t, err)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	require.NotNil(t, errResp.Err)
	assert.Equal(t, CodeNotFound, errResp.Err.Code)
	assert.Contains(t, errResp.Err.Message, "unknown")
}

func TestHandlerRegistry_FullSurface(t *testing.T) {
	reg, err := NewRegistry(WithBundle(
		CapabilityBundle(Capabilities{Paths: newFakePaths()}),
		HandleBundle(),
		StateBundle(),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"get_platform", "log", "output_directory", "refresh_asset", "refresh_browser_page",
		"remove_path", "state_get", "state_remove", "state_set",
		"toml_clone", "toml_drop", "toml_field", "toml_get", "toml_index", "toml_new", "toml_set",
		"watch_path", "watched_paths",
	}, reg.Names())

	for _, name := range []string{"log", "refresh_asset", "refresh_browser_page", "watch_path", "toml_drop"} {
		assert.True(t, reg.IsVoid(name), name)
	}
	for _, name := range []string{"get_platform", "remove_path", "watched_paths", "toml_get", "state_get"} {
		assert.False(t, reg.IsVoid(name), name)
	}

	assert.True(t, reg.Has("toml_new"))
	assert.False(t, reg.Has("toml_parse"))
	fn, ok := reg.Lookup("toml_drop")
	require.True(t, ok)
	assert.True(t, fn.Void)
	assert.NotNil(t, fn.Handler)
}

func TestHandlerRegistry_NamesAreCopies(t *testing.T) {
	reg, err := NewRegistry(
		WithByteHandler("zebra", nop),
		WithByteHandler("alpha", nop),
	)
	require.NoError(t, err)

	names := reg.Names()
	assert.Equal(t, []string{"alpha", "zebra"}, names)
	names[0] = "mutated"
	assert.Equal(t, []string{"alpha", "zebra"}, reg.Names())
}

func TestWithMiddleware_Order(t *testing.T) {
	var calls []string
	trace := func(label string) Middleware {
		return func(next ByteHandler) ByteHandler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				calls = append(calls, label+">")
				resp, err := next(ctx, payload)
				calls = append(calls, "<"+label)
				return resp, err
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(trace("outer")),
		WithMiddleware(trace("inner")),
		WithByteHandler("get_platform", func(context.Context, []byte) ([]byte, error) {
			calls = append(calls, "handler")
			return nil, nil
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "get_platform", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "handler", "<inner", "<outer"}, calls)
}
