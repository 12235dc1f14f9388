package host

import (
	"context"
	"testing"
	"time"

	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/domain/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, opts ...Option) *Executor {
	t.Helper()
	ctx := context.Background()
	e, err := NewExecutor(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, e)
	if e != nil {
		assert.NoError(t, e.Close(ctx))
	}
}

func TestExecutor_LoadPlugin(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	p, err := e.LoadPlugin(ctx, "empty", emptyModule, map[string][]byte{"k": []byte("v")})
	require.NoError(t, err)
	assert.Equal(t, "empty", p.Name())
	assert.Equal(t, map[string][]byte{"k": []byte("v")}, p.State())

	_, err = e.LoadPlugin(ctx, "broken", []byte("not wasm"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile")
}

func TestPluginInstance_MissingExports(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	p, err := e.LoadPlugin(ctx, "empty", emptyModule, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
	}{
		{"register", func() error { return p.Register(ctx) }},
		{"before_build", func() error { return p.BeforeBuild(ctx) }},
		{"before_serve", func() error { return p.BeforeServe(ctx) }},
		{"on_rebuild", func() error { return p.OnRebuild(ctx) }},
		{"on_hot_reload", func() error { return p.OnHotReload(ctx) }},
		{"on_watched_paths_change", func() error { return p.OnWatchedPathsChange(ctx, []string{"a"}) }},
		{"apply_config", func() error { return p.ApplyConfig(ctx, value.Table()) }},
		{"get_default_config", func() error { _, err := p.GetDefaultConfig(ctx); return err }},
		{"describe", func() error { _, err := p.Describe(ctx); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExportNotFound)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestPluginInstance_ApplyConfigRejectsInvalidValue(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()
	p, err := e.LoadPlugin(ctx, "empty", emptyModule, nil)
	require.NoError(t, err)

	dup := value.Table(value.Field("a", value.Integer(1)), value.Field("a", value.Integer(2)))
	err = p.ApplyConfig(ctx, dup)

	var te *derrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "encode", te.Operation)
	assert.ErrorIs(t, err, value.ErrDuplicateKey)
	assert.Zero(t, p.arena.Live(), "arena is reset after the call")
}

func TestPluginInstance_NullResponse(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()
	p, err := e.LoadPlugin(ctx, "hooks", hookModule, nil)
	require.NoError(t, err)

	err = p.Register(ctx)
	var te *derrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, ErrNullResponse)
	assert.Equal(t, "register", te.Type)
}

func TestPluginInstance_Timeout(t *testing.T) {
	e := newTestExecutor(t, WithHookTimeout(50*time.Millisecond))
	ctx := context.Background()
	p, err := e.LoadPlugin(ctx, "stuck", hookModule, nil)
	require.NoError(t, err)

	start := time.Now()
	err = p.BeforeBuild(ctx)
	assert.Less(t, time.Since(start), 5*time.Second)

	var timeout *derrors.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "before_build", timeout.Operation)
	assert.Equal(t, "stuck", timeout.Target)

	err = p.Register(ctx)
	assert.ErrorIs(t, err, ErrPluginDisabled)
}
