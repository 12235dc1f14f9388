package hostfuncs

import (
	"context"
	"testing"

	"github.com/reglet-dev/devkit/domain/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope(t *testing.T) {
	_, ok := ScopeFrom(context.Background())
	assert.False(t, ok)
	assert.Empty(t, PluginFrom(context.Background()))

	scope := &Scope{Plugin: "tailwind", Arena: value.NewArena(), State: NewState(nil)}
	ctx := WithScope(context.Background(), scope)

	got, ok := ScopeFrom(withFunction(ctx, "log"))
	require.True(t, ok, "scope must survive the function name being attached")
	assert.Same(t, scope, got)
	assert.Equal(t, "tailwind", PluginFrom(ctx))

	_, ok = ScopeFrom(WithScope(context.Background(), nil))
	assert.False(t, ok)
}

func TestFunctionFrom(t *testing.T) {
	_, ok := FunctionFrom(context.Background())
	assert.False(t, ok)

	ctx := withFunction(context.Background(), "toml_get")
	name, ok := FunctionFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "toml_get", name)

	name, _ = FunctionFrom(withFunction(ctx, "toml_set"))
	assert.Equal(t, "toml_set", name, "innermost call wins")
}
