package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapabilityRegistry(t *testing.T, caps Capabilities) *HandlerRegistry {
	t.Helper()
	reg, err := NewRegistry(WithBundle(CapabilityBundle(caps)))
	require.NoError(t, err)
	return reg
}

func invokeJSON[Resp any](t *testing.T, reg *HandlerRegistry, ctx context.Context, name string, req any) Resp {
	t.Helper()
	var payload []byte
	if req != nil {
		var err error
		payload, err = json.Marshal(req)
		require.NoError(t, err)
	}
	raw, err := reg.Invoke(ctx, name, payload)
	require.NoError(t, err)
	var resp Resp
	if raw != nil {
		require.NoError(t, json.Unmarshal(raw, &resp))
	}
	return resp
}

func TestCapabilities_PlatformAndOutputDirectory(t *testing.T) {
	reg := newCapabilityRegistry(t, Capabilities{
		Paths:     newFakePaths(),
		Platform:  entities.PlatformDesktop,
		OutputDir: "target/devkit/desktop",
	})
	ctx := context.Background()

	platform := invokeJSON[wireformat.PlatformWire](t, reg, ctx, "get_platform", nil)
	assert.Equal(t, "desktop", platform.Platform)

	out := invokeJSON[wireformat.OutputDirectoryWire](t, reg, ctx, "output_directory", struct{}{})
	assert.Equal(t, "target/devkit/desktop", out.Path)
}

func TestCapabilities_Refresh(t *testing.T) {
	reloader := &fakeReloader{}
	reg := newCapabilityRegistry(t, Capabilities{Paths: newFakePaths(), Reloader: reloader})
	ctx := context.Background()

	invokeJSON[struct{}](t, reg, ctx, "refresh_browser_page", nil)
	invokeJSON[struct{}](t, reg, ctx, "refresh_asset", wireformat.AssetRefreshWire{
		OldURL: "/assets/app-1.css",
		NewURL: "/assets/app-2.css",
	})

	assert.Equal(t, 1, reloader.pages)
	assert.Equal(t, []assetRefresh{{oldURL: "/assets/app-1.css", newURL: "/assets/app-2.css"}}, reloader.assets)
}

func TestCapabilities_RefreshWithoutReloader(t *testing.T) {
	reg := newCapabilityRegistry(t, Capabilities{Paths: newFakePaths()})
	assert.NotPanics(t, func() {
		invokeJSON[struct{}](t, reg, context.Background(), "refresh_browser_page", nil)
	})
}

func TestCapabilities_WatchedPaths(t *testing.T) {
	paths := newFakePaths()
	reg := newCapabilityRegistry(t, Capabilities{Paths: paths})
	ctx := context.Background()

	watch := func(p string) {
		invokeJSON[struct{}](t, reg, ctx, "watch_path", wireformat.PathWire{Path: p})
	}
	remove := func(p string) wireformat.ResultWire {
		return invokeJSON[wireformat.ResultWire](t, reg, ctx, "remove_path", wireformat.PathWire{Path: p})
	}
	list := func() []string {
		return invokeJSON[wireformat.PathsWire](t, reg, ctx, "watched_paths", nil).Paths
	}

	assert.Equal(t, []string{}, list())

	t.Run("watch is idempotent", func(t *testing.T) {
		watch("src/main.ui")
		watch("src/main.ui")
		assert.Equal(t, []string{"src/main.ui"}, list())
	})

	t.Run("remove succeeds once then fails", func(t *testing.T) {
		res := remove("src/main.ui")
		assert.True(t, res.OK)
		assert.Nil(t, res.Error)
		assert.Empty(t, list())

		res = remove("src/main.ui")
		assert.False(t, res.OK)
		require.NotNil(t, res.Error)
		assert.Equal(t, CodeNotFound, res.Error.Code)
		assert.Empty(t, list())
	})

	t.Run("remove of absent path leaves set unchanged", func(t *testing.T) {
		watch("a")
		watch("b")
		res := remove("c")
		assert.False(t, res.OK)
		assert.Equal(t, []string{"a", "b"}, list())
	})

	t.Run("empty path is ignored", func(t *testing.T) {
		watch("")
		assert.Equal(t, []string{"a", "b"}, list())
	})
}

func TestCapabilities_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := newCapabilityRegistry(t, Capabilities{Paths: newFakePaths(), Logger: logger})

	ctx := WithScope(context.Background(), &Scope{Plugin: "tailwind"})
	invokeJSON[struct{}](t, reg, ctx, "log", wireformat.LogWire{Message: "compiled styles"})
	invokeJSON[struct{}](t, reg, ctx, "log", wireformat.LogWire{Level: "warn", Message: "unused class"})
	invokeJSON[struct{}](t, reg, ctx, "log", wireformat.LogWire{Level: "shout", Message: "odd level"})
	invokeJSON[struct{}](t, reg, ctx, "log", wireformat.LogWire{
		Message: "wrote bundle",
		Attrs: []wireformat.LogAttrWire{
			{Key: "bytes", Type: "int64", Value: "2048"},
			{Key: "plugin", Type: "string", Value: "spoofed"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg="compiled styles" plugin=tailwind`)
	assert.Contains(t, out, `level=WARN msg="unused class" plugin=tailwind`)
	assert.Contains(t, out, `level=INFO msg="odd level"`)
	assert.Contains(t, out, `msg="wrote bundle" plugin=tailwind bytes=2048`)
	assert.NotContains(t, out, "spoofed")
}
