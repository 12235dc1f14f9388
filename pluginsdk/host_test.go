package pluginsdk

import (
	"errors"
	"testing"

	"github.com/reglet-dev/devkit/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries(t *testing.T) {
	f := useHost(t, map[string]any{
		"get_platform":     wireformat.PlatformWire{Platform: "desktop"},
		"output_directory": wireformat.OutputDirectoryWire{Path: "/work/site/dist"},
		"watched_paths":    wireformat.PathsWire{Paths: []string{"src/**.css", "tailwind.config.js"}},
	})

	platform, err := Platform()
	require.NoError(t, err)
	assert.Equal(t, "desktop", platform)

	dir, err := OutputDirectory()
	require.NoError(t, err)
	assert.Equal(t, "/work/site/dist", dir)

	paths, err := WatchedPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/**.css", "tailwind.config.js"}, paths)

	for _, c := range f.calls {
		assert.Nil(t, c.req, "%s takes no request", c.name)
		assert.False(t, c.void)
	}
}

func TestNotifications(t *testing.T) {
	f := useHost(t, nil)

	require.NoError(t, WatchPath("styles/**.scss"))
	require.NoError(t, RefreshAsset("/app.css?v=1", "/app.css?v=2"))
	require.NoError(t, RefreshBrowserPage())

	require.Len(t, f.calls, 3)
	var path wireformat.PathWire
	f.request(t, 0, &path)
	assert.Equal(t, "styles/**.scss", path.Path)

	var asset wireformat.AssetRefreshWire
	f.request(t, 1, &asset)
	assert.Equal(t, wireformat.AssetRefreshWire{OldURL: "/app.css?v=1", NewURL: "/app.css?v=2"}, asset)

	assert.Equal(t, "refresh_browser_page", f.calls[2].name)
	assert.True(t, f.calls[2].void)
}

func TestRemovePath(t *testing.T) {
	t.Run("watched", func(t *testing.T) {
		useHost(t, map[string]any{"remove_path": wireformat.ResultWire{OK: true}})
		assert.NoError(t, RemovePath("src"))
	})

	t.Run("not watched", func(t *testing.T) {
		useHost(t, map[string]any{"remove_path": wireformat.ResultWire{
			Error: &wireformat.ErrorDetail{Type: "not_found", Code: "NOT_FOUND", Message: `path "src" is not watched`},
		}})
		err := RemovePath("src")
		var detail *wireformat.ErrorDetail
		require.ErrorAs(t, err, &detail)
		assert.Equal(t, "not_found", detail.Type)
	})

	t.Run("failure without detail", func(t *testing.T) {
		useHost(t, map[string]any{"remove_path": wireformat.ResultWire{}})
		assert.EqualError(t, RemovePath("src"), "pluginsdk: remove_path failed")
	})
}

func TestState(t *testing.T) {
	f := useHost(t, map[string]any{
		"state_get":    wireformat.StateEntryWire{Key: "hash", Value: []byte{0xde, 0xad}, Found: true},
		"state_set":    wireformat.ResultWire{OK: true},
		"state_remove": wireformat.ResultWire{OK: true},
	})

	require.NoError(t, SetState("hash", []byte{0xde, 0xad}))
	var entry wireformat.StateEntryWire
	f.request(t, 0, &entry)
	assert.Equal(t, []byte{0xde, 0xad}, entry.Value)

	val, found, err := State("hash")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{0xde, 0xad}, val)

	require.NoError(t, RemoveState("hash"))
	assert.Equal(t, "state_remove", f.calls[2].name)
}

func TestHostErrors(t *testing.T) {
	t.Run("transport failure", func(t *testing.T) {
		f := useHost(t, nil)
		f.err = errors.New("trap")
		_, err := Platform()
		assert.EqualError(t, err, "trap")
	})

	t.Run("empty response", func(t *testing.T) {
		useHost(t, map[string]any{})
		_, err := OutputDirectory()
		assert.EqualError(t, err, "pluginsdk: output_directory returned no response")
	})
}
