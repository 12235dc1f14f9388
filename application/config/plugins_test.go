package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reglet-dev/devkit/domain/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedPlugin_WritesBackPreservingFile(t *testing.T) {
	path := writeSettings(t, "# project settings\nplatform: web\nplugins:\n  sass:\n    entry: main.scss\n")
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	defaults := value.Table(
		value.Field("input", value.String("app.css")),
		value.Field("minify", value.Boolean(true)),
		value.Field("level", value.Integer(2)),
		value.Field("ratio", value.Float(1)),
		value.Field("watch", value.Array(value.String("styles"))),
	)
	require.NoError(t, cfg.SeedPlugin("tailwind", defaults))

	got, ok, err := cfg.PluginConfig("tailwind")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, got.Len())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "# project settings")
	assert.Contains(t, text, "entry: main.scss")
	assert.Contains(t, text, "ratio: 1.0")
	assert.Less(t, strings.Index(text, "input:"), strings.Index(text, "minify:"), "table order is kept")

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	again, ok, err := reloaded.PluginConfig("tailwind")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(again), "%s != %s", got, again)
}

func TestSeedPlugin_KeepsExistingSection(t *testing.T) {
	path := writeSettings(t, "plugins:\n  sass:\n    entry: main.scss\n")
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, cfg.SeedPlugin("sass", value.Table(value.Field("entry", value.String("other.scss")))))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSeedPlugin_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	require.NoError(t, cfg.SeedPlugin("fmt", value.Table(value.Field("width", value.Integer(80)))))

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	v, ok, err := reloaded.PluginConfig("fmt")
	require.NoError(t, err)
	require.True(t, ok)
	width, _ := v.Lookup("width")
	n, _ := width.AsInteger()
	assert.Equal(t, int64(80), n)
}

func TestSeedPlugin_RejectsDuplicateKeys(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile), nil)
	require.NoError(t, err)

	dup := value.Table(value.Field("a", value.Integer(1)), value.Field("a", value.Integer(2)))
	err = cfg.SeedPlugin("bad", dup)
	require.ErrorIs(t, err, value.ErrDuplicateKey)

	_, ok, _ := cfg.PluginConfig("bad")
	assert.False(t, ok)
}
