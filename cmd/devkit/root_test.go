package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/devkit/application/schema"
	"github.com/reglet-dev/devkit/application/session"
	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSchemaCmd(t *testing.T) {
	out, _, err := execute(t, "schema", "manifest")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, schema.ManifestID, doc["$id"])
}

func TestSchemaCmd_Out(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas", "devkit.json")
	out, _, err := execute(t, "schema", "settings", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), schema.SettingsID)
}

func TestSchemaCmd_Unknown(t *testing.T) {
	_, _, err := execute(t, "schema", "bogus")
	require.Error(t, err)
}

func TestPluginInitCmd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "minify")
	out, _, err := execute(t, "plugin", "init", "minify", "--dir", dir, "--description", "Minifies HTML")
	require.NoError(t, err)
	assert.Contains(t, out, "created "+filepath.Join(dir, "plugin.yaml"))

	manifest, err := os.ReadFile(filepath.Join(dir, "plugin.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `description: "Minifies HTML"`)

	_, _, err = execute(t, "plugin", "init", "minify", "--dir", dir)
	require.Error(t, err, "existing files are not overwritten")
}

func TestPluginListCmd_Empty(t *testing.T) {
	project := t.TempDir()

	out, _, err := execute(t, "plugin", "list", "-C", project)
	require.NoError(t, err)
	assert.Equal(t, "no plugins installed\n", out)

	out, _, err = execute(t, "plugin", "list", "-C", project, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestPluginListCmd_WritesNothing(t *testing.T) {
	project := t.TempDir()
	pluginDir := filepath.Join(project, "plugins", "empty")
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.yaml"),
		[]byte("name: empty\nversion: \"0.1.0\"\nmodule: empty.wasm\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "empty.wasm"),
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, 0o600))
	settings := []byte("platform: web\n")
	require.NoError(t, os.WriteFile(filepath.Join(project, "devkit.yaml"), settings, 0o600))

	out, _, err := execute(t, "plugin", "list", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, out, "empty")
	assert.Contains(t, out, "pending")

	assert.NoFileExists(t, filepath.Join(project, "Devkit.lock"))
	data, err := os.ReadFile(filepath.Join(project, "devkit.yaml"))
	require.NoError(t, err)
	assert.Equal(t, settings, data)
}

func TestBuildCmd_WithoutCommand(t *testing.T) {
	project := t.TempDir()
	out, stderr, err := execute(t, "build", "-C", project, "--log-format", "json")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, `"msg":"no build command configured, skipping build"`)

	_, statErr := os.Stat(filepath.Join(project, "Devkit.lock"))
	assert.True(t, os.IsNotExist(statErr), "no plugins, no lock file")
}

func TestBuildCmd_InvalidSettings(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "devkit.yaml"), []byte("platform: ios\n"), 0o600))

	_, _, err := execute(t, "build", "-C", project)
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
}

func TestRunPluginList(t *testing.T) {
	plugins := []session.PluginInfo{
		{
			Manifest: entities.PluginManifest{Name: "sass", Version: "1.2.0", Description: "Compiles SCSS"},
			Record:   entities.PluginRecord{Name: "sass", Initialized: true},
			Dir:      "/p/plugins/sass",
		},
		{
			Manifest: entities.PluginManifest{Name: "broken", Version: "0.1.0"},
			Record:   entities.PluginRecord{Name: "broken"},
			Skipped:  true,
		},
		{
			Manifest: entities.PluginManifest{Name: "fresh", Version: "0.0.1"},
			Record:   entities.PluginRecord{Name: "fresh"},
		},
	}

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	require.NoError(t, runPluginList(cmd, &pluginListConfig{}, plugins))
	assert.Equal(t, ""+
		"NAME    VERSION  STATUS      DESCRIPTION\n"+
		"sass    1.2.0    registered  Compiles SCSS\n"+
		"broken  0.1.0    skipped     \n"+
		"fresh   0.0.1    pending     \n", buf.String())

	buf.Reset()
	require.NoError(t, runPluginList(cmd, &pluginListConfig{jsonOutput: true}, plugins))
	var rows []pluginListing
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "registered", rows[0].Status)
	assert.True(t, rows[0].Registered)
	assert.Equal(t, "skipped", rows[1].Status)
}
