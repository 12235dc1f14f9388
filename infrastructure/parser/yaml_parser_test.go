package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYamlManifestParser_Parse(t *testing.T) {
	data := []byte(`
name: tailwind
version: 0.3.1
description: Compiles Tailwind CSS on rebuild
module: tailwind.wasm
`)
	m, err := NewYamlManifestParser().Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "tailwind", m.Name)
	assert.Equal(t, "0.3.1", m.Version)
	assert.Equal(t, "Compiles Tailwind CSS on rebuild", m.Description)
	assert.Equal(t, "tailwind.wasm", m.Module)
}

func TestYamlManifestParser_Strict(t *testing.T) {
	data := []byte("name: sass\nversion: 1.0.0\nmodule: sass.wasm\ncapabilities: [fs]\n")

	_, err := NewYamlManifestParser().Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capabilities")

	m, err := NewYamlManifestParser(WithStrict(false)).Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "sass", m.Name)
}

func TestYamlManifestParser_Errors(t *testing.T) {
	_, err := NewYamlManifestParser().Parse(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty manifest")

	_, err = NewYamlManifestParser().Parse([]byte("name: [unterminated"))
	require.Error(t, err)
}
