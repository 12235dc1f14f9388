package validation

import (
	"strings"
	"testing"

	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateManifest(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		manifest entities.PluginManifest
		wantErr  string
	}{
		{
			name:     "valid",
			manifest: entities.PluginManifest{Name: "tailwind", Version: "0.1.0", Module: "tailwind.wasm"},
		},
		{
			name:     "missing name",
			manifest: entities.PluginManifest{Version: "0.1.0", Module: "x.wasm"},
			wantErr:  "PluginManifest.Name: is required",
		},
		{
			name:     "uppercase name",
			manifest: entities.PluginManifest{Name: "Tailwind", Version: "0.1.0", Module: "x.wasm"},
			wantErr:  "must be lowercase",
		},
		{
			name:     "name too long",
			manifest: entities.PluginManifest{Name: strings.Repeat("a", 65), Version: "1", Module: "x.wasm"},
			wantErr:  "at most 64",
		},
		{
			name:     "module not wasm",
			manifest: entities.PluginManifest{Name: "sass", Version: "1", Module: "sass.so"},
			wantErr:  "must end with .wasm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateManifest(&tt.manifest)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Platform(t *testing.T) {
	type settings struct {
		Platform string `validate:"required,platform"`
	}
	v := New()

	res, err := v.Validate(&settings{Platform: "desktop"})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = v.Validate(&settings{Platform: "tui"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "settings.Platform", res.Errors[0].Field)
	assert.Contains(t, res.Errors[0].Message, "web or desktop")
}

func TestValidate_NotAStruct(t *testing.T) {
	_, err := New().Validate(42)
	require.Error(t, err)
}
