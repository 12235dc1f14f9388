// Package schema generates JSON schemas for the files devkit reads: the
// devkit.yaml settings file and plugin manifests.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/devkit/application/config"
	"github.com/reglet-dev/devkit/domain/entities"
)

// Schema IDs published with the generated documents.
const (
	SettingsID = "https://reglet.dev/schemas/devkit.json"
	ManifestID = "https://reglet.dev/schemas/plugin.json"
)

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v interface{}) ([]byte, error) {
	return marshal(reflector().Reflect(v))
}

// Settings returns the schema of devkit.yaml.
func Settings() ([]byte, error) {
	s := reflector().Reflect(&config.Settings{})
	s.ID = SettingsID
	s.Title = "devkit settings"
	if plugins, ok := s.Properties.Get("plugins"); ok {
		plugins.Description = "Per-plugin configuration sections, keyed by plugin name"
		plugins.AdditionalProperties = &jsonschema.Schema{Type: "object"}
	}
	return marshal(s)
}

// Manifest returns the schema of plugin.yaml.
func Manifest() ([]byte, error) {
	s := reflector().Reflect(&entities.PluginManifest{})
	s.ID = ManifestID
	s.Title = "devkit plugin manifest"
	return marshal(s)
}

// Documents lists the schemas the schema command can print, by name.
func Documents() map[string]func() ([]byte, error) {
	return map[string]func() ([]byte, error){
		"settings": Settings,
		"manifest": Manifest,
	}
}

// Names returns the sorted document names.
func Names() []string {
	docs := Documents()
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
