package ports

import "github.com/reglet-dev/devkit/domain/entities"

// ManifestValidator checks a parsed plugin manifest before its module is
// loaded.
type ManifestValidator interface {
	ValidateManifest(m *entities.PluginManifest) error
}
