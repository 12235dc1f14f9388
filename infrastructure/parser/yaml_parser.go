// Package parser reads plugin manifests.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlManifestParser implements ManifestParser for YAML.
type YamlManifestParser struct {
	strict bool
}

// Option configures a YamlManifestParser.
type Option func(*YamlManifestParser)

// WithStrict rejects unknown manifest fields (default true).
func WithStrict(strict bool) Option {
	return func(p *YamlManifestParser) {
		p.strict = strict
	}
}

// NewYamlManifestParser creates a new YamlManifestParser.
func NewYamlManifestParser(opts ...Option) ports.ManifestParser {
	p := &YamlManifestParser{strict: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse unmarshals YAML bytes into a PluginManifest struct.
func (p *YamlManifestParser) Parse(data []byte) (*entities.PluginManifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(p.strict)

	var manifest entities.PluginManifest
	if err := dec.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty manifest")
		}
		return nil, err
	}
	return &manifest, nil
}
