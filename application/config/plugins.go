package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/reglet-dev/devkit/domain/value"
	"gopkg.in/yaml.v3"
)

// PluginConfig converts the plugins.<name> section to a value. It reports
// false when the section is absent.
func (c *Config) PluginConfig(name string) (value.Value, bool, error) {
	raw, ok := c.Plugins[name]
	if !ok {
		return value.Value{}, false, nil
	}
	if raw == nil {
		return value.Table(), true, nil
	}
	v, err := value.FromNative(raw)
	if err != nil {
		return value.Value{}, true, fmt.Errorf("plugins.%s: %w", name, err)
	}
	return v, true, nil
}

// SeedPlugin records v as the plugins.<name> section, both in memory and in
// the settings file. Existing content of the file, including comments, is
// preserved. An existing section is left untouched.
func (c *Config) SeedPlugin(name string, v value.Value) error {
	if _, ok := c.Plugins[name]; ok {
		return nil
	}
	native, err := value.ToNative(v)
	if err != nil {
		return fmt.Errorf("plugins.%s: %w", name, err)
	}
	if c.path != "" {
		node, err := valueNode(v)
		if err != nil {
			return fmt.Errorf("plugins.%s: %w", name, err)
		}
		if err := writeSection(c.path, name, node); err != nil {
			return err
		}
	}

	if c.k != nil {
		if err := c.k.Set("plugins."+name, native); err != nil {
			return fmt.Errorf("plugins.%s: %w", name, err)
		}
	}
	if c.Plugins == nil {
		c.Plugins = make(map[string]any)
	}
	c.Plugins[name] = native
	return nil
}

func writeSection(path, name string, section *yaml.Node) error {
	var doc yaml.Node
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top level must be a mapping", path)
	}

	plugins := mappingValue(root, "plugins")
	switch {
	case plugins == nil:
		plugins = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		root.Content = append(root.Content, scalar("plugins"), plugins)
	case plugins.Kind != yaml.MappingNode:
		// "plugins:" with no entries decodes as a null scalar.
		*plugins = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	plugins.Content = append(plugins.Content, scalar(name), section)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// valueNode renders v as a YAML node, keeping table order.
func valueNode(v value.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return scalar(s), nil
	case value.KindInteger:
		i, _ := v.AsInteger()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}, nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(f)}, nil
	case value.KindBoolean:
		b, _ := v.AsBoolean()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}, nil
	case value.KindDateTime:
		dt, _ := v.AsDateTime()
		if _, ok := dt.ToTime(); ok {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: dt.String()}, nil
		}
		return scalar(dt.String()), nil
	case value.KindArray:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Elements() {
			child, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case value.KindTable:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v.Entries() {
			child, err := valueNode(e.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, scalar(e.Key), child)
		}
		return n, nil
	default:
		return nil, value.ErrMalformed
	}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		s += ".0"
	}
	return s
}
