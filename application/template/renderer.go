// Package template renders and writes the skeleton of a new plugin.
package template

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/reglet-dev/devkit/domain/ports"
)

// GoTemplateEngine renders text/template sources. In strict mode, the
// default, a reference to a missing map key fails the render instead of
// printing "<no value>" into a generated file.
type GoTemplateEngine struct {
	strict bool
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*GoTemplateEngine)

// WithStrict toggles strict mode.
func WithStrict(enabled bool) TemplateOption {
	return func(e *GoTemplateEngine) {
		e.strict = enabled
	}
}

// NewGoTemplateEngine returns a strict engine unless opts say otherwise.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	e := &GoTemplateEngine{strict: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render parses raw as the template name and executes it with data.
func (e *GoTemplateEngine) Render(name string, raw []byte, data any) ([]byte, error) {
	missing := "missingkey=default"
	if e.strict {
		missing = "missingkey=error"
	}
	tmpl, err := template.New(name).Option(missing).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return out.Bytes(), nil
}
