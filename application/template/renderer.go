// Package template expands variables in manifests before they are parsed,
// so one manifest can describe builds of a module under several names.
package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/reglet-dev/reglet-nif/domain/ports"
)

type engineConfig struct {
	strict bool
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithStrict controls whether a reference to an unset variable fails the
// render. It is on by default; otherwise unset variables render empty.
func WithStrict(enabled bool) Option {
	return func(c *engineConfig) {
		c.strict = enabled
	}
}

// Engine renders manifests with text/template. Variables are available as
// {{ .vars.name }}; the functions lower, upper and default are defined.
type Engine struct {
	config engineConfig
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) ports.TemplateEngine {
	cfg := engineConfig{strict: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{config: cfg}
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"default": func(def string, v any) string {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
		return def
	},
}

// Render implements ports.TemplateEngine.
func (e *Engine) Render(raw []byte, vars map[string]string) ([]byte, error) {
	tmpl := template.New("manifest").Funcs(funcs)
	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	} else {
		tmpl = tmpl.Option("missingkey=zero")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}

	if vars == nil {
		vars = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{"vars": vars}); err != nil {
		return nil, fmt.Errorf("failed to execute manifest template: %w", err)
	}
	return buf.Bytes(), nil
}
