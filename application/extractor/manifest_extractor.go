// Package extractor derives manifests from loaded module descriptors.
package extractor

import (
	"fmt"
	"sort"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/nifabi"
)

type extractorConfig struct {
	description string
	sorted      bool
}

// Option configures FromDescriptor.
type Option func(*extractorConfig)

// WithDescription sets the description of the produced manifest.
func WithDescription(d string) Option {
	return func(c *extractorConfig) {
		c.description = d
	}
}

// WithSortedFunctions orders functions by name instead of export order.
func WithSortedFunctions() Option {
	return func(c *extractorConfig) {
		c.sorted = true
	}
}

// FromDescriptor builds the manifest a descriptor satisfies. Verifying the
// result against the same descriptor always succeeds.
func FromDescriptor(e nifabi.Entry, opts ...Option) (*entities.Manifest, error) {
	var cfg extractorConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if e.Name == "" {
		return nil, fmt.Errorf("descriptor has no module name")
	}

	m := &entities.Manifest{
		Module:      e.Name,
		Description: cfg.description,
		Functions:   make([]entities.ManifestFunction, 0, len(e.Funcs)),
		Load:        e.Load != 0,
	}
	for _, f := range e.Funcs {
		m.Functions = append(m.Functions, entities.ManifestFunction{Name: f.Name, Arity: int(f.Arity)})
	}
	if cfg.sorted {
		sort.Slice(m.Functions, func(i, j int) bool { return m.Functions[i].Name < m.Functions[j].Name })
	}
	return m, nil
}
