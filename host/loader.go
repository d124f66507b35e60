package host

import (
	"fmt"
	"os"
	"strings"

	"github.com/reglet-dev/reglet-nif/application/validation"
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/ports"
	"github.com/reglet-dev/reglet-nif/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	parser    ports.ManifestParser
	validator ports.ManifestValidator
	template  ports.TemplateEngine
	vars      map[string]string
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		validator: validation.NewManifestValidator(),
	}
}

// Loader reads and validates module manifests.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser fixes the manifest parser. By default LoadManifestFile picks one
// from the file extension and LoadManifest parses YAML.
func WithParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithValidator sets a custom manifest validator.
func WithValidator(v ports.ManifestValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// WithTemplate renders every manifest through engine with vars before it is
// parsed.
func WithTemplate(engine ports.TemplateEngine, vars map[string]string) LoaderOption {
	return func(c *loaderConfig) {
		c.template = engine
		c.vars = vars
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{config: cfg}
}

// LoadManifest parses and validates a manifest.
func (l *Loader) LoadManifest(raw []byte) (*entities.Manifest, error) {
	p := l.config.parser
	if p == nil {
		p = parser.NewYamlManifestParser()
	}
	return l.parse(p, raw)
}

// LoadManifestFile reads, parses, and validates the manifest at path.
func (l *Loader) LoadManifestFile(path string) (*entities.Manifest, error) {
	p := l.config.parser
	if p == nil {
		var err error
		if p, err = parser.ForPath(path); err != nil {
			return nil, err
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return l.parse(p, raw)
}

func (l *Loader) parse(p ports.ManifestParser, raw []byte) (*entities.Manifest, error) {
	if l.config.template != nil {
		var err error
		if raw, err = l.config.template.Render(raw, l.config.vars); err != nil {
			return nil, fmt.Errorf("failed to render manifest: %w", err)
		}
	}

	manifest, err := p.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if l.config.validator != nil {
		res, err := l.config.validator.Validate(manifest)
		if err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
		if !res.Valid {
			var b strings.Builder
			b.WriteString("manifest validation failed:")
			for _, e := range res.Mismatches {
				fmt.Fprintf(&b, "\n- %s: %s", e.Field, e.Message)
			}
			return nil, fmt.Errorf("%s", b.String())
		}
	}

	return manifest, nil
}
