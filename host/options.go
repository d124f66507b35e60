package host

import (
	"log/slog"
	"time"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/hostfuncs"
	"github.com/reglet-dev/reglet-nif/nifabi"
)

// config holds the settings shared by both backends.
type config struct {
	logger           *slog.Logger
	manifest         *entities.Manifest
	bundles          []hostfuncs.HostFuncBundle
	callTimeout      time.Duration
	maxRequestSize   uint32
	memoryLimitPages uint32
	supportedMinor   uint32
}

func defaultConfig() config {
	return config{
		logger:         slog.Default(),
		maxRequestSize: hostfuncs.DefaultMaxRequestSize,
		supportedMinor: nifabi.MinorVersion,
	}
}

// Option configures a Runtime or an in-process module.
type Option func(*config)

// WithLogger sets the host logger. Guest log records are re-emitted on it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithManifest makes Load refuse modules whose descriptor differs from m.
func WithManifest(m *entities.Manifest) Option {
	return func(c *config) {
		c.manifest = m
	}
}

// WithSupportedMinor sets the newest interface minor version the host accepts.
// Values above nifabi.MinorVersion are clamped.
func WithSupportedMinor(minor uint32) Option {
	return func(c *config) {
		c.supportedMinor = min(minor, nifabi.MinorVersion)
	}
}

// WithCallTimeout bounds every call into the module. On the wazero backend an
// expired call closes the instance and the module is unloaded.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) {
		c.callTimeout = d
	}
}

// WithMemoryLimitPages caps guest memory (64KiB pages). wazero backend only.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}

// WithMaxRequestSize caps the payload of a single host function call.
func WithMaxRequestSize(size uint32) Option {
	return func(c *config) {
		if size > 0 {
			c.maxRequestSize = size
		}
	}
}

// WithHostFunctions adds host functions to the nif_host module next to the
// term and logging functions. wazero backend only.
func WithHostFunctions(bundle hostfuncs.HostFuncBundle) Option {
	return func(c *config) {
		c.bundles = append(c.bundles, bundle)
	}
}
