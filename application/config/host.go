// Package config loads the configuration of the nifhost command.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reglet-dev/reglet-nif/log"
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to the environment variables that override file settings,
// e.g. NIFHOST_LOG_LEVEL or NIFHOST_CALL_TIMEOUT.
const EnvPrefix = "NIFHOST"

// HostConfig configures a host runtime started from the command line.
type HostConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// Manifest is an optional manifest file the loaded module must match.
	Manifest string `mapstructure:"manifest"`
	// ManifestVars are substituted into manifests as {{ .vars.name }}.
	// Keys are lower-cased when read from a file.
	ManifestVars map[string]string `mapstructure:"manifest_vars"`
	// CallTimeout bounds a single call into the module. Zero disables it.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	// MemoryLimitPages caps guest memory (64KiB pages).
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
	// MaxRequestSize caps the payload of a single host function call.
	MaxRequestSize int `mapstructure:"max_request_size"`
	// SupportedMinor is the newest interface minor version the host accepts.
	SupportedMinor uint32 `mapstructure:"supported_minor"`
}

// LoadHostConfig reads defaults, then the optional file at configPath, then
// NIFHOST_* environment overrides.
func LoadHostConfig(configPath string) (*HostConfig, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("manifest", "")
	v.SetDefault("call_timeout", 30*time.Second)
	v.SetDefault("memory_limit_pages", 256) // 16MB
	v.SetDefault("max_request_size", 1<<20)
	v.SetDefault("supported_minor", nifabi.MinorVersion)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg HostConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be caught by decoding.
func (c *HostConfig) Validate() error {
	if c.MemoryLimitPages == 0 || c.MemoryLimitPages > 65536 {
		return fmt.Errorf("memory_limit_pages must be in 1..65536, got %d", c.MemoryLimitPages)
	}
	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("max_request_size must be positive, got %d", c.MaxRequestSize)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must not be negative, got %s", c.CallTimeout)
	}
	if c.SupportedMinor > nifabi.MinorVersion {
		return fmt.Errorf("supported_minor %d is newer than %d.%d", c.SupportedMinor, nifabi.MajorVersion, nifabi.MinorVersion)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *HostConfig) Level() slog.Level {
	return log.ParseLevel(c.LogLevel)
}
