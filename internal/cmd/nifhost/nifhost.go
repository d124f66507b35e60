// Package nifhost implements the nifhost command: it loads a wasm module
// through the host runtime and describes it, calls it, or checks it against a
// manifest.
package nifhost

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/reglet-dev/reglet-nif/application/config"
	"github.com/reglet-dev/reglet-nif/application/extractor"
	"github.com/reglet-dev/reglet-nif/application/schema"
	"github.com/reglet-dev/reglet-nif/application/template"
	"github.com/reglet-dev/reglet-nif/application/validation"
	domainerrors "github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/host"
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

const usage = `usage: nifhost [flags] <command> [args]

commands:
  describe <module.wasm>                 print the module descriptor
  call <module.wasm> <function> [json]   call a function; json is an array of arguments
  verify <module.wasm> <manifest>        compare the descriptor with a manifest (.yaml, .json, .hcl)
  manifest <module.wasm>                 print a YAML manifest matching the module
  schema                                 print the manifest JSON schema
`

// Config holds the parsed command line.
type Config struct {
	Host       *config.HostConfig
	ConfigPath string
	LoadInfo   string
	Command    string
	Args       []string
}

// ParseConfig parses flags and loads the host configuration they point at.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	var manifest string
	fs.StringVar(&cfg.ConfigPath, "config", "", "host configuration file (yaml, toml, json)")
	fs.StringVar(&cfg.LoadInfo, "load-info", "{}", "JSON value passed to the load hook")
	fs.StringVar(&manifest, "manifest", "", "manifest the module must match (overrides the config file)")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() == 0 {
		return Config{}, errors.New("missing command")
	}
	cfg.Command = fs.Arg(0)
	cfg.Args = fs.Args()[1:]

	hostCfg, err := config.LoadHostConfig(cfg.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	if manifest != "" {
		hostCfg.Manifest = manifest
	}
	cfg.Host = hostCfg
	return cfg, nil
}

// Run executes the parsed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.Host.Level()}))

	switch cfg.Command {
	case "schema":
		data, err := schema.ManifestSchema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "describe":
		if len(cfg.Args) != 1 {
			return fmt.Errorf("describe takes 1 argument, got %d", len(cfg.Args))
		}
		return withModule(ctx, cfg, logger, cfg.Args[0], func(mod *host.Module) error {
			return writeJSON(out, describe(mod.Info()))
		})
	case "call":
		if len(cfg.Args) < 2 || len(cfg.Args) > 3 {
			return fmt.Errorf("call takes 2 or 3 arguments, got %d", len(cfg.Args))
		}
		argsJSON := "[]"
		if len(cfg.Args) == 3 {
			argsJSON = cfg.Args[2]
		}
		args, err := ParseArgs(argsJSON)
		if err != nil {
			return err
		}
		return withModule(ctx, cfg, logger, cfg.Args[0], func(mod *host.Module) error {
			v, err := mod.Call(ctx, cfg.Args[1], args...)
			var trap *domainerrors.TrapError
			if errors.As(err, &trap) && trap.Stderr != "" {
				fmt.Fprintf(errOut, "guest stderr:\n%s\n", trap.Stderr)
			}
			if err != nil {
				return err
			}
			data, err := term.ToJSON(v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		})
	case "manifest":
		if len(cfg.Args) != 1 {
			return fmt.Errorf("manifest takes 1 argument, got %d", len(cfg.Args))
		}
		return withModule(ctx, cfg, logger, cfg.Args[0], func(mod *host.Module) error {
			m, err := extractor.FromDescriptor(mod.Info())
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(m)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		})
	case "verify":
		if len(cfg.Args) != 2 {
			return fmt.Errorf("verify takes 2 arguments, got %d", len(cfg.Args))
		}
		manifest, err := manifestLoader(cfg.Host).LoadManifestFile(cfg.Args[1])
		if err != nil {
			return err
		}
		// Load without the manifest so every mismatch can be reported.
		noManifest := cfg
		hostCfg := *cfg.Host
		hostCfg.Manifest = ""
		noManifest.Host = &hostCfg
		return withModule(ctx, noManifest, logger, cfg.Args[0], func(mod *host.Module) error {
			info := mod.Info()
			res := validation.VerifyDescriptor(manifest, &info)
			if err := writeJSON(out, res); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("module %q does not match %s", info.Name, cfg.Args[1])
			}
			return nil
		})
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

// withModule loads the module at path, runs fn, and unloads the module.
func withModule(ctx context.Context, cfg Config, logger *slog.Logger, path string, fn func(*host.Module) error) error {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}
	loadInfo, err := term.FromJSON([]byte(cfg.LoadInfo))
	if err != nil {
		return fmt.Errorf("load info: %w", err)
	}

	opts := []host.Option{
		host.WithLogger(logger),
		host.WithCallTimeout(cfg.Host.CallTimeout),
		host.WithMemoryLimitPages(cfg.Host.MemoryLimitPages),
		host.WithMaxRequestSize(uint32(cfg.Host.MaxRequestSize)), //nolint:gosec // G115: validated positive
		host.WithSupportedMinor(cfg.Host.SupportedMinor),
	}
	if cfg.Host.Manifest != "" {
		manifest, err := manifestLoader(cfg.Host).LoadManifestFile(cfg.Host.Manifest)
		if err != nil {
			return err
		}
		opts = append(opts, host.WithManifest(manifest))
	}

	rt, err := host.NewRuntime(ctx, opts...)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	mod, err := rt.Load(ctx, wasm, loadInfo)
	if err != nil {
		return err
	}
	defer mod.Close(ctx)
	return fn(mod)
}

// manifestLoader expands manifest_vars in manifests when any are configured.
func manifestLoader(cfg *config.HostConfig) *host.Loader {
	if len(cfg.ManifestVars) == 0 {
		return host.NewLoader()
	}
	return host.NewLoader(host.WithTemplate(template.NewEngine(), cfg.ManifestVars))
}

// ParseArgs parses a JSON array into call arguments.
func ParseArgs(s string) ([]cty.Value, error) {
	v, err := term.FromJSON([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("arguments: %w", err)
	}
	if !v.Type().IsTupleType() {
		return nil, fmt.Errorf("arguments must be a JSON array, got %s", v.Type().FriendlyName())
	}
	return v.AsValueSlice(), nil
}

// Description is the JSON form of a module descriptor.
type Description struct {
	Name      string                `json:"name"`
	Version   string                `json:"version"`
	VMVariant string                `json:"vm_variant"`
	Functions []FunctionDescription `json:"functions"`
	Load      bool                  `json:"load"`
	Unload    bool                  `json:"unload"`
}

// FunctionDescription is one exported function.
type FunctionDescription struct {
	Name     string `json:"name"`
	Arity    uint32 `json:"arity"`
	DirtyCPU bool   `json:"dirty_cpu,omitempty"`
	DirtyIO  bool   `json:"dirty_io,omitempty"`
}

func describe(e nifabi.Entry) Description {
	d := Description{
		Name:      e.Name,
		Version:   fmt.Sprintf("%d.%d", e.Major, e.Minor),
		VMVariant: e.VMVariant,
		Functions: make([]FunctionDescription, 0, len(e.Funcs)),
		Load:      e.Load != 0,
		Unload:    e.Unload != 0,
	}
	for _, f := range e.Funcs {
		d.Functions = append(d.Functions, FunctionDescription{
			Name:     f.Name,
			Arity:    f.Arity,
			DirtyCPU: f.Flags&nifabi.FlagDirtyCPU != 0,
			DirtyIO:  f.Flags&nifabi.FlagDirtyIO != 0,
		})
	}
	return d
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
