// Package toolchain detects which version of the CSS toolchain a directory
// resolves to and loads a handle on it for the generation layer.
package toolchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/fulmenhq/twproj/pkg/features"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathutil"
	"github.com/fulmenhq/twproj/pkg/resolver"
)

// BundledVersion is the reference toolchain used when none resolves locally.
const BundledVersion = "4.1.1"

// ErrUndetected means no local toolchain could be resolved.
var ErrUndetected = errors.New("toolchain not detected")

// Toolchain is the detected version and its features.
type Toolchain struct {
	Version           string       `json:"version" yaml:"version" toml:"version"`
	Features          features.Set `json:"features" yaml:"features" toml:"features"`
	IsBundledFallback bool         `json:"isBundledFallback" yaml:"isBundledFallback" toml:"isBundledFallback"`
}

// Bundled returns the fallback toolchain.
func Bundled() Toolchain {
	return Toolchain{
		Version:           BundledVersion,
		Features:          features.Supported(BundledVersion, features.Shape{StylesheetEntry: true}),
		IsBundledFallback: true,
	}
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Instrument asks for the effective script configuration to be returned
	// alongside the handle.
	Instrument bool
	// ConfigPath is the script config to instrument.
	ConfigPath string
}

// Handle is an opaque reference to a loaded toolchain. Only the generation
// layer looks inside it.
type Handle struct {
	Toolchain Toolchain
	Dir       string
	// Module is the resolved script entry point, empty for the bundled fallback.
	Module string
	// Stylesheet is the resolved stylesheet entry point, if the package has one.
	Stylesheet string
	// Config is the parsed script configuration when loaded with Instrument.
	Config *ScriptConfig
}

// Loader detects and loads the toolchain reachable from a directory.
type Loader interface {
	Detect(ctx context.Context, dir string) (Toolchain, error)
	Load(ctx context.Context, dir string, opts LoadOptions) (*Handle, error)
}

// ModuleLoader finds the toolchain package through a resolver.
type ModuleLoader struct {
	res *resolver.Resolver
}

// NewModuleLoader returns a loader resolving through res.
func NewModuleLoader(res *resolver.Resolver) *ModuleLoader {
	return &ModuleLoader{res: res}
}

// Detect reads the version of the toolchain package resolvable from dir. When
// none resolves it returns the bundled toolchain and a nil error; the
// ErrUndetected cause is only logged.
func (l *ModuleLoader) Detect(ctx context.Context, dir string) (Toolchain, error) {
	if err := ctx.Err(); err != nil {
		return Toolchain{}, err
	}
	tc, err := l.detect(pathutil.Normalize(dir))
	if err != nil {
		logger.Debug("using bundled toolchain", logger.String("dir", dir), logger.Err(err))
		return Bundled(), nil
	}
	return tc, nil
}

func (l *ModuleLoader) detect(dir string) (Toolchain, error) {
	metadata, err := l.res.Resolve(resolver.CJS, resolver.ToolchainPackage+"/package.json", dir)
	if err != nil {
		return Toolchain{}, fmt.Errorf("%w: %v", ErrUndetected, err)
	}
	data, err := l.res.Cache().ReadFile(metadata)
	if err != nil {
		return Toolchain{}, fmt.Errorf("%w: read %s: %v", ErrUndetected, metadata, err)
	}
	pkg := gjson.ParseBytes(data)
	version := pkg.Get("version")
	if version.Type != gjson.String || version.String() == "" {
		return Toolchain{}, fmt.Errorf("%w: %s has no version", ErrUndetected, metadata)
	}

	shape := features.Shape{StylesheetEntry: hasStylesheetEntry(pkg)}
	return Toolchain{
		Version:  version.String(),
		Features: features.Supported(version.String(), shape),
	}, nil
}

func hasStylesheetEntry(pkg gjson.Result) bool {
	if pkg.Get("style").String() != "" {
		return true
	}
	exports := pkg.Get("exports")
	if root := exports.Get(`\.`); root.IsObject() {
		return root.Get("style").Exists()
	}
	return false
}

// Load resolves the toolchain's entry points from dir. With Instrument set the
// script config named in opts is parsed and returned on the handle.
func (l *ModuleLoader) Load(ctx context.Context, dir string, opts LoadOptions) (*Handle, error) {
	dir = pathutil.Normalize(dir)
	tc, err := l.Detect(ctx, dir)
	if err != nil {
		return nil, err
	}
	h := &Handle{Toolchain: tc, Dir: dir}

	if !tc.IsBundledFallback {
		if module, err := l.res.ResolveScriptID(resolver.ToolchainPackage, dir); err == nil && module != resolver.ToolchainPackage {
			h.Module = module
		}
		if sheet, err := l.res.ResolveStylesheetID(resolver.ToolchainPackage, dir); err == nil && sheet != resolver.ToolchainPackage {
			h.Stylesheet = sheet
		}
	}

	if opts.Instrument && opts.ConfigPath != "" {
		data, err := l.res.Cache().ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("instrument %s: %w", opts.ConfigPath, err)
		}
		cfg := ParseScriptConfig(string(data))
		h.Config = &cfg
	}
	return h, nil
}
