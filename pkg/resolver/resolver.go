// Package resolver maps module ids to files the way the toolchain's own
// loaders do: separate profiles for ESM scripts, CommonJS scripts and
// stylesheets, package.json exports, tsconfig/jsconfig path aliases and a
// plug'n'play registry overlay.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/tidwall/gjson"

	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// ToolchainPackage is the bare name of the toolchain package.
const ToolchainPackage = "tailwindcss"

var (
	// ErrNotFound means no profile step produced an existing file.
	ErrNotFound = errors.New("module not found")
	// ErrNotExported means the package has an exports map without the subpath.
	ErrNotExported = errors.New("subpath not exported")
	// ErrMappingRejected means a path alias matched but none of its targets
	// exist. It aborts resolution instead of falling back to other strategies.
	ErrMappingRejected = errors.New("path mapping rejected")
)

// Options configures a Resolver.
type Options struct {
	// Root is the workspace directory used for path-mapping and PnP discovery.
	Root string
	// FS is the filesystem to resolve against; nil means the host filesystem.
	FS billy.Filesystem
	// Cache overrides the filesystem cache. When set, FS is ignored.
	Cache *FileCache
	// CacheSize bounds a newly created cache.
	CacheSize int
	// PathMapping enables tsconfig/jsconfig aliases.
	PathMapping bool
	// Mapper supplies an already loaded mapper.
	Mapper *PathMapper
	// PnP enables the plug'n'play registry overlay.
	PnP bool
	// Registry supplies an already loaded registry.
	Registry *Registry
}

// Resolver resolves module ids. It is safe for concurrent use.
type Resolver struct {
	opts     Options
	cache    *FileCache
	mapper   *PathMapper
	registry *Registry
}

// New creates a resolver, loading the path mapper and PnP registry when enabled.
func New(ctx context.Context, opts Options) (*Resolver, error) {
	opts.Root = pathutil.Normalize(opts.Root)

	cache := opts.Cache
	if cache == nil {
		var err error
		cache, err = NewFileCache(opts.FS, opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create file cache: %w", err)
		}
	}

	r := &Resolver{opts: opts, cache: cache, mapper: opts.Mapper, registry: opts.Registry}

	if r.registry == nil && opts.PnP && opts.Root != "" {
		reg, err := LoadRegistry(cache, opts.Root)
		if err != nil {
			logger.Warn("ignoring plug'n'play registry", logger.String("root", opts.Root), logger.Err(err))
		}
		r.registry = reg
	}

	if r.mapper == nil && opts.PathMapping && opts.Root != "" {
		mapper := &PathMapper{root: opts.Root, cache: cache}
		if err := mapper.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("some path-mapping configs could not be loaded", logger.String("root", opts.Root), logger.Err(err))
		}
		r.mapper = mapper
	}

	return r, nil
}

// Child derives a resolver that shares this one's cache, mapper and registry
// unless opts overrides them.
func (r *Resolver) Child(ctx context.Context, opts Options) (*Resolver, error) {
	merged := r.opts
	if opts.Root != "" {
		merged.Root = opts.Root
	}
	merged.Cache = r.cache
	if opts.Cache != nil {
		merged.Cache = opts.Cache
	} else if opts.FS != nil {
		merged.Cache = nil
		merged.FS = opts.FS
	}
	merged.Mapper = r.mapper
	if opts.Mapper != nil {
		merged.Mapper = opts.Mapper
	}
	merged.Registry = r.registry
	if opts.Registry != nil {
		merged.Registry = opts.Registry
	}
	return New(ctx, merged)
}

// Cache returns the shared filesystem cache.
func (r *Resolver) Cache() *FileCache {
	return r.cache
}

// Registry returns the loaded PnP registry, if any.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Refresh rescans path-mapping configs and drops cached filesystem state.
func (r *Resolver) Refresh(ctx context.Context) error {
	r.cache.Purge()
	if r.mapper == nil {
		return nil
	}
	return r.mapper.Refresh(ctx)
}

// Paths returns the path aliases that apply to base.
func (r *Resolver) Paths(base string) []Alias {
	if r.mapper == nil {
		return nil
	}
	return r.mapper.Paths(base)
}

// ResolveScriptID resolves a script id, trying the ESM profile then CJS. A
// miss returns id unchanged; only a rejected path mapping is an error.
func (r *Resolver) ResolveScriptID(id, base string) (string, error) {
	res, err := r.Resolve(ESM, id, base)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrMappingRejected) {
		return "", err
	}
	res, err = r.Resolve(CJS, id, base)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrMappingRejected) {
		return "", err
	}
	return id, nil
}

// ResolveStylesheetID resolves an @import target. A miss returns id
// unchanged; only a rejected path mapping is an error.
func (r *Resolver) ResolveStylesheetID(id, base string) (string, error) {
	profile := Stylesheet
	if id == ToolchainPackage {
		profile = StylesheetPackage
	}
	res, err := r.Resolve(profile, id, base)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrMappingRejected) {
		return "", err
	}
	return id, nil
}

// SubstituteID completes a possibly partial id through path aliases,
// assuming the target exists. Without an applicable alias id is returned.
func (r *Resolver) SubstituteID(id, base string) string {
	if r.mapper == nil {
		return id
	}
	base = pathutil.NormalizeDriveLetter(pathutil.Normalize(base))
	if out, ok := r.mapper.Substitute(id, base); ok {
		return out
	}
	return id
}

// Resolve resolves id from base with one profile.
func (r *Resolver) Resolve(p Profile, id, base string) (string, error) {
	if pathutil.IsUNC(id) {
		return id, nil
	}
	id = pathutil.NormalizeDriveLetter(id)
	base = pathutil.NormalizeDriveLetter(pathutil.Normalize(base))

	if r.mapper != nil {
		mapped, err := r.mapper.Resolve(id, base, p.Extensions)
		if err != nil {
			return "", err
		}
		if mapped != "" {
			id = mapped
		}
	}

	res, err := r.resolve(p, id, base)
	if err != nil {
		return "", fmt.Errorf("resolve %q from %s (%s): %w", id, base, p.Name, err)
	}
	return res, nil
}

func (r *Resolver) resolve(p Profile, id, base string) (string, error) {
	if pathutil.IsAbs(id) {
		return r.loadFileOrDir(p, pathutil.Normalize(id))
	}
	if isRelative(id) {
		return r.loadFileOrDir(p, pathutil.Join(base, id))
	}

	if p.PreferRelative {
		if res, err := r.loadFileOrDir(p, pathutil.Join(base, id)); err == nil {
			return res, nil
		}
	}
	return r.loadModule(p, id, base)
}

func isRelative(id string) bool {
	return id == "." || id == ".." || strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../")
}

func (r *Resolver) loadFileOrDir(p Profile, target string) (string, error) {
	if res, ok := r.loadFile(p, target); ok {
		return res, nil
	}
	if res, ok := r.loadDir(p, target); ok {
		return res, nil
	}
	return "", ErrNotFound
}

func (r *Resolver) loadFile(p Profile, target string) (string, bool) {
	if r.cache.IsFile(target) {
		return target, true
	}
	for _, ext := range p.Extensions {
		if r.cache.IsFile(target + ext) {
			return target + ext, true
		}
	}
	return "", false
}

func (r *Resolver) loadDir(p Profile, dir string) (string, bool) {
	if !r.cache.IsDir(dir) {
		return "", false
	}
	if pkg, ok := r.readPackage(dir); ok {
		for _, field := range p.MainFields {
			main := pkg.Get(field)
			if main.Type != gjson.String || main.String() == "" {
				continue
			}
			target := pathutil.Join(dir, main.String())
			if res, ok := r.loadFile(p, target); ok {
				return res, true
			}
			if res, ok := r.loadIndex(p, target); ok {
				return res, true
			}
		}
	}
	return r.loadIndex(p, dir)
}

func (r *Resolver) loadIndex(p Profile, dir string) (string, bool) {
	for _, ext := range p.Extensions {
		candidate := pathutil.Join(dir, "index"+ext)
		if r.cache.IsFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) readPackage(dir string) (gjson.Result, bool) {
	data, err := r.cache.ReadFile(pathutil.Join(dir, "package.json"))
	if err != nil || !gjson.ValidBytes(data) {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(data), true
}

// splitPackageID splits `@scope/name/sub/path` into the package name and a
// "./"-prefixed subpath ("." for the package itself).
func splitPackageID(id string) (string, string) {
	parts := strings.Split(id, "/")
	n := 1
	if strings.HasPrefix(id, "@") && len(parts) > 1 {
		n = 2
	}
	name := strings.Join(parts[:n], "/")
	if len(parts) == n {
		return name, "."
	}
	return name, "./" + strings.Join(parts[n:], "/")
}

func (r *Resolver) packageDir(name, base string) (string, bool) {
	if r.registry != nil {
		return r.registry.PackageDir(name, base)
	}
	for _, dir := range pathutil.Ancestors(base) {
		if strings.HasSuffix(dir, "/node_modules") {
			continue
		}
		candidate := pathutil.Join(dir, "node_modules", name)
		if r.cache.IsDir(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) loadModule(p Profile, id, base string) (string, error) {
	name, subpath := splitPackageID(id)
	dir, ok := r.packageDir(name, base)
	if !ok {
		return "", ErrNotFound
	}

	pkg, hasPkg := r.readPackage(dir)
	if hasPkg {
		if exports := pkg.Get("exports"); exports.Exists() && exports.Type != gjson.Null {
			target, err := resolveExports(exports, subpath, p)
			if err != nil {
				return "", err
			}
			full := pathutil.Join(dir, target)
			if r.cache.IsFile(full) {
				return full, nil
			}
			return "", ErrNotFound
		}
	}

	if subpath == "." {
		if res, ok := r.loadDir(p, dir); ok {
			return res, nil
		}
		return "", ErrNotFound
	}
	return r.loadFileOrDir(p, pathutil.Join(dir, subpath))
}
