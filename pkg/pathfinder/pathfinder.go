// Package pathfinder discovers candidate files in a workspace: configuration
// scripts and stylesheets, following symlinks and honoring exclude globs.
package pathfinder

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob patterns for the file classes the engine cares about. They match a
// single path segment and are prefixed with `**/` when scanning.
const (
	ConfigGlob      = "{tailwind,tailwind.config,tailwind.*.config,tailwind.config.*}.{js,cjs,ts,mjs,mts,cts}"
	PackageLockGlob = "{package-lock.json,yarn.lock,pnpm-lock.yaml}"
	PackageGlob     = "{package.json,package-lock.json,yarn.lock,pnpm-lock.yaml}"
	CSSGlob         = "*.{css,scss,sass,less,pcss}"
	TSConfigGlob    = "{tsconfig,tsconfig.*,jsconfig,jsconfig.*}.json"
)

// ErrScanFailure wraps filesystem failures at the workspace root.
var ErrScanFailure = errors.New("scan failure")

// Scanner finds files below base matching any of patterns and none of exclude.
// Returned paths are absolute and use forward slashes.
type Scanner interface {
	Scan(ctx context.Context, base string, patterns, exclude []string) ([]string, error)
}

func matchBase(glob, p string) bool {
	ok, err := doublestar.Match(glob, path.Base(p))
	return err == nil && ok
}

// IsConfigFile reports whether p names a script configuration file.
func IsConfigFile(p string) bool { return matchBase(ConfigGlob, p) }

// IsStylesheet reports whether p has a stylesheet extension.
func IsStylesheet(p string) bool { return matchBase(CSSGlob, p) }

// IsPackageLock reports whether p names a lockfile.
func IsPackageLock(p string) bool { return matchBase(PackageLockGlob, p) }

// IsPackageFile reports whether p names a package manifest or lockfile.
func IsPackageFile(p string) bool { return matchBase(PackageGlob, p) }

// IsPathMappingConfig reports whether p names a tsconfig/jsconfig file.
func IsPathMappingConfig(p string) bool { return matchBase(TSConfigGlob, p) }

// IsPreprocessed reports whether p needs an external preprocessor (sass,
// less or stylus) before the toolchain can read it.
func IsPreprocessed(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".scss", ".sass", ".less", ".styl":
		return true
	}
	return false
}

// DiscoveryPatterns returns the scan patterns for config files and stylesheets.
func DiscoveryPatterns() []string {
	return []string{"**/" + ConfigGlob, "**/" + CSSGlob}
}

// NormalizeExcludes applies the leading-separator workaround: a single
// leading `/` is stripped so patterns are matched relative to the base.
func NormalizeExcludes(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
			p = p[1:]
		}
		out = append(out, p)
	}
	return out
}

// MatchesAnyPattern reports whether the slash-separated relative path
// matches any of the patterns.
func MatchesAnyPattern(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}
