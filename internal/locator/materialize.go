package locator

import (
	"context"
	"errors"
	"path"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/twproj/pkg/classify"
	"github.com/fulmenhq/twproj/pkg/features"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathfinder"
	"github.com/fulmenhq/twproj/pkg/pathutil"
	"github.com/fulmenhq/twproj/pkg/stylesheet"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// transpiledExtensions are script config suffixes the toolchain must
// transpile before loading.
var transpiledExtensions = []string{".ts", ".mts", ".cts", ".mjs"}

// materializeAll builds a project per config concurrently, keeping config
// order. Failures are collected; only cancellation is returned as an error.
func (l *Locator) materializeAll(ctx context.Context, configs []*ConfigEntry) ([]*ProjectConfig, []error, error) {
	projects := make([]*ProjectConfig, len(configs))
	errs := make([]error, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.settings.Concurrency())
	for i, cfg := range configs {
		g.Go(func() error {
			proj, err := l.materialize(gctx, cfg)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			projects[i], errs[i] = proj, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []*ProjectConfig
	var failures []error
	for i := range configs {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		if projects[i] != nil {
			out = append(out, projects[i])
		}
	}
	return out, failures, nil
}

// materialize turns cfg into a project. It returns nil and no error when the
// config is not eligible under the detected toolchain.
func (l *Locator) materialize(ctx context.Context, cfg *ConfigEntry) (*ProjectConfig, error) {
	dir := pathutil.Dir(cfg.Path)
	tc, err := l.loader.Detect(ctx, dir)
	if err != nil {
		return nil, err
	}
	if reason, ok := eligible(cfg, tc); !ok {
		logger.Debug("config is not eligible",
			logger.String("config", cfg.Path),
			logger.String("version", tc.Version),
			logger.String("reason", reason))
		return nil, nil
	}

	cfg.PackageRoot = l.packageRoot(dir)

	var patterns, deps []string
	switch cfg.Kind {
	case ConfigScript:
		patterns, err = l.scriptContent(cfg, tc)
		if err != nil {
			return nil, err
		}
		deps = append([]string{cfg.Path}, toolchain.ModuleDependencies(l.res.Cache(), cfg.Path)...)
	case ConfigCSS:
		patterns, err = l.cssContent(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	for _, e := range cfg.Entries {
		if e.Kind == KindCSS && !slices.Contains(deps, e.Path) {
			deps = append(deps, e.Path)
		}
	}

	return &ProjectConfig{
		Folder:            l.base,
		ConfigPath:        cfg.Path,
		Config:            cfg,
		Toolchain:         tc,
		DocumentSelectors: selectorsFor(cfg, patterns),
		Dependencies:      deps,
	}, nil
}

// eligible reports whether cfg can anchor a project under tc, and if not why.
func eligible(cfg *ConfigEntry, tc toolchain.Toolchain) (string, bool) {
	set := tc.Features
	switch cfg.Kind {
	case ConfigScript:
		if cfg.Origin == OriginCSS {
			if tc.IsBundledFallback {
				return "config referenced from css needs a local toolchain", false
			}
			if !set.Has(features.CSSAtConfigAsProject) {
				return "toolchain does not build @config references as projects", false
			}
		}
		if set.Has(features.CSSAtTheme) {
			return "toolchain is configured in css", false
		}
		ext := path.Ext(cfg.Path)
		for _, t := range transpiledExtensions {
			if ext == t && !set.Has(features.TranspiledConfigs) {
				return "toolchain cannot load " + ext + " configs", false
			}
		}
	case ConfigCSS:
		if !set.Has(features.CSSAtTheme) {
			return "toolchain is not configured in css", false
		}
		v4 := false
		for _, e := range cfg.Entries {
			if e.Classification != nil && e.Classification.Has(classify.V4) {
				v4 = true
			}
			if pathfinder.IsPreprocessed(e.Path) {
				return "stylesheet needs a preprocessor: " + e.Path, false
			}
		}
		if !v4 {
			return "no stylesheet targets version 4", false
		}
	}
	return "", true
}

// packageRoot is the nearest directory holding a package.json, walking up from
// dir and stopping at the workspace base. It falls back to the base.
func (l *Locator) packageRoot(dir string) string {
	for _, d := range pathutil.Ancestors(dir) {
		if l.res.Cache().IsFile(pathutil.Join(d, "package.json")) {
			return d
		}
		if d == l.base {
			break
		}
	}
	return l.base
}

// scriptContent reads the content globs of a script config. Relative globs are
// taken against the config's directory when the config asks for it and the
// toolchain supports it, else against the package root.
func (l *Locator) scriptContent(cfg *ConfigEntry, tc toolchain.Toolchain) ([]string, error) {
	data, err := l.res.Cache().ReadFile(cfg.Path)
	if err != nil {
		return nil, &ConfigError{Path: cfg.Path, Err: err}
	}
	parsed := toolchain.ParseScriptConfig(string(data))

	files := parsed.Files
	if !tc.Features.Has(features.ContentList) && tc.Features.Has(features.PurgeList) {
		files = parsed.Purge
	}

	base := cfg.PackageRoot
	if tc.Features.Has(features.RelativeContentPaths) && (parsed.RelativeByDefault || parsed.Relative) {
		base = pathutil.Dir(cfg.Path)
	}

	var patterns []string
	cfg.Content = nil
	for _, f := range files {
		pattern := globUnder(base, f)
		cfg.Content = append(cfg.Content, ContentItem{Kind: ContentFile, File: pattern})
		patterns = append(patterns, pattern)
	}
	for _, raw := range parsed.Raw {
		cfg.Content = append(cfg.Content, ContentItem{Kind: ContentRaw, Raw: raw})
	}
	return patterns, nil
}

// cssContent expands the auto-detect item of a css config. Sources declared by
// the config's own stylesheet are used; when it declares none, those of the
// stylesheets it imports.
func (l *Locator) cssContent(ctx context.Context, cfg *ConfigEntry) ([]string, error) {
	var sources []stylesheet.SourcePattern
	for _, e := range cfg.Entries {
		if e.Path == cfg.Path {
			sources = append(sources, e.SourcePatterns...)
		}
	}
	if len(sources) == 0 {
		for _, e := range cfg.Entries {
			if e.Path != cfg.Path {
				sources = append(sources, e.SourcePatterns...)
			}
		}
	}

	var patterns []string
	for _, item := range cfg.Content {
		switch item.Kind {
		case ContentAuto:
			detected, err := l.content.Detect(ctx, pathutil.Dir(cfg.Path), sources)
			if err != nil {
				return nil, &ConfigError{Path: cfg.Path, Err: err}
			}
			patterns = append(patterns, detected...)
		case ContentFile:
			patterns = append(patterns, item.File)
		}
	}
	return patterns, nil
}

// selectorsFor orders a config's selectors from most to least specific and
// drops repeated patterns, keeping the most specific occurrence.
func selectorsFor(cfg *ConfigEntry, content []string) []DocumentSelector {
	var sels []DocumentSelector
	var sheets []*FileEntry
	for _, e := range cfg.Entries {
		if e.Kind == KindCSS {
			sheets = append(sheets, e)
		}
	}

	for _, e := range sheets {
		sels = append(sels, DocumentSelector{Pattern: pathutil.EscapeGlob(e.Path), Priority: PriorityCSSFile})
	}
	sels = append(sels, DocumentSelector{Pattern: pathutil.EscapeGlob(cfg.Path), Priority: PriorityConfigFile})
	for _, p := range content {
		sels = append(sels, DocumentSelector{Pattern: p, Priority: PriorityContentFile})
	}
	for _, e := range sheets {
		sels = append(sels, DocumentSelector{Pattern: dirGlob(pathutil.Dir(e.Path)), Priority: PriorityCSSDirectory})
	}
	sels = append(sels, DocumentSelector{Pattern: dirGlob(pathutil.Dir(cfg.Path)), Priority: PriorityConfigDirectory})
	if cfg.PackageRoot != "" {
		sels = append(sels, DocumentSelector{Pattern: dirGlob(cfg.PackageRoot), Priority: PriorityPackageDirectory})
	}

	sort.SliceStable(sels, func(i, j int) bool { return sels[i].Priority < sels[j].Priority })
	return dedupSelectors(sels)
}

func dedupSelectors(sels []DocumentSelector) []DocumentSelector {
	seen := make(map[string]bool, len(sels))
	out := make([]DocumentSelector, 0, len(sels))
	for _, s := range sels {
		if seen[s.Pattern] {
			continue
		}
		seen[s.Pattern] = true
		out = append(out, s)
	}
	return out
}

// dirGlob matches everything below dir.
func dirGlob(dir string) string {
	return strings.TrimSuffix(pathutil.EscapeGlob(dir), "/") + "/**"
}

// globUnder makes pattern absolute against dir, keeping a leading `!`. dir is
// escaped; pattern is kept as written.
func globUnder(dir, pattern string) string {
	negated := strings.HasPrefix(pattern, "!")
	if negated {
		pattern = pattern[1:]
	}
	out := pattern
	if !pathutil.IsAbs(pattern) {
		out = path.Join(pathutil.EscapeGlob(dir), pattern)
	}
	if negated {
		out = "!" + out
	}
	return out
}

// RefreshSelectors re-derives p's document selectors in place, re-reading the
// content its config declares. A workspace-wide fallback selector is kept.
func (l *Locator) RefreshSelectors(ctx context.Context, p *ProjectConfig) error {
	if p.IsUserConfigured || p.Config == nil {
		return nil
	}
	cfg := p.Config

	var patterns []string
	var err error
	switch cfg.Kind {
	case ConfigScript:
		l.res.Cache().Purge()
		patterns, err = l.scriptContent(cfg, p.Toolchain)
	case ConfigCSS:
		for _, e := range cfg.Entries {
			text, err := l.reader.Read(ctx, e.Path)
			if err != nil {
				if errors.Is(err, stylesheet.ErrReadFailure) {
					continue
				}
				return err
			}
			e.Content = &text
			e.SourcePatterns = l.sources.ExtractSources(text, e.Path)
		}
		patterns, err = l.cssContent(ctx, cfg)
	}
	if err != nil {
		return err
	}

	sels := selectorsFor(cfg, patterns)
	for _, s := range p.DocumentSelectors {
		if s.Priority == PriorityRootDirectory {
			sels = dedupSelectors(append(sels, s))
		}
	}
	p.DocumentSelectors = sels
	return nil
}
