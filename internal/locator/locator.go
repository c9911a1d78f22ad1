// Package locator discovers the projects of a workspace: the script configs
// and root stylesheets that each anchor one build, the files attributed to
// them, and the document selectors deciding which project owns a file.
package locator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/twproj/pkg/classify"
	"github.com/fulmenhq/twproj/pkg/config"
	"github.com/fulmenhq/twproj/pkg/graph"
	"github.com/fulmenhq/twproj/pkg/ignore"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathfinder"
	"github.com/fulmenhq/twproj/pkg/pathutil"
	"github.com/fulmenhq/twproj/pkg/resolver"
	"github.com/fulmenhq/twproj/pkg/stylesheet"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// Locator discovers the projects below one workspace directory.
type Locator struct {
	base     string
	settings config.Settings
	res      *resolver.Resolver

	scanner  pathfinder.Scanner
	reader   stylesheet.Reader
	imports  stylesheet.ImportResolver
	sources  stylesheet.SourceExtractor
	loader   toolchain.Loader
	content  ContentDetector
	realpath func(string) (string, error)
}

// Option overrides a collaborator of the Locator.
type Option func(*Locator)

// WithScanner sets the workspace scanner.
func WithScanner(s pathfinder.Scanner) Option { return func(l *Locator) { l.scanner = s } }

// WithReader sets the stylesheet reader.
func WithReader(r stylesheet.Reader) Option { return func(l *Locator) { l.reader = r } }

// WithImportResolver sets the @import resolver.
func WithImportResolver(r stylesheet.ImportResolver) Option {
	return func(l *Locator) { l.imports = r }
}

// WithSourceExtractor sets the source directive extractor.
func WithSourceExtractor(e stylesheet.SourceExtractor) Option {
	return func(l *Locator) { l.sources = e }
}

// WithToolchainLoader sets the toolchain loader.
func WithToolchainLoader(t toolchain.Loader) Option { return func(l *Locator) { l.loader = t } }

// WithContentDetector sets the auto-content detector.
func WithContentDetector(d ContentDetector) Option { return func(l *Locator) { l.content = d } }

// WithRealpath sets the function canonicalizing paths.
func WithRealpath(fn func(string) (string, error)) Option {
	return func(l *Locator) { l.realpath = fn }
}

// New creates a locator for base. Collaborators not set through opts resolve
// and read through res.
func New(base string, settings config.Settings, res *resolver.Resolver, opts ...Option) (*Locator, error) {
	l := &Locator{
		base:     pathutil.Normalize(base),
		settings: settings,
		res:      res,
		realpath: evalRealpath,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.scanner == nil {
		scanner := pathfinder.NewGlobScanner()
		scanner.FollowSymlinks = settings.Discovery.FollowSymlinks
		if settings.Files.Gitignore {
			m, err := ignore.NewMatcher(pathutil.ToOS(l.base))
			if err != nil {
				return nil, fmt.Errorf("load ignore files: %w", err)
			}
			scanner.Ignore = m
		}
		l.scanner = scanner
	}
	if l.reader == nil {
		l.reader = stylesheet.NewFileReader(res.Cache().FS())
	}
	if l.imports == nil {
		l.imports = stylesheet.NewImporter(res, l.reader)
	}
	if l.sources == nil {
		l.sources = stylesheet.NewDirectiveExtractor(res.Cache().FS())
	}
	if l.loader == nil {
		l.loader = toolchain.NewModuleLoader(res)
	}
	if l.content == nil {
		l.content = GlobDetector{}
	}
	return l, nil
}

// Base returns the workspace directory.
func (l *Locator) Base() string {
	return l.base
}

func evalRealpath(p string) (string, error) {
	real, err := filepath.EvalSymlinks(pathutil.ToOS(p))
	if err != nil {
		return "", err
	}
	return pathutil.FromOS(real), nil
}

func (l *Locator) canonical(p string) string {
	if real, err := l.realpath(p); err == nil {
		return real
	}
	return p
}

// Result is the output of one discovery pass.
type Result struct {
	// Files holds the discovered files, then files only reached as imports.
	Files    []*FileEntry
	Configs  []*ConfigEntry
	Graph    *graph.Graph[*FileEntry]
	Projects []*ProjectConfig
	// Failures are per-config errors. They never abort the pass.
	Failures []error
}

type attribution struct {
	file   *FileEntry
	config *ConfigEntry
}

// pass is the state owned by one discovery pass.
type pass struct {
	configs  *configCache
	claims   []attribution
	failures []error
}

func (p *pass) claim(f *FileEntry, c *ConfigEntry) {
	p.claims = append(p.claims, attribution{file: f, config: c})
}

// assemble links files and configs in both directions. It is the only place
// Entries and Configs are written.
func (p *pass) assemble() {
	for _, c := range p.claims {
		if !slices.Contains(c.config.Entries, c.file) {
			c.config.Entries = append(c.config.Entries, c.file)
		}
		if !slices.Contains(c.file.Configs, c.config) {
			c.file.Configs = append(c.file.Configs, c.config)
		}
	}
}

// Search discovers the workspace's projects. Only a workspace that cannot be
// scanned is an error; per-config failures are logged.
func (l *Locator) Search(ctx context.Context) ([]*ProjectConfig, error) {
	res, err := l.Locate(ctx)
	if err != nil {
		return nil, err
	}
	return res.Projects, nil
}

// Locate runs discovery and materializes a project per eligible config.
func (l *Locator) Locate(ctx context.Context) (*Result, error) {
	if l.settings.HasUserProjects() {
		return l.locateUserConfigured(ctx)
	}

	res, err := l.Discover(ctx)
	if err != nil {
		return nil, err
	}

	projects, failures, err := l.materializeAll(ctx, res.Configs)
	if err != nil {
		return nil, err
	}
	res.Failures = append(res.Failures, failures...)

	if len(projects) == 1 {
		projects[0].DocumentSelectors = dedupSelectors(append(projects[0].DocumentSelectors, DocumentSelector{
			Pattern:  dirGlob(l.base),
			Priority: PriorityRootDirectory,
		}))
	}
	res.Projects = projects

	for _, f := range res.Failures {
		logger.Warn("project failed to load", logger.String("base", l.base), logger.Err(f))
	}
	logger.Debug("discovery finished",
		logger.String("base", l.base),
		logger.Int("files", len(res.Files)),
		logger.Int("configs", len(res.Configs)),
		logger.Int("projects", len(projects)))
	return res, nil
}

// Discover runs the discovery pipeline and returns the raw configs without
// materializing projects.
func (l *Locator) Discover(ctx context.Context) (*Result, error) {
	hits, err := l.scanner.Scan(ctx, l.base, pathfinder.DiscoveryPatterns(), l.settings.Files.Exclude)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ScanError{Base: l.base, Err: err}
	}

	hits, err = l.dropAliases(ctx, hits)
	if err != nil {
		return nil, err
	}

	p := &pass{configs: newConfigCache()}
	var css, scripts []*FileEntry
	for _, hit := range hits {
		switch {
		case pathfinder.IsStylesheet(hit):
			css = append(css, &FileEntry{Path: hit, Kind: KindCSS})
		case pathfinder.IsConfigFile(hit):
			file := &FileEntry{Path: hit, Kind: KindScript}
			scripts = append(scripts, file)
			p.claim(file, p.configs.remember(hit, func() *ConfigEntry {
				return &ConfigEntry{Kind: ConfigScript, Origin: OriginStandalone, Path: hit}
			}))
		}
	}

	if err := l.each(ctx, css, l.readAndClassify); err != nil {
		return nil, err
	}
	var related []*FileEntry
	for _, f := range css {
		if f.Classification != nil {
			related = append(related, f)
		}
	}

	for _, f := range related {
		ref, ok := stylesheet.ConfigReference(*f.Content, f.Path)
		if !ok {
			continue
		}
		if !l.res.Cache().IsFile(ref.Path) {
			p.failures = append(p.failures, &ConfigError{
				Path: f.Path,
				Line: ref.Line,
				Err:  fmt.Errorf("%w: %s", ErrMissingConfig, ref.Path),
			})
			continue
		}
		p.claim(f, p.configs.remember(ref.Path, func() *ConfigEntry {
			return &ConfigEntry{Kind: ConfigScript, Origin: OriginCSS, Path: ref.Path}
		}))
	}

	var importable []*FileEntry
	for _, f := range related {
		if !pathfinder.IsPreprocessed(f.Path) {
			importable = append(importable, f)
		}
	}
	importFailures := make([]*ConfigError, len(importable))
	err = l.eachIndexed(ctx, importable, func(ctx context.Context, i int, f *FileEntry) error {
		failure, err := l.resolveImports(ctx, f)
		importFailures[i] = failure
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, f := range importFailures {
		if f != nil {
			p.failures = append(p.failures, f)
		}
	}

	closure := slices.Clone(related)
	for _, f := range related {
		closure = append(closure, f.Dependencies...)
	}
	if err := l.each(ctx, closure, l.resolveRealpath); err != nil {
		return nil, err
	}
	if err := l.each(ctx, closure, l.extractSources); err != nil {
		return nil, err
	}

	g := buildGraph(related)

	var roots []*FileEntry
	for f := range g.Roots() {
		if f.Classification != nil {
			roots = append(roots, f)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Classification.Root && !roots[j].Classification.Root
	})

	for _, root := range roots {
		cfg := p.configs.remember(root.Path, func() *ConfigEntry {
			return &ConfigEntry{
				Kind:    ConfigCSS,
				Origin:  OriginStandalone,
				Path:    root.Path,
				Content: []ContentItem{{Kind: ContentAuto}},
			}
		})
		p.claim(root, cfg)
		for d := range g.Descendants(root.key()) {
			p.claim(d, cfg)
		}
	}

	p.assemble()

	files := append(slices.Clone(scripts), css...)
	known := make(map[*FileEntry]bool, len(files))
	for _, f := range files {
		known[f] = true
	}
	for f := range g.Values() {
		if !known[f] {
			files = append(files, f)
		}
	}

	return &Result{
		Files:    files,
		Configs:  p.configs.values(),
		Graph:    g,
		Failures: p.failures,
	}, nil
}

// dropAliases removes hits whose real path differs from the hit and is itself
// a hit, so symlink farms do not duplicate files.
func (l *Locator) dropAliases(ctx context.Context, hits []string) ([]string, error) {
	reals := make([]string, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.settings.Concurrency())
	for i, hit := range hits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reals[i] = l.canonical(hit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(hits))
	for _, hit := range hits {
		present[hit] = true
	}
	out := make([]string, 0, len(hits))
	for i, hit := range hits {
		if reals[i] != hit && present[reals[i]] {
			logger.Trace("dropping aliased path", logger.String("path", hit), logger.String("real", reals[i]))
			continue
		}
		out = append(out, hit)
	}
	return out, nil
}

func (l *Locator) each(ctx context.Context, files []*FileEntry, fn func(context.Context, *FileEntry) error) error {
	return l.eachIndexed(ctx, files, func(ctx context.Context, _ int, f *FileEntry) error {
		return fn(ctx, f)
	})
}

// eachIndexed runs fn for every file concurrently. fn must only mutate its
// own entry; a returned error cancels the rest.
func (l *Locator) eachIndexed(ctx context.Context, files []*FileEntry, fn func(context.Context, int, *FileEntry) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.settings.Concurrency())
	for i, f := range files {
		g.Go(func() error { return fn(gctx, i, f) })
	}
	return g.Wait()
}

func (l *Locator) readAndClassify(ctx context.Context, f *FileEntry) error {
	text, err := l.reader.Read(ctx, f.Path)
	if err != nil {
		if errors.Is(err, stylesheet.ErrReadFailure) {
			logger.Debug("treating unreadable stylesheet as unrelated", logger.String("path", f.Path), logger.Err(err))
			return nil
		}
		return err
	}
	f.Content = &text
	if c := classify.Analyze(text); c.IsRelated() {
		f.Classification = &c
	}
	return nil
}

// resolveImports fills f.Dependencies. A failure traceable to an @import is
// returned as a ConfigError; only cancellation is returned as an error.
func (l *Locator) resolveImports(ctx context.Context, f *FileEntry) (*ConfigError, error) {
	resolved, err := l.imports.ResolveImports(ctx, *f.Content, f.Path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("could not resolve imports", logger.String("path", f.Path), logger.Err(err))
		var ie *stylesheet.ImportError
		if errors.As(err, &ie) {
			return &ConfigError{Path: ie.From, Line: ie.Line, Err: ie}, nil
		}
		return nil, nil
	}
	for _, dep := range resolved.Dependencies {
		f.Dependencies = append(f.Dependencies, &FileEntry{Path: dep, Kind: KindCSS})
	}
	return nil, nil
}

func (l *Locator) resolveRealpath(ctx context.Context, f *FileEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.RealPath = l.canonical(f.Path)
	return nil
}

func (l *Locator) extractSources(ctx context.Context, f *FileEntry) error {
	text := f.Content
	if text == nil {
		read, err := l.reader.Read(ctx, f.Path)
		if err != nil {
			if errors.Is(err, stylesheet.ErrReadFailure) {
				return nil
			}
			return err
		}
		text = &read
	}
	f.SourcePatterns = l.sources.ExtractSources(*text, f.Path)
	return nil
}

// toolchainFiles are the toolchain's own stylesheets. Its release build
// inlines theme and utilities into index, so they are linked even though no
// @import connects them.
var toolchainFiles = struct{ index, theme, utilities string }{
	index:     resolver.ToolchainPackage + "/index.css",
	theme:     "theme.css",
	utilities: "utilities.css",
}

// buildGraph keys every stylesheet by real path. Discovered files are added
// before import-only ones so they win when both denote the same file.
func buildGraph(files []*FileEntry) *graph.Graph[*FileEntry] {
	g := graph.New[*FileEntry]()
	for _, f := range files {
		g.Add(f.key(), f)
	}
	for _, f := range files {
		for _, d := range f.Dependencies {
			g.Add(d.key(), d)
		}
	}
	for _, f := range files {
		for _, d := range f.Dependencies {
			if f.key() == d.key() {
				continue
			}
			if err := g.Connect(f.key(), d.key()); err != nil {
				logger.Debug("import edge dropped", logger.String("path", f.Path), logger.Err(err))
			}
		}
	}

	var indexes []string
	for f := range g.Values() {
		if strings.HasSuffix(f.key(), "/"+toolchainFiles.index) {
			indexes = append(indexes, f.key())
		}
	}
	for _, index := range indexes {
		dir := pathutil.Dir(index)
		for _, name := range []string{toolchainFiles.theme, toolchainFiles.utilities} {
			if target := pathutil.Join(dir, name); g.Has(target) {
				if err := g.Connect(index, target); err != nil {
					logger.Debug("toolchain edge dropped", logger.String("path", index), logger.Err(err))
				}
			}
		}
	}
	return g
}
