package locator

import (
	"context"

	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathfinder"
	"github.com/fulmenhq/twproj/pkg/pathutil"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// locateUserConfigured builds the projects named in settings instead of
// discovering them. Their selectors are the configured globs.
func (l *Locator) locateUserConfigured(ctx context.Context) (*Result, error) {
	res := &Result{}
	for _, up := range l.settings.UserProjects(l.base) {
		dir := pathutil.Dir(up.Path)
		tc, err := l.loader.Detect(ctx, dir)
		if err != nil {
			return nil, err
		}

		cfg := &ConfigEntry{Kind: ConfigScript, Origin: OriginStandalone, Path: up.Path, PackageRoot: l.packageRoot(dir)}
		file := &FileEntry{Path: up.Path, Kind: KindScript}
		deps := []string{up.Path}
		if pathfinder.IsStylesheet(up.Path) {
			cfg.Kind = ConfigCSS
			cfg.Content = []ContentItem{{Kind: ContentAuto}}
			file.Kind = KindCSS
		} else {
			deps = append(deps, toolchain.ModuleDependencies(l.res.Cache(), up.Path)...)
		}
		if !l.res.Cache().IsFile(up.Path) {
			res.Failures = append(res.Failures, &ConfigError{Path: up.Path, Err: ErrMissingConfig})
		}

		p := &pass{}
		p.claim(file, cfg)
		p.assemble()

		sels := make([]DocumentSelector, 0, len(up.Selectors))
		for _, s := range up.Selectors {
			sels = append(sels, DocumentSelector{Pattern: globUnder(l.base, s), Priority: PriorityUserConfigured})
		}

		res.Files = append(res.Files, file)
		res.Configs = append(res.Configs, cfg)
		res.Projects = append(res.Projects, &ProjectConfig{
			Folder:            l.base,
			ConfigPath:        up.Path,
			IsUserConfigured:  true,
			Config:            cfg,
			Toolchain:         tc,
			DocumentSelectors: dedupSelectors(sels),
			Dependencies:      deps,
		})
	}
	for _, f := range res.Failures {
		logger.Warn("configured project failed to load", logger.String("base", l.base), logger.Err(f))
	}
	return res, nil
}
