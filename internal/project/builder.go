package project

import (
	"context"
	"fmt"

	"github.com/fulmenhq/twproj/internal/locator"
	"github.com/fulmenhq/twproj/pkg/pathutil"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// FileChecker reports whether a file exists.
type FileChecker interface {
	IsFile(path string) bool
}

// ToolchainBuilder loads projects through a toolchain loader. Building checks
// that every input of the project is still present; generating output is left
// to whoever consumes the handle.
type ToolchainBuilder struct {
	Loader toolchain.Loader
	Files  FileChecker
}

// Init implements Builder.
func (b ToolchainBuilder) Init(ctx context.Context, p *locator.ProjectConfig) (*toolchain.Handle, error) {
	dir := p.Folder
	opts := toolchain.LoadOptions{}
	if p.ConfigPath != "" {
		dir = pathutil.Dir(p.ConfigPath)
		if p.Config == nil || p.Config.Kind == locator.ConfigScript {
			opts = toolchain.LoadOptions{Instrument: true, ConfigPath: p.ConfigPath}
		}
	}
	return b.Loader.Load(ctx, dir, opts)
}

// Build implements Builder.
func (b ToolchainBuilder) Build(ctx context.Context, p *locator.ProjectConfig, _ *toolchain.Handle) error {
	if b.Files == nil {
		return nil
	}
	for _, dep := range p.Dependencies {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !b.Files.IsFile(dep) {
			return fmt.Errorf("input %s is missing", dep)
		}
	}
	return nil
}
