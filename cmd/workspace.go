/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fulmenhq/twproj/internal/locator"
	"github.com/fulmenhq/twproj/internal/report"
	"github.com/fulmenhq/twproj/pkg/config"
	"github.com/fulmenhq/twproj/pkg/exitcode"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathutil"
	"github.com/fulmenhq/twproj/pkg/resolver"
)

// workspace is the engine wired for one command run.
type workspace struct {
	base     string
	settings config.Settings
	res      *resolver.Resolver
	loc      *locator.Locator
}

// workspaceDir returns the absolute workspace directory named by --workspace.
func workspaceDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("workspace")
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", withExitCode(exitcode.FileSystemError, fmt.Errorf("workspace %s: %w", dir, err))
	}
	if !info.IsDir() {
		return "", withExitCode(exitcode.FileSystemError, fmt.Errorf("workspace %s is not a directory", dir))
	}
	return abs, nil
}

// loadSettings reads the settings visible from dir. The log level from
// settings applies unless --log-level was given.
func loadSettings(cmd *cobra.Command, dir string) (config.Settings, error) {
	file, _ := cmd.Flags().GetString("config")
	flags := map[string]*pflag.Flag{}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		flags["log.level"] = f
	}

	settings, err := config.Load(cmd.Context(), config.LoadOptions{
		Workspace: dir,
		File:      file,
		Flags:     flags,
	})
	if err != nil {
		return config.Settings{}, withExitCode(exitcode.ConfigError, err)
	}
	logger.SetLevel(logger.ParseLevel(settings.Log.Level))
	return *settings, nil
}

// openWorkspace loads settings and builds the resolver and locator.
func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	dir, err := workspaceDir(cmd)
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(cmd, dir)
	if err != nil {
		return nil, err
	}
	return newWorkspace(cmd.Context(), pathutil.FromOS(dir), settings)
}

func newWorkspace(ctx context.Context, base string, settings config.Settings) (*workspace, error) {
	res, err := resolver.New(ctx, resolver.Options{
		Root:        base,
		CacheSize:   settings.Resolver.CacheSize,
		PathMapping: settings.Resolver.PathMapping,
		PnP:         settings.Resolver.PnP,
	})
	if err != nil {
		return nil, withExitCode(exitcode.ConfigError, err)
	}
	loc, err := locator.New(base, settings, res)
	if err != nil {
		return nil, withExitCode(exitcode.ConfigError, err)
	}
	return &workspace{base: base, settings: settings, res: res, loc: loc}, nil
}

// addOutputFlags registers --format and --template.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "o", "text", "Output format (text|json|yaml|toml|xml)")
	cmd.Flags().String("template", "", "Handlebars template rendered against the JSON form of the result")
}

func outputOptions(cmd *cobra.Command, root string) (report.Options, error) {
	formatStr, _ := cmd.Flags().GetString("format")
	tpl, _ := cmd.Flags().GetString("template")
	format, err := report.ParseFormat(formatStr)
	if err != nil {
		return report.Options{}, withExitCode(exitcode.UsageError, err)
	}
	return report.Options{Format: format, Template: tpl, Root: root}, nil
}

// absPath makes a command-line path absolute and normalized.
func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return pathutil.FromOS(abs), nil
}
