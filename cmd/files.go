/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/internal/report"
	"github.com/fulmenhq/twproj/pkg/exitcode"
	"github.com/fulmenhq/twproj/pkg/ignore"
	"github.com/fulmenhq/twproj/pkg/pathfinder"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// FileResult is one file found by `twproj files`.
type FileResult struct {
	Path         string `json:"path" yaml:"path"`
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	Kind         string `json:"kind" yaml:"kind"`
}

func newFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the candidate files discovery would consider",
		Long: `Walk the workspace with the discovery scanner and list the config
scripts and stylesheets it finds, after excludes and ignore files apply.`,
		Args: cobra.NoArgs,
		RunE: runFiles,
	}
	addOutputFlags(cmd)
	cmd.Flags().StringSlice("include", nil, "Glob patterns to scan for instead of the discovery patterns (doublestar supported)")
	cmd.Flags().StringSlice("exclude", nil, "Extra glob patterns to exclude")
	cmd.Flags().Bool("follow-symlinks", true, "Follow symlinks during traversal")
	cmd.Flags().Bool("no-ignore", false, "Do not apply .gitignore files")
	cmd.Flags().String("kind", "", "Only list files of one kind (config|stylesheet|other)")
	return cmd
}

func runFiles(cmd *cobra.Command, _ []string) error {
	opts, err := outputOptions(cmd, "files")
	if err != nil {
		return err
	}
	kindFilter, _ := cmd.Flags().GetString("kind")
	switch kindFilter {
	case "", "config", "stylesheet", "other":
	default:
		return withExitCode(exitcode.UsageError, fmt.Errorf("unknown kind %q", kindFilter))
	}

	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}

	include, _ := cmd.Flags().GetStringSlice("include")
	if len(include) == 0 {
		include = pathfinder.DiscoveryPatterns()
	}
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	exclude = append(append([]string{}, ws.settings.Files.Exclude...), exclude...)

	scanner := pathfinder.NewGlobScanner()
	scanner.FollowSymlinks, _ = cmd.Flags().GetBool("follow-symlinks")
	if noIgnore, _ := cmd.Flags().GetBool("no-ignore"); !noIgnore && ws.settings.Files.Gitignore {
		m, err := ignore.NewMatcher(pathutil.ToOS(ws.base))
		if err != nil {
			return withExitCode(exitcode.FileSystemError, err)
		}
		scanner.Ignore = m
	}

	hits, err := scanner.Scan(cmd.Context(), ws.base, include, exclude)
	if err != nil {
		if errors.Is(err, pathfinder.ErrScanFailure) {
			return withExitCode(exitcode.ScanError, err)
		}
		return err
	}

	results := make([]FileResult, 0, len(hits))
	for _, hit := range hits {
		r := FileResult{
			Path:         hit,
			RelativePath: strings.TrimPrefix(strings.TrimPrefix(hit, ws.base), "/"),
			Kind:         fileKind(hit),
		}
		if kindFilter != "" && r.Kind != kindFilter {
			continue
		}
		results = append(results, r)
	}

	return report.Write(cmd.OutOrStdout(), opts, results, func(w io.Writer) error {
		for _, r := range results {
			if _, err := fmt.Fprintf(w, "%-10s  %s\n", r.Kind, path.Clean(r.RelativePath)); err != nil {
				return err
			}
		}
		return nil
	})
}

func fileKind(p string) string {
	switch {
	case pathfinder.IsConfigFile(p):
		return "config"
	case pathfinder.IsStylesheet(p):
		return "stylesheet"
	}
	return "other"
}
