/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/internal/locator"
	"github.com/fulmenhq/twproj/internal/report"
	"github.com/fulmenhq/twproj/pkg/exitcode"
	"github.com/fulmenhq/twproj/pkg/pathfinder"
)

// SearchResult is the output of `twproj search`.
type SearchResult struct {
	Workspace string                   `json:"workspace" yaml:"workspace"`
	Projects  []*locator.ProjectConfig `json:"projects" yaml:"projects"`
	Failures  []string                 `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Discover the projects of the workspace",
		Long: `Scan the workspace for toolchain configs and stylesheets, resolve each
project's toolchain version, and list the projects with their document
selectors.`,
		Args: cobra.NoArgs,
		RunE: runSearch,
	}
	addOutputFlags(cmd)
	cmd.Flags().Bool("selectors", false, "List each project's document selectors in text output")
	cmd.Flags().Bool("require", false, "Fail with a distinct exit code when no project is found")
	return cmd
}

func runSearch(cmd *cobra.Command, _ []string) error {
	opts, err := outputOptions(cmd, "search")
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}

	res, err := ws.loc.Locate(cmd.Context())
	if err != nil {
		if errors.Is(err, pathfinder.ErrScanFailure) {
			return withExitCode(exitcode.ScanError, err)
		}
		return err
	}

	out := SearchResult{Workspace: ws.base, Projects: res.Projects}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, f.Error())
	}

	showSelectors, _ := cmd.Flags().GetBool("selectors")
	if err := report.Write(cmd.OutOrStdout(), opts, out, func(w io.Writer) error {
		return writeSearchText(w, out, showSelectors)
	}); err != nil {
		return err
	}

	if require, _ := cmd.Flags().GetBool("require"); require && len(out.Projects) == 0 {
		return withExitCode(exitcode.NoProjectFound, fmt.Errorf("no project found in %s", ws.base))
	}
	return nil
}

func writeSearchText(w io.Writer, res SearchResult, showSelectors bool) error {
	if len(res.Projects) == 0 {
		if _, err := fmt.Fprintf(w, "No projects found in %s\n", res.Workspace); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(res.Projects))
		for _, p := range res.Projects {
			rows = append(rows, projectRow(p))
		}
		if err := report.Table(w, []string{"CONFIG", "KIND", "VERSION", "SELECTORS"}, rows); err != nil {
			return err
		}
	}

	if showSelectors {
		for _, p := range res.Projects {
			if _, err := fmt.Fprintf(w, "\n%s\n", projectName(p)); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "  features: %s\n", orDash(describeFeatures(p))); err != nil {
				return err
			}
			for _, s := range p.DocumentSelectors {
				if _, err := fmt.Fprintf(w, "  %d  %s\n", s.Priority, s.Pattern); err != nil {
					return err
				}
			}
		}
	}

	for _, f := range res.Failures {
		if _, err := fmt.Fprintf(w, "warning: %s\n", f); err != nil {
			return err
		}
	}
	return nil
}

func projectName(p *locator.ProjectConfig) string {
	if p.ConfigPath == "" {
		return p.Folder
	}
	return p.ConfigPath
}

func projectRow(p *locator.ProjectConfig) []string {
	kind := "user"
	if !p.IsUserConfigured && p.Config != nil {
		kind = string(p.Config.Kind)
	}
	version := p.Toolchain.Version
	if p.Toolchain.IsBundledFallback {
		version += " (bundled)"
	}
	return []string{projectName(p), kind, version, strconv.Itoa(len(p.DocumentSelectors))}
}

// describeFeatures renders a toolchain's feature set for text output.
func describeFeatures(p *locator.ProjectConfig) string {
	return strings.Join(p.Toolchain.Features.Strings(), ", ")
}
