/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/internal/matching"
	"github.com/fulmenhq/twproj/internal/report"
	"github.com/fulmenhq/twproj/pkg/exitcode"
)

// MatchResult is the owner of one document.
type MatchResult struct {
	Path     string   `json:"path" yaml:"path"`
	Project  string   `json:"project,omitempty" yaml:"project,omitempty"`
	Version  string   `json:"version,omitempty" yaml:"version,omitempty"`
	Priority *int     `json:"priority,omitempty" yaml:"priority,omitempty"`
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`
}

func newMatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <file>...",
		Short: "Show which project owns each file",
		Long: `Discover the workspace's projects and report, for each file, the project
whose document selectors claim it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMatch,
	}
	addOutputFlags(cmd)
	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	opts, err := outputOptions(cmd, "matches")
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	projects, err := ws.loc.Search(cmd.Context())
	if err != nil {
		return err
	}
	matcher := matching.NewMatcher(projects)

	results := make([]MatchResult, 0, len(args))
	unmatched := 0
	for _, arg := range args {
		p, err := absPath(arg)
		if err != nil {
			return err
		}
		r := MatchResult{Path: p}
		if owner := matcher.Match(p); owner != nil {
			r.Project = projectName(owner)
			r.Version = owner.Toolchain.Version
			r.Features = owner.Toolchain.Features.Strings()
			if priority, ok := matching.Claims(owner, p); ok {
				r.Priority = &priority
			}
		} else {
			unmatched++
		}
		results = append(results, r)
	}

	if err := report.Write(cmd.OutOrStdout(), opts, results, func(w io.Writer) error {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			project, priority := "-", "-"
			if r.Project != "" {
				project = r.Project
			}
			if r.Priority != nil {
				priority = strconv.Itoa(*r.Priority)
			}
			rows = append(rows, []string{r.Path, project, priority})
		}
		return report.Table(w, []string{"FILE", "PROJECT", "PRIORITY"}, rows)
	}); err != nil {
		return err
	}

	if unmatched == len(results) {
		return withExitCode(exitcode.NoProjectFound, fmt.Errorf("no project owns the given files"))
	}
	return nil
}
