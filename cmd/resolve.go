/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/internal/report"
	"github.com/fulmenhq/twproj/pkg/exitcode"
	"github.com/fulmenhq/twproj/pkg/resolver"
)

var profiles = map[string]resolver.Profile{
	"esm":        resolver.ESM,
	"cjs":        resolver.CJS,
	"stylesheet": resolver.Stylesheet,
}

// ResolveResult is the outcome of resolving one id.
type ResolveResult struct {
	ID      string `json:"id" yaml:"id"`
	From    string `json:"from" yaml:"from"`
	Profile string `json:"profile" yaml:"profile"`
	Mapped  string `json:"mapped,omitempty" yaml:"mapped,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Resolve module ids the way the toolchain would",
		Long: `Resolve script or stylesheet ids from a directory, honoring package
exports, tsconfig/jsconfig path aliases and a plug'n'play registry when
enabled in settings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runResolve,
	}
	addOutputFlags(cmd)
	cmd.Flags().String("from", "", "Directory to resolve from (default: workspace)")
	cmd.Flags().String("profile", "esm", "Resolution profile (esm|cjs|stylesheet)")
	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	opts, err := outputOptions(cmd, "resolutions")
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("profile")
	profile, ok := profiles[name]
	if !ok {
		return withExitCode(exitcode.UsageError, fmt.Errorf("unknown profile %q", name))
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	from := ws.base
	if f, _ := cmd.Flags().GetString("from"); f != "" {
		if from, err = absPath(f); err != nil {
			return err
		}
	}

	results := make([]ResolveResult, 0, len(args))
	failed := 0
	for _, id := range args {
		p := profile
		if id == resolver.ToolchainPackage && p.Name == resolver.Stylesheet.Name {
			p = resolver.StylesheetPackage
		}
		r := ResolveResult{ID: id, From: from, Profile: p.Name}
		if mapped := ws.res.SubstituteID(id, from); mapped != id {
			r.Mapped = mapped
		}
		if path, err := ws.res.Resolve(p, id, from); err != nil {
			r.Error = err.Error()
			failed++
		} else {
			r.Path = path
		}
		results = append(results, r)
	}

	if err := report.Write(cmd.OutOrStdout(), opts, results, func(w io.Writer) error {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			target := r.Path
			if target == "" {
				target = "error: " + r.Error
			}
			rows = append(rows, []string{r.ID, orDash(r.Mapped), target})
		}
		return report.Table(w, []string{"ID", "MAPPED", "RESOLVED"}, rows)
	}); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d ids did not resolve", failed, len(results))
	}
	return nil
}
