/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/internal/report"
	"github.com/fulmenhq/twproj/pkg/classify"
	"github.com/fulmenhq/twproj/pkg/exitcode"
	"github.com/fulmenhq/twproj/pkg/stylesheet"
)

// ClassifyResult describes one stylesheet.
type ClassifyResult struct {
	Path           string                     `json:"path" yaml:"path"`
	Classification classify.Stylesheet        `json:"classification" yaml:"classification"`
	Config         string                     `json:"config,omitempty" yaml:"config,omitempty"`
	ConfigLine     int                        `json:"configLine,omitempty" yaml:"configLine,omitempty"`
	Sources        []stylesheet.SourcePattern `json:"sources,omitempty" yaml:"sources,omitempty"`
}

func newClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <stylesheet>...",
		Short: "Show how stylesheets are classified",
		Long: `Read each stylesheet and report the toolchain versions it appears to
target, whether it can anchor a project, the script config it references and
the content sources it declares.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}
	addOutputFlags(cmd)
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	opts, err := outputOptions(cmd, "stylesheets")
	if err != nil {
		return err
	}
	reader := stylesheet.NewFileReader(nil)
	sources := stylesheet.NewDirectiveExtractor(nil)

	results := make([]ClassifyResult, 0, len(args))
	for _, arg := range args {
		p, err := absPath(arg)
		if err != nil {
			return err
		}
		text, err := reader.Read(cmd.Context(), p)
		if err != nil {
			return withExitCode(exitcode.FileSystemError, err)
		}
		r := ClassifyResult{
			Path:           p,
			Classification: classify.Analyze(text),
			Sources:        sources.ExtractSources(text, p),
		}
		if ref, ok := stylesheet.ConfigReference(text, p); ok {
			r.Config, r.ConfigLine = ref.Path, ref.Line
		}
		results = append(results, r)
	}

	return report.Write(cmd.OutOrStdout(), opts, results, func(w io.Writer) error {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			versions := make([]string, len(r.Classification.Versions))
			for i, v := range r.Classification.Versions {
				versions[i] = "v" + strconv.Itoa(int(v))
			}
			config := "-"
			if r.Config != "" {
				config = fmt.Sprintf("%s:%d", r.Config, r.ConfigLine)
			}
			rows = append(rows, []string{
				r.Path,
				orDash(strings.Join(versions, ",")),
				strconv.FormatBool(r.Classification.Root),
				strconv.FormatBool(r.Classification.ExplicitImport),
				config,
			})
		}
		return report.Table(w, []string{"STYLESHEET", "VERSIONS", "ROOT", "IMPORTS", "CONFIG"}, rows)
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
