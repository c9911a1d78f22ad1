/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/internal/report"
	"github.com/fulmenhq/twproj/pkg/buildinfo"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// VersionInfo is the output of `twproj version`.
type VersionInfo struct {
	buildinfo.Info `yaml:",inline"`
	Bundled        string `json:"bundled_toolchain" yaml:"bundled_toolchain"`
}

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the twproj version",
		Long:  `Show the twproj version. With --extended, also show the Go version, platform and the bundled toolchain version used when a workspace has none.`,
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	addOutputFlags(cmd)
	cmd.Flags().Bool("extended", false, "Show build information")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	opts, err := outputOptions(cmd, "version")
	if err != nil {
		return err
	}
	extended, _ := cmd.Flags().GetBool("extended")
	info := VersionInfo{Info: buildinfo.Current(), Bundled: toolchain.BundledVersion}

	return report.Write(cmd.OutOrStdout(), opts, info, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "twproj %s\n", info.Version); err != nil {
			return err
		}
		if !extended {
			return nil
		}
		if info.ModuleVersion != "" {
			_, _ = fmt.Fprintf(w, "Module:    %s\n", info.ModuleVersion)
		}
		_, _ = fmt.Fprintf(w, "Go:        %s\n", info.GoVersion)
		_, _ = fmt.Fprintf(w, "Platform:  %s\n", info.Platform)
		_, err := fmt.Fprintf(w, "Toolchain: %s (bundled)\n", info.Bundled)
		return err
	})
}
