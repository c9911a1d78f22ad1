/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/pkg/buildinfo"
	"github.com/fulmenhq/twproj/pkg/exitcode"
	"github.com/fulmenhq/twproj/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// Tests build isolated command trees from it.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "twproj",
		Short: "Discover CSS toolchain projects in a workspace",
		Long: `twproj finds the Tailwind CSS projects of a workspace: the configs and
stylesheets that anchor them, the toolchain version each one resolves to, and
the document selectors that decide which project owns a file.

Examples:
   twproj search                 # List the projects of the current directory
   twproj match src/page.html    # Show which project owns a file
   twproj classify app.css       # Show how a stylesheet is classified
   twproj resolve tailwindcss    # Resolve a module id from the workspace
   twproj watch                  # Keep projects in step with file changes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Settings file to load on top of user and workspace settings")
	cmd.PersistentFlags().StringP("workspace", "w", "", "Workspace directory (default: current directory)")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("twproj {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newSearchCommand())
	cmd.AddCommand(newFilesCommand())
	cmd.AddCommand(newMatchCommand())
	cmd.AddCommand(newClassifyCommand())
	cmd.AddCommand(newResolveCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newEnvinfoCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// exitError carries the process exit code for a failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCodeOf maps an error returned by a command to an exit code.
func exitCodeOf(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitcode.GeneralError
}

// Execute runs the root command and exits with the code of its failure.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := exitCodeOf(err)
		logger.Error("Command execution failed", logger.Err(err), logger.String("exit", exitcode.String(code)))
		os.Exit(code)
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "twproj",
	}

	if err := logger.Initialize(config); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}
