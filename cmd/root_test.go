package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/pkg/exitcode"
)

func TestInitializeLogger(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "info", "")
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().Bool("no-color", false, "")

	// This should not panic
	initializeLogger(cmd)
}

func TestInitializeLogger_InvalidLevel(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "invalid", "")
	cmd.Flags().Bool("json", true, "")
	cmd.Flags().Bool("no-color", true, "")

	// Should default to info level
	initializeLogger(cmd)
}

func TestRootCmd_Help(t *testing.T) {
	// Create fresh command instance per test to prevent state pollution
	cmd := newRootCommand()
	registerSubcommands(cmd)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "twproj") {
		t.Error("Help output should contain 'twproj'")
	}
	for _, sub := range []string{"search", "files", "match", "classify", "resolve", "watch", "envinfo"} {
		if !strings.Contains(output, sub) {
			t.Errorf("Help output should list %q", sub)
		}
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	cmd := newRootCommand()
	registerSubcommands(cmd)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--version"})
	if err := cmd.Execute(); err != nil {
		t.Errorf("Version flag failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "twproj ") {
		t.Errorf("Version output should start with 'twproj ', got %q", buf.String())
	}
}

func TestRootCmd_InvalidFlag(t *testing.T) {
	cmd := newRootCommand()
	registerSubcommands(cmd)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--invalid-flag"})
	if err := cmd.Execute(); err == nil {
		t.Error("Invalid flag should return an error")
	}
}

func TestExitCodeOf(t *testing.T) {
	if got := exitCodeOf(nil); got != exitcode.Success {
		t.Errorf("exitCodeOf(nil) = %d", got)
	}
	if got := exitCodeOf(errors.New("plain")); got != exitcode.GeneralError {
		t.Errorf("plain error = %d, want %d", got, exitcode.GeneralError)
	}
	wrapped := withExitCode(exitcode.ScanError, errors.New("scan"))
	if got := exitCodeOf(wrapped); got != exitcode.ScanError {
		t.Errorf("wrapped error = %d, want %d", got, exitcode.ScanError)
	}
	if withExitCode(exitcode.ScanError, nil) != nil {
		t.Error("withExitCode(nil) should stay nil")
	}
}
