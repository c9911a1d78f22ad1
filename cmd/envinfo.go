/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/internal/report"
	"github.com/fulmenhq/twproj/pkg/buildinfo"
	"github.com/fulmenhq/twproj/pkg/config"
	"github.com/fulmenhq/twproj/pkg/ignore"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
)

// colorize returns colored text if colors are enabled
func colorize(text, color string, useColor bool) string {
	if !useColor {
		return text
	}
	return color + text + colorReset
}

// getColorPreference checks if colors should be used
func getColorPreference(cmd *cobra.Command) bool {
	noColor, _ := cmd.Flags().GetBool("no-color")
	return !noColor
}

// EnvData represents the structured data for environment information.
type EnvData struct {
	System    SystemInfo      `json:"system" yaml:"system"`
	Workspace WorkspaceInfo   `json:"workspace" yaml:"workspace"`
	Settings  config.Settings `json:"settings" yaml:"settings"`
}

// SystemInfo holds system-related information.
type SystemInfo struct {
	OS           string    `json:"os" yaml:"os"`
	Architecture string    `json:"architecture" yaml:"architecture"`
	GoVersion    string    `json:"goVersion" yaml:"goVersion"`
	NumCPU       int       `json:"numCPU" yaml:"numCPU"`
	Hostname     string    `json:"hostname" yaml:"hostname"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	Version      string    `json:"version" yaml:"version"`
}

// WorkspaceInfo describes the workspace as twproj sees it.
type WorkspaceInfo struct {
	Dir          string              `json:"dir" yaml:"dir"`
	SettingsFile string              `json:"settingsFile,omitempty" yaml:"settingsFile,omitempty"`
	UserSettings string              `json:"userSettings,omitempty" yaml:"userSettings,omitempty"`
	Toolchain    toolchain.Toolchain `json:"toolchain" yaml:"toolchain"`
	IgnoreFiles  []IgnoreFileInfo    `json:"ignoreFiles" yaml:"ignoreFiles"`
}

// IgnoreFileInfo is one ignore file and how many patterns it holds.
type IgnoreFileInfo struct {
	Path     string `json:"path" yaml:"path"`
	Exists   bool   `json:"exists" yaml:"exists"`
	Patterns int    `json:"patterns" yaml:"patterns"`
}

func newEnvinfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envinfo",
		Short: "Display environment, settings and toolchain information",
		Long: `Display information about the system, the effective settings and the
toolchain the workspace root resolves to.`,
		Args: cobra.NoArgs,
		RunE: runEnvinfo,
	}
	addOutputFlags(cmd)
	return cmd
}

func runEnvinfo(cmd *cobra.Command, _ []string) error {
	opts, err := outputOptions(cmd, "envinfo")
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}

	tc, err := toolchain.NewModuleLoader(ws.res).Detect(cmd.Context(), ws.base)
	if err != nil {
		return err
	}
	data := EnvData{
		System:    collectSystemInfo(),
		Workspace: collectWorkspaceInfo(filepath.FromSlash(ws.base), tc),
		Settings:  ws.settings,
	}

	useColor := getColorPreference(cmd)
	return report.Write(cmd.OutOrStdout(), opts, data, func(w io.Writer) error {
		return writeEnvText(w, data, useColor)
	})
}

func collectSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()
	return SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		Hostname:     hostname,
		Timestamp:    time.Now(),
		Version:      buildinfo.BinaryVersion,
	}
}

func collectWorkspaceInfo(dir string, tc toolchain.Toolchain) WorkspaceInfo {
	info := WorkspaceInfo{Dir: dir, Toolchain: tc}
	if p, ok := config.FindProjectConfig(dir); ok {
		info.SettingsFile = p
	}
	if p, err := config.UserConfigPath(); err == nil {
		if _, err := os.Stat(p); err == nil {
			info.UserSettings = p
		}
	}
	for _, name := range []string{".gitignore", ignore.FileName} {
		info.IgnoreFiles = append(info.IgnoreFiles, ignoreFileInfo(filepath.Join(dir, name)))
	}
	return info
}

func ignoreFileInfo(path string) IgnoreFileInfo {
	info := IgnoreFileInfo{Path: path}
	content, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- fixed name under the workspace
	if err != nil {
		return info
	}
	info.Exists = true
	info.Patterns = countPatterns(string(content))
	return info
}

// countPatterns counts non-empty, non-comment lines in ignore file content
func countPatterns(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			count++
		}
	}
	return count
}

func writeEnvText(w io.Writer, data EnvData, useColor bool) error {
	keyColor, resetColor := colorCyan, colorReset
	if !useColor {
		keyColor, resetColor = "", ""
	}
	row := func(key, value string) {
		_, _ = fmt.Fprintf(w, "%s%-16s%s | %s\n", keyColor, key, resetColor, value)
	}
	section := func(title string) {
		_, _ = fmt.Fprintln(w, colorize(title, colorBold+colorBlue, useColor))
		_, _ = fmt.Fprintln(w, colorize(strings.Repeat("=", 50), colorCyan, useColor))
	}

	section("System Information")
	row("OS", data.System.OS)
	row("Architecture", data.System.Architecture)
	row("Go Version", data.System.GoVersion)
	row("CPU Cores", fmt.Sprint(data.System.NumCPU))
	row("Hostname", data.System.Hostname)
	row("Timestamp", data.System.Timestamp.Format(time.RFC3339))
	row("twproj Version", data.System.Version)

	_, _ = fmt.Fprintln(w)
	section("Workspace")
	row("Directory", data.Workspace.Dir)
	row("Settings File", orDash(data.Workspace.SettingsFile))
	row("User Settings", orDash(data.Workspace.UserSettings))
	tc := data.Workspace.Toolchain
	version := tc.Version
	if tc.IsBundledFallback {
		version += " (bundled)"
	}
	row("Toolchain", version)
	row("Features", orDash(strings.Join(tc.Features.Strings(), ", ")))
	for _, f := range data.Workspace.IgnoreFiles {
		status := "missing"
		if f.Exists {
			status = fmt.Sprintf("%d patterns", f.Patterns)
		}
		row(filepath.Base(f.Path), status)
	}

	_, _ = fmt.Fprintln(w)
	section("Settings")
	s := data.Settings
	row("Exclude", orDash(strings.Join(s.Files.Exclude, ", ")))
	row("Gitignore", fmt.Sprint(s.Files.Gitignore))
	row("Path Mapping", fmt.Sprint(s.Resolver.PathMapping))
	row("PnP", fmt.Sprint(s.Resolver.PnP))
	row("Concurrency", fmt.Sprint(s.Concurrency()))
	row("Debounce", s.Watch.Debounce.String())
	_, err := fmt.Fprintf(w, "%s%-16s%s | %d\n", keyColor, "User Projects", resetColor, len(s.Experimental.ConfigFiles))
	return err
}
