package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/twproj/pkg/exitcode"
)

const v4Package = `{"name":"tailwindcss","version":"4.1.3","exports":{".":{"style":"./index.css","default":"./dist/lib.js"},"./package.json":"./package.json"}}`

// execCommand runs a fresh command tree and returns its stdout.
func execCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TWPROJ_HOME", t.TempDir())

	root := newRootCommand()
	registerSubcommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func v4Tree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"package.json":                          `{"name":"site"}`,
		"node_modules/tailwindcss/package.json": v4Package,
		"node_modules/tailwindcss/index.css":    "",
		"node_modules/tailwindcss/dist/lib.js":  "",
		"src/app.css":                           "@import \"tailwindcss\";\n@source \"../content\";\n",
		"content/page.html":                     "<div class=\"p-4\"></div>",
	})
}

func TestSearchCommandJSON(t *testing.T) {
	dir := v4Tree(t)
	out, err := execCommand(t, "search", "-w", dir, "--format", "json")
	require.NoError(t, err, out)

	var res struct {
		Workspace string `json:"workspace"`
		Projects  []struct {
			ConfigPath string `json:"configPath"`
			Toolchain  struct {
				Version string `json:"version"`
			} `json:"toolchain"`
			DocumentSelectors []struct {
				Pattern  string `json:"pattern"`
				Priority int    `json:"priority"`
			} `json:"documentSelectors"`
		} `json:"projects"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	require.Len(t, res.Projects, 1)
	assert.True(t, strings.HasSuffix(res.Projects[0].ConfigPath, "/src/app.css"))
	assert.Equal(t, "4.1.3", res.Projects[0].Toolchain.Version)
	assert.NotEmpty(t, res.Projects[0].DocumentSelectors)
}

func TestSearchCommandText(t *testing.T) {
	dir := v4Tree(t)
	out, err := execCommand(t, "search", "-w", dir, "--selectors")
	require.NoError(t, err)
	assert.Contains(t, out, "CONFIG")
	assert.Contains(t, out, "4.1.3")
	assert.Contains(t, out, "/content/**")
	assert.Contains(t, out, "features: ")
}

func TestFilesCommand(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"tailwind.config.js":          "module.exports = {}",
		"src/app.css":                 "",
		"node_modules/pkg/styles.css": "",
		"vendor/skip.css":             "",
	})
	out, err := execCommand(t, "files", "-w", dir, "--format", "json", "--exclude", "vendor/**")
	require.NoError(t, err, out)

	var files []FileResult
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	require.Len(t, files, 2)
	assert.Equal(t, "src/app.css", files[0].RelativePath)
	assert.Equal(t, "stylesheet", files[0].Kind)
	assert.Equal(t, "tailwind.config.js", files[1].RelativePath)
	assert.Equal(t, "config", files[1].Kind)

	out, err = execCommand(t, "files", "-w", dir, "--kind", "config")
	require.NoError(t, err)
	assert.Equal(t, "config      tailwind.config.js\n", out)

	_, err = execCommand(t, "files", "-w", dir, "--kind", "binary")
	assert.Equal(t, exitcode.UsageError, exitCodeOf(err))
}

func TestSearchCommandTemplate(t *testing.T) {
	dir := v4Tree(t)
	out, err := execCommand(t, "search", "-w", dir, "--template", "{{#each projects}}{{toolchain.version}}{{/each}}")
	require.NoError(t, err)
	assert.Equal(t, "4.1.3", out)
}

func TestSearchCommandRequire(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "<p></p>"})
	out, err := execCommand(t, "search", "-w", dir, "--require")
	require.Error(t, err)
	assert.Equal(t, exitcode.NoProjectFound, exitCodeOf(err))
	assert.Contains(t, out, "No projects found")
}

func TestSearchCommandBadFormat(t *testing.T) {
	_, err := execCommand(t, "search", "--format", "csv")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitCodeOf(err))
}

func TestSearchCommandMissingWorkspace(t *testing.T) {
	_, err := execCommand(t, "search", "-w", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, exitcode.FileSystemError, exitCodeOf(err))
}

func TestMatchCommand(t *testing.T) {
	dir := v4Tree(t)
	page := filepath.Join(dir, "content", "page.html")
	out, err := execCommand(t, "match", "-w", dir, "-o", "yaml", page)
	require.NoError(t, err, out)
	assert.Contains(t, out, "project: ")
	assert.Contains(t, out, "/src/app.css")
	assert.Contains(t, out, "version: 4.1.3")
}

func TestClassifyCommand(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"app.css":    "/* main */\n@import \"tailwindcss\";\n@config \"./tailwind.config.js\";\n",
		"legacy.css": "@tailwind base;\n@tailwind utilities;\n",
	})
	out, err := execCommand(t, "classify", "-o", "xml", filepath.Join(dir, "app.css"), filepath.Join(dir, "legacy.css"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "<stylesheets>")
	assert.Contains(t, out, "<root>true</root>")
	assert.Contains(t, out, "<configLine>3</configLine>")
	assert.Contains(t, out, "tailwind.config.js</config>")
}

func TestClassifyCommandMissingFile(t *testing.T) {
	_, err := execCommand(t, "classify", filepath.Join(t.TempDir(), "gone.css"))
	require.Error(t, err)
	assert.Equal(t, exitcode.FileSystemError, exitCodeOf(err))
}

func TestResolveCommand(t *testing.T) {
	dir := v4Tree(t)
	out, err := execCommand(t, "resolve", "-w", dir, "--profile", "stylesheet", "-o", "toml", "tailwindcss")
	require.NoError(t, err, out)
	assert.Contains(t, out, "node_modules/tailwindcss/index.css")
	assert.Contains(t, out, "stylesheet-package")

	_, err = execCommand(t, "resolve", "-w", dir, "missing-package")
	assert.ErrorContains(t, err, "did not resolve")

	_, err = execCommand(t, "resolve", "-w", dir, "--profile", "amd", "x")
	assert.Equal(t, exitcode.UsageError, exitCodeOf(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := execCommand(t, "version", "--extended")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "twproj "))
	assert.Contains(t, out, "(bundled)")

	out, err = execCommand(t, "version", "-o", "json")
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Contains(t, v, "version")
	assert.Contains(t, v, "bundled_toolchain")
}

func TestEnvinfoCommand(t *testing.T) {
	dir := v4Tree(t)
	out, err := execCommand(t, "envinfo", "-w", dir, "-o", "json")
	require.NoError(t, err, out)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	for _, key := range []string{"system", "workspace", "settings"} {
		assert.Contains(t, v, key)
	}
	settings, ok := v["settings"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, settings, "files")

	out, err = execCommand(t, "envinfo", "-w", dir, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "System Information")
	assert.Contains(t, out, "4.1.3")
}

func TestCountPatterns(t *testing.T) {
	assert.Equal(t, 2, countPatterns("# comment\nnode_modules\n\n dist/ \n"))
}
