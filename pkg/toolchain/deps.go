package toolchain

import (
	"path"
	"regexp"
	"strings"

	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// FileSource is the read side of a filesystem cache.
type FileSource interface {
	IsFile(p string) bool
	ReadFile(p string) ([]byte, error)
}

var (
	jsResolutionOrder = []string{"", ".js", ".cjs", ".mjs", ".ts", ".cts", ".mts", ".jsx", ".tsx"}
	tsResolutionOrder = []string{"", ".ts", ".cts", ".mts", ".tsx", ".js", ".cjs", ".mjs", ".jsx"}

	importPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)import.*?['"](.{3,}?)['"]`),
		regexp.MustCompile(`(?is)import.*from.*?['"](.{3,}?)['"]`),
		regexp.MustCompile("(?i)require\\(['\"`](.+)['\"`]\\)"),
	}
)

// ModuleDependencies returns the local files a script config pulls in through
// relative imports and requires, transitively, excluding the config itself.
// Files resolving from a JS file prefer JS extensions; from TS, TS ones.
func ModuleDependencies(fs FileSource, configPath string) []string {
	configPath = pathutil.Normalize(configPath)
	seen := make(map[string]bool)
	var out []string
	collectDependencies(fs, configPath, pathutil.Dir(configPath), path.Ext(configPath), seen, &out)

	deps := out[:0]
	for _, p := range out {
		if p != configPath {
			deps = append(deps, p)
		}
	}
	return deps
}

func collectDependencies(fs FileSource, file, base, ext string, seen map[string]bool, out *[]string) {
	order := tsResolutionOrder
	switch ext {
	case ".js", ".cjs", ".mjs":
		order = jsResolutionOrder
	}

	abs, ok := resolveWithExtension(fs, pathutil.Resolve(base, file), order)
	if !ok || seen[abs] {
		return
	}
	seen[abs] = true
	*out = append(*out, abs)

	data, err := fs.ReadFile(abs)
	if err != nil {
		return
	}
	contents := string(data)
	base, ext = pathutil.Dir(abs), path.Ext(abs)

	for _, re := range importPatterns {
		for _, m := range re.FindAllStringSubmatch(contents, -1) {
			if !strings.HasPrefix(m[1], ".") {
				continue
			}
			collectDependencies(fs, m[1], base, ext, seen, out)
		}
	}
}

func resolveWithExtension(fs FileSource, file string, order []string) (string, bool) {
	for _, ext := range order {
		if fs.IsFile(file + ext) {
			return file + ext, true
		}
	}
	for _, ext := range order {
		if candidate := file + "/index" + ext; fs.IsFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}
