// Package ignore provides gitignore-based filtering of workspace paths using go-git
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the workspace-level ignore file read on top of git's own.
const FileName = ".twprojignore"

// Matcher answers whether workspace paths are ignored.
type Matcher struct {
	root    string
	matcher gitignore.Matcher
}

// NewMatcher creates a matcher with layered ignore files:
// 1. .gitignore files (nested ones included) and .git/info/exclude
// 2. .twprojignore at the workspace root
func NewMatcher(root string) (*Matcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern

	// ReadPatterns with nil walks .gitignore files below the root and .git/info/exclude
	if gitPatterns, err := gitignore.ReadPatterns(osfs.New(abs), nil); err == nil {
		patterns = append(patterns, gitPatterns...)
	}

	if extra, err := readIgnoreFile(filepath.Join(abs, FileName)); err == nil {
		for _, p := range extra {
			patterns = append(patterns, gitignore.ParsePattern(p, nil))
		}
	}

	return &Matcher{root: abs, matcher: gitignore.NewMatcher(patterns)}, nil
}

// Root returns the directory the matcher was built for.
func (m *Matcher) Root() string {
	return m.root
}

func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- fixed name under workspace root
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// IsIgnored reports whether path is ignored. Paths outside the root are never ignored.
func (m *Matcher) IsIgnored(path string, isDir bool) bool {
	if m == nil {
		return false
	}
	rel, err := filepath.Rel(m.root, filepath.FromSlash(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	parts := splitPath(filepath.ToSlash(rel))
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return []string{}
	}

	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")

	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
