package pathfinder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/twproj/pkg/ignore"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func rels(base string, files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		r, _ := filepath.Rel(filepath.FromSlash(base), filepath.FromSlash(f))
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

func TestFileClassPredicates(t *testing.T) {
	assert.True(t, IsConfigFile("/p/tailwind.config.js"))
	assert.True(t, IsConfigFile("/p/tailwind.admin.config.ts"))
	assert.True(t, IsConfigFile("/p/tailwind.config.prod.cjs"))
	assert.True(t, IsConfigFile("/p/tailwind.mjs"))
	assert.False(t, IsConfigFile("/p/postcss.config.js"))

	assert.True(t, IsStylesheet("/p/app.css"))
	assert.True(t, IsStylesheet("/p/app.scss"))
	assert.False(t, IsStylesheet("/p/app.styl"))

	assert.True(t, IsPackageLock("/p/pnpm-lock.yaml"))
	assert.False(t, IsPackageLock("/p/package.json"))
	assert.True(t, IsPackageFile("/p/package.json"))

	assert.True(t, IsPathMappingConfig("/p/tsconfig.app.json"))
	assert.True(t, IsPathMappingConfig("/p/jsconfig.json"))

	assert.True(t, IsPreprocessed("/p/a.SCSS"))
	assert.True(t, IsPreprocessed("/p/a.styl"))
	assert.False(t, IsPreprocessed("/p/a.pcss"))
}

func TestNormalizeExcludes(t *testing.T) {
	got := NormalizeExcludes([]string{"/dist/**", "**/.git/**", "//double"})
	assert.Equal(t, []string{"dist/**", "**/.git/**", "/double"}, got)
}

func TestGlobScannerScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tailwind.config.js":                   "module.exports = {}",
		"src/app.css":                          "@import 'tailwindcss';",
		"src/theme.scss":                       "",
		"src/readme.md":                        "",
		"node_modules/pkg/index.css":           "",
		"dist/out.css":                         "",
		".hidden/tailwind.config.ts":           "",
		"packages/web/tailwind.web.config.cjs": "",
	})

	s := NewGlobScanner()
	files, err := s.Scan(context.Background(), root, DiscoveryPatterns(), []string{"**/node_modules/**", "/dist/**"})
	require.NoError(t, err)

	base := pathutil.FromOS(root)
	assert.Equal(t, []string{
		".hidden/tailwind.config.ts",
		"packages/web/tailwind.web.config.cjs",
		"src/app.css",
		"src/theme.scss",
		"tailwind.config.js",
	}, rels(base, files))
}

func TestGlobScannerFollowsSymlinksWithoutLooping(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"real/app.css": "",
	})
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(root, filepath.Join(root, "real", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	files, err := NewGlobScanner().Scan(context.Background(), root, DiscoveryPatterns(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"link/app.css", "real/app.css"}, rels(pathutil.FromOS(root), files))
}

func TestGlobScannerHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":    "build/\n",
		"build/app.css": "",
		"src/app.css":   "",
	})

	m, err := ignore.NewMatcher(root)
	require.NoError(t, err)

	s := &GlobScanner{FollowSymlinks: true, Ignore: m}
	files, err := s.Scan(context.Background(), root, DiscoveryPatterns(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.css"}, rels(pathutil.FromOS(root), files))
}

func TestGlobScannerMissingRoot(t *testing.T) {
	_, err := NewGlobScanner().Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), DiscoveryPatterns(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScanFailure))
}

func TestGlobScannerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGlobScanner().Scan(ctx, t.TempDir(), DiscoveryPatterns(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
