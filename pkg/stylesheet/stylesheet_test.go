package stylesheet

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/twproj/pkg/resolver"
)

func writeTree(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for p, content := range files {
		require.NoError(t, util.WriteFile(fs, p, []byte(content), 0o644))
	}
	return fs
}

func TestStripComments(t *testing.T) {
	in := "/* @import 'a.css'; */\n@import 'b.css';/* multi\nline */\n.x{}"
	assert.Equal(t, "\n@import 'b.css';\n\n.x{}", StripComments(in))
}

func TestLineOf(t *testing.T) {
	text := "a\nb\nc"
	assert.Equal(t, 1, LineOf(text, 0))
	assert.Equal(t, 2, LineOf(text, 2))
	assert.Equal(t, 3, LineOf(text, 100))
}

func TestFileReader(t *testing.T) {
	fs := writeTree(t, map[string]string{"/p/app.css": "/* note */@tailwind base;"})
	r := NewFileReader(fs)

	text, err := r.Read(context.Background(), "/p/app.css")
	require.NoError(t, err)
	assert.Equal(t, "@tailwind base;", text)

	_, err = r.Read(context.Background(), "/p/missing.css")
	assert.True(t, errors.Is(err, ErrReadFailure))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Read(ctx, "/p/app.css")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigReference(t *testing.T) {
	got, ok := ConfigReference(`@import "tailwindcss"; @config "./tailwind.config.js";`, "/proj/src/app.css")
	require.True(t, ok)
	assert.Equal(t, Reference{Path: "/proj/src/tailwind.config.js", Line: 1}, got)

	got, ok = ConfigReference("@import 'tailwindcss';\n\n@config '../config/tw.config.ts';", "/proj/src/app.css")
	require.True(t, ok)
	assert.Equal(t, "/proj/config/tw.config.ts", got.Path)
	assert.Equal(t, 3, got.Line)

	_, ok = ConfigReference(`@tailwind utilities;`, "/proj/src/app.css")
	assert.False(t, ok)
}

func newImporter(t *testing.T, fs billy.Filesystem, mapping bool) *Importer {
	t.Helper()
	res, err := resolver.New(context.Background(), resolver.Options{Root: "/proj", FS: fs, PathMapping: mapping})
	require.NoError(t, err)
	return NewImporter(res, NewFileReader(fs))
}

func TestImporterInlinesRecursively(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/proj/src/app.css": `@import "./base.css" layer(base);
@import "tailwindcss";
@import url("https://fonts.example.com/inter.css");
@import "./vars.scss";
@import "./missing.css";
.app {}`,
		"/proj/src/base.css":        `@import "./app.css"; @import './nested/a.css' screen and (min-width: 10px); .base {}`,
		"/proj/src/nested/a.css":    `.a {}`,
		"/proj/src/vars.scss":       `$x: 1;`,
		"/proj/node_modules/tailwindcss/package.json": `{"exports": {".": {"style": "./index.css"}}}`,
		"/proj/node_modules/tailwindcss/index.css":    `@tailwind utilities;`,
	})
	im := newImporter(t, fs, false)

	raw, err := util.ReadFile(fs, "/proj/src/app.css")
	require.NoError(t, err)

	res, err := im.ResolveImports(context.Background(), string(raw), "/proj/src/app.css")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/proj/src/base.css",
		"/proj/src/nested/a.css",
		"/proj/node_modules/tailwindcss/index.css",
	}, res.Dependencies)

	assert.Contains(t, res.Text, "@layer base {")
	assert.Contains(t, res.Text, "@media screen and (min-width: 10px) {\n.a {}\n}")
	assert.Contains(t, res.Text, "@tailwind utilities;")
	assert.Contains(t, res.Text, `@import url("https://fonts.example.com/inter.css");`)
	assert.Contains(t, res.Text, `@import "./vars.scss";`)
	assert.NotContains(t, res.Text, "missing.css")
	assert.Equal(t, 1, strings.Count(res.Text, ".app {}"), "import cycles are cut")
}

func TestImporterMappingRejected(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/proj/tsconfig.json": `{"compilerOptions": {"paths": {"@/*": ["./src/*"]}}}`,
		"/proj/src/app.css":   `@import "@/nope.css";`,
	})
	im := newImporter(t, fs, true)

	_, err := im.ResolveImports(context.Background(), "\n@import \"@/nope.css\";", "/proj/src/app.css")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrMappingRejected))

	var ie *ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "@/nope.css", ie.ID)
	assert.Equal(t, "/proj/src/app.css", ie.From)
	assert.Equal(t, 2, ie.Line)
}

func TestWrapConditions(t *testing.T) {
	assert.Equal(t, ".x{}", wrapConditions(".x{}", ""))
	assert.Equal(t, "@layer {\n.x{}\n}", wrapConditions(".x{}", " layer"))
	assert.Equal(t, "@layer theme {\n@supports (display: grid) {\n.x{}\n}\n}",
		wrapConditions(".x{}", "layer(theme) supports(display: grid)"))
	assert.Equal(t, ".x{}", wrapConditions(".x{}", `source("../src")`))
}

func TestExtractSources(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/proj/components/button.tsx": "",
		"/proj/app(1)/src/page.tsx":   "",
	})
	e := NewDirectiveExtractor(fs)

	text := `@import "tailwindcss" source("../lib");
@source "../components";
@source not "./legacy/**/*.html";
@source inline("underline");
@source '../app(1)/src/**/*.tsx';`

	got := e.ExtractSources(text, "/proj/src/app.css")
	assert.Equal(t, []SourcePattern{
		{Pattern: "/proj/lib"},
		{Pattern: "/proj/components/**"},
		{Pattern: "/proj/src/legacy/**/*.html", Negated: true},
		{Pattern: `/proj/app\(1\)/src/**/*.tsx`},
	}, got)

	assert.Nil(t, e.ExtractSources(`@tailwind utilities;`, "/proj/src/app.css"))
}
