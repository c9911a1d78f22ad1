package pathutil

import (
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/a/b/../c":           "/a/c",
		`c:\Users\me\app.css`: "C:/Users/me/app.css",
		"/d:/work/x":          "/D:/work/x",
		`\\server\share\x`:    "//server/share/x",
		"//server/share/./y":  "//server/share/y",
		"/cafe\u0301/x.css":   "/caf\u00e9/x.css",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestIsAbsAndResolve(t *testing.T) {
	assert.True(t, IsAbs("/x"))
	assert.True(t, IsAbs("C:/x"))
	assert.True(t, IsAbs("//host/share"))
	assert.False(t, IsAbs("./x"))

	assert.Equal(t, "/proj/src/app.css", Resolve("/proj/src", "./app.css"))
	assert.Equal(t, "/other/app.css", Resolve("/proj/src", "/other/app.css"))
	assert.Equal(t, "/proj/app.css", Resolve("/proj/src", "../app.css"))
}

func TestWithin(t *testing.T) {
	assert.True(t, Within("/proj", "/proj"))
	assert.True(t, Within("/proj", "/proj/a/b.css"))
	assert.True(t, Within("/proj/", "/proj/a"))
	assert.False(t, Within("/proj", "/project/a"))
	assert.True(t, Within("/", "/anything"))
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"/a/b/c", "/a/b", "/a", "/"}, Ancestors("/a/b/c"))
}

func TestEscapeGlob(t *testing.T) {
	p := "/proj/app/[slug]/(group)/page.css"
	escaped := EscapeGlob(p)

	ok, err := doublestar.Match(escaped, p)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, _ = doublestar.Match(escaped, "/proj/app/s/(group)/page.css")
	assert.False(t, ok)

	assert.Equal(t, "/plain/path", EscapeGlob("/plain/path"))
	assert.True(t, HasGlobMeta("src/**/*.html"))
	assert.False(t, HasGlobMeta("src/pages"))
}
