package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/twproj/internal/locator"
)

func project(config string, sels ...locator.DocumentSelector) *locator.ProjectConfig {
	return &locator.ProjectConfig{Folder: "/ws", ConfigPath: config, DocumentSelectors: sels}
}

func sel(pattern string, priority int) locator.DocumentSelector {
	return locator.DocumentSelector{Pattern: pattern, Priority: priority}
}

func TestNegatedSelectorDisqualifies(t *testing.T) {
	p1 := project("/ws/app.css", sel("**/*.css", 2), sel("!**/vendor/**", 0))

	assert.Nil(t, Match("vendor/x.css", []*locator.ProjectConfig{p1}))
	assert.Same(t, p1, Match("src/x.css", []*locator.ProjectConfig{p1}))
}

func TestLowestPriorityWins(t *testing.T) {
	broad := project("/ws/tailwind.config.js", sel("/ws/**", 4))
	narrow := project("/ws/admin/admin.css", sel("/ws/admin/**", 2))
	projects := []*locator.ProjectConfig{broad, narrow}

	for i := 0; i < 3; i++ {
		assert.Same(t, narrow, Match("/ws/admin/page.html", projects))
	}
	assert.Same(t, broad, Match("/ws/site/page.html", projects))
}

func TestEqualPriorityKeepsFirst(t *testing.T) {
	a := project("/ws/a.css", sel("/ws/**", 1))
	b := project("/ws/b.css", sel("/ws/**", 1))

	assert.Same(t, a, Match("/ws/x.html", []*locator.ProjectConfig{a, b}))
	assert.Same(t, b, Match("/ws/x.html", []*locator.ProjectConfig{b, a}))
}

func TestFallbackProject(t *testing.T) {
	fallback := &locator.ProjectConfig{Folder: "/ws"}
	second := &locator.ProjectConfig{Folder: "/ws/other"}
	scoped := project("/ws/a/tailwind.config.js", sel("/ws/a/**", 3))
	projects := []*locator.ProjectConfig{fallback, second, scoped}

	assert.Same(t, scoped, Match("/ws/a/index.html", projects))
	assert.Same(t, fallback, Match("/ws/b/index.html", projects))
	assert.Nil(t, Match("/ws/b/index.html", []*locator.ProjectConfig{scoped}))
}

func TestMatchNormalizesPaths(t *testing.T) {
	p := project("C:/ws/app.css", sel("C:/ws/**", 2))
	assert.Same(t, p, Match(`c:\ws\src\x.html`, []*locator.ProjectConfig{p}))
}

func TestEscapedSelectors(t *testing.T) {
	p := project("/ws/app(1)/app.css", sel(`/ws/app\(1\)/**`, 2))
	assert.Same(t, p, Match("/ws/app(1)/index.html", []*locator.ProjectConfig{p}))
	assert.Nil(t, Match("/ws/app1/index.html", []*locator.ProjectConfig{p}))
}

func TestSortedPutsNegatedFirst(t *testing.T) {
	in := []locator.DocumentSelector{sel("a", 0), sel("!b", 1), sel("c", 2), sel("!d", 0)}
	assert.Equal(t, []locator.DocumentSelector{sel("!b", 1), sel("!d", 0), sel("a", 0), sel("c", 2)}, Sorted(in))
	assert.Equal(t, "a", in[0].Pattern, "input is not modified")
}

func TestClaims(t *testing.T) {
	p := project("/ws/tailwind.config.js", sel("/ws/**", 3), sel("/ws/src/**", 1), sel("!/ws/src/gen/**", 1))

	priority, ok := Claims(p, "/ws/src/page.tsx")
	require.True(t, ok)
	assert.Equal(t, 1, priority)

	_, ok = Claims(p, "/ws/src/gen/page.tsx")
	assert.False(t, ok)

	priority, ok = Claims(p, "/ws/readme.md")
	require.True(t, ok)
	assert.Equal(t, 3, priority)
}

func TestMatcherReuse(t *testing.T) {
	a := project("/ws/a/tailwind.config.js", sel("/ws/a/**", 3))
	b := project("/ws/b/tailwind.config.js", sel("/ws/b/**", 3))
	m := NewMatcher([]*locator.ProjectConfig{a, b})

	assert.Same(t, a, m.Match("/ws/a/x.html"))
	assert.Same(t, b, m.Match("/ws/b/x.html"))
	assert.Nil(t, m.Match("/elsewhere/x.html"))
}
