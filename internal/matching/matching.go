// Package matching decides which project owns a document.
package matching

import (
	"math"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/twproj/internal/locator"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// Matcher matches documents against a fixed set of projects. Selectors are
// sorted once. Project order is significant: on equal priority the earlier
// project wins.
type Matcher struct {
	projects  []*locator.ProjectConfig
	selectors [][]locator.DocumentSelector
}

// NewMatcher prepares projects for matching.
func NewMatcher(projects []*locator.ProjectConfig) *Matcher {
	m := &Matcher{
		projects:  projects,
		selectors: make([][]locator.DocumentSelector, len(projects)),
	}
	for i, p := range projects {
		m.selectors[i] = Sorted(p.DocumentSelectors)
	}
	return m
}

// Match returns the project owning path, or nil.
func Match(path string, projects []*locator.ProjectConfig) *locator.ProjectConfig {
	return NewMatcher(projects).Match(path)
}

// Match returns the project owning path, or nil. A project whose negated
// selector matches is out for this path. Otherwise the project with the
// lowest-priority positive match wins. A single project without a config path
// is kept as the fallback for paths nothing else claims.
func (m *Matcher) Match(path string) *locator.ProjectConfig {
	path = pathutil.Normalize(path)

	var fallback, matched *locator.ProjectConfig
	best := math.MaxInt
	for i, p := range m.projects {
		if p.ConfigPath == "" {
			if fallback == nil {
				fallback = p
			}
			continue
		}
		if priority, ok := claim(m.selectors[i], path); ok && priority < best {
			best = priority
			matched = p
		}
	}
	if matched != nil {
		return matched
	}
	return fallback
}

// Claims reports whether p's selectors claim path, and at which priority.
func Claims(p *locator.ProjectConfig, path string) (int, bool) {
	return claim(Sorted(p.DocumentSelectors), pathutil.Normalize(path))
}

// claim evaluates selectors sorted by Sorted.
func claim(selectors []locator.DocumentSelector, path string) (int, bool) {
	best, ok := math.MaxInt, false
	for _, s := range selectors {
		if s.Negated() {
			if matches(s.Pattern[1:], path) {
				return 0, false
			}
			continue
		}
		if s.Priority < best && matches(s.Pattern, path) {
			best, ok = s.Priority, true
		}
	}
	return best, ok
}

// Sorted returns a copy of selectors with negated ones first, otherwise in
// their original order.
func Sorted(selectors []locator.DocumentSelector) []locator.DocumentSelector {
	out := append([]locator.DocumentSelector(nil), selectors...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Negated() && !out[j].Negated()
	})
	return out
}

func matches(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, path)
	return err == nil && ok
}
