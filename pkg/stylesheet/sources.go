package stylesheet

import (
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// SourcePattern is one auto-content source declared by a stylesheet. Pattern
// is absolute with its literal leading segments glob-escaped.
type SourcePattern struct {
	Pattern string `json:"pattern" yaml:"pattern" toml:"pattern"`
	Negated bool   `json:"negated,omitempty" yaml:"negated,omitempty" toml:"negated,omitempty"`
}

// SourceExtractor finds the auto-content source patterns of a stylesheet.
type SourceExtractor interface {
	ExtractSources(text, from string) []SourcePattern
}

var (
	sourceDirective = regexp.MustCompile(`@source\s+(not\s+)?(?:"([^"]*)"|'([^']*)')`)
	importSource    = regexp.MustCompile(`@import\s+[^;{}]*?\bsource\(\s*(?:"([^"]*)"|'([^']*)')\s*\)`)
)

// DirectiveExtractor reads `@source "…"`, `@source not "…"` and the
// `source("…")` clause of @import. `@source inline(…)` is not a file source
// and is ignored.
type DirectiveExtractor struct {
	FS billy.Filesystem
}

// NewDirectiveExtractor returns an extractor that checks for directories on
// fs, or on the host filesystem when fs is nil.
func NewDirectiveExtractor(fs billy.Filesystem) *DirectiveExtractor {
	if fs == nil {
		fs = osfs.New("/")
	}
	return &DirectiveExtractor{FS: fs}
}

// ExtractSources returns the patterns declared in text, which was read from
// from, in declaration order.
func (e *DirectiveExtractor) ExtractSources(text, from string) []SourcePattern {
	dir := pathutil.Dir(pathutil.Normalize(from))

	type found struct {
		at      int
		raw     string
		negated bool
	}
	var all []found
	for _, m := range sourceDirective.FindAllStringSubmatchIndex(text, -1) {
		raw := submatch(text, m, 2)
		if m[4] < 0 {
			raw = submatch(text, m, 3)
		}
		all = append(all, found{at: m[0], raw: raw, negated: m[2] >= 0})
	}
	for _, m := range importSource.FindAllStringSubmatchIndex(text, -1) {
		raw := submatch(text, m, 1)
		if m[2] < 0 {
			raw = submatch(text, m, 2)
		}
		all = append(all, found{at: m[0], raw: raw})
	}
	if len(all) == 0 {
		return nil
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].at < all[j].at })

	out := make([]SourcePattern, 0, len(all))
	for _, f := range all {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		out = append(out, SourcePattern{Pattern: e.absolute(dir, f.raw), Negated: f.negated})
	}
	return out
}

func (e *DirectiveExtractor) absolute(dir, raw string) string {
	p := pathutil.Resolve(dir, raw)
	if !pathutil.HasGlobMeta(p) {
		if info, err := e.FS.Stat(p); err == nil && info.IsDir() {
			return pathutil.EscapeGlob(p) + "/**"
		}
		return pathutil.EscapeGlob(p)
	}

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if pathutil.HasGlobMeta(seg) {
			break
		}
		segments[i] = pathutil.EscapeGlob(seg)
	}
	return strings.Join(segments, "/")
}
