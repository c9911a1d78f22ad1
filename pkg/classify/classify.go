// Package classify guesses which major toolchain versions a stylesheet targets
// and whether it can anchor a project on its own.
package classify

import (
	"regexp"
	"slices"
)

// Major is a toolchain major version.
type Major int

const (
	V3 Major = 3
	V4 Major = 4
)

// Stylesheet is the classification of a stylesheet's text.
type Stylesheet struct {
	Root           bool    `json:"root" yaml:"root"`
	Versions       []Major `json:"versions" yaml:"versions"`
	ExplicitImport bool    `json:"explicitImport" yaml:"explicitImport"`
}

// Has reports whether v is one of the candidate versions.
func (s Stylesheet) Has(v Major) bool {
	return slices.Contains(s.Versions, v)
}

// IsRelated reports whether the stylesheet looked related to the toolchain at all.
func (s Stylesheet) IsRelated() bool {
	return len(s.Versions) > 0
}

var (
	packageImport   = regexp.MustCompile(`@import\s*['"]tailwindcss(?:/[^'"]+)?['"]`)
	v4Directive     = regexp.MustCompile(`@(theme|plugin|utility|custom-variant|variant|reference)\s*[^;{]+[;{]`)
	emitUtilities   = regexp.MustCompile(`@tailwind\s*utilities\s*[^;]*;`)
	v4Function      = regexp.MustCompile(`--(alpha|spacing|theme)\(`)
	legacyDirective = regexp.MustCompile(`@tailwind\s*(base|preflight|components|variants|screens)+;`)
	anyTailwind     = regexp.MustCompile(`@tailwind\s*[^;]+;`)
	commonDirective = regexp.MustCompile(`@(config|apply)\s*[^;{]+[;{]`)
	quotedImport    = regexp.MustCompile(`@import\s*['"]`)
	urlPrefix       = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.-]*:|//)`)
)

// Analyze runs the ordered cascade over text. The first rule that matches
// decides the result.
func Analyze(text string) Stylesheet {
	if packageImport.MatchString(text) {
		return Stylesheet{Root: true, Versions: []Major{V4}, ExplicitImport: true}
	}

	if v4Directive.MatchString(text) {
		if emitUtilities.MatchString(text) {
			return Stylesheet{Root: true, Versions: []Major{V4}}
		}
		return Stylesheet{Versions: []Major{V4}}
	}

	if v4Function.MatchString(text) {
		return Stylesheet{Versions: []Major{V4}}
	}

	if legacyDirective.MatchString(text) {
		return Stylesheet{Versions: []Major{V3}}
	}

	if anyTailwind.MatchString(text) {
		return Stylesheet{Root: true, Versions: []Major{V4, V3}}
	}

	if commonDirective.MatchString(text) {
		return Stylesheet{Versions: []Major{V4, V3}}
	}

	if hasLocalImport(text) {
		return Stylesheet{Root: true, Versions: []Major{V4, V3}}
	}

	return Stylesheet{Versions: []Major{}}
}

// hasLocalImport reports whether text holds a quoted @import whose target is
// not a URL.
func hasLocalImport(text string) bool {
	for _, loc := range quotedImport.FindAllStringIndex(text, -1) {
		if !urlPrefix.MatchString(text[loc[1]:]) {
			return true
		}
	}
	return false
}
