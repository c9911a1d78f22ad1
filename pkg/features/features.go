// Package features maps a detected toolchain version onto the capability
// flags the rest of the engine branches on.
package features

import (
	"slices"
	"strings"

	"github.com/fulmenhq/twproj/pkg/versioning"
)

// Feature is a named capability of a toolchain version.
type Feature string

const (
	LayerPreflight        Feature = "layer:preflight"
	LayerBase             Feature = "layer:base"
	CSSAtTheme            Feature = "css-at-theme"
	CSSAtConfigAsProject  Feature = "css-at-config-as-project"
	TranspiledConfigs     Feature = "transpiled-configs"
	RelativeContentPaths  Feature = "relative-content-paths"
	BrowserslistInPlugins Feature = "browserslist-in-plugins"
	ApplyComplex          Feature = "apply-complex-classes"
	ApplyComplexFlagged   Feature = "apply-complex-classes:flagged"
	ContentList           Feature = "content-list"
	PurgeList             Feature = "purge-list"
	JIT                   Feature = "jit"
	SeparatorRoot         Feature = "separator:root"
	SeparatorOptions      Feature = "separator:options"
	SourceNot             Feature = "source-not"
	SourceInline          Feature = "source-inline"
)

// Set is an ordered list of features.
type Set []Feature

// Has reports whether f is in the set.
func (s Set) Has(f Feature) bool {
	return slices.Contains(s, f)
}

// Strings returns the features as plain strings.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = string(f)
	}
	return out
}

// Shape describes what the installed package looks like, for versions whose
// number alone is not enough (insiders builds share one version prefix across
// majors).
type Shape struct {
	// StylesheetEntry is true when the package ships a stylesheet entry point,
	// which only the css-configured generation does.
	StylesheetEntry bool
}

// Supported returns the features of version.
func Supported(version string, shape Shape) Set {
	insiders := strings.HasPrefix(version, "0.0.0-insiders")
	if insiders && shape.StylesheetEntry {
		return Set{CSSAtTheme, LayerBase, ContentList, SourceInline, SourceNot}
	}

	if !insiders {
		if versioning.AtLeast(version, "4.1.0") {
			return Set{CSSAtTheme, LayerBase, ContentList, SourceInline, SourceNot}
		}
		if versioning.AtLeast(version, "4.0.0-alpha.1") || strings.HasPrefix(version, "0.0.0-oxide") {
			return Set{CSSAtTheme, LayerBase, ContentList}
		}
	}

	var set Set
	if versioning.AtLeast(version, "0.99.0") {
		set = append(set, LayerBase, SeparatorRoot)
	} else {
		set = append(set, LayerPreflight, SeparatorOptions)
	}

	if versioning.AtLeast(version, "1.4.0") && versioning.AtMost(version, "1.99.0") {
		set = append(set, BrowserslistInPlugins)
	}

	switch {
	case versioning.AtLeast(version, "3.0.0"):
	case versioning.AtLeast(version, "1.99.0"):
		set = append(set, ApplyComplex)
	case versioning.AtLeast(version, "1.7.0"):
		set = append(set, ApplyComplexFlagged)
	}

	if versioning.AtLeast(version, "3.0.0") {
		set = append(set, ContentList, JIT)
	} else {
		set = append(set, PurgeList)
	}

	if versioning.AtLeast(version, "3.2.0") {
		set = append(set, CSSAtConfigAsProject, RelativeContentPaths)
	}

	if versioning.AtLeast(version, "3.3.0") {
		set = append(set, TranspiledConfigs)
	}

	return set
}
