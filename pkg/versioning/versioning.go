// Package versioning parses and compares the semantic versions published by
// the toolchain package (release, prerelease and insiders builds).
package versioning

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Comparison int

const (
	ComparisonUnknown Comparison = iota
	ComparisonLess
	ComparisonEqual
	ComparisonGreater
)

var semverPattern = regexp.MustCompile(`^(?:[vV])?(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.-]+))?(?:\+([0-9A-Za-z.-]+))?$`)

type semverIdentifier struct {
	raw     string
	numeric bool
	num     int
}

// Version represents a parsed semantic version
type Version struct {
	Major int
	Minor int
	Patch int
	pre   []semverIdentifier
	build string
	raw   string
}

// String returns the original representation.
func (v *Version) String() string {
	return v.raw
}

// Prerelease returns the dot-joined prerelease identifiers, if any.
func (v *Version) Prerelease() string {
	parts := make([]string, len(v.pre))
	for i, p := range v.pre {
		parts[i] = p.raw
	}
	return strings.Join(parts, ".")
}

// Parse parses a semantic version. Prerelease identifiers made only of digits
// but carrying leading zeros (common in commit-hash based insiders builds) are
// compared lexically rather than rejected.
func Parse(input string) (*Version, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, errors.New("empty version")
	}

	matches := semverPattern.FindStringSubmatch(trimmed)
	if len(matches) == 0 {
		return nil, fmt.Errorf("invalid semver %q", input)
	}

	segments := make([]int, 3)
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return nil, fmt.Errorf("segment '%s': %w", matches[i+1], err)
		}
		segments[i] = n
	}

	v := &Version{
		Major: segments[0],
		Minor: segments[1],
		Patch: segments[2],
		build: matches[5],
		raw:   trimmed,
	}

	if prerelease := matches[4]; prerelease != "" {
		for _, part := range strings.Split(prerelease, ".") {
			if part == "" {
				return nil, fmt.Errorf("invalid prerelease identifier in %q: empty segment", input)
			}
			id := semverIdentifier{raw: part}
			if isNumeric(part) && (len(part) == 1 || !strings.HasPrefix(part, "0")) {
				if num, err := strconv.Atoi(part); err == nil {
					id.numeric = true
					id.num = num
				}
			}
			v.pre = append(v.pre, id)
		}
	}

	return v, nil
}

// Compare determines ordering between version a and b.
func Compare(a, b string) (Comparison, error) {
	av, err := Parse(a)
	if err != nil {
		return ComparisonUnknown, err
	}
	bv, err := Parse(b)
	if err != nil {
		return ComparisonUnknown, err
	}
	return compareVersions(av, bv), nil
}

// AtLeast reports whether version >= minimum. Unparseable input yields false.
func AtLeast(version, minimum string) bool {
	cmp, err := Compare(version, minimum)
	if err != nil {
		return false
	}
	return cmp == ComparisonGreater || cmp == ComparisonEqual
}

// AtMost reports whether version <= maximum. Unparseable input yields false.
func AtMost(version, maximum string) bool {
	cmp, err := Compare(version, maximum)
	if err != nil {
		return false
	}
	return cmp == ComparisonLess || cmp == ComparisonEqual
}

// MajorOf returns the major component of version.
func MajorOf(version string) (int, error) {
	v, err := Parse(version)
	if err != nil {
		return 0, err
	}
	return v.Major, nil
}

func compareVersions(a, b *Version) Comparison {
	if c := compareInt(a.Major, b.Major); c != ComparisonEqual {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != ComparisonEqual {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != ComparisonEqual {
		return c
	}

	if len(a.pre) == 0 && len(b.pre) == 0 {
		return ComparisonEqual
	}
	if len(a.pre) == 0 {
		return ComparisonGreater
	}
	if len(b.pre) == 0 {
		return ComparisonLess
	}

	limit := len(a.pre)
	if len(b.pre) < limit {
		limit = len(b.pre)
	}

	for i := 0; i < limit; i++ {
		ai := a.pre[i]
		bi := b.pre[i]
		if ai.numeric && bi.numeric {
			if c := compareInt(ai.num, bi.num); c != ComparisonEqual {
				return c
			}
			continue
		}
		if ai.numeric && !bi.numeric {
			return ComparisonLess
		}
		if !ai.numeric && bi.numeric {
			return ComparisonGreater
		}
		if cmp := strings.Compare(ai.raw, bi.raw); cmp != 0 {
			if cmp < 0 {
				return ComparisonLess
			}
			return ComparisonGreater
		}
	}

	return compareInt(len(a.pre), len(b.pre))
}

func compareInt(a, b int) Comparison {
	switch {
	case a < b:
		return ComparisonLess
	case a > b:
		return ComparisonGreater
	default:
		return ComparisonEqual
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
