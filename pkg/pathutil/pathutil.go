// Package pathutil normalizes filesystem paths into the forward-slash form
// used for glob matching and map keys across the engine.
package pathutil

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	winDriveLetter   = regexp.MustCompile(`^([a-zA-Z]):`)
	posixDriveLetter = regexp.MustCompile(`^/([a-zA-Z]):`)
)

// NormalizeDriveLetter upper-cases a leading Windows drive letter, in both the
// `c:/x` and `/c:/x` forms.
func NormalizeDriveLetter(p string) string {
	if m := winDriveLetter.FindStringSubmatch(p); m != nil {
		return strings.ToUpper(m[1]) + ":" + p[2:]
	}
	if m := posixDriveLetter.FindStringSubmatch(p); m != nil {
		return "/" + strings.ToUpper(m[1]) + ":" + p[3:]
	}
	return p
}

// IsUNC reports whether p names a network share (`\\host\share` or `//host/share`).
func IsUNC(p string) bool {
	return strings.HasPrefix(p, `\\`) || strings.HasPrefix(p, "//")
}

// Normalize converts p to forward slashes, cleans it, upper-cases the drive
// letter and composes unicode to NFC. A UNC prefix keeps both leading slashes.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	unc := IsUNC(p)
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	if unc && !strings.HasPrefix(p, "//") {
		p = "/" + p
	}
	p = NormalizeDriveLetter(p)
	return norm.NFC.String(p)
}

// FromOS normalizes an OS path, making it absolute first.
func FromOS(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return Normalize(filepath.ToSlash(p))
}

// ToOS converts a normalized path back to the host separator.
func ToOS(p string) string {
	return filepath.FromSlash(p)
}

// Join joins normalized path elements.
func Join(elem ...string) string {
	return Normalize(path.Join(elem...))
}

// Dir returns the parent directory of a normalized path.
func Dir(p string) string {
	return path.Dir(p)
}

// Resolve resolves p against base unless p is already absolute.
func Resolve(base, p string) string {
	if IsAbs(p) {
		return Normalize(p)
	}
	return Join(base, p)
}

// IsAbs reports whether a forward-slash path is absolute, including drive
// letter and UNC forms.
func IsAbs(p string) bool {
	return strings.HasPrefix(p, "/") || winDriveLetter.MatchString(p) || IsUNC(p)
}

// Within reports whether p equals dir or lies below it.
func Within(dir, p string) bool {
	if p == dir {
		return true
	}
	if dir == "/" {
		return strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, strings.TrimSuffix(dir, "/")+"/")
}

// Ancestors yields p and each parent directory up to the filesystem root.
func Ancestors(p string) []string {
	var out []string
	prev := ""
	for p != prev {
		out = append(out, p)
		prev = p
		p = path.Dir(p)
	}
	return out
}

const globMeta = `*?[]{}()!\`

// HasGlobMeta reports whether p contains glob syntax.
func HasGlobMeta(p string) bool {
	return strings.ContainsAny(p, "*?[]{}")
}

// EscapeGlob escapes glob metacharacters so p matches only itself.
func EscapeGlob(p string) string {
	if !strings.ContainsAny(p, globMeta) {
		return p
	}
	var b strings.Builder
	b.Grow(len(p) + 4)
	for _, r := range p {
		if strings.ContainsRune(globMeta, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
