package resolver

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

type exportKey struct {
	key   string
	value gjson.Result
}

// resolveExports maps subpath ("." or "./x") through a package.json exports
// value. It returns ErrNotExported when the map has no entry for subpath.
func resolveExports(exports gjson.Result, subpath string, p Profile) (string, error) {
	keys := subpathKeys(exports)
	if keys == nil {
		// sugar: the whole value is the "." target
		if subpath != "." {
			return "", ErrNotExported
		}
		if target, ok := resolveTarget(exports, "", p); ok {
			return target, nil
		}
		return "", ErrNotExported
	}

	for _, k := range keys {
		if k.key == subpath && !strings.Contains(k.key, "*") {
			if target, ok := resolveTarget(k.value, "", p); ok {
				return target, nil
			}
			return "", ErrNotExported
		}
	}

	var patterns []exportKey
	for _, k := range keys {
		if strings.Count(k.key, "*") == 1 || strings.HasSuffix(k.key, "/") {
			patterns = append(patterns, k)
		}
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		return patternKeyLess(patterns[j].key, patterns[i].key)
	})

	for _, k := range patterns {
		star, ok := matchExportPattern(k.key, subpath)
		if !ok {
			continue
		}
		if target, ok := resolveTarget(k.value, star, p); ok {
			if strings.HasSuffix(k.key, "/") {
				return target + star, nil
			}
			return target, nil
		}
		return "", ErrNotExported
	}

	return "", ErrNotExported
}

// subpathKeys returns the entries of an exports object whose keys are
// subpaths, or nil when exports is a string, array or condition object.
func subpathKeys(exports gjson.Result) []exportKey {
	if !exports.IsObject() {
		return nil
	}
	var keys []exportKey
	subpaths := false
	exports.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if strings.HasPrefix(k, ".") {
			subpaths = true
		}
		keys = append(keys, exportKey{key: k, value: value})
		return true
	})
	if !subpaths {
		return nil
	}
	return keys
}

func matchExportPattern(key, subpath string) (string, bool) {
	if strings.HasSuffix(key, "/") && !strings.Contains(key, "*") {
		if strings.HasPrefix(subpath, key) {
			return strings.TrimPrefix(subpath, key), true
		}
		return "", false
	}
	idx := strings.Index(key, "*")
	prefix, suffix := key[:idx], key[idx+1:]
	if len(subpath) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(subpath, prefix) || !strings.HasSuffix(subpath, suffix) {
		return "", false
	}
	return subpath[len(prefix) : len(subpath)-len(suffix)], true
}

// patternKeyLess orders pattern keys so that more specific ones sort last.
func patternKeyLess(a, b string) bool {
	ai, bi := strings.Index(a, "*"), strings.Index(b, "*")
	aBase, bBase := len(a), len(b)
	if ai >= 0 {
		aBase = ai + 1
	}
	if bi >= 0 {
		bBase = bi + 1
	}
	if aBase != bBase {
		return aBase < bBase
	}
	if ai < 0 {
		return true
	}
	if bi < 0 {
		return false
	}
	return len(a) < len(b)
}

func resolveTarget(target gjson.Result, star string, p Profile) (string, bool) {
	switch {
	case target.Type == gjson.String:
		s := target.String()
		if !strings.HasPrefix(s, "./") {
			return "", false
		}
		return strings.ReplaceAll(s, "*", star), true
	case target.IsArray():
		for _, item := range target.Array() {
			if resolved, ok := resolveTarget(item, star, p); ok {
				return resolved, true
			}
		}
		return "", false
	case target.IsObject():
		var resolved string
		var found bool
		target.ForEach(func(key, value gjson.Result) bool {
			if !p.accepts(key.String()) {
				return true
			}
			resolved, found = resolveTarget(value, star, p)
			return !found
		})
		return resolved, found
	default:
		return "", false
	}
}
