package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5/util"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// PathMappingConfigNames are the files whose compilerOptions.paths rewrite ids.
var PathMappingConfigNames = []string{"tsconfig.json", "jsconfig.json"}

const prefixPlaceholder = "__placeholder__"

// Alias is one compilerOptions.paths entry.
type Alias struct {
	Pattern string   `json:"pattern" yaml:"pattern"`
	Targets []string `json:"targets" yaml:"targets"`
}

type mapping struct {
	configPath string
	baseURL    string
	entries    []Alias
	declared   []Alias
}

// PathMapper rewrites module ids using tsconfig/jsconfig path aliases. The
// mapper of the nearest directory owning a config decides; outer configs are
// not consulted once one applies.
type PathMapper struct {
	root  string
	cache *FileCache

	mu    sync.RWMutex
	byDir map[string][]*mapping
	errs  []error
}

// LoadPathMapper scans root for path-mapping configs. Unparseable configs are
// recorded in Errors and skipped.
func LoadPathMapper(ctx context.Context, cache *FileCache, root string) (*PathMapper, error) {
	m := &PathMapper{root: root, cache: cache}
	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Refresh rescans the root. The returned error joins per-config failures;
// the mapper stays usable with whatever loaded.
func (m *PathMapper) Refresh(ctx context.Context) error {
	files, err := m.findConfigs(ctx)
	if err != nil {
		return err
	}

	loader := &tsconfigLoader{cache: m.cache, parsed: make(map[string]*tsconfig)}
	var ordered []*tsconfig
	var errs []error

	for _, file := range files {
		c, err := loader.load(file, nil)
		if err != nil {
			errs = append(errs, err)
			logger.Debug("skipping path-mapping config", logger.String("path", file), logger.Err(err))
			continue
		}
		// referenced projects match first; the referencing config is the fallback
		for _, ref := range c.references {
			rc, err := loader.load(ref, nil)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			ordered = append(ordered, rc)
		}
		ordered = append(ordered, c)
	}

	// a config listed more than once keeps its last position
	last := make(map[string]int, len(ordered))
	for i, c := range ordered {
		last[c.path] = i
	}
	byDir := make(map[string][]*mapping)
	for i, c := range ordered {
		if last[c.path] != i {
			continue
		}
		dir := path.Dir(c.path)
		byDir[dir] = append(byDir[dir], c.mapping())
	}

	m.mu.Lock()
	m.byDir = byDir
	m.errs = errs
	m.mu.Unlock()

	return errors.Join(errs...)
}

// Errors returns the failures recorded by the last Refresh.
func (m *PathMapper) Errors() []error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]error(nil), m.errs...)
}

func (m *PathMapper) findConfigs(ctx context.Context) ([]string, error) {
	var files []string
	err := util.Walk(m.cache.FS(), m.root, func(p string, info os.FileInfo, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			name := info.Name()
			if name == "node_modules" || name == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		for _, n := range PathMappingConfigNames {
			if info.Name() == n {
				files = append(files, pathutil.Normalize(p))
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (m *PathMapper) mappers(base string) []*mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, dir := range pathutil.Ancestors(pathutil.Normalize(base)) {
		if list, ok := m.byDir[dir]; ok && len(list) > 0 {
			return list
		}
	}
	return nil
}

// Resolve rewrites id for a lookup from base. It returns "" when no alias
// applies, and ErrMappingRejected when an explicit alias matched id but none
// of its targets exist.
func (m *PathMapper) Resolve(id, base string, extensions []string) (string, error) {
	if isRelative(id) {
		return "", nil
	}
	list := m.mappers(base)
	if len(list) == 0 {
		return "", nil
	}
	// the first mapper of the nearest directory is authoritative
	return list[0].match(m.cache, id, extensions)
}

// Substitute completes id through the aliases without checking existence.
// An id ending in `/` is completed as a directory prefix.
func (m *PathMapper) Substitute(id, base string) (string, bool) {
	if isRelative(id) {
		return "", false
	}
	list := m.mappers(base)
	if len(list) == 0 {
		return "", false
	}

	prefix := strings.HasSuffix(id, "/")
	if prefix {
		id += prefixPlaceholder
	}
	for _, e := range list[0].entries {
		star, ok := matchStar(e.Pattern, id)
		if !ok || len(e.Targets) == 0 {
			continue
		}
		out := strings.Replace(e.Targets[0], "*", star, 1)
		if prefix {
			out = strings.TrimSuffix(out, prefixPlaceholder)
			if !strings.HasSuffix(out, "/") {
				out += "/"
			}
		}
		return out, true
	}
	return "", false
}

// Paths returns the aliases declared for base's nearest config.
func (m *PathMapper) Paths(base string) []Alias {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, dir := range pathutil.Ancestors(pathutil.Normalize(base)) {
		for _, mp := range m.byDir[dir] {
			if len(mp.declared) > 0 {
				return append([]Alias(nil), mp.declared...)
			}
		}
	}
	return nil
}

func (mp *mapping) match(cache *FileCache, id string, extensions []string) (string, error) {
	matched := false
	for _, e := range mp.entries {
		star, ok := matchStar(e.Pattern, id)
		if !ok {
			continue
		}
		explicit := e.Pattern != "*"
		for _, target := range e.Targets {
			candidate := strings.Replace(target, "*", star, 1)
			if candidateExists(cache, candidate, extensions) {
				return candidate, nil
			}
		}
		if explicit {
			matched = true
		}
	}
	if matched {
		return "", fmt.Errorf("%w: %s (%s)", ErrMappingRejected, id, mp.configPath)
	}
	return "", nil
}

func candidateExists(cache *FileCache, p string, extensions []string) bool {
	if cache.IsFile(p) {
		return true
	}
	for _, ext := range extensions {
		if cache.IsFile(p + ext) {
			return true
		}
	}
	if cache.IsFile(path.Join(p, "package.json")) {
		return true
	}
	for _, ext := range extensions {
		if cache.IsFile(path.Join(p, "index"+ext)) {
			return true
		}
	}
	return false
}

// matchStar matches id against a paths pattern with at most one `*`.
func matchStar(pattern, id string) (string, bool) {
	if pattern == id {
		return "", true
	}
	if pattern == "*" {
		return id, true
	}
	idx := strings.Index(pattern, "*")
	if idx < 0 || len(id) < len(pattern)-1 {
		return "", false
	}
	prefix, suffix := pattern[:idx], pattern[idx+1:]
	if !strings.HasPrefix(id, prefix) || !strings.HasSuffix(id, suffix) {
		return "", false
	}
	return id[len(prefix) : len(id)-len(suffix)], true
}

type tsconfig struct {
	path       string
	references []string

	baseURL    string
	hasBaseURL bool
	paths      []Alias
	pathsDir   string
}

func (c *tsconfig) mapping() *mapping {
	base := c.baseURL
	if !c.hasBaseURL {
		base = c.pathsDir
		if base == "" {
			base = path.Dir(c.path)
		}
	}

	var entries []Alias
	for _, a := range c.paths {
		targets := make([]string, 0, len(a.Targets))
		for _, t := range a.Targets {
			targets = append(targets, pathutil.Resolve(base, t))
		}
		entries = append(entries, Alias{Pattern: a.Pattern, Targets: targets})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return starPrefixLen(entries[i].Pattern) > starPrefixLen(entries[j].Pattern)
	})

	mp := &mapping{configPath: c.path, baseURL: base, declared: c.paths}
	mp.entries = entries
	hasStar := false
	for _, a := range c.paths {
		if a.Pattern == "*" {
			hasStar = true
		}
	}
	if c.hasBaseURL && !hasStar {
		mp.entries = append(mp.entries, Alias{Pattern: "*", Targets: []string{strings.TrimSuffix(base, "/") + "/*"}})
	}
	return mp
}

func starPrefixLen(pattern string) int {
	idx := strings.Index(pattern, "*")
	if idx < 0 {
		return 0
	}
	return idx
}

type tsconfigLoader struct {
	cache  *FileCache
	parsed map[string]*tsconfig
}

func (l *tsconfigLoader) load(file string, chain []string) (*tsconfig, error) {
	if c, ok := l.parsed[file]; ok {
		return c, nil
	}
	for _, p := range chain {
		if p == file {
			return nil, fmt.Errorf("%s: circular extends", file)
		}
	}

	data, err := l.cache.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	data = jsonc.ToJSON(data)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse %s: invalid JSON", file)
	}
	doc := gjson.ParseBytes(data)
	dir := path.Dir(file)

	c := &tsconfig{path: file}

	// extends: inherited values first, own values override
	var parents []string
	ext := doc.Get("extends")
	switch {
	case ext.IsArray():
		for _, e := range ext.Array() {
			parents = append(parents, e.String())
		}
	case ext.Type == gjson.String:
		parents = append(parents, ext.String())
	}
	for _, id := range parents {
		parentPath, ok := l.locateExtends(id, dir)
		if !ok {
			return nil, fmt.Errorf("%s: cannot find extended config %q", file, id)
		}
		parent, err := l.load(parentPath, append(chain, file))
		if err != nil {
			return nil, err
		}
		if parent.hasBaseURL {
			c.baseURL, c.hasBaseURL = parent.baseURL, true
		}
		if len(parent.paths) > 0 {
			c.paths, c.pathsDir = parent.paths, parent.pathsDir
		}
	}

	opts := doc.Get("compilerOptions")
	if b := opts.Get("baseUrl"); b.Exists() && b.String() != "" {
		c.baseURL, c.hasBaseURL = pathutil.Resolve(dir, b.String()), true
	}
	if ps := opts.Get("paths"); ps.IsObject() {
		var aliases []Alias
		ps.ForEach(func(key, value gjson.Result) bool {
			a := Alias{Pattern: key.String()}
			for _, t := range value.Array() {
				a.Targets = append(a.Targets, t.String())
			}
			aliases = append(aliases, a)
			return true
		})
		c.paths, c.pathsDir = aliases, dir
	}

	doc.Get("references").ForEach(func(_, ref gjson.Result) bool {
		p := ref.Get("path").String()
		if p == "" {
			return true
		}
		target := pathutil.Resolve(dir, p)
		if !strings.HasSuffix(target, ".json") {
			target = pathutil.Join(target, "tsconfig.json")
		}
		c.references = append(c.references, target)
		return true
	})

	l.parsed[file] = c
	return c, nil
}

func (l *tsconfigLoader) locateExtends(id, dir string) (string, bool) {
	var candidates []string
	if isRelative(id) || pathutil.IsAbs(id) {
		p := pathutil.Resolve(dir, id)
		candidates = append(candidates, p, p+".json")
	} else {
		for _, d := range pathutil.Ancestors(dir) {
			p := pathutil.Join(d, "node_modules", id)
			candidates = append(candidates, p, p+".json", pathutil.Join(p, "tsconfig.json"))
		}
	}
	for _, c := range candidates {
		if l.cache.IsFile(c) {
			return c, true
		}
	}
	return "", false
}
