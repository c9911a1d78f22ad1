package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// PnPDataFile is the serialized dependency registry a plug'n'play install
// writes next to its runtime.
const PnPDataFile = ".pnp.data.json"

type pnpLocator struct {
	name      string
	reference string
}

type pnpPackage struct {
	location     string
	dependencies map[string]pnpLocator
	// hasDependency distinguishes an explicit null (unmet peer) from absence.
	hasDependency map[string]bool
}

// Registry is a loaded plug'n'play package registry. When a resolver has a
// registry, bare package lookups go through it instead of node_modules.
type Registry struct {
	root       string
	packages   map[pnpLocator]*pnpPackage
	byLocation []*pnpPackage
	topLevel   *pnpPackage
	fallback   bool
}

// LoadRegistry reads root/.pnp.data.json. It returns nil, nil when the file
// does not exist.
func LoadRegistry(cache *FileCache, root string) (*Registry, error) {
	dataPath := pathutil.Join(root, PnPDataFile)
	if !cache.IsFile(dataPath) {
		return nil, nil
	}
	data, err := cache.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dataPath, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse %s: invalid JSON", dataPath)
	}
	doc := gjson.ParseBytes(data)

	reg := &Registry{
		root:     root,
		packages: make(map[pnpLocator]*pnpPackage),
		fallback: doc.Get("enableTopLevelFallback").Bool(),
	}

	doc.Get("packageRegistryData").ForEach(func(_, entry gjson.Result) bool {
		pair := entry.Array()
		if len(pair) != 2 {
			return true
		}
		name := pair[0].String()
		pair[1].ForEach(func(_, ref gjson.Result) bool {
			refPair := ref.Array()
			if len(refPair) != 2 {
				return true
			}
			loc := pnpLocator{name: name, reference: refPair[0].String()}
			info := refPair[1]
			pkg := &pnpPackage{
				location:      pathutil.Join(root, info.Get("packageLocation").String()),
				dependencies:  make(map[string]pnpLocator),
				hasDependency: make(map[string]bool),
			}
			info.Get("packageDependencies").ForEach(func(_, dep gjson.Result) bool {
				d := dep.Array()
				if len(d) != 2 {
					return true
				}
				depName := d[0].String()
				pkg.hasDependency[depName] = true
				switch {
				case d[1].IsArray():
					// aliased dependency: [realName, reference]
					alias := d[1].Array()
					if len(alias) == 2 {
						pkg.dependencies[depName] = pnpLocator{name: alias[0].String(), reference: alias[1].String()}
					}
				case d[1].Type == gjson.Null:
				default:
					pkg.dependencies[depName] = pnpLocator{name: depName, reference: d[1].String()}
				}
				return true
			})
			reg.packages[loc] = pkg
			reg.byLocation = append(reg.byLocation, pkg)
			if name == "" && loc.reference == "" {
				reg.topLevel = pkg
			}
			return true
		})
		return true
	})

	// longest location first so the innermost package owns an issuer
	sort.SliceStable(reg.byLocation, func(i, j int) bool {
		return len(reg.byLocation[i].location) > len(reg.byLocation[j].location)
	})

	return reg, nil
}

// Root returns the directory the registry was loaded from.
func (r *Registry) Root() string {
	return r.root
}

// PackageDir returns the directory of package name as seen from issuer.
func (r *Registry) PackageDir(name, issuer string) (string, bool) {
	owner := r.owner(issuer)
	if owner == nil {
		owner = r.topLevel
	}
	if owner == nil {
		return "", false
	}

	if loc, ok := owner.dependencies[name]; ok {
		return r.location(loc)
	}
	if owner.hasDependency[name] {
		// declared but unmet
		return "", false
	}

	if r.fallback && r.topLevel != nil && owner != r.topLevel {
		if loc, ok := r.topLevel.dependencies[name]; ok {
			return r.location(loc)
		}
	}
	return "", false
}

func (r *Registry) owner(issuer string) *pnpPackage {
	for _, pkg := range r.byLocation {
		if pathutil.Within(strings.TrimSuffix(pkg.location, "/"), issuer) {
			return pkg
		}
	}
	return nil
}

func (r *Registry) location(loc pnpLocator) (string, bool) {
	pkg, ok := r.packages[loc]
	if !ok {
		return "", false
	}
	return pkg.location, true
}
