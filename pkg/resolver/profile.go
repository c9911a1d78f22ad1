package resolver

// Profile is one module-resolution strategy.
type Profile struct {
	Name       string
	Extensions []string
	// MainFields are package.json fields consulted, in order, when a package
	// directory is resolved without an exports map.
	MainFields []string
	// Conditions are the export conditions this profile accepts in addition
	// to "default".
	Conditions []string
	// PreferRelative tries `./id` before treating a bare id as a package.
	PreferRelative bool
}

var (
	// ESM resolves scripts loaded through dynamic import.
	ESM = Profile{
		Name:       "esm",
		Extensions: []string{".mjs", ".js"},
		MainFields: []string{"module"},
		Conditions: []string{"node", "import"},
	}

	// CJS resolves scripts loaded through require.
	CJS = Profile{
		Name:       "cjs",
		Extensions: []string{".cjs", ".js"},
		MainFields: []string{"main"},
		Conditions: []string{"node", "require"},
	}

	// Stylesheet resolves @import targets. Given `foo/bar.css` it tries
	// `./foo/bar.css` before the `foo` package.
	Stylesheet = Profile{
		Name:           "stylesheet",
		Extensions:     []string{".css"},
		MainFields:     []string{"style"},
		Conditions:     []string{"style"},
		PreferRelative: true,
	}

	// StylesheetPackage is Stylesheet without relative preference, used for
	// the toolchain's bare package name so a same-named local file cannot
	// shadow it.
	StylesheetPackage = Profile{
		Name:       "stylesheet-package",
		Extensions: []string{".css"},
		MainFields: []string{"style"},
		Conditions: []string{"style"},
	}
)

func (p Profile) accepts(condition string) bool {
	if condition == "default" {
		return true
	}
	for _, c := range p.Conditions {
		if c == condition {
			return true
		}
	}
	return false
}
