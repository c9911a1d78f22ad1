package locator

// configCache memoizes ConfigEntry construction for one discovery pass. The
// first entry built for a path wins.
type configCache struct {
	byPath map[string]*ConfigEntry
	order  []*ConfigEntry
}

func newConfigCache() *configCache {
	return &configCache{byPath: make(map[string]*ConfigEntry)}
}

// remember returns the entry for path, calling build only when there is none.
func (c *configCache) remember(path string, build func() *ConfigEntry) *ConfigEntry {
	if e, ok := c.byPath[path]; ok {
		return e
	}
	e := build()
	c.byPath[path] = e
	c.order = append(c.order, e)
	return e
}

// values returns the entries in the order they were first built.
func (c *configCache) values() []*ConfigEntry {
	return append([]*ConfigEntry(nil), c.order...)
}
