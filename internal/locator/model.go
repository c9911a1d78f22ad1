package locator

import (
	"github.com/fulmenhq/twproj/pkg/classify"
	"github.com/fulmenhq/twproj/pkg/stylesheet"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// FileKind distinguishes stylesheets from script configs.
type FileKind string

const (
	KindCSS    FileKind = "css"
	KindScript FileKind = "script"
)

// FileEntry is a file seen by one discovery pass. Each pipeline step only
// mutates its own entry, so steps can run concurrently.
type FileEntry struct {
	Path string   `json:"path" yaml:"path" toml:"path"`
	Kind FileKind `json:"kind" yaml:"kind" toml:"kind"`
	// Content is the comment-stripped text of a stylesheet, nil when unread or
	// unreadable.
	Content *string `json:"-" yaml:"-" toml:"-"`
	// RealPath is empty until real paths are resolved.
	RealPath       string                     `json:"realPath,omitempty" yaml:"realPath,omitempty" toml:"realPath,omitempty"`
	Dependencies   []*FileEntry               `json:"-" yaml:"-" toml:"-"`
	SourcePatterns []stylesheet.SourcePattern `json:"sourcePatterns,omitempty" yaml:"sourcePatterns,omitempty" toml:"sourcePatterns,omitempty"`
	Classification *classify.Stylesheet       `json:"classification,omitempty" yaml:"classification,omitempty" toml:"classification,omitempty"`
	// Configs are the configs claiming this file, set by assembly only.
	Configs []*ConfigEntry `json:"-" yaml:"-" toml:"-"`
}

// key is the graph identity of the entry.
func (f *FileEntry) key() string {
	if f.RealPath != "" {
		return f.RealPath
	}
	return f.Path
}

// ConfigKind is the kind of a ConfigEntry.
type ConfigKind string

const (
	ConfigScript ConfigKind = "script"
	ConfigCSS    ConfigKind = "css"
)

// Origin records how a config was found.
type Origin string

const (
	OriginStandalone Origin = "standalone"
	OriginCSS        Origin = "css"
)

// ContentKind is the kind of a ContentItem.
type ContentKind string

const (
	ContentFile ContentKind = "file"
	ContentRaw  ContentKind = "raw"
	ContentAuto ContentKind = "auto"
)

// ContentItem is one entry of a config's content list.
type ContentItem struct {
	Kind ContentKind `json:"kind" yaml:"kind" toml:"kind"`
	File string      `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	Raw  string      `json:"raw,omitempty" yaml:"raw,omitempty" toml:"raw,omitempty"`
}

// ConfigEntry is the identity of one build configuration: a script config or
// a root stylesheet and its import closure.
type ConfigEntry struct {
	Kind        ConfigKind    `json:"kind" yaml:"kind" toml:"kind"`
	Origin      Origin        `json:"origin" yaml:"origin" toml:"origin"`
	Path        string        `json:"path" yaml:"path" toml:"path"`
	PackageRoot string        `json:"packageRoot,omitempty" yaml:"packageRoot,omitempty" toml:"packageRoot,omitempty"`
	Entries     []*FileEntry  `json:"-" yaml:"-" toml:"-"`
	Content     []ContentItem `json:"content,omitempty" yaml:"content,omitempty" toml:"content,omitempty"`
}

// EntryPaths returns the paths of the files attributed to c.
func (c *ConfigEntry) EntryPaths() []string {
	out := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Path
	}
	return out
}

// Selector priorities. Lower is more specific.
const (
	PriorityUserConfigured   = 0
	PriorityConfigFile       = 0
	PriorityCSSFile          = 0
	PriorityContentFile      = 1
	PriorityCSSDirectory     = 2
	PriorityConfigDirectory  = 3
	PriorityPackageDirectory = 4
	PriorityRootDirectory    = 5
)

// DocumentSelector is a glob and the priority of the claim it makes.
type DocumentSelector struct {
	Pattern  string `json:"pattern" yaml:"pattern" toml:"pattern"`
	Priority int    `json:"priority" yaml:"priority" toml:"priority"`
}

// Negated reports whether the selector excludes what it matches.
func (s DocumentSelector) Negated() bool {
	return len(s.Pattern) > 0 && s.Pattern[0] == '!'
}

// ProjectConfig is one project as seen by the rest of the engine.
type ProjectConfig struct {
	Folder            string              `json:"folder" yaml:"folder" toml:"folder"`
	ConfigPath        string              `json:"configPath,omitempty" yaml:"configPath,omitempty" toml:"configPath,omitempty"`
	IsUserConfigured  bool                `json:"isUserConfigured" yaml:"isUserConfigured" toml:"isUserConfigured"`
	Config            *ConfigEntry        `json:"config" yaml:"config" toml:"config"`
	Toolchain         toolchain.Toolchain `json:"toolchain" yaml:"toolchain" toml:"toolchain"`
	DocumentSelectors []DocumentSelector  `json:"documentSelectors" yaml:"documentSelectors" toml:"documentSelectors"`
	// Dependencies are the files whose change means the project must be
	// rebuilt: the config's local imports and its stylesheet entries.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
}
