package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// Settings holds all configuration for twproj
type Settings struct {
	Files        FilesSettings        `mapstructure:"files" json:"files"`
	Experimental ExperimentalSettings `mapstructure:"experimental" json:"experimental"`
	Resolver     ResolverSettings     `mapstructure:"resolver" json:"resolver"`
	Discovery    DiscoverySettings    `mapstructure:"discovery" json:"discovery"`
	Watch        WatchSettings        `mapstructure:"watch" json:"watch"`
	Log          LogSettings          `mapstructure:"log" json:"log"`
}

// FilesSettings controls which paths discovery and the reactor see
type FilesSettings struct {
	Exclude []string `mapstructure:"exclude" json:"exclude"`
	// Gitignore also skips paths ignored by the workspace's .gitignore files
	Gitignore bool `mapstructure:"gitignore" json:"gitignore"`
}

// ExperimentalSettings holds user-configured projects, which bypass discovery
type ExperimentalSettings struct {
	ConfigFile  string        `mapstructure:"config_file" json:"config_file"`
	ConfigFiles []UserProject `mapstructure:"config_files" json:"config_files"`
}

// UserProject is one user-configured project: a config file and the globs of
// the documents it owns.
type UserProject struct {
	Path      string   `mapstructure:"path" json:"path"`
	Selectors []string `mapstructure:"selectors" json:"selectors"`
}

// ResolverSettings configures module resolution
type ResolverSettings struct {
	CacheSize   int  `mapstructure:"cache_size" json:"cache_size"`
	PathMapping bool `mapstructure:"path_mapping" json:"path_mapping"`
	PnP         bool `mapstructure:"pnp" json:"pnp"`
}

// DiscoverySettings configures the discovery pass
type DiscoverySettings struct {
	Concurrency    int  `mapstructure:"concurrency" json:"concurrency"`
	FollowSymlinks bool `mapstructure:"follow_symlinks" json:"follow_symlinks"`
}

// WatchSettings configures the file watcher
type WatchSettings struct {
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`
}

// LogSettings configures logging
type LogSettings struct {
	Level string `mapstructure:"level" json:"level"`
}

// DefaultExcludes are the exclude globs used when none are configured.
var DefaultExcludes = []string{"**/.git/**", "**/node_modules/**", "**/.hg/**", "**/.svn/**"}

var defaultSettings = Settings{
	Files: FilesSettings{
		Exclude:   DefaultExcludes,
		Gitignore: false,
	},
	Resolver: ResolverSettings{
		CacheSize:   4000,
		PathMapping: true,
		PnP:         true,
	},
	Discovery: DiscoverySettings{
		Concurrency:    0,
		FollowSymlinks: true,
	},
	Watch: WatchSettings{
		Debounce: 150 * time.Millisecond,
	},
	Log: LogSettings{
		Level: "info",
	},
}

// Default returns a copy of the built-in settings.
func Default() Settings {
	s := defaultSettings
	s.Files.Exclude = append([]string(nil), defaultSettings.Files.Exclude...)
	return s
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("files.exclude", defaultSettings.Files.Exclude)
	v.SetDefault("files.gitignore", defaultSettings.Files.Gitignore)
	v.SetDefault("experimental.config_file", "")
	v.SetDefault("experimental.config_files", []UserProject{})
	v.SetDefault("resolver.cache_size", defaultSettings.Resolver.CacheSize)
	v.SetDefault("resolver.path_mapping", defaultSettings.Resolver.PathMapping)
	v.SetDefault("resolver.pnp", defaultSettings.Resolver.PnP)
	v.SetDefault("discovery.concurrency", defaultSettings.Discovery.Concurrency)
	v.SetDefault("discovery.follow_symlinks", defaultSettings.Discovery.FollowSymlinks)
	v.SetDefault("watch.debounce", defaultSettings.Watch.Debounce)
	v.SetDefault("log.level", defaultSettings.Log.Level)
}

// Concurrency returns the discovery fan-out limit, NumCPU when unset.
func (s Settings) Concurrency() int {
	if s.Discovery.Concurrency > 0 {
		return s.Discovery.Concurrency
	}
	return runtime.NumCPU()
}

// UserProjects returns the user-configured projects with config paths made
// absolute against base. A lone config_file owns every document ("**").
func (s Settings) UserProjects(base string) []UserProject {
	var out []UserProject
	if s.Experimental.ConfigFile != "" {
		out = append(out, UserProject{
			Path:      pathutil.Resolve(base, s.Experimental.ConfigFile),
			Selectors: []string{"**"},
		})
	}
	for _, p := range s.Experimental.ConfigFiles {
		if p.Path == "" {
			continue
		}
		selectors := append([]string(nil), p.Selectors...)
		if len(selectors) == 0 {
			selectors = []string{"**"}
		}
		out = append(out, UserProject{Path: pathutil.Resolve(base, p.Path), Selectors: selectors})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// HasUserProjects reports whether discovery is replaced by configured projects.
func (s Settings) HasUserProjects() bool {
	return s.Experimental.ConfigFile != "" || len(s.Experimental.ConfigFiles) > 0
}

// Home returns the twproj home directory
func Home() (string, error) {
	if home := os.Getenv("TWPROJ_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".twproj"), nil
}

// UserConfigPath returns the per-user settings file, whether or not it exists.
func UserConfigPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// ProjectConfigNames are the workspace settings files, in lookup order.
var ProjectConfigNames = []string{".twproj.yaml", ".twproj.yml", ".twproj.json"}

// FindProjectConfig returns the first workspace settings file in dir.
func FindProjectConfig(dir string) (string, bool) {
	for _, name := range ProjectConfigNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
