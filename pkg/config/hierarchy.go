package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fulmenhq/twproj/pkg/logger"
)

// ConfigSource represents a source of configuration
type ConfigSource interface {
	// Load configuration from this source
	Load(ctx context.Context) (*viper.Viper, error)
	// Get the priority of this source (higher number = higher priority)
	Priority() int
	// Get a human-readable name for this source
	Name() string
}

// Priority levels (higher number = higher priority)
const (
	PriorityUser     = 10
	PriorityProject  = 20
	PriorityExplicit = 30
	PriorityEnv      = 40
)

// HierarchicalConfig manages configuration from multiple sources with precedence
type HierarchicalConfig struct {
	sources []ConfigSource
	merger  ConfigMerger
	flags   map[string]*pflag.Flag
}

// ConfigMerger defines how configurations are merged
type ConfigMerger interface {
	Merge(base, overlay *viper.Viper) (*viper.Viper, error)
}

// NewHierarchicalConfig creates a new hierarchical configuration manager
func NewHierarchicalConfig() *HierarchicalConfig {
	return &HierarchicalConfig{
		sources: make([]ConfigSource, 0),
		merger:  &DefaultConfigMerger{},
		flags:   make(map[string]*pflag.Flag),
	}
}

// AddSource adds a configuration source
func (h *HierarchicalConfig) AddSource(source ConfigSource) {
	h.sources = append(h.sources, source)
}

// BindFlag makes a command-line flag override key when the flag is set.
func (h *HierarchicalConfig) BindFlag(key string, flag *pflag.Flag) {
	if flag != nil {
		h.flags[key] = flag
	}
}

// Load loads configuration from all sources and merges them according to
// precedence. A missing file source is skipped; any other failure, including
// a settings file that does not match the schema, is returned.
func (h *HierarchicalConfig) Load(ctx context.Context) (*Settings, error) {
	sorted := make([]ConfigSource, len(h.sources))
	copy(sorted, h.sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	merged := viper.New()
	for _, source := range sorted {
		sourceConfig, err := source.Load(ctx)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("settings source not present", logger.String("source", source.Name()))
				continue
			}
			return nil, fmt.Errorf("failed to load config from %s: %w", source.Name(), err)
		}

		merged, err = h.merger.Merge(merged, sourceConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to merge config from %s: %w", source.Name(), err)
		}
	}

	final := viper.New()
	setDefaults(final)
	if err := final.MergeConfigMap(merged.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to merge settings: %w", err)
	}
	for key, flag := range h.flags {
		if err := final.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	var settings Settings
	if err := final.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merged config: %w", err)
	}

	return &settings, nil
}

// DefaultConfigMerger implements a simple deep merge strategy
type DefaultConfigMerger struct{}

func (m *DefaultConfigMerger) Merge(base, overlay *viper.Viper) (*viper.Viper, error) {
	merged := viper.New()

	for _, key := range base.AllKeys() {
		if val := base.Get(key); val != nil {
			merged.Set(key, val)
		}
	}

	for _, key := range overlay.AllKeys() {
		if val := overlay.Get(key); val != nil {
			merged.Set(key, val)
		}
	}

	return merged, nil
}

// FileConfigSource loads configuration from a local settings file after
// validating it against the settings schema.
type FileConfigSource struct {
	path     string
	priority int
}

func NewFileConfigSource(path string, priority int) *FileConfigSource {
	return &FileConfigSource{path: path, priority: priority}
}

func (s *FileConfigSource) Load(ctx context.Context) (*viper.Viper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	format := detectConfigType(s.path)
	if err := ValidateSettings(data, format); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return v, nil
}

func (s *FileConfigSource) Priority() int {
	return s.priority
}

func (s *FileConfigSource) Name() string {
	return fmt.Sprintf("file:%s", s.path)
}

// EnvConfigSource loads configuration from environment variables
type EnvConfigSource struct {
	prefix   string
	priority int
}

func NewEnvConfigSource(prefix string, priority int) *EnvConfigSource {
	return &EnvConfigSource{
		prefix:   prefix,
		priority: priority,
	}
}

// envKeys are the settings that can come from the environment.
var envKeys = []string{
	"files.exclude",
	"files.gitignore",
	"experimental.config_file",
	"resolver.cache_size",
	"resolver.path_mapping",
	"resolver.pnp",
	"discovery.concurrency",
	"discovery.follow_symlinks",
	"watch.debounce",
	"log.level",
}

func (s *EnvConfigSource) Load(ctx context.Context) (*viper.Viper, error) {
	v := viper.New()
	for _, key := range envKeys {
		name := s.prefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val, ok := os.LookupEnv(name); ok {
			v.Set(key, val)
		}
	}
	return v, nil
}

func (s *EnvConfigSource) Priority() int {
	return s.priority
}

func (s *EnvConfigSource) Name() string {
	return fmt.Sprintf("env:%s", s.prefix)
}

// detectConfigType detects the settings format from a file name
func detectConfigType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Workspace is searched for a project settings file.
	Workspace string
	// File is an explicit settings file (--config). It must exist.
	File string
	// Flags maps setting keys to command-line flags that override them.
	Flags map[string]*pflag.Flag
	// SkipUser ignores the per-user settings file.
	SkipUser bool
}

// Load assembles settings from defaults, the user file, the workspace file,
// an explicit file, TWPROJ_* environment variables and flags, in increasing
// precedence.
func Load(ctx context.Context, opts LoadOptions) (*Settings, error) {
	h := NewHierarchicalConfig()

	if !opts.SkipUser {
		if userConfig, err := UserConfigPath(); err == nil {
			h.AddSource(NewFileConfigSource(userConfig, PriorityUser))
		}
	}

	if opts.Workspace != "" {
		if projectConfig, ok := FindProjectConfig(opts.Workspace); ok {
			h.AddSource(NewFileConfigSource(projectConfig, PriorityProject))
		}
	}

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, fmt.Errorf("settings file: %w", err)
		}
		h.AddSource(NewFileConfigSource(opts.File, PriorityExplicit))
	}

	h.AddSource(NewEnvConfigSource("TWPROJ", PriorityEnv))

	for key, flag := range opts.Flags {
		h.BindFlag(key, flag)
	}

	return h.Load(ctx)
}
