package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock config source for testing
type mockConfigSource struct {
	name     string
	priority int
	config   map[string]interface{}
	err      error
}

func (m *mockConfigSource) Load(ctx context.Context) (*viper.Viper, error) {
	if m.err != nil {
		return nil, m.err
	}

	v := viper.New()
	for key, value := range m.config {
		v.Set(key, value)
	}
	return v, nil
}

func (m *mockConfigSource) Priority() int {
	return m.priority
}

func (m *mockConfigSource) Name() string {
	return m.name
}

func TestHierarchicalConfigPriorityOrder(t *testing.T) {
	hc := NewHierarchicalConfig()

	// added out of order on purpose
	hc.AddSource(&mockConfigSource{name: "high", priority: 200, config: map[string]interface{}{"resolver.cache_size": 2}})
	hc.AddSource(&mockConfigSource{name: "low", priority: 100, config: map[string]interface{}{"resolver.cache_size": 1, "log.level": "debug"}})

	settings, err := hc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, settings.Resolver.CacheSize)
	assert.Equal(t, "debug", settings.Log.Level)
}

func TestHierarchicalConfigSkipsMissingFiles(t *testing.T) {
	hc := NewHierarchicalConfig()
	hc.AddSource(NewFileConfigSource("/non/existent/file.yaml", 100))

	settings, err := hc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4000, settings.Resolver.CacheSize)
}

func TestHierarchicalConfigSourceError(t *testing.T) {
	hc := NewHierarchicalConfig()
	hc.AddSource(&mockConfigSource{name: "broken", priority: 1, err: errors.New("boom")})

	_, err := hc.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestFileConfigSourceLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("discovery:\n  concurrency: 4\n"), 0o644))

	source := NewFileConfigSource(configPath, 100)
	assert.Equal(t, 100, source.Priority())
	assert.Equal(t, "file:"+configPath, source.Name())

	v, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, v.GetInt("discovery.concurrency"))
}

func TestEnvConfigSourceLoad(t *testing.T) {
	t.Setenv("TWPROJ_FILES_EXCLUDE", "**/a/**,**/b/**")
	t.Setenv("TWPROJ_RESOLVER_PNP", "false")

	source := NewEnvConfigSource("TWPROJ", PriorityEnv)
	assert.Equal(t, "env:TWPROJ", source.Name())

	hc := NewHierarchicalConfig()
	hc.AddSource(source)
	settings, err := hc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"**/a/**", "**/b/**"}, settings.Files.Exclude)
	assert.False(t, settings.Resolver.PnP)
}

func TestDetectConfigType(t *testing.T) {
	assert.Equal(t, "yaml", detectConfigType(".twproj.yaml"))
	assert.Equal(t, "yaml", detectConfigType(".twproj.yml"))
	assert.Equal(t, "json", detectConfigType(".twproj.json"))
	assert.Equal(t, "yaml", detectConfigType("config"))
}
