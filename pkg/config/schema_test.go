package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  string
		wantErr string
	}{
		{name: "empty yaml", data: "", format: "yaml"},
		{name: "full yaml", format: "yaml", data: `
files:
  exclude: ["**/dist/**"]
  gitignore: true
experimental:
  config_file: tailwind.config.js
  config_files:
    - path: a/app.css
      selectors: ["a/**"]
resolver: {cache_size: 100, path_mapping: false, pnp: true}
discovery: {concurrency: 2, follow_symlinks: false}
watch: {debounce: 250ms}
log: {level: debug}
`},
		{name: "json", format: "json", data: `{"log": {"level": "warn"}}`},
		{name: "unknown key", format: "yaml", data: "colors: true\n", wantErr: "colors"},
		{name: "bad level", format: "json", data: `{"log": {"level": "loud"}}`, wantErr: "level"},
		{name: "project without path", format: "yaml", data: "experimental:\n  config_files:\n    - selectors: ['**']\n", wantErr: "path"},
		{name: "bad duration", format: "yaml", data: "watch:\n  debounce: soon\n", wantErr: "debounce"},
		{name: "not yaml", format: "yaml", data: "files: [\n", wantErr: "YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings([]byte(tt.data), tt.format)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchemaIsACopy(t *testing.T) {
	s := Schema()
	require.NotEmpty(t, s)
	s[0] = 'x'
	assert.NotEqual(t, s[0], Schema()[0])
}
