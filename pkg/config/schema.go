package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/settings.schema.json
var settingsSchema []byte

// Schema returns the JSON schema for settings files.
func Schema() []byte {
	return append([]byte(nil), settingsSchema...)
}

// ValidateSettings validates settings file content against the embedded
// schema. format is "yaml" or "json"; YAML is converted before validation.
func ValidateSettings(data []byte, format string) error {
	doc, err := toJSON(data, format)
	if err != nil {
		return err
	}

	schemaLoader := gojsonschema.NewBytesLoader(settingsSchema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %v", err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func toJSON(data []byte, format string) ([]byte, error) {
	if format == "json" {
		return data, nil
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings as YAML: %v", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert settings to JSON: %v", err)
	}
	return out, nil
}
