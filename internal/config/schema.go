package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "gopatch configuration",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "root": {"type": "string", "minLength": 1},
    "strip": {"type": "integer", "minimum": 0},
    "max_offset": {"type": "integer", "minimum": 0},
    "patches": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "log_level": {
      "type": "string",
      "pattern": "^(?i)(debug|info|warn|warning|error)$"
    }
  }
}`

var (
	schemaLoader     gojsonschema.JSONLoader
	schemaLoaderOnce sync.Once
)

func loadSchema() gojsonschema.JSONLoader {
	schemaLoaderOnce.Do(func() {
		schemaLoader = gojsonschema.NewStringLoader(configSchema)
	})
	return schemaLoader
}

// ValidationError lists every schema violation found in a configuration.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Issues, "; ")
}

func validateDocument(doc map[string]any) error {
	if doc == nil {
		doc = map[string]any{}
	}
	return validate(gojsonschema.NewGoLoader(doc))
}

func validateValue(value any) error {
	return validate(gojsonschema.NewGoLoader(value))
}

func validate(document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(loadSchema(), document)
	if err != nil {
		return fmt.Errorf("config: schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return &ValidationError{Issues: issues}
}
