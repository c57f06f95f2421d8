package config

import (
	"encoding/json"
	"sync"

	"github.com/grovetools/hermes/schema"
	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for the core hermes configuration.
// Extension sections (logging, tui) are left open; tools compose them in
// with schema.Compose.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Extensions live beside the core keys.
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		// Only fields tagged jsonschema:"required" are required.
		RequiredFromJSONSchemaTags: true,
		// Use YAML field names for property names
		FieldNameTag: "yaml",
	}

	s := r.Reflect(&Config{})
	s.Title = "Hermes Configuration"
	s.Description = "Schema for hermes.yml / hermes.toml."
	s.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(s, "", "  ")
}

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// schemaValidator compiles the generated schema once per process.
func schemaValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		var data []byte
		data, validatorErr = GenerateSchema()
		if validatorErr != nil {
			return
		}
		validator, validatorErr = schema.NewValidator("hermes.json", data)
	})
	return validator, validatorErr
}
