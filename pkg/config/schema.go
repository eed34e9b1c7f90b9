package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// compiledSchema compiles the embedded schema on first use.
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
})

// SchemaError wraps a JSON Schema violation in the raw configuration
// document.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ValidateSchema checks a raw YAML document against the configuration
// schema. It catches unknown keys and wrongly typed values that decoding
// into Config would silently drop or zero.
func ValidateSchema(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]any{}
	}

	// The validator expects JSON values, so route the YAML tree through
	// encoding/json.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("configuration is not representable as JSON: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return err
	}

	if err := schema.Validate(doc); err != nil {
		return &SchemaError{Err: err}
	}
	return nil
}
