// Package schema compiles JSON-Schema documents built as Go maps and
// validates JSON payloads against them.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled schema, safe for concurrent use.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// Compile builds a Schema from schemaMap. name only labels error messages.
func Compile(name string, schemaMap map[string]any) (*Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// ValidateJSON validates raw JSON bytes.
func (s *Schema) ValidateJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return s.Validate(v)
}

// Validate validates an already decoded JSON value.
func (s *Schema) Validate(v any) error {
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match %s schema: %w", s.name, err)
	}
	return nil
}

// ValidateJSONAgainstSchema compiles schemaMap and validates data in one step.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	s, err := Compile("schema", schemaMap)
	if err != nil {
		return err
	}
	return s.ValidateJSON(data)
}
