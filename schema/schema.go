// Package schema provides JSON Schema building and validation for tool
// arguments.
//
//	tool := rove.NewToolFunc(
//	    "search",
//	    "Search for information",
//	    schema.Object(map[string]*schema.Property{
//	        "query": schema.String("Search query"),
//	        "limit": schema.Integer("Max results").Min(1).Max(100).Default(10),
//	    }, "query"), // "query" is required
//	    searchFunc,
//	)
//
// Agent loops validate parsed arguments against the schema before execution
// when a tool implements rove.SchemaProvider.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema pairs the raw map representation (for prompts and serialization)
// with a compiled validator (for runtime checks).
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the underlying map[string]any representation.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate checks string-valued tool arguments against the schema.
//
// Argument values arrive as strings from action parsing; values for
// integer, number, and boolean properties are coerced before validation so
// "10" satisfies an integer property.
func (s *Schema) Validate(args map[string]string) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	data := make(map[string]any, len(args))
	for k, v := range args {
		data[k] = s.coerce(k, v)
	}
	if err := s.compiled.Validate(data); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// coerce converts a string argument to the type its property declares.
// Unknown properties and failed conversions pass the string through; the
// validator reports those properly.
func (s *Schema) coerce(key, value string) any {
	props, _ := s.raw["properties"].(map[string]any)
	prop, _ := props[key].(map[string]any)
	typ, _ := prop["type"].(string)

	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case "number":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return value
}

// ValidationError wraps a JSON Schema validation error.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles a raw schema map into a Schema with a compiled
// validator. Returns nil for a nil map.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	schemaJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	schemaData, err := jsonschema.UnmarshalJSON(strings.NewReader(string(schemaJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{raw: raw, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. Use for schemas defined
// at init time.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Object creates an object schema with the given properties. Pass property
// names as variadic arguments to mark them as required.
func Object(properties map[string]*Property, required ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.build()
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Property is a property in an object schema.
type Property struct {
	typ         string
	description string
	enum        []any
	minimum     *float64
	maximum     *float64
	def         any
}

func (p *Property) build() map[string]any {
	m := map[string]any{}
	if p.typ != "" {
		m["type"] = p.typ
	}
	if p.description != "" {
		m["description"] = p.description
	}
	if len(p.enum) > 0 {
		m["enum"] = p.enum
	}
	if p.minimum != nil {
		m["minimum"] = *p.minimum
	}
	if p.maximum != nil {
		m["maximum"] = *p.maximum
	}
	if p.def != nil {
		m["default"] = p.def
	}
	return m
}

// String creates a string property.
func String(description string) *Property {
	return &Property{typ: "string", description: description}
}

// Integer creates an integer property.
func Integer(description string) *Property {
	return &Property{typ: "integer", description: description}
}

// Number creates a floating-point property.
func Number(description string) *Property {
	return &Property{typ: "number", description: description}
}

// Boolean creates a boolean property.
func Boolean(description string) *Property {
	return &Property{typ: "boolean", description: description}
}

// Enum restricts the property to the given values.
func (p *Property) Enum(values ...any) *Property {
	p.enum = values
	return p
}

// Min sets the minimum value for numeric properties.
func (p *Property) Min(v float64) *Property {
	p.minimum = &v
	return p
}

// Max sets the maximum value for numeric properties.
func (p *Property) Max(v float64) *Property {
	p.maximum = &v
	return p
}

// Default sets the default value, included in the schema for documentation.
func (p *Property) Default(v any) *Property {
	p.def = v
	return p
}
