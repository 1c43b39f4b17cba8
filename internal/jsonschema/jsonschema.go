// Package jsonschema defines the JSON Schema subset used to describe tool
// parameters, plus a reflective generator that derives a schema from a Go
// struct. The generated schema is what providers receive as the tool's
// parameters definition.
package jsonschema

import (
	"fmt"
	"reflect"
	"strings"
)

// Schema is a JSON Schema document (the subset relevant to tool parameters).
// It supports object/array/primitive types, per-property schemas, required
// lists, enums, and $ref/$defs for self-referencing types.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	// Items defines the element schema for array types.
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties controls whether undeclared properties are allowed.
	AdditionalProperties any    `json:"additionalProperties,omitempty"`
	Default              any    `json:"default,omitempty"`
	Enum                 []any  `json:"enum,omitempty"`
	Ref                  string `json:"$ref,omitempty"`
	// Defs holds reusable definitions referenced via $ref, populated only
	// when the source type is recursive.
	Defs map[string]*Schema `json:"$defs,omitempty"`
}

// Object returns an empty object schema. Providers that require a non-nil
// parameters document for zero-argument tools use this as the placeholder.
func Object() *Schema {
	return &Schema{Type: "object", Properties: map[string]*Schema{}}
}

// For derives a Schema from the struct type T using reflection. Field names
// follow the json tag (falling back to the Go name), descriptions come from
// the description tag, and fields are required unless their json tag carries
// omitempty. Recursive struct types are broken via $defs references.
//
// Example:
//
//	type WeatherArgs struct {
//	    City string `json:"city" description:"City and state, e.g. San Francisco, CA"`
//	    Unit string `json:"unit,omitempty" description:"celsius or fahrenheit"`
//	}
//	schema, err := jsonschema.For[WeatherArgs]()
func For[T any]() (*Schema, error) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("jsonschema: expected a struct type, got %s", t.Kind())
	}

	gen := &generator{
		emitting: map[reflect.Type]bool{},
		defs:     map[string]*Schema{},
	}

	schema := gen.structSchema(t, true)
	if len(gen.defs) > 0 {
		schema.Defs = gen.defs
	}
	return schema, nil
}

// generator carries the $defs table and the set of recursive types currently
// being emitted, so self-references resolve to "#/$defs/<name>" instead of
// looping forever.
type generator struct {
	emitting map[reflect.Type]bool
	defs     map[string]*Schema
}

// structSchema returns the schema for a struct type. Types that participate
// in a reference cycle are emitted once under $defs and referenced from then
// on; everything else is inlined, matching the shape providers expect for
// ordinary tool parameters.
func (g *generator) structSchema(t reflect.Type, isRoot bool) *Schema {
	if !isRecursive(t) {
		return g.buildStruct(t)
	}

	name := t.Name()
	if name == "" {
		name = "anonymous"
	}

	if g.emitting[t] {
		return &Schema{Ref: "#/$defs/" + name}
	}
	g.emitting[t] = true

	schema := g.buildStruct(t)
	g.defs[name] = schema

	if isRoot {
		// The root schema stays inline; its self-references resolve to the
		// copy registered under $defs.
		return schema
	}
	return &Schema{Ref: "#/$defs/" + name}
}

func (g *generator) buildStruct(t reflect.Type) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		omitEmpty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, option := range parts[1:] {
				if option == "omitempty" {
					omitEmpty = true
				}
			}
		}

		fieldSchema := g.fieldSchema(field.Type)
		if description := field.Tag.Get("description"); description != "" {
			fieldSchema.Description = description
		}
		schema.Properties[name] = fieldSchema

		if !omitEmpty {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

func (g *generator) fieldSchema(t reflect.Type) *Schema {
	switch t.Kind() {
	case reflect.Pointer:
		return g.fieldSchema(t.Elem())

	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: g.fieldSchema(t.Elem())}

	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: g.fieldSchema(t.Elem())}

	case reflect.Struct:
		return g.structSchema(t, false)

	default:
		// Interfaces and other dynamic kinds accept any JSON value.
		return &Schema{}
	}
}

// isRecursive reports whether t can reach itself through its exported fields
// (following pointers, slices, arrays, and maps).
func isRecursive(t reflect.Type) bool {
	return reaches(t, t, map[reflect.Type]bool{})
}

func reaches(from, target reflect.Type, visiting map[reflect.Type]bool) bool {
	switch from.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return reaches(from.Elem(), target, visiting)

	case reflect.Struct:
		if visiting[from] {
			return false
		}
		visiting[from] = true
		for i := 0; i < from.NumField(); i++ {
			field := from.Field(i)
			if !field.IsExported() {
				continue
			}
			fieldType := field.Type
			for fieldType.Kind() == reflect.Pointer || fieldType.Kind() == reflect.Slice ||
				fieldType.Kind() == reflect.Array || fieldType.Kind() == reflect.Map {
				fieldType = fieldType.Elem()
			}
			if fieldType == target {
				return true
			}
			if reaches(fieldType, target, visiting) {
				return true
			}
		}
		return false

	default:
		return false
	}
}
