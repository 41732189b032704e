package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// A Definition is a document-type template: the ordered field list the core
// must report on, plus per-field metadata. Definitions are authored as JSON
// files and validated against definitionSchema before use.
type Definition struct {
	DocType string          `json:"doc_type"`
	Fields  []FieldMetadata `json:"fields"`
}

// definitionSchema constrains definition files (draft 2020-12 subset).
// Field types are checked structurally here and again, against the closed
// FieldType set, by Check.
const definitionSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["doc_type", "fields"],
  "properties": {
    "doc_type": {"type": "string", "minLength": 1},
    "fields": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string", "pattern": "^[A-Z_]+$"},
          "required": {"type": "boolean"},
          "min_confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

var compiledDefinitionSchema = mustCompile(definitionSchema)

func mustCompile(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("definition.json", bytes.NewReader([]byte(src))); err != nil {
		panic(err)
	}
	s, err := compiler.Compile("definition.json")
	if err != nil {
		panic(err)
	}
	return s
}

// ParseDefinition validates and decodes a document-type definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	if err := compiledDefinitionSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("definition does not match schema: %w", err)
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	seen := make(map[string]bool, len(def.Fields))
	for i, f := range def.Fields {
		if seen[f.Name] {
			return nil, fmt.Errorf("definition %q: duplicate field %q", def.DocType, f.Name)
		}
		seen[f.Name] = true
		def.Fields[i] = f.Normalize()
	}
	return &def, nil
}

// LoadDefinition reads and parses a definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition %s: %w", path, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("parse definition %s: %w", path, err)
	}
	return def, nil
}

// FieldOrder returns field names in definition order.
func (d *Definition) FieldOrder() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}

// FieldShape returns the name -> empty-placeholder mapping handed to the
// extraction provider as the schema shape.
func (d *Definition) FieldShape() map[string]string {
	shape := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		shape[f.Name] = ""
	}
	return shape
}

// MetadataMap returns the per-field metadata keyed by name.
func (d *Definition) MetadataMap() map[string]FieldMetadata {
	out := make(map[string]FieldMetadata, len(d.Fields))
	for _, f := range d.Fields {
		out[f.Name] = f
	}
	return out
}
