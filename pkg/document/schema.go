package document

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/edgraph/pkg/edgraph"
)

const schemaURL = "https://edgraph.dev/schemas/graph.json"

// documentSchemaJSON is the JSON Schema every document must satisfy.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://edgraph.dev/schemas/graph.json",
  "$ref": "#/$defs/graph",
  "$defs": {
    "graph": {
      "type": "object",
      "required": ["name", "nodes"],
      "properties": {
        "id": { "type": "string", "format": "uuid" },
        "name": { "type": "string", "minLength": 1 },
        "nodes": { "type": "array", "items": { "$ref": "#/$defs/node" } },
        "links": { "type": "array", "items": { "$ref": "#/$defs/link" } },
        "subgraphs": { "type": "array", "items": { "$ref": "#/$defs/graph" } }
      },
      "additionalProperties": false
    },
    "node": {
      "type": "object",
      "required": ["class"],
      "properties": {
        "id": { "type": "string", "format": "uuid" },
        "name": { "type": "string", "pattern": "^[^.]+$" },
        "class": { "type": "string", "minLength": 1 },
        "properties": { "type": "object" },
        "x": { "type": "integer" },
        "y": { "type": "integer" },
        "comment": { "type": "string" },
        "enabled": { "type": "string", "enum": ["Enabled", "Disabled", "DevelopmentOnly"] },
        "pins": { "type": "array", "items": { "$ref": "#/$defs/pin" } }
      },
      "additionalProperties": false
    },
    "pin": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "direction": { "type": "string", "enum": ["input", "output", "Input", "Output", "EGPD_Input", "EGPD_Output"] },
        "id": { "type": "string", "format": "uuid" },
        "category": { "type": "string" },
        "sub_category": { "type": "string" },
        "object": { "type": "string" },
        "container": { "type": "string", "enum": ["None", "Array", "Set", "Map"] },
        "value_category": { "type": "string" },
        "reference": { "type": "boolean" },
        "default": { "type": "string" },
        "hidden": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "link": {
      "type": "object",
      "required": ["from", "to"],
      "properties": {
        "from": { "type": "string", "minLength": 1 },
        "to": { "type": "string", "minLength": 1 }
      },
      "additionalProperties": false
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.AssertFormat()

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshal document schema: %w", err)
			return
		}
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add document schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile document schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks raw JSON against the document schema. Violations are
// listed in the error details.
func Validate(raw []byte) error {
	s, err := documentSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return edgraph.NewErrorf(edgraph.ErrCodeParse, "invalid JSON document: %s", err.Error()).WithCause(err)
	}
	if err := s.Validate(inst); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) *edgraph.Error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return edgraph.NewError(edgraph.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	switch len(violations) {
	case 0:
		return edgraph.NewError(edgraph.ErrCodeValidation, verr.Error())
	case 1:
		return edgraph.NewError(edgraph.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return edgraph.NewErrorf(edgraph.ErrCodeValidation, "document failed with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations flattens the leaves of a ValidationError tree, each
// prefixed with its instance location.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
