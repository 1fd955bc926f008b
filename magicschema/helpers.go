// Package magicschema provides small [jsonschema.Schema] construction and
// conversion helpers shared by k8sschema and synth: building the permissive
// "true"/"false" schemas JSON Schema uses for additionalProperties, and
// round-tripping an untyped JSON value (map[string]any, as produced by
// k8sschema's raw-document $ref expansion) into a typed sub-schema.
package magicschema

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// TrueSchema returns a schema that validates everything (marshals to JSON true).
func TrueSchema() *jsonschema.Schema {
	return &jsonschema.Schema{}
}

// FalseSchema returns a schema that validates nothing (marshals to JSON false).
func FalseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

// ToSubSchema converts an untyped JSON value (typically a map[string]any
// decoded from a resource schema document) to a [*jsonschema.Schema] by
// marshaling through JSON.
func ToSubSchema(val any) *jsonschema.Schema {
	if val == nil {
		return nil
	}

	b, err := json.Marshal(val)
	if err != nil {
		return nil
	}

	var schema jsonschema.Schema

	if err := json.Unmarshal(b, &schema); err != nil {
		return nil
	}

	return &schema
}
