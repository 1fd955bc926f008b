package synth

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/chartschema/chartschema/magicschema"
)

// unify combines two schemas resolved for the same values path into one,
// per spec's unification rule: agreeing simple schemas collapse to one
// copy, disagreeing schemas wrap in anyOf with structural deduplication
// rather than widening to an unconstrained type (a deliberate departure
// from the original implementation's fail-open widening merge).
func unify(a, b *jsonschema.Schema) *jsonschema.Schema {
	if a == nil {
		return b
	}

	if b == nil {
		return a
	}

	if schemaEqual(a, b) {
		return a
	}

	branches := append(anyOfBranches(a), anyOfBranches(b)...)
	branches = dedupeSchemas(branches)

	if len(branches) == 1 {
		return branches[0]
	}

	return &jsonschema.Schema{AnyOf: branches}
}

// anyOfBranches flattens s into its anyOf branches if s is nothing more
// than an anyOf wrapper, or returns []{s} otherwise, so repeated
// unification never nests anyOf-of-anyOf.
func anyOfBranches(s *jsonschema.Schema) []*jsonschema.Schema {
	if isPlainAnyOfWrapper(s) {
		return s.AnyOf
	}

	return []*jsonschema.Schema{s}
}

func isPlainAnyOfWrapper(s *jsonschema.Schema) bool {
	return len(s.AnyOf) > 0 &&
		s.Type == "" &&
		len(s.Types) == 0 &&
		s.Properties == nil &&
		s.Items == nil &&
		len(s.AllOf) == 0 &&
		len(s.OneOf) == 0
}

func dedupeSchemas(schemas []*jsonschema.Schema) []*jsonschema.Schema {
	seen := make(map[string]bool, len(schemas))

	out := make([]*jsonschema.Schema, 0, len(schemas))

	for _, s := range schemas {
		key, err := json.Marshal(s)
		if err != nil {
			out = append(out, s)

			continue
		}

		if seen[string(key)] {
			continue
		}

		seen[string(key)] = true

		out = append(out, s)
	}

	return out
}

func schemaEqual(a, b *jsonschema.Schema) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)

	if errA != nil || errB != nil {
		return false
	}

	return string(ab) == string(bb)
}

// isCompoundSchema reports whether s already describes structure (object
// properties, array items, or a composition keyword) rather than a bare
// scalar type, the distinction spec's Fragment-unification rule needs.
func isCompoundSchema(s *jsonschema.Schema) bool {
	if s == nil {
		return false
	}

	return s.Properties != nil ||
		s.Items != nil ||
		len(s.AllOf) > 0 ||
		len(s.AnyOf) > 0 ||
		len(s.OneOf) > 0
}

// cloneSchema round-trips s through JSON so callers can freely mutate
// their copy without aliasing a provider's cached schema, the same
// discipline magicschema.ToSubSchema's callers already rely on.
func cloneSchema(s *jsonschema.Schema) *jsonschema.Schema {
	if s == nil {
		return nil
	}

	b, err := json.Marshal(s)
	if err != nil {
		return s
	}

	return magicschema.ToSubSchema(json.RawMessage(b))
}

func fragmentObjectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", AdditionalProperties: magicschema.TrueSchema()}
}

func fragmentStringSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}
