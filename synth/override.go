package synth

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// ApplyOverride deep-merges override onto base per spec's override rule,
// grounded directly in helm-schema-cli's apply_override_inner: object keys
// merge recursively, "required" specifically unions and sorts/dedupes
// rather than replacing, "$schema" in the override is dropped, and any
// non-object override value replaces the base value wholesale.
//
// The merge runs over map[string]any rather than the typed
// jsonschema.Schema struct, round-tripping through encoding/json the same
// way magicschema.ToSubSchema does, because an override may carry
// arbitrary x-* extension keys the typed struct only partially models.
func ApplyOverride(base, override *jsonschema.Schema) (*jsonschema.Schema, error) {
	if override == nil {
		return base, nil
	}

	baseRaw, err := toRaw(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideMerge, err)
	}

	overrideRaw, err := toRaw(override)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideMerge, err)
	}

	merged := applyOverrideInner(baseRaw, overrideRaw)

	out, err := rawToSchema(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideMerge, err)
	}

	return out, nil
}

// ApplyOverrideJSON is ApplyOverride for a user-supplied override file's
// raw bytes, the form the CLI's --override flag reads.
func ApplyOverrideJSON(base *jsonschema.Schema, overrideJSON []byte) (*jsonschema.Schema, error) {
	var overrideRaw any

	if err := json.Unmarshal(overrideJSON, &overrideRaw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideMerge, err)
	}

	overrideObj, ok := overrideRaw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: override document must be a JSON object", ErrOverrideMerge)
	}

	baseRaw, err := toRaw(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideMerge, err)
	}

	merged := applyOverrideInner(baseRaw, overrideObj)

	out, err := rawToSchema(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideMerge, err)
	}

	return out, nil
}

func applyOverrideInner(base, override any) any {
	baseObj, baseIsObj := base.(map[string]any)
	overrideObj, overrideIsObj := override.(map[string]any)

	if !baseIsObj || !overrideIsObj {
		return override
	}

	merged := make(map[string]any, len(baseObj)+len(overrideObj))
	for k, v := range baseObj {
		merged[k] = v
	}

	for k, ov := range overrideObj {
		if k == "$schema" {
			continue
		}

		if k == "required" {
			merged[k] = unionRequired(merged[k], ov)

			continue
		}

		if bv, ok := merged[k]; ok {
			merged[k] = applyOverrideInner(bv, ov)
		} else {
			merged[k] = ov
		}
	}

	return merged
}

func unionRequired(base, override any) any {
	baseArr, baseOK := base.([]any)
	overrideArr, overrideOK := override.([]any)

	if !overrideOK {
		return override
	}

	if !baseOK {
		return override
	}

	seen := make(map[string]bool, len(baseArr)+len(overrideArr))

	var out []string

	for _, v := range append(append([]any{}, baseArr...), overrideArr...) {
		s, ok := v.(string)
		if !ok || seen[s] {
			continue
		}

		seen[s] = true

		out = append(out, s)
	}

	sort.Strings(out)

	result := make([]any, len(out))
	for i, s := range out {
		result[i] = s
	}

	return result
}

func toRaw(s *jsonschema.Schema) (map[string]any, error) {
	if s == nil {
		return map[string]any{}, nil
	}

	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	return m, nil
}

func rawToSchema(v any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}

	return &s, nil
}
