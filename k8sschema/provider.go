package k8sschema

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/chartschema/chartschema/ir"
	"github.com/chartschema/chartschema/magicschema"
)

// Provider resolves reference schemas for a Kubernetes resource, as
// detected by ir.DetectResource from a manifest's literal apiVersion/kind.
type Provider interface {
	// SchemaForResourcePath descends a resource's materialized schema to
	// path and returns the leaf sub-schema, if one can be resolved.
	SchemaForResourcePath(ctx context.Context, resource ir.ResourceRef, path ir.YamlPath) (*jsonschema.Schema, bool)

	// MaterializeSchemaForResource loads and fully $ref-expands the root
	// schema document for resource.
	MaterializeSchemaForResource(ctx context.Context, resource ir.ResourceRef) (*jsonschema.Schema, bool)
}

// Prefetcher is implemented by providers that can usefully warm their
// cache for a batch of resources ahead of synthesis (see ChainProvider's
// Prefetch, and UpstreamProvider/CRDCatalogProvider's bounded-concurrent
// implementations).
type Prefetcher interface {
	Prefetch(ctx context.Context, resources []ir.ResourceRef) error
}

// rawDoc is the provider-internal representation of a schema document:
// map[string]any / []any, the shape encoding/json produces, mirroring the
// original implementation's use of an untyped JSON value for $ref
// expansion and path descent (see local.rs's expand_local_refs /
// descend_one in DESIGN.md) -- doing this over raw JSON rather than the
// typed jsonschema.Schema struct means an upstream document's extension
// keywords or quirks never need a perfect typed round-trip until the
// final leaf is handed back to the caller.
type rawDoc = map[string]any

// toSchema converts a resolved raw leaf back to *jsonschema.Schema, the
// type the rest of this module works with.
func toSchema(v any) (*jsonschema.Schema, bool) {
	if v == nil {
		return nil, false
	}

	s := magicschema.ToSubSchema(v)
	if s == nil {
		return nil, false
	}

	return s, true
}

const maxRefExpansionDepth = 64

// expandLocalRefs recursively expands every same-document "$ref": "#/..."
// fragment pointer found in schema, with a per-expansion visited set to
// break cycles and a depth cap as a safety net. A ref that is not a
// same-document fragment pointer is left in place, minus its "$ref" key
// (never emitted as a dangling ref). Ported from the source
// implementation's expand_local_refs (local.rs).
func expandLocalRefs(root, schema rawDoc, depth int, visited map[string]bool) rawDoc {
	if depth > maxRefExpansionDepth {
		return schema
	}

	if refAny, ok := schema["$ref"]; ok {
		ref, _ := refAny.(string)
		if ref == "" {
			return stripRef(schema)
		}

		if visited[ref] {
			return stripRef(schema)
		}

		if !hasFragmentPrefix(ref) {
			return stripRef(schema)
		}

		target, ok := resolvePointer(root, ref[1:])
		if !ok {
			return stripRef(schema)
		}

		visited[ref] = true
		out := expandLocalRefs(root, target, depth+1, visited)
		delete(visited, ref)

		return out
	}

	out := make(rawDoc, len(schema))
	for k, v := range schema {
		out[k] = v
	}

	for _, keyword := range []string{"allOf", "anyOf", "oneOf"} {
		arr, ok := out[keyword].([]any)
		if !ok {
			continue
		}

		expanded := make([]any, len(arr))

		for i, v := range arr {
			if sub, ok := asRawDoc(v); ok {
				expanded[i] = expandLocalRefs(root, sub, depth+1, visited)
			} else {
				expanded[i] = v
			}
		}

		out[keyword] = expanded
	}

	for _, mapKey := range []string{"properties", "patternProperties", "definitions", "$defs"} {
		m, ok := out[mapKey].(map[string]any)
		if !ok {
			continue
		}

		newM := make(map[string]any, len(m))

		for k, v := range m {
			if sub, ok := asRawDoc(v); ok {
				newM[k] = expandLocalRefs(root, sub, depth+1, visited)
			} else {
				newM[k] = v
			}
		}

		out[mapKey] = newM
	}

	for _, singleKey := range []string{"items", "contains", "not", "if", "then", "else", "additionalProperties"} {
		v, ok := out[singleKey]
		if !ok {
			continue
		}

		if _, isBool := v.(bool); isBool {
			continue
		}

		if sub, ok := asRawDoc(v); ok {
			out[singleKey] = expandLocalRefs(root, sub, depth+1, visited)
		}
	}

	return out
}

func hasFragmentPrefix(ref string) bool {
	return len(ref) > 0 && ref[0] == '#'
}

func asRawDoc(v any) (rawDoc, bool) {
	m, ok := v.(map[string]any)

	return m, ok
}

func stripRef(schema rawDoc) rawDoc {
	out := make(rawDoc, len(schema))

	for k, v := range schema {
		if k == "$ref" {
			continue
		}

		out[k] = v
	}

	return out
}

// resolvePointer resolves a JSON Pointer (already stripped of its leading
// "#") against root.
func resolvePointer(root rawDoc, pointer string) (rawDoc, bool) {
	if pointer == "" {
		return root, true
	}

	pointer = trimPrefixSlash(pointer)

	var cur any = root

	for _, tok := range splitPointer(pointer) {
		tok = unescapePointerToken(tok)

		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[tok]
			if !ok {
				return nil, false
			}

			cur = next
		case []any:
			idx, ok := parsePointerIndex(tok)
			if !ok || idx < 0 || idx >= len(v) {
				return nil, false
			}

			cur = v[idx]
		default:
			return nil, false
		}
	}

	m, ok := cur.(map[string]any)

	return m, ok
}

// descendSchemaPath walks schema one segment at a time, per path, trying
// composition branches first at every step and following "items"/
// "prefixItems[0]" after a "[*]"-suffixed segment. Ported from
// descend_one/descend_schema_path in local.rs.
func descendSchemaPath(schema rawDoc, path ir.YamlPath) (rawDoc, bool) {
	cur := schema

	for _, seg := range path {
		next, ok := descendOne(cur, seg)
		if !ok {
			return nil, false
		}

		cur = next
	}

	return cur, true
}

func descendOne(schema rawDoc, seg string) (rawDoc, bool) {
	for _, keyword := range []string{"allOf", "anyOf", "oneOf"} {
		arr, ok := schema[keyword].([]any)
		if !ok {
			continue
		}

		for _, branch := range arr {
			sub, ok := asRawDoc(branch)
			if !ok {
				continue
			}

			if v, ok := descendOne(sub, seg); ok {
				return v, true
			}
		}
	}

	key, isArrayItem := stripArrayItemSuffix(seg)

	next, ok := propertyOrAdditional(schema, key)
	if !ok {
		return nil, false
	}

	if !isArrayItem {
		return next, true
	}

	if items, ok := asRawDoc(next["items"]); ok {
		return items, true
	}

	if prefixItems, ok := next["prefixItems"].([]any); ok && len(prefixItems) > 0 {
		if first, ok := asRawDoc(prefixItems[0]); ok {
			return first, true
		}
	}

	return nil, false
}

func propertyOrAdditional(schema rawDoc, key string) (rawDoc, bool) {
	if props, ok := schema["properties"].(map[string]any); ok {
		if v, ok := props[key]; ok {
			if sub, ok := asRawDoc(v); ok {
				return sub, true
			}
		}
	}

	if ap, ok := schema["additionalProperties"]; ok {
		if _, isBool := ap.(bool); !isBool {
			if sub, ok := asRawDoc(ap); ok {
				return sub, true
			}
		}
	}

	return nil, false
}

func stripArrayItemSuffix(seg string) (string, bool) {
	const suffix = "[*]"
	if len(seg) > len(suffix) && seg[len(seg)-len(suffix):] == suffix {
		return seg[:len(seg)-len(suffix)], true
	}

	return seg, false
}
