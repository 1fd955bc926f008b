package k8sschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartschema/chartschema/ir"
)

func TestExpandLocalRefsResolvesFragmentPointer(t *testing.T) {
	t.Parallel()

	root := rawDoc{
		"definitions": map[string]any{
			"podSpec": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"image": map[string]any{"type": "string"},
				},
			},
		},
		"properties": map[string]any{
			"spec": map[string]any{"$ref": "#/definitions/podSpec"},
		},
	}

	got := expandLocalRefs(root, root, 0, make(map[string]bool))

	props, ok := got["properties"].(map[string]any)
	require.True(t, ok)

	spec, ok := props["spec"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "object", spec["type"])
	assert.NotContains(t, spec, "$ref")
}

func TestExpandLocalRefsBreaksCycles(t *testing.T) {
	t.Parallel()

	root := rawDoc{
		"definitions": map[string]any{
			"a": map[string]any{"$ref": "#/definitions/b"},
			"b": map[string]any{"$ref": "#/definitions/a"},
		},
		"properties": map[string]any{
			"x": map[string]any{"$ref": "#/definitions/a"},
		},
	}

	// Must terminate rather than recurse forever.
	got := expandLocalRefs(root, root, 0, make(map[string]bool))

	props, ok := got["properties"].(map[string]any)
	require.True(t, ok)
	assert.NotNil(t, props["x"])
}

func TestExpandLocalRefsLeavesNonFragmentRefInPlaceMinusRef(t *testing.T) {
	t.Parallel()

	root := rawDoc{
		"properties": map[string]any{
			"x": map[string]any{"$ref": "external.json#/Thing", "description": "kept"},
		},
	}

	got := expandLocalRefs(root, root, 0, make(map[string]bool))

	props, ok := got["properties"].(map[string]any)
	require.True(t, ok)

	x, ok := props["x"].(map[string]any)
	require.True(t, ok)

	assert.NotContains(t, x, "$ref")
	assert.Equal(t, "kept", x["description"])
}

func TestDescendSchemaPathFollowsProperties(t *testing.T) {
	t.Parallel()

	schema := rawDoc{
		"type": "object",
		"properties": map[string]any{
			"spec": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"replicas": map[string]any{"type": "integer"},
				},
			},
		},
	}

	leaf, ok := descendSchemaPath(schema, ir.YamlPath{"spec", "replicas"})
	require.True(t, ok)
	assert.Equal(t, "integer", leaf["type"])
}

func TestDescendSchemaPathTriesCompositionBranchesFirst(t *testing.T) {
	t.Parallel()

	schema := rawDoc{
		"oneOf": []any{
			map[string]any{
				"properties": map[string]any{
					"replicas": map[string]any{"type": "integer"},
				},
			},
			map[string]any{
				"properties": map[string]any{
					"image": map[string]any{"type": "string"},
				},
			},
		},
	}

	leaf, ok := descendSchemaPath(schema, ir.YamlPath{"image"})
	require.True(t, ok)
	assert.Equal(t, "string", leaf["type"])
}

func TestDescendSchemaPathArrayItemSuffix(t *testing.T) {
	t.Parallel()

	schema := rawDoc{
		"properties": map[string]any{
			"containers": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
				},
			},
		},
	}

	leaf, ok := descendSchemaPath(schema, ir.YamlPath{"containers[*]", "name"})
	require.True(t, ok)
	assert.Equal(t, "string", leaf["type"])
}

func TestDescendSchemaPathPrefixItems(t *testing.T) {
	t.Parallel()

	schema := rawDoc{
		"properties": map[string]any{
			"args": map[string]any{
				"prefixItems": []any{
					map[string]any{"type": "string"},
				},
			},
		},
	}

	leaf, ok := descendSchemaPath(schema, ir.YamlPath{"args[*]"})
	require.True(t, ok)
	assert.Equal(t, "string", leaf["type"])
}

func TestDescendSchemaPathMissingSegmentFails(t *testing.T) {
	t.Parallel()

	schema := rawDoc{"properties": map[string]any{}}

	_, ok := descendSchemaPath(schema, ir.YamlPath{"nope"})
	assert.False(t, ok)
}

func TestDescendOneAdditionalPropertiesFallback(t *testing.T) {
	t.Parallel()

	schema := rawDoc{
		"additionalProperties": map[string]any{"type": "string"},
	}

	leaf, ok := descendOne(schema, "anything")
	require.True(t, ok)
	assert.Equal(t, "string", leaf["type"])
}

func TestStripArrayItemSuffix(t *testing.T) {
	t.Parallel()

	key, isArray := stripArrayItemSuffix("containers[*]")
	assert.Equal(t, "containers", key)
	assert.True(t, isArray)

	key, isArray = stripArrayItemSuffix("name")
	assert.Equal(t, "name", key)
	assert.False(t, isArray)
}
