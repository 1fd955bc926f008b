package synth_test

import (
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartschema/chartschema/synth"
)

func mustSchema(t *testing.T, doc string) *jsonschema.Schema {
	t.Helper()

	var s jsonschema.Schema
	require.NoError(t, json.Unmarshal([]byte(doc), &s))

	return &s
}

func TestApplyOverrideMergesObjectsAndUnionsRequired(t *testing.T) {
	t.Parallel()

	base := mustSchema(t, `{
		"type": "object",
		"additionalProperties": false,
		"properties": {"a": {"type": "string"}},
		"required": ["a"]
	}`)

	override := mustSchema(t, `{
		"properties": {"b": {"type": "integer"}},
		"required": ["b"]
	}`)

	got, err := synth.ApplyOverride(base, override)
	require.NoError(t, err)

	assert.Equal(t, "object", got.Type)
	assert.False(t, schemaAllowsAdditional(got))
	assert.Contains(t, got.Properties, "a")
	assert.Contains(t, got.Properties, "b")
	assert.Equal(t, []string{"a", "b"}, got.Required)
}

func TestApplyOverrideDropsSchemaKeyword(t *testing.T) {
	t.Parallel()

	base := mustSchema(t, `{"type": "object", "$schema": "http://json-schema.org/draft-07/schema#"}`)
	override := mustSchema(t, `{"$schema": "http://json-schema.org/draft-04/schema#", "title": "x"}`)

	got, err := synth.ApplyOverride(base, override)
	require.NoError(t, err)

	assert.Equal(t, "http://json-schema.org/draft-07/schema#", got.Schema)
	assert.Equal(t, "x", got.Title)
}

func TestApplyOverrideJSONRejectsNonObject(t *testing.T) {
	t.Parallel()

	_, err := synth.ApplyOverrideJSON(&jsonschema.Schema{}, []byte(`[1,2,3]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, synth.ErrOverrideMerge)
}

func TestApplyOverrideJSONRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := synth.ApplyOverrideJSON(&jsonschema.Schema{}, []byte(`{not json`))
	require.Error(t, err)
	assert.ErrorIs(t, err, synth.ErrOverrideMerge)
}

func schemaAllowsAdditional(s *jsonschema.Schema) bool {
	if s.AdditionalProperties == nil {
		return true
	}

	return s.AdditionalProperties.Not == nil
}
