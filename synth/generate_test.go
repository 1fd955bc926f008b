package synth_test

import (
	"context"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartschema/chartschema/ir"
	"github.com/chartschema/chartschema/synth"
)

// stubProvider answers SchemaForResourcePath for a single fixed
// resource+path, and always misses MaterializeSchemaForResource -- enough
// surface for these synthesis tests without pulling in k8sschema's cache
// machinery.
type stubProvider struct {
	resource ir.ResourceRef
	path     ir.YamlPath
	schema   *jsonschema.Schema
}

func (p stubProvider) SchemaForResourcePath(_ context.Context, resource ir.ResourceRef, path ir.YamlPath) (*jsonschema.Schema, bool) {
	if resource.Kind == p.resource.Kind && resource.APIVersion == p.resource.APIVersion && path.Equal(p.path) {
		return p.schema, true
	}

	return nil, false
}

func (stubProvider) MaterializeSchemaForResource(context.Context, ir.ResourceRef) (*jsonschema.Schema, bool) {
	return nil, false
}

func TestGenerateGuardOnlyPathIsBoolean(t *testing.T) {
	t.Parallel()

	uses := []ir.ValueUse{
		{SourceExpr: "metrics.enabled", Path: nil, Kind: ir.KindScalar, Guards: nil},
	}

	schema, events := synth.Generate(context.Background(), uses, nil)
	require.Empty(t, events)

	metrics, ok := schema.Properties["metrics"]
	require.True(t, ok)

	enabled, ok := metrics.Properties["enabled"]
	require.True(t, ok)
	assert.Equal(t, "boolean", enabled.Type)
}

func TestGenerateGuardOnlyUseIsNeverRequired(t *testing.T) {
	t.Parallel()

	// `{{- if .Values.enabled }}foo: {{ .Values.name }}{{- end }}`: the
	// condition itself contributes only an unplaced, unguarded-by-itself
	// use of "enabled" (spec scenario 1). Required must stay empty.
	uses := []ir.ValueUse{
		{SourceExpr: "enabled", Path: nil, Kind: ir.KindScalar, Guards: nil},
		{SourceExpr: "name", Path: ir.YamlPath{"foo"}, Kind: ir.KindScalar, Guards: []ir.Guard{ir.Truthy("enabled")}},
	}

	schema, _ := synth.Generate(context.Background(), uses, nil)

	assert.Empty(t, schema.Required)
}

func TestGenerateNestedGuardedPathIsObjectAndNotRequired(t *testing.T) {
	t.Parallel()

	uses := []ir.ValueUse{
		{SourceExpr: "metrics.prometheusRule", Path: nil, Kind: ir.KindScalar, Guards: nil},
		{
			SourceExpr: "metrics.prometheusRule.namespace",
			Path:       ir.YamlPath{"spec", "namespace"},
			Kind:       ir.KindScalar,
			Guards:     []ir.Guard{ir.Truthy("metrics.prometheusRule")},
		},
	}

	schema, _ := synth.Generate(context.Background(), uses, nil)

	metrics := schema.Properties["metrics"]
	require.NotNil(t, metrics)

	rule := metrics.Properties["prometheusRule"]
	require.NotNil(t, rule)

	assert.NotContains(t, metrics.Required, "prometheusRule")
	assert.NotContains(t, rule.Required, "namespace")
}

func TestGenerateUnguardedLeafIsRequired(t *testing.T) {
	t.Parallel()

	uses := []ir.ValueUse{
		{
			SourceExpr: "service.port",
			Path:       ir.YamlPath{"spec", "ports", "[*]", "port"},
			Kind:       ir.KindScalar,
			Guards:     nil,
		},
	}

	schema, _ := synth.Generate(context.Background(), uses, nil)

	assert.Contains(t, schema.Required, "service")

	service := schema.Properties["service"]
	require.NotNil(t, service)
	assert.Contains(t, service.Required, "port")
}

func TestGenerateResourceLeafUsesProviderSchema(t *testing.T) {
	t.Parallel()

	resource := ir.ResourceRef{APIVersion: "v1", Kind: "Service"}
	path := ir.YamlPath{"spec", "ports", "[*]", "targetPort"}

	provider := stubProvider{
		resource: resource,
		path:     path,
		schema:   &jsonschema.Schema{Type: "integer"},
	}

	uses := []ir.ValueUse{
		{
			SourceExpr: "service.targetPort",
			Path:       path,
			Kind:       ir.KindScalar,
			Resource:   &resource,
		},
	}

	schema, events := synth.Generate(context.Background(), uses, provider)
	require.Empty(t, events)

	leaf := schema.Properties["service"].Properties["targetPort"]
	require.NotNil(t, leaf)
	assert.Equal(t, "integer", leaf.Type)
}

func TestGenerateProviderMissEmitsEventAndFallsBackPermissive(t *testing.T) {
	t.Parallel()

	resource := ir.ResourceRef{APIVersion: "v1", Kind: "ConfigMap"}

	uses := []ir.ValueUse{
		{
			SourceExpr: "config.value",
			Path:       ir.YamlPath{"data", "value"},
			Kind:       ir.KindScalar,
			Resource:   &resource,
		},
	}

	schema, events := synth.Generate(context.Background(), uses, stubProvider{})
	require.Len(t, events, 1)

	leaf := schema.Properties["config"].Properties["value"]
	require.NotNil(t, leaf)
	assert.Empty(t, leaf.Type)
}

func TestGenerateNumericFilterHintAppliesWithoutProviderSchema(t *testing.T) {
	t.Parallel()

	uses := []ir.ValueUse{
		{
			SourceExpr: "replicaCount",
			Path:       ir.YamlPath{"spec", "replicas"},
			Kind:       ir.KindScalar,
			TypeHint:   ir.HintInteger,
		},
	}

	schema, events := synth.Generate(context.Background(), uses, nil)
	require.Empty(t, events)

	leaf := schema.Properties["replicaCount"]
	require.NotNil(t, leaf)
	assert.Equal(t, "integer", leaf.Type)
}

func TestGenerateProviderSchemaWinsOverTypeHint(t *testing.T) {
	t.Parallel()

	resource := ir.ResourceRef{APIVersion: "v1", Kind: "ConfigMap"}
	path := ir.YamlPath{"data", "port"}

	provider := stubProvider{
		resource: resource,
		path:     path,
		schema:   &jsonschema.Schema{Type: "string"},
	}

	uses := []ir.ValueUse{
		{
			SourceExpr: "config.port",
			Path:       path,
			Kind:       ir.KindScalar,
			Resource:   &resource,
			TypeHint:   ir.HintInteger,
		},
	}

	schema, events := synth.Generate(context.Background(), uses, provider)
	require.Empty(t, events)

	leaf := schema.Properties["config"].Properties["port"]
	require.NotNil(t, leaf)
	assert.Equal(t, "string", leaf.Type)
}

func TestGenerateFragmentUnionsObjectAndString(t *testing.T) {
	t.Parallel()

	uses := []ir.ValueUse{
		{SourceExpr: "extraEnv", Path: ir.YamlPath{"spec", "env"}, Kind: ir.KindFragment},
	}

	schema, _ := synth.Generate(context.Background(), uses, nil)

	leaf := schema.Properties["extraEnv"]
	require.NotNil(t, leaf)
	require.Len(t, leaf.AnyOf, 2)

	var sawObject, sawString bool

	for _, branch := range leaf.AnyOf {
		switch branch.Type {
		case "object":
			sawObject = true
		case "string":
			sawString = true
		}
	}

	assert.True(t, sawObject)
	assert.True(t, sawString)
}

func TestGenerateEmptyUsesProducesBareRootObject(t *testing.T) {
	t.Parallel()

	schema, events := synth.Generate(context.Background(), nil, nil)
	require.Empty(t, events)

	assert.Equal(t, "object", schema.Type)
	assert.Empty(t, schema.Properties)
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", schema.Schema)
}
