package chart_test

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartschema/chartschema/chart"
)

func TestComposeValuesMountsDependenciesByAliasOrName(t *testing.T) {
	t.Parallel()

	parent := &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}

	deps := []chart.Dependency{
		{AliasOrName: "db", Schema: &jsonschema.Schema{Type: "object"}},
		{AliasOrName: "cache", Schema: &jsonschema.Schema{Type: "object"}},
	}

	got := chart.ComposeValues(parent, deps)

	require.NotNil(t, got.Properties["db"])
	require.NotNil(t, got.Properties["cache"])
}

func TestComposeValuesMergesGlobalUpward(t *testing.T) {
	t.Parallel()

	parent := &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}

	sub := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"global": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"imageRegistry": {Type: "string"},
				},
			},
		},
	}

	got := chart.ComposeValues(parent, []chart.Dependency{{AliasOrName: "sub", Schema: sub}})

	global := got.Properties["global"]
	require.NotNil(t, global)
	assert.Contains(t, global.Properties, "imageRegistry")
	assert.NotContains(t, got.Required, "global")
}

func TestComposeValuesNoDependenciesReturnsParentUnchanged(t *testing.T) {
	t.Parallel()

	parent := &jsonschema.Schema{Type: "object"}

	got := chart.ComposeValues(parent, nil)
	assert.Same(t, parent, got)
}

func TestComposeValuesNilParentCreatesOne(t *testing.T) {
	t.Parallel()

	got := chart.ComposeValues(nil, []chart.Dependency{
		{AliasOrName: "dep", Schema: &jsonschema.Schema{Type: "object"}},
	})

	require.NotNil(t, got)
	assert.Equal(t, "object", got.Type)
	assert.NotNil(t, got.Properties["dep"])
}
