package k8sschema

import (
	"context"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartschema/chartschema/ir"
)

type stubProvider struct {
	schema       *jsonschema.Schema
	materialized *jsonschema.Schema
	prefetched   []ir.ResourceRef
}

func (s *stubProvider) SchemaForResourcePath(context.Context, ir.ResourceRef, ir.YamlPath) (*jsonschema.Schema, bool) {
	if s.schema == nil {
		return nil, false
	}

	return s.schema, true
}

func (s *stubProvider) MaterializeSchemaForResource(context.Context, ir.ResourceRef) (*jsonschema.Schema, bool) {
	if s.materialized == nil {
		return nil, false
	}

	return s.materialized, true
}

func (s *stubProvider) Prefetch(_ context.Context, resources []ir.ResourceRef) error {
	s.prefetched = resources

	return nil
}

func TestChainProviderReturnsFirstHit(t *testing.T) {
	t.Parallel()

	miss := &stubProvider{}
	hit := &stubProvider{schema: &jsonschema.Schema{Type: "string"}}
	never := &stubProvider{schema: &jsonschema.Schema{Type: "integer"}}

	chain := NewChainProvider(miss, hit, never)

	got, ok := chain.SchemaForResourcePath(context.Background(), ir.ResourceRef{Kind: "Pod"}, nil)
	require.True(t, ok)
	assert.Equal(t, "string", got.Type)
}

func TestChainProviderAllMissReportsMiss(t *testing.T) {
	t.Parallel()

	chain := NewChainProvider(&stubProvider{}, NullProvider{})

	_, ok := chain.SchemaForResourcePath(context.Background(), ir.ResourceRef{Kind: "Pod"}, nil)
	assert.False(t, ok)
}

func TestChainProviderPrefetchesEveryChild(t *testing.T) {
	t.Parallel()

	a := &stubProvider{}
	b := &stubProvider{}

	chain := NewChainProvider(a, b)

	resources := []ir.ResourceRef{{Kind: "Pod", APIVersion: "v1"}}

	err := chain.Prefetch(context.Background(), resources)
	require.NoError(t, err)

	assert.Len(t, a.prefetched, 1)
	assert.Len(t, b.prefetched, 1)
}

func TestNullProviderAlwaysMisses(t *testing.T) {
	t.Parallel()

	var p NullProvider

	_, ok := p.SchemaForResourcePath(context.Background(), ir.ResourceRef{}, nil)
	assert.False(t, ok)

	_, ok = p.MaterializeSchemaForResource(context.Background(), ir.ResourceRef{})
	assert.False(t, ok)
}
