package k8sschema

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/chartschema/chartschema/ir"
)

// ChainProvider tries each child Provider in order, returning the first
// non-empty result. Grounded in the source implementation's MultiProvider
// (provider.rs).
type ChainProvider struct {
	Providers []Provider
}

// NewChainProvider returns a ChainProvider trying providers in order.
func NewChainProvider(providers ...Provider) *ChainProvider {
	return &ChainProvider{Providers: providers}
}

// SchemaForResourcePath implements Provider.
func (c *ChainProvider) SchemaForResourcePath(ctx context.Context, resource ir.ResourceRef, path ir.YamlPath) (*jsonschema.Schema, bool) {
	for _, p := range c.Providers {
		if s, ok := p.SchemaForResourcePath(ctx, resource, path); ok {
			return s, true
		}
	}

	return nil, false
}

// MaterializeSchemaForResource implements Provider.
func (c *ChainProvider) MaterializeSchemaForResource(ctx context.Context, resource ir.ResourceRef) (*jsonschema.Schema, bool) {
	for _, p := range c.Providers {
		if s, ok := p.MaterializeSchemaForResource(ctx, resource); ok {
			return s, true
		}
	}

	return nil, false
}

// Prefetch warms every child provider that implements [Prefetcher],
// concurrently, bounded by an errgroup so a chart that references many
// distinct CRD kinds does not serialize one blocking fetch after another.
func (c *ChainProvider) Prefetch(ctx context.Context, resources []ir.ResourceRef) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, p := range c.Providers {
		pf, ok := p.(Prefetcher)
		if !ok {
			continue
		}

		g.Go(func() error {
			return pf.Prefetch(ctx, resources)
		})
	}

	return g.Wait()
}

// NullProvider always reports a miss. It is the provider used on its own
// when every other source is disabled.
type NullProvider struct{}

// SchemaForResourcePath implements Provider.
func (NullProvider) SchemaForResourcePath(context.Context, ir.ResourceRef, ir.YamlPath) (*jsonschema.Schema, bool) {
	return nil, false
}

// MaterializeSchemaForResource implements Provider.
func (NullProvider) MaterializeSchemaForResource(context.Context, ir.ResourceRef) (*jsonschema.Schema, bool) {
	return nil, false
}
