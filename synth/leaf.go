package synth

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/chartschema/chartschema/ir"
	"github.com/chartschema/chartschema/k8sschema"
	"github.com/chartschema/chartschema/log"
	"github.com/chartschema/chartschema/magicschema"
)

// resolveLeaf computes the schema for every use sharing one SourceExpr.
// A group with no placed use (every use's manifest Path is nil) only ever
// appeared inside a guard expression, so it is typed boolean per spec
// step 3. Otherwise each placed use resolves independently and the
// results unify.
func resolveLeaf(ctx context.Context, provider k8sschema.Provider, uses []ir.ValueUse, sink *log.Sink) *jsonschema.Schema {
	var placed []ir.ValueUse

	for _, u := range uses {
		if u.Path != nil {
			placed = append(placed, u)
		}
	}

	if len(placed) == 0 {
		return &jsonschema.Schema{Type: "boolean"}
	}

	var result *jsonschema.Schema

	for _, u := range placed {
		result = unify(result, resolvePlacedLeaf(ctx, provider, u, sink))
	}

	if result == nil {
		result = magicschema.TrueSchema()
	}

	return result
}

// resolvePlacedLeaf resolves a single use with a known manifest
// placement, per spec step 3 (provider lookup when a resource is known)
// and step 4's Fragment special case.
func resolvePlacedLeaf(ctx context.Context, provider k8sschema.Provider, u ir.ValueUse, sink *log.Sink) *jsonschema.Schema {
	var base *jsonschema.Schema

	if provider != nil && u.Resource != nil && !u.Resource.Empty() && len(u.Path) > 0 {
		if s, ok := provider.SchemaForResourcePath(ctx, *u.Resource, u.Path); ok {
			base = cloneSchema(s)
		} else if sink != nil {
			sink.Emit(log.Warn("%v: no schema for %s %s at %s, falling back to a permissive leaf",
				k8sschema.ErrSchemaFetch, u.Resource.Kind, u.Resource.APIVersion, u.Path.String()))
		}
	}

	if u.Kind != ir.KindFragment {
		if base != nil {
			return base
		}

		return leafFromHint(u.TypeHint)
	}

	if base != nil && isCompoundSchema(base) {
		return base
	}

	branches := []*jsonschema.Schema{fragmentObjectSchema(), fragmentStringSchema()}
	if base != nil {
		branches = append([]*jsonschema.Schema{base}, branches...)
	}

	return &jsonschema.Schema{AnyOf: dedupeSchemas(branches)}
}

// leafFromHint applies the expression's own pipeline-filter type hint
// (spec step 3) when the provider had nothing more specific to say,
// falling back to a fully permissive leaf only when neither source
// narrows the type.
func leafFromHint(hint ir.TypeHint) *jsonschema.Schema {
	if t := hint.JSONType(); t != "" {
		return &jsonschema.Schema{Type: t}
	}

	return magicschema.TrueSchema()
}
