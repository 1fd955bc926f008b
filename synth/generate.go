package synth

import (
	"context"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/chartschema/chartschema/ir"
	"github.com/chartschema/chartschema/k8sschema"
	"github.com/chartschema/chartschema/log"
	"github.com/chartschema/chartschema/magicschema"
)

const draft07 = "http://json-schema.org/draft-07/schema#"

// Generate implements the synthesis algorithm of spec step 1-5, 7 (step 6,
// subchart composition, is layered on top by chart.ComposeValues, since it
// operates across multiple Generate results rather than within one). It is
// a pure function of uses and provider plus the k8sschema.Provider's own
// fetches: no global state, no mutation of uses. Recoverable provider
// misses are reported as a returned []log.Event rather than a callback
// threaded through recursion (see log.Sink's doc comment).
func Generate(ctx context.Context, uses []ir.ValueUse, provider k8sschema.Provider) (*jsonschema.Schema, []log.Event) {
	sink := log.NewSink()

	groups := make(map[string][]ir.ValueUse)

	for _, u := range uses {
		if u.SourceExpr == "" {
			continue
		}

		groups[u.SourceExpr] = append(groups[u.SourceExpr], u)
	}

	paths := make([]string, 0, len(groups))
	for p := range groups {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	root := &node{}

	for _, p := range paths {
		buildTree(root, p, resolveLeaf(ctx, provider, groups[p], sink))
	}

	required := computeRequiredSet(uses)

	var schema *jsonschema.Schema
	if len(root.children) == 0 {
		// No Values reference was found anywhere in the chart: still emit
		// the empty root object spec step 1 describes, rather than the
		// permissive fallback finalize uses for a childless, leaf-less node.
		schema = &jsonschema.Schema{
			Type:                 "object",
			AdditionalProperties: magicschema.FalseSchema(),
			Properties:           map[string]*jsonschema.Schema{},
		}
	} else {
		schema = finalize(root, "", required)
	}

	schema.Schema = draft07

	return schema, sink.Events()
}
