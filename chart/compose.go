package chart

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/chartschema/chartschema/magicschema"
)

// Dependency is one chart dependency's already-synthesized schema, keyed
// by the name it mounts under in the parent (its declared alias, or its
// chart name if no alias was given).
type Dependency struct {
	AliasOrName string
	Schema      *jsonschema.Schema
}

// ComposeValues mounts each dependency's schema at
// properties.<alias-or-name> on parent, and merges any "global" property
// each dependency schema carries upward into parent's own "global"
// property, per Helm's global-value propagation rule (spec §4.6).
func ComposeValues(parent *jsonschema.Schema, deps []Dependency) *jsonschema.Schema {
	if parent == nil {
		parent = &jsonschema.Schema{Type: "object", AdditionalProperties: magicschema.FalseSchema()}
	}

	if len(deps) == 0 {
		return parent
	}

	if parent.Properties == nil {
		parent.Properties = make(map[string]*jsonschema.Schema)
	}

	for _, dep := range deps {
		if dep.Schema == nil {
			continue
		}

		mergeGlobal(parent, dep.Schema)

		if _, exists := parent.Properties[dep.AliasOrName]; !exists {
			parent.PropertyOrder = append(parent.PropertyOrder, dep.AliasOrName)
		}

		parent.Properties[dep.AliasOrName] = dep.Schema
	}

	return parent
}

// mergeGlobal folds a subchart's "global" property into the parent's own
// "global" property, creating it if necessary. Subchart global properties
// never become required on the parent: a subchart declaring its own
// global defaults does not obligate the umbrella chart's caller to
// supply them.
func mergeGlobal(parent, sub *jsonschema.Schema) {
	subGlobal, ok := sub.Properties["global"]
	if !ok || subGlobal == nil {
		return
	}

	if parent.Properties == nil {
		parent.Properties = make(map[string]*jsonschema.Schema)
	}

	parentGlobal, ok := parent.Properties["global"]
	if !ok || parentGlobal == nil {
		parentGlobal = &jsonschema.Schema{Type: "object", AdditionalProperties: magicschema.TrueSchema()}
		parent.Properties["global"] = parentGlobal
		parent.PropertyOrder = append(parent.PropertyOrder, "global")
	}

	if parentGlobal.Properties == nil {
		parentGlobal.Properties = make(map[string]*jsonschema.Schema)
	}

	for key, schema := range subGlobal.Properties {
		if _, exists := parentGlobal.Properties[key]; !exists {
			parentGlobal.Properties[key] = schema
			parentGlobal.PropertyOrder = append(parentGlobal.PropertyOrder, key)
		}
	}
}
