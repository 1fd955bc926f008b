// Package synth turns a chart's symbolic value uses into a synthesized
// Draft-07 JSON Schema: building the nested properties chain every
// `.Values.*` reference implies, resolving each leaf against a
// k8sschema.Provider or falling back to a permissive schema, unifying
// conflicting uses of the same path into an anyOf, and computing which
// properties are required from each use's guard list.
package synth
