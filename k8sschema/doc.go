// Package k8sschema resolves a leaf JSON Schema for a (resource, YAML path)
// pair against reference Kubernetes/CRD schemas, keyed by the manifest's
// detected apiVersion/kind. It is the pluggable "Schema Provider" of the
// synthesis pipeline: a [Provider] never fails the pipeline on a miss, it
// just returns ok=false so the caller falls back to type-hint inference.
//
// Four provider variants compose via [ChainProvider]: [UpstreamProvider]
// (the yannh/kubernetes-json-schema cache layout), [CRDCatalogProvider]
// (the datreeio/CRDs-catalog layout), [LocalProvider] (a user-supplied
// directory in either layout), and [NullProvider] (always empty, used when
// every other source is disabled).
package k8sschema
