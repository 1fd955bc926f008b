package chart

// Options configures chart discovery and schema synthesis, per spec's
// external interface: which templates to walk, which provider sources to
// consult for Kubernetes resource schemas, and how to fold in
// dependencies.
type Options struct {
	// IncludeTests walks templates under templates/tests/ (Helm test
	// hooks). Off by default since test-hook manifests rarely constrain
	// values.yaml shape usefully.
	IncludeTests bool

	// IncludeSubchartValues recurses into chart dependencies, mounting
	// each one's synthesized schema under its alias (or name) per
	// spec §4.6.
	IncludeSubchartValues bool

	// K8sVersion selects the upstream kubernetes-json-schema release to
	// resolve built-in resource schemas against, e.g. "v1.30.0".
	K8sVersion string

	// K8sSchemaCacheDir overrides the on-disk cache directory for
	// upstream resource schemas. Empty uses the default search order
	// (HELM_SCHEMA_UPSTREAM_SCHEMA_CACHE, XDG_CACHE_HOME, HOME).
	K8sSchemaCacheDir string

	// AllowNet permits providers to fetch a schema over the network on a
	// cache miss.
	AllowNet bool

	// DisableK8sSchemas skips Kubernetes resource schema resolution
	// entirely; every resource-typed leaf falls back to a permissive
	// schema.
	DisableK8sSchemas bool

	// CRDCatalogDir, if set, is consulted (offline) ahead of the
	// datreeio CRD catalog for custom resource schemas.
	CRDCatalogDir string

	// CRDCatalogCacheDir overrides the datreeio CRD catalog's own cache
	// directory. Empty uses the default search order
	// (HELM_SCHEMA_CRD_SCHEMA_CACHE, XDG_CACHE_HOME, HOME).
	CRDCatalogCacheDir string

	// Override, if non-nil, is deep-merged onto the synthesized root
	// schema via synth.ApplyOverride after composition. Must already be
	// JSON; callers accepting a YAML override file (as cmd/values-schema
	// does) convert it before setting this field.
	Override []byte
}
