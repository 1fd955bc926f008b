package k8sschema

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/chartschema/chartschema/ir"
)

// CRDCatalogEnvCacheDir overrides the CRD catalog's cache directory,
// ported from default_crd_schema_cache_dir's HELM_SCHEMA_CRD_SCHEMA_CACHE
// check (crds_catalog.rs).
const CRDCatalogEnvCacheDir = "HELM_SCHEMA_CRD_SCHEMA_CACHE"

const crdCatalogBaseURL = "https://raw.githubusercontent.com/datreeio/CRDs-catalog/main"

// builtinGroupSuffixes are API groups the CRD catalog never carries,
// because they are built into Kubernetes itself rather than installed by
// an operator. Skipping them avoids a guaranteed-miss network round trip
// for every Deployment, Job, HorizontalPodAutoscaler, or PodDisruptionBudget
// a chart renders. Ported from relative_path_for_resource's group skip list
// (crds_catalog.rs).
var builtinGroupSuffixes = []string{
	"apps",
	"batch",
	"autoscaling",
	"policy",
	"extensions",
	".k8s.io",
}

func isBuiltinGroup(group string) bool {
	if group == "" {
		return true
	}

	for _, suffix := range builtinGroupSuffixes {
		if group == suffix || strings.HasSuffix(group, suffix) {
			return true
		}
	}

	return false
}

// CRDCatalogProvider resolves CustomResourceDefinition schemas from the
// datreeio/CRDs-catalog repository, laid out as "{group}/{kind}_{version}.json".
type CRDCatalogProvider struct {
	cache *docCache
}

// NewCRDCatalogProvider builds a CRDCatalogProvider caching into cacheDir
// (or a default derived from CRDCatalogEnvCacheDir/XDG_CACHE_HOME/HOME if
// empty), downloading from the catalog only when allowDownload is true.
func NewCRDCatalogProvider(cacheDir string, allowDownload bool) *CRDCatalogProvider {
	if cacheDir == "" {
		cacheDir = defaultCacheDir(CRDCatalogEnvCacheDir, "crds-catalog")
	}

	return &CRDCatalogProvider{
		cache: newDocCache(cacheDir, crdCatalogBaseURL, allowDownload),
	}
}

func (c *CRDCatalogProvider) relativePath(resource ir.ResourceRef) (string, bool) {
	if resource.Kind == "" {
		return "", false
	}

	group, version := splitAPIVersion(resource.APIVersion)
	if isBuiltinGroup(group) {
		return "", false
	}

	return crdRelativePath(group, resource.Kind, version), true
}

// MaterializeSchemaForResource implements Provider.
func (c *CRDCatalogProvider) MaterializeSchemaForResource(_ context.Context, resource ir.ResourceRef) (*jsonschema.Schema, bool) {
	rel, ok := c.relativePath(resource)
	if !ok {
		return nil, false
	}

	doc, ok := c.cache.load(rel)
	if !ok {
		return nil, false
	}

	expanded := expandLocalRefs(doc, doc, 0, make(map[string]bool))

	return toSchema(expanded)
}

// SchemaForResourcePath implements Provider.
func (c *CRDCatalogProvider) SchemaForResourcePath(ctx context.Context, resource ir.ResourceRef, path ir.YamlPath) (*jsonschema.Schema, bool) {
	rel, ok := c.relativePath(resource)
	if !ok {
		return nil, false
	}

	doc, ok := c.cache.load(rel)
	if !ok {
		return nil, false
	}

	expanded := expandLocalRefs(doc, doc, 0, make(map[string]bool))

	leaf, ok := descendSchemaPath(expanded, path)
	if !ok {
		return nil, false
	}

	return toSchema(leaf)
}

// Prefetch warms the cache for every distinct non-builtin-group resource.
func (c *CRDCatalogProvider) Prefetch(ctx context.Context, resources []ir.ResourceRef) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	seen := make(map[string]bool)

	for _, resource := range resources {
		rel, ok := c.relativePath(resource)
		if !ok || seen[rel] {
			continue
		}

		seen[rel] = true

		g.Go(func() error {
			c.cache.load(rel)

			return nil
		})
	}

	return g.Wait()
}
