package k8sschema

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/chartschema/chartschema/ir"
)

// UpstreamEnvCacheDir is the environment variable consulted by
// NewUpstreamProvider when no explicit cache directory is configured,
// mirroring the CRD catalog's own override variable (see
// CRDCatalogEnvCacheDir).
const UpstreamEnvCacheDir = "HELM_SCHEMA_UPSTREAM_SCHEMA_CACHE"

const upstreamBaseURL = "https://raw.githubusercontent.com/yannh/kubernetes-json-schema/master"

// UpstreamProvider resolves built-in Kubernetes resource schemas from the
// yannh/kubernetes-json-schema repository's "standalone-strict" layout,
// one JSON file per kind/group/version under a directory named for the
// cluster version (e.g. "v1.30.0-standalone-strict/deployment-apps-v1.json").
type UpstreamProvider struct {
	K8sVersion string
	cache      *docCache
}

// NewUpstreamProvider builds an UpstreamProvider caching into cacheDir (or
// a default derived from UpstreamEnvCacheDir/XDG_CACHE_HOME/HOME if empty),
// downloading from the upstream repository only when allowDownload is true.
func NewUpstreamProvider(k8sVersion, cacheDir string, allowDownload bool) *UpstreamProvider {
	if cacheDir == "" {
		cacheDir = defaultCacheDir(UpstreamEnvCacheDir, "upstream")
	}

	return &UpstreamProvider{
		K8sVersion: k8sVersion,
		cache:      newDocCache(cacheDir, upstreamBaseURL, allowDownload),
	}
}

func (u *UpstreamProvider) relativePath(resource ir.ResourceRef) (string, bool) {
	if resource.Kind == "" {
		return "", false
	}

	group, version := splitAPIVersion(resource.APIVersion)

	kind := strings.ToLower(resource.Kind)
	version = strings.ToLower(version)

	var name string

	switch {
	case group == "":
		name = fmt.Sprintf("%s-%s.json", kind, version)
	default:
		// Upstream file names drop the dots from the group, e.g.
		// "networking.k8s.io" -> "networkingk8sio", for parity with the
		// source repository's own file names.
		name = fmt.Sprintf("%s-%s-%s.json", kind, strings.ReplaceAll(strings.ToLower(group), ".", ""), version)
	}

	dir := fmt.Sprintf("%s-standalone-strict", u.K8sVersion)

	return dir + "/" + name, true
}

// MaterializeSchemaForResource implements Provider.
func (u *UpstreamProvider) MaterializeSchemaForResource(_ context.Context, resource ir.ResourceRef) (*jsonschema.Schema, bool) {
	rel, ok := u.relativePath(resource)
	if !ok {
		return nil, false
	}

	doc, ok := u.cache.load(rel)
	if !ok {
		return nil, false
	}

	expanded := expandLocalRefs(doc, doc, 0, make(map[string]bool))

	return toSchema(expanded)
}

// SchemaForResourcePath implements Provider.
func (u *UpstreamProvider) SchemaForResourcePath(ctx context.Context, resource ir.ResourceRef, path ir.YamlPath) (*jsonschema.Schema, bool) {
	rel, ok := u.relativePath(resource)
	if !ok {
		return nil, false
	}

	doc, ok := u.cache.load(rel)
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

// Prefetch warms the cache for every distinct resource, bounded to a small
// number of concurrent downloads so a chart referencing many kinds does not
// open dozens of simultaneous connections.
func (u *UpstreamProvider) Prefetch(ctx context.Context, resources []ir.ResourceRef) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	seen := make(map[string]bool)

	for _, resource := range resources {
		rel, ok := u.relativePath(resource)
		if !ok || seen[rel] {
			continue
		}

		seen[rel] = true

		g.Go(func() error {
			u.cache.load(rel)

			return nil
		})
	}

	return g.Wait()
}
