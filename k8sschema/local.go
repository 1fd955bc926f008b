package k8sschema

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/chartschema/chartschema/ir"
)

// LocalProvider resolves CRD schemas from a directory on disk laid out like
// the CRD catalog ("{group}/{kind}_{version}.json"), for offline use or a
// vendored/private CRD set that datreeio's catalog does not carry. It never
// performs network I/O.
type LocalProvider struct {
	cache *docCache
}

// NewLocalProvider builds a LocalProvider reading from dir.
func NewLocalProvider(dir string) *LocalProvider {
	return &LocalProvider{
		cache: newDocCache(dir, "", false),
	}
}

func (l *LocalProvider) relativePath(resource ir.ResourceRef) (string, bool) {
	if resource.Kind == "" {
		return "", false
	}

	group, version := splitAPIVersion(resource.APIVersion)
	if group == "" {
		return "", false
	}

	return crdRelativePath(group, resource.Kind, version), true
}

// MaterializeSchemaForResource implements Provider.
func (l *LocalProvider) MaterializeSchemaForResource(_ context.Context, resource ir.ResourceRef) (*jsonschema.Schema, bool) {
	rel, ok := l.relativePath(resource)
	if !ok {
		return nil, false
	}

	doc, ok := l.cache.load(rel)
	if !ok {
		return nil, false
	}

	expanded := expandLocalRefs(doc, doc, 0, make(map[string]bool))

	return toSchema(expanded)
}

// SchemaForResourcePath implements Provider.
func (l *LocalProvider) SchemaForResourcePath(_ context.Context, resource ir.ResourceRef, path ir.YamlPath) (*jsonschema.Schema, bool) {
	rel, ok := l.relativePath(resource)
	if !ok {
		return nil, false
	}

	doc, ok := l.cache.load(rel)
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
