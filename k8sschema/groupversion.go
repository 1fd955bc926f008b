package k8sschema

import (
	"fmt"
	"strings"
)

// splitAPIVersion splits a manifest's literal apiVersion into its group and
// version, following the same convention Kubernetes itself uses: a bare
// version ("v1") belongs to the unnamed "core" group.
func splitAPIVersion(apiVersion string) (group, version string) {
	if i := strings.Index(apiVersion, "/"); i >= 0 {
		return apiVersion[:i], apiVersion[i+1:]
	}

	return "", apiVersion
}

// crdRelativePath builds a datreeio/CRDs-catalog-layout relative path,
// shared by CRDCatalogProvider and LocalProvider.
func crdRelativePath(group, kind, version string) string {
	return fmt.Sprintf("%s/%s_%s.json", group, strings.ToLower(kind), strings.ToLower(version))
}
