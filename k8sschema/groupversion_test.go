package k8sschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAPIVersion(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		apiVersion    string
		wantGroup     string
		wantVersion   string
	}{
		"core version only":  {apiVersion: "v1", wantGroup: "", wantVersion: "v1"},
		"grouped version":    {apiVersion: "apps/v1", wantGroup: "apps", wantVersion: "v1"},
		"dotted group":       {apiVersion: "cert-manager.io/v1", wantGroup: "cert-manager.io", wantVersion: "v1"},
		"multi-slash rare":   {apiVersion: "a/b/v1", wantGroup: "a", wantVersion: "b/v1"},
		"empty":              {apiVersion: "", wantGroup: "", wantVersion: ""},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			group, version := splitAPIVersion(tc.apiVersion)
			assert.Equal(t, tc.wantGroup, group)
			assert.Equal(t, tc.wantVersion, version)
		})
	}
}

func TestCRDRelativePath(t *testing.T) {
	t.Parallel()

	got := crdRelativePath("cert-manager.io", "Certificate", "V1")
	assert.Equal(t, "cert-manager.io/certificate_v1.json", got)
}
