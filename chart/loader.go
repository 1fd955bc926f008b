package chart

import (
	"fmt"
	"os"
	"path/filepath"

	helmchart "helm.sh/helm/v3/pkg/chart"
	helmloader "helm.sh/helm/v3/pkg/chart/loader"
)

// LoadDir reads a Helm chart from a local directory, grounded in
// chart2kro's DirectoryLoader: verify the path is a directory containing
// a Chart.yaml, then delegate to helm.sh/helm/v3/pkg/chart/loader for the
// actual template/values/dependency parsing.
func LoadDir(path string) (*helmchart.Chart, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrLoader, path, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrLoader, path)
	}

	if _, err := os.Stat(filepath.Join(path, "Chart.yaml")); err != nil {
		return nil, fmt.Errorf("%w: %q has no Chart.yaml: %w", ErrLoader, path, err)
	}

	ch, err := helmloader.LoadDir(path)
	if err != nil {
		return nil, fmt.Errorf("%w: loading chart from %q: %w", ErrLoader, path, err)
	}

	return ch, nil
}
