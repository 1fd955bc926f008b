package chart

import "errors"

// ErrLoader is returned when a chart directory cannot be located or does
// not look like a Helm chart (missing Chart.yaml).
var ErrLoader = errors.New("chart: invalid chart directory")

// ErrIO wraps a failure reading a chart file once the chart itself has
// been located -- a template or values file that cannot be read, rather
// than a malformed or missing chart layout.
var ErrIO = errors.New("chart: read failed")
