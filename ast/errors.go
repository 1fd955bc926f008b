package ast

import "errors"

// ErrParse wraps a failure in the Go-template half of the fused grammar:
// unbalanced actions, unknown control keywords, or other syntax errors
// text/template/parse itself rejects.
var ErrParse = errors.New("ast: template parse error")

// ErrMalformed wraps a failure in the YAML half: the flattened, sentinel-
// substituted body could not be parsed as YAML.
var ErrMalformed = errors.New("ast: malformed yaml")

// ErrEncoding is returned when the source is not valid UTF-8.
var ErrEncoding = errors.New("ast: invalid encoding")
