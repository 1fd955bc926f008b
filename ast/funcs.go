package ast

import (
	"sync"

	"github.com/Masterminds/sprig/v3"
)

// helmExtraFuncNames lists the template functions Helm's rendering engine
// registers on top of sprig: its own YAML/JSON/TOML bridges plus the
// chart-scoped helpers (include, tpl, required, lookup). Parsing only
// needs the names to exist, not their behavior, so every entry maps to a
// no-op stub.
var helmExtraFuncNames = []string{
	"include",
	"tpl",
	"required",
	"lookup",
	"toYaml",
	"fromYaml",
	"fromYamlArray",
	"toJson",
	"fromJson",
	"fromJsonArray",
	"toToml",
	"fromToml",
}

var (
	templateFuncsOnce sync.Once
	templateFuncsMap  map[string]any
)

// TemplateFuncs exposes the same function-name table Parse uses, so that
// other packages (namely ir, when re-parsing a captured HelmExpr's text in
// isolation) can feed text/template/parse without risking "function not
// defined" errors on sprig/Helm built-ins.
func TemplateFuncs() map[string]any {
	return templateFuncs()
}

// templateFuncs returns the function-name table passed to
// text/template/parse so that parsing a Helm template never fails with
// "function not defined." The names come from the real sprig function
// set (so this stays in sync with whatever sprig version the module
// depends on) plus Helm's own built-ins; every value is a stub closure
// since only static analysis, never execution, happens here.
func templateFuncs() map[string]any {
	templateFuncsOnce.Do(func() {
		stub := func(...any) any { return nil }

		m := make(map[string]any, 64)
		for name := range sprig.TxtFuncMap() {
			m[name] = stub
		}

		for _, name := range helmExtraFuncNames {
			m[name] = stub
		}

		templateFuncsMap = m
	})

	return templateFuncsMap
}
