package ast

import "sort"

// DefineIndex aggregates every {{define}}/{{block}} registered across the
// template files of a chart, so that a `{{ include "chart.fullname" . }}`
// found in one file can be resolved against a helper defined in another
// (commonly `_helpers.tpl`).
type DefineIndex struct {
	bodies map[string]Node
	// overwritten records names that were registered more than once, in
	// the order the second (and later) registration occurred, so callers
	// can surface a warning without needing to track this themselves.
	overwritten []string
}

// NewDefineIndex returns an empty index.
func NewDefineIndex() *DefineIndex {
	return &DefineIndex{bodies: make(map[string]Node)}
}

// AddFileSource parses a template file's content and registers every
// definition it contains. name is used only for parse error messages.
func (idx *DefineIndex) AddFileSource(name string, src []byte) (Node, error) {
	doc, defs, err := Parse(name, src)
	if err != nil {
		return nil, err
	}

	idx.AddSource(defs)

	return doc, nil
}

// AddSource registers a batch of definitions discovered in one file. A
// name registered more than once keeps the most recently added body
// (last-write-wins), matching how Helm itself resolves duplicate helper
// names across a chart's template files.
func (idx *DefineIndex) AddSource(defs []Definition) {
	for _, d := range defs {
		if d == nil {
			continue
		}

		name := d.DefName()
		if _, exists := idx.bodies[name]; exists {
			idx.overwritten = append(idx.overwritten, name)
		}

		idx.bodies[name] = d.DefBody()
	}
}

// Lookup returns the body registered under name, if any.
func (idx *DefineIndex) Lookup(name string) (Node, bool) {
	n, ok := idx.bodies[name]

	return n, ok
}

// Overwritten returns the names that were registered more than once, in
// registration order, for callers that want to emit a warning per spec's
// duplicate-helper-name note.
func (idx *DefineIndex) Overwritten() []string {
	out := make([]string, len(idx.overwritten))
	copy(out, idx.overwritten)

	return out
}

// Names returns every registered definition name, sorted.
func (idx *DefineIndex) Names() []string {
	out := make([]string, 0, len(idx.bodies))
	for name := range idx.bodies {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}
