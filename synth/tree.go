package synth

import (
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/chartschema/chartschema/ir"
	"github.com/chartschema/chartschema/magicschema"
)

// node is the working representation of one segment of the nested
// properties chain spec step 2 describes: leaf holds the schema resolved
// for a direct use of this exact path (nil if this path is only ever an
// ancestor of deeper uses), and children holds the next segment down,
// insertion-ordered so output stays deterministic.
type node struct {
	leaf     *jsonschema.Schema
	children map[string]*node
	order    []string
}

func (n *node) child(key string) *node {
	if n.children == nil {
		n.children = make(map[string]*node)
	}

	c, ok := n.children[key]
	if !ok {
		c = &node{}
		n.children[key] = c
		n.order = append(n.order, key)
	}

	return c
}

// buildTree inserts one resolved leaf per distinct SourceExpr, walking
// (and creating) the segment chain spec step 2 describes.
func buildTree(root *node, path string, leaf *jsonschema.Schema) {
	cur := root

	for _, seg := range strings.Split(path, ".") {
		cur = cur.child(seg)
	}

	cur.leaf = leaf
}

// finalize converts the working tree into Schema values bottom-up,
// attaching each node's required array per spec step 5 and folding in
// any leaf schema recorded directly at an ancestor path (a use of the
// whole subtree alongside uses of its fields) via the same unification
// rule leaves use.
func finalize(n *node, path string, required map[string]bool) *jsonschema.Schema {
	if len(n.children) == 0 {
		if n.leaf != nil {
			return n.leaf
		}

		return magicschema.TrueSchema()
	}

	obj := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: magicschema.FalseSchema(),
		Properties:           make(map[string]*jsonschema.Schema, len(n.order)),
	}

	var req []string

	for _, key := range n.order {
		child := n.children[key]
		childPath := joinPath(path, key)
		childSchema := finalize(child, childPath, required)

		obj.Properties[key] = childSchema
		obj.PropertyOrder = append(obj.PropertyOrder, key)

		if required[childPath] {
			req = append(req, key)
		}
	}

	sort.Strings(req)

	obj.Required = req

	if n.leaf != nil {
		return unify(obj, n.leaf)
	}

	return obj
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}

	return parent + "." + key
}

// computeRequiredSet implements spec step 5: a property (at every level
// of nesting along its dotted path) is required iff some *placed* use at
// that exact path, or at a path beneath it, has an empty guard list -- an
// unguarded deep reference implies every ancestor must exist too.
// Guard-only uses (Path == nil, recorded only so their SourceExpr gets a
// boolean leaf) never contribute to required, even when unguarded
// themselves: a property referenced solely as an `if`/`with` condition is
// still optional.
func computeRequiredSet(uses []ir.ValueUse) map[string]bool {
	required := make(map[string]bool)

	for _, u := range uses {
		if u.SourceExpr == "" || u.Path == nil || !u.Unguarded() {
			continue
		}

		segs := strings.Split(u.SourceExpr, ".")

		for i := range segs {
			required[strings.Join(segs[:i+1], ".")] = true
		}
	}

	return required
}
