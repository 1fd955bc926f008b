package ast

import (
	"fmt"

	goyaml "github.com/goccy/go-yaml/ast"
)

const maxAliasDepth = 32

// buildAnchorMap walks a raw YAML subtree collecting every anchor
// definition, mirroring the anchor/alias resolution pattern used
// elsewhere in this codebase's YAML tooling.
func buildAnchorMap(node goyaml.Node) map[string]goyaml.Node {
	anchors := make(map[string]goyaml.Node)
	goyaml.Walk(&anchorVisitor{anchors: anchors}, node)

	return anchors
}

type anchorVisitor struct {
	anchors map[string]goyaml.Node
}

func (v *anchorVisitor) Visit(node goyaml.Node) goyaml.Visitor {
	if anchor, ok := node.(*goyaml.AnchorNode); ok && anchor.Name != nil {
		v.anchors[anchor.Name.String()] = anchor.Value
	}

	return v
}

func resolveAlias(node goyaml.Node, anchors map[string]goyaml.Node, depth int) goyaml.Node {
	if node == nil || depth > maxAliasDepth {
		return node
	}

	alias, ok := node.(*goyaml.AliasNode)
	if !ok {
		return node
	}

	if alias.Value == nil {
		return nil
	}

	resolved, found := anchors[alias.Value.String()]
	if !found {
		return nil
	}

	return resolveAlias(resolved, anchors, depth+1)
}

func unwrapTagAndAnchor(node goyaml.Node) goyaml.Node {
	for {
		switch n := node.(type) {
		case *goyaml.TagNode:
			node = n.Value
		case *goyaml.AnchorNode:
			node = n.Value
		default:
			return node
		}
	}
}

// convertNode turns a raw goccy/go-yaml node into a fused-tree Node,
// resolving aliases/anchors/tags and splicing in sentinel-substituted
// template content along the way.
func convertNode(raw goyaml.Node, anchors map[string]goyaml.Node, f *fuser, depth int) (Node, error) {
	if raw == nil {
		return &Scalar{Kind: ScalarNull}, nil
	}

	resolved := resolveAlias(raw, anchors, 0)
	if resolved == nil {
		return &Scalar{Kind: ScalarNull}, nil
	}

	resolved = unwrapTagAndAnchor(resolved)
	if resolved == nil {
		return &Scalar{Kind: ScalarNull}, nil
	}

	switch n := resolved.(type) {
	case *goyaml.MappingNode:
		return convertMapping(n.Values, anchors, f, depth)
	case *goyaml.MappingValueNode:
		return convertMapping([]*goyaml.MappingValueNode{n}, anchors, f, depth)
	case *goyaml.SequenceNode:
		return convertSequence(n, anchors, f, depth)
	case *goyaml.NullNode:
		return &Scalar{Kind: ScalarNull}, nil
	case *goyaml.BoolNode:
		return &Scalar{Kind: ScalarBool, Text: scalarText(n)}, nil
	case *goyaml.IntegerNode:
		return &Scalar{Kind: ScalarInt, Text: scalarText(n)}, nil
	case *goyaml.FloatNode, *goyaml.InfinityNode, *goyaml.NanNode:
		return &Scalar{Kind: ScalarFloat, Text: scalarText(n)}, nil
	case *goyaml.StringNode:
		return stringOrSentinel(n.Value, f), nil
	case *goyaml.LiteralNode:
		return stringOrSentinel(scalarText(n), f), nil
	case *goyaml.MergeKeyNode:
		return &Scalar{Kind: ScalarNull}, nil
	default:
		return &Scalar{Kind: ScalarString, Text: scalarText(resolved)}, nil
	}
}

// stringOrSentinel checks whether a parsed scalar's literal text is one
// of our sentinel placeholders and, if so, substitutes the fused node it
// stands for instead of a plain string scalar.
func stringOrSentinel(text string, f *fuser) Node {
	if n, ok := f.resolve(text); ok {
		return n
	}

	return &Scalar{Kind: ScalarString, Text: text}
}

func scalarText(n goyaml.Node) string {
	v := n.GetValue()
	if v == nil {
		return ""
	}

	return fmt.Sprint(v)
}

// convertMapping builds a Mapping node from raw pairs, splicing in merge
// key (`<<`) sources, splicing in whole-entry control nodes (a sentinel
// key that stands for an entire `{{if}}`/`{{range}}`/`{{with}}` wrapping
// one or more sibling entries, rather than a single value) as direct
// Items siblings, and normalizing omitted/null values to a nil Value.
func convertMapping(values []*goyaml.MappingValueNode, anchors map[string]goyaml.Node, f *fuser, depth int) (Node, error) {
	items := make([]Node, 0, len(values))

	for _, mvn := range values {
		if mvn == nil {
			continue
		}

		if _, ok := resolveAlias(mvn.Key, anchors, 0).(*goyaml.MergeKeyNode); ok {
			merged, err := mergeKeyPairs(mvn.Value, anchors, f, depth)
			if err != nil {
				return nil, err
			}

			for _, p := range merged {
				items = append(items, p)
			}

			continue
		}

		if ctrl, ok := wholeEntryControl(mvn.Key, anchors, f); ok {
			items = append(items, ctrl)

			continue
		}

		pair, err := convertPair(mvn, anchors, f, depth)
		if err != nil {
			return nil, err
		}

		items = append(items, pair)
	}

	return &Mapping{Items: items}, nil
}

// wholeEntryControl recognizes a mapping key that is itself the
// sentinel for a control node the fuser emitted at block-entry
// position (see fuser.flattenNode's atLineStart handling): such a key
// stands for the control node wrapping one or more complete sibling
// entries, not for a single value, so it is spliced into the parent
// Mapping's Items directly rather than becoming a Pair.
func wholeEntryControl(rawKey goyaml.Node, anchors map[string]goyaml.Node, f *fuser) (Node, bool) {
	keyResolved := unwrapTagAndAnchor(resolveAlias(rawKey, anchors, 0))

	sn, ok := keyResolved.(*goyaml.StringNode)
	if !ok {
		return nil, false
	}

	node, isSentinel := f.resolve(sn.Value)
	if !isSentinel {
		return nil, false
	}

	switch node.(type) {
	case *If, *Range, *With, *TemplateCall:
		return node, true
	default:
		return nil, false
	}
}

// convertPair converts one mapping entry. Per the fused tree's invariant,
// Key is always a *Scalar or *HelmExpr (a dynamic, template-expression key
// keeps its HelmExpr rather than collapsing to nil), and a YAML-null value
// -- whether explicit (`null`, `~`) or simply omitted -- normalizes to a
// nil Value rather than a null-kind Scalar.
func convertPair(mvn *goyaml.MappingValueNode, anchors map[string]goyaml.Node, f *fuser, depth int) (*Pair, error) {
	pair := &Pair{}

	keyResolved := unwrapTagAndAnchor(resolveAlias(mvn.Key, anchors, 0))
	if sn, ok := keyResolved.(*goyaml.StringNode); ok {
		if node, isSentinel := f.resolve(sn.Value); isSentinel {
			pair.Key = node
		} else {
			pair.Key = &Scalar{Kind: ScalarString, Text: sn.Value}
		}
	} else if keyResolved != nil {
		key, err := convertNode(keyResolved, anchors, f, depth+1)
		if err != nil {
			return nil, err
		}

		pair.Key = key
	}

	if isNullValue(mvn.Value, anchors) {
		pair.Value = nil

		return pair, nil
	}

	value, err := convertNode(mvn.Value, anchors, f, depth+1)
	if err != nil {
		return nil, err
	}

	pair.Value = value

	return pair, nil
}

func isNullValue(raw goyaml.Node, anchors map[string]goyaml.Node) bool {
	if raw == nil {
		return true
	}

	resolved := unwrapTagAndAnchor(resolveAlias(raw, anchors, 0))
	if resolved == nil {
		return true
	}

	_, ok := resolved.(*goyaml.NullNode)

	return ok
}

// mergeKeyPairs resolves a `<<: *anchor` or `<<: [*a, *b]` merge key's
// source into the list of pairs it contributes to the enclosing mapping.
func mergeKeyPairs(raw goyaml.Node, anchors map[string]goyaml.Node, f *fuser, depth int) ([]*Pair, error) {
	resolved := unwrapTagAndAnchor(resolveAlias(raw, anchors, 0))

	switch n := resolved.(type) {
	case *goyaml.MappingNode:
		node, err := convertMapping(n.Values, anchors, f, depth+1)
		if err != nil {
			return nil, err
		}

		m, _ := node.(*Mapping)
		if m == nil {
			return nil, nil
		}

		pairs := make([]*Pair, 0, len(m.Items))

		for _, it := range m.Items {
			if p, ok := it.(*Pair); ok {
				pairs = append(pairs, p)
			}
		}

		return pairs, nil
	case *goyaml.SequenceNode:
		var out []*Pair

		for _, v := range n.Values {
			more, err := mergeKeyPairs(v, anchors, f, depth+1)
			if err != nil {
				return nil, err
			}

			out = append(out, more...)
		}

		return out, nil
	default:
		return nil, nil
	}
}

// convertSequence converts a YAML sequence. A truly absent element (a
// bare "-" with nothing following) normalizes to an empty-string scalar
// per the fused tree's Item rule; an element that is an explicit YAML
// null keeps its null kind, since that rule is specific to Item, not to
// Pair values.
func convertSequence(n *goyaml.SequenceNode, anchors map[string]goyaml.Node, f *fuser, depth int) (Node, error) {
	items := make([]*Item, 0, len(n.Values))

	for _, v := range n.Values {
		if v == nil {
			items = append(items, &Item{Value: &Scalar{Kind: ScalarString, Text: ""}})

			continue
		}

		resolved := unwrapTagAndAnchor(resolveAlias(v, anchors, 0))
		if _, ok := resolved.(*goyaml.NullNode); ok {
			items = append(items, &Item{Value: &Scalar{Kind: ScalarNull}})

			continue
		}

		val, err := convertNode(v, anchors, f, depth+1)
		if err != nil {
			return nil, err
		}

		items = append(items, &Item{Value: val})
	}

	return &Sequence{Items: items}, nil
}
