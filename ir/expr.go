package ir

import (
	"strconv"
	"strings"
	"text/template/parse"

	"github.com/chartschema/chartschema/ast"
)

// dot is the walker's current dot-context: whether it still resolves
// somewhere under .Values, and if so, the dotted path (relative to
// Values) it now stands for. A dot rebound to something outside Values
// (e.g. `with .Release`) is tracked as not-under-Values, so field
// accesses against it are silently dropped rather than misattributed.
type dot struct {
	underValues bool
	path        string
}

// rootDot is the template's top-level context: .Values is reachable from
// it, but it is not itself under Values, so `.Release.Name` and the like
// resolve to nothing.
func rootDot() dot { return dot{underValues: false, path: ""} }

// extend returns the dot produced by appending idents (already stripped
// of any leading "Values") to the current dot path.
func (d dot) extend(idents ...string) dot {
	if !d.underValues {
		return d
	}

	segs := make([]string, 0, len(idents)+1)
	if d.path != "" {
		segs = append(segs, d.path)
	}

	segs = append(segs, idents...)

	return dot{underValues: true, path: strings.Join(segs, ".")}
}

// reparsePipe re-parses standalone pipeline text (e.g. an include
// argument synthesized during sub-walk expansion) using the same
// function-name table the fused parser itself uses.
func reparsePipe(text string) *parse.PipeNode {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	treeSet, err := parse.Parse("expr", "{{ "+text+" }}", "{{", "}}", ast.TemplateFuncs())
	if err != nil {
		return nil
	}

	root := treeSet["expr"]
	if root == nil || root.Root == nil || len(root.Root.Nodes) == 0 {
		return nil
	}

	action, ok := root.Root.Nodes[0].(*parse.ActionNode)
	if !ok {
		return nil
	}

	return action.Pipe
}

// selectorPath resolves a single argument node (the head of a pipeline
// command, or an operand of not/eq/or) to a Values-relative dotted path,
// given the current dot binding and variable table. ok is false when the
// node is not a Values-rooted reference (a field chain off an unrelated
// dot, a literal, Release/Chart/Capabilities accessors, etc).
func selectorPath(n parse.Node, d dot, vars map[string]dot) (string, bool) {
	switch v := n.(type) {
	case *parse.FieldNode:
		return resolveIdentChain(v.Ident, d)
	case *parse.ChainNode:
		base, ok := chainBase(v.Node, vars)
		if !ok {
			return "", false
		}

		return resolveFields(base, v.Field)
	case *parse.VariableNode:
		if len(v.Ident) == 0 {
			return "", false
		}

		name := v.Ident[0]
		if name == "$" {
			return resolveIdentChain(v.Ident[1:], rootDot())
		}

		bound, ok := vars[strings.TrimPrefix(name, "$")]
		if !ok {
			return "", false
		}

		if len(v.Ident) > 1 {
			return resolveFields(bound, v.Ident[1:])
		}

		if !bound.underValues {
			return "", false
		}

		return bound.path, true
	case *parse.PipeNode:
		return firstSelectorInPipe(v, d, vars)
	default:
		return "", false
	}
}

func chainBase(n parse.Node, vars map[string]dot) (dot, bool) {
	vn, ok := n.(*parse.VariableNode)
	if !ok || len(vn.Ident) == 0 {
		return dot{}, false
	}

	name := vn.Ident[0]
	if name == "$" {
		return rootDot(), true
	}

	bound, ok := vars[strings.TrimPrefix(name, "$")]

	return bound, ok
}

func resolveFields(base dot, fields []string) (string, bool) {
	if len(fields) > 0 && fields[0] == "Values" {
		return resolveIdentChain(fields, rootDot())
	}

	if !base.underValues {
		return "", false
	}

	extended := base.extend(fields...)
	if !extended.underValues {
		return "", false
	}

	return extended.path, true
}

// resolveIdentChain handles a plain `.A.B.C` field chain (FieldNode.Ident)
// against the current dot. A chain literally beginning with "Values" is
// always treated as an absolute reference to the chart's top-level
// values, per spec: this is the overwhelmingly common convention even
// inside a rebound with/range body.
func resolveIdentChain(idents []string, d dot) (string, bool) {
	if len(idents) > 0 && idents[0] == "Values" {
		return strings.Join(idents[1:], "."), true
	}

	if !d.underValues {
		return "", false
	}

	extended := d.extend(idents...)

	return extended.path, true
}

// firstSelectorInPipe returns the first Values selector found in a
// parenthesized sub-pipeline argument, e.g. `(default .Values.a .Values.b)`.
func firstSelectorInPipe(p *parse.PipeNode, d dot, vars map[string]dot) (string, bool) {
	if p == nil {
		return "", false
	}

	for _, cmd := range p.Cmds {
		for _, arg := range cmd.Args {
			if path, ok := selectorPath(arg, d, vars); ok {
				return path, true
			}
		}
	}

	return "", false
}

// commandKind classifies the head of a pipeline stage.
type commandKind int

const (
	cmdSelector commandKind = iota
	cmdNot
	cmdEq
	cmdOr
	cmdDefault
	cmdCoalesce
	cmdToYAML
	cmdToJSON
	cmdInclude
	cmdTemplate
	cmdNumericFilter
	cmdStringFilter
	cmdIndent
	cmdOther
)

func classify(cmd *parse.CommandNode) commandKind {
	if cmd == nil || len(cmd.Args) == 0 {
		return cmdOther
	}

	ident, ok := cmd.Args[0].(*parse.IdentifierNode)
	if !ok {
		return cmdSelector
	}

	switch ident.Ident {
	case "not":
		return cmdNot
	case "eq":
		return cmdEq
	case "or":
		return cmdOr
	case "default":
		return cmdDefault
	case "coalesce":
		return cmdCoalesce
	case "toYaml":
		return cmdToYAML
	case "toJson":
		return cmdToJSON
	case "include":
		return cmdInclude
	case "template":
		return cmdTemplate
	case "int", "atoi", "int64", "float64":
		return cmdNumericFilter
	case "quote", "upper", "lower", "trim", "trimSuffix", "trimPrefix":
		return cmdStringFilter
	case "nindent", "indent":
		return cmdIndent
	default:
		return cmdOther
	}
}

// filterTypeHint classifies a single pipeline command as a type-coercing
// filter, per spec step 3.
func filterTypeHint(cmd *parse.CommandNode) TypeHint {
	if cmd == nil || len(cmd.Args) == 0 {
		return HintNone
	}

	ident, ok := cmd.Args[0].(*parse.IdentifierNode)
	if !ok {
		return HintNone
	}

	switch ident.Ident {
	case "int", "atoi", "int64":
		return HintInteger
	case "float64":
		return HintNumber
	case "quote", "upper", "lower", "trim", "trimSuffix", "trimPrefix":
		return HintString
	default:
		return HintNone
	}
}

// trailingTypeHint scans every pipeline stage after the leading selector
// for a recognized type-coercing filter, keeping the last match -- the
// filter closest to the pipe's output is the one that actually determines
// the rendered value's type, e.g. `.Values.replicas | int | quote` ends
// up a string despite the earlier `int`.
func trailingTypeHint(p *parse.PipeNode) TypeHint {
	hint := HintNone

	for _, cmd := range p.Cmds[1:] {
		if h := filterTypeHint(cmd); h != HintNone {
			hint = h
		}
	}

	return hint
}

// literalText returns the literal text of a string/number/bool argument,
// or ok=false if n is not a literal.
func literalText(n parse.Node) (string, bool) {
	switch v := n.(type) {
	case *parse.StringNode:
		return v.Text, true
	case *parse.NumberNode:
		return v.Text, true
	case *parse.BoolNode:
		return strconv.FormatBool(v.True), true
	default:
		return "", false
	}
}
