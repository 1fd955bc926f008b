package ast

import (
	"fmt"
	"strconv"
	"strings"
	"text/template/parse"
)

// sentinelRune is a private-use codepoint that never appears in ordinary
// chart source, used to delimit the placeholder tokens substituted for
// template actions before the flattened body is handed to the YAML
// grammar. Two sentinels never collide with real YAML content because
// plain scalars containing this rune cannot be produced by hand-written
// manifests.
const sentinelRune = ''

type sentinelKind byte

const (
	sentinelExpr sentinelKind = 'E'
	sentinelCmt  sentinelKind = 'C'
	sentinelCtrl sentinelKind = 'X'
)

// fuser flattens a parsed Go-template tree into a single text body with
// sentinel placeholders standing in for every template action, and
// remembers what each placeholder represents so the YAML conversion pass
// can splice the real fused node back in.
type fuser struct {
	exprs    map[string]*HelmExpr
	cmts     map[string]*HelmComment
	ctrls    map[string]Node
	counter  int
	funcsSet map[string]any
}

func newFuser() *fuser {
	return &fuser{
		exprs: make(map[string]*HelmExpr),
		cmts:  make(map[string]*HelmComment),
		ctrls: make(map[string]Node),
	}
}

func (f *fuser) token(kind sentinelKind) string {
	f.counter++

	return fmt.Sprintf("%c%c%d%c", sentinelRune, kind, f.counter, sentinelRune)
}

func (f *fuser) sentinelKind(tok string) (sentinelKind, bool) {
	r := []rune(tok)
	if len(r) < 4 || r[0] != sentinelRune || r[len(r)-1] != sentinelRune {
		return 0, false
	}

	return sentinelKind(r[1]), true
}

// writeCtrlSentinel records an If/Range/With node and writes its
// placeholder into buf. When the control sits at the very start of a
// line (nothing but indentation precedes it since the last newline),
// it is wrapping one or more whole mapping entries rather than a
// single value, so it is written as a self-contained "token: null"
// mapping pair instead of bare text that would leave a colon-less line
// sitting among real "key: value" siblings. node_convert's
// wholeEntryControl recognizes such a key and splices the control node
// back in as a Mapping Items sibling instead of a Pair.
//
// This targets the common shape of a conditionally-present manifest
// field (apiVersion/kind, a labels block) at mapping-entry position; a
// range/if wrapping whole sequence items at the same textual position
// is a narrower case this heuristic does not attempt to distinguish
// from a mapping entry, since that requires knowing what the enclosing
// key expects before the YAML pass has run.
func (f *fuser) writeCtrlSentinel(buf *strings.Builder, node Node) {
	tok := f.token(sentinelCtrl)
	f.ctrls[tok] = node

	if atLineStart(buf) {
		buf.WriteString(tok)
		buf.WriteString(": null")

		return
	}

	buf.WriteString(tok)
}

// atLineStart reports whether buf's content since the last newline is
// empty or whitespace-only, i.e. nothing but indentation precedes the
// position about to be written.
func atLineStart(buf *strings.Builder) bool {
	s := buf.String()
	i := strings.LastIndexByte(s, '\n')
	line := s[i+1:]

	return strings.TrimSpace(line) == ""
}

func (f *fuser) resolve(tok string) (Node, bool) {
	if n, ok := f.exprs[tok]; ok {
		return n, true
	}

	if n, ok := f.cmts[tok]; ok {
		return n, true
	}

	if n, ok := f.ctrls[tok]; ok {
		return n, true
	}

	return nil, false
}

// flatten writes the textual reconstruction of list, with every template
// action replaced by a sentinel token, into buf. Control nodes are fully
// fused (recursively) before their placeholder is emitted, so the YAML
// parse sees a flat scalar where the control's subtree will later be
// reattached.
func (f *fuser) flatten(buf *strings.Builder, list *parse.ListNode, treeSet map[string]*parse.Tree, blockNames map[string]bool, path []string) error {
	if list == nil {
		return nil
	}

	for _, n := range list.Nodes {
		if err := f.flattenNode(buf, n, treeSet, blockNames, path); err != nil {
			return err
		}
	}

	return nil
}

func (f *fuser) flattenNode(buf *strings.Builder, n parse.Node, treeSet map[string]*parse.Tree, blockNames map[string]bool, path []string) error {
	switch v := n.(type) {
	case *parse.TextNode:
		buf.Write(v.Text)
	case *parse.ActionNode:
		expr := &HelmExpr{Text: pipeText(v.Pipe), Pipe: v.Pipe}
		tok := f.token(sentinelExpr)
		f.exprs[tok] = expr
		buf.WriteString(tok)
	case *parse.CommentNode:
		cmt := &HelmComment{Text: strings.TrimSpace(v.Text)}
		tok := f.token(sentinelCmt)
		f.cmts[tok] = cmt
		buf.WriteString(tok)
	case *parse.IfNode:
		built, err := f.buildIf(v, treeSet, blockNames, path)
		if err != nil {
			return err
		}

		f.writeCtrlSentinel(buf, built)
	case *parse.RangeNode:
		built, err := f.buildRange(v, treeSet, blockNames, path)
		if err != nil {
			return err
		}

		f.writeCtrlSentinel(buf, built)
	case *parse.WithNode:
		built, err := f.buildWith(v, treeSet, blockNames, path)
		if err != nil {
			return err
		}

		f.writeCtrlSentinel(buf, built)
	case *parse.TemplateNode:
		call := &TemplateCall{Name: v.Name, ArgText: pipeText(v.Pipe), Arg: v.Pipe}
		f.writeCtrlSentinel(buf, call)
	default:
		// Best-effort fallback for node kinds with no structural bearing on
		// the YAML shape (e.g. a bare string constant action body).
		if s, ok := n.(fmt.Stringer); ok {
			buf.WriteString(s.String())
		}
	}

	return nil
}

func (f *fuser) buildIf(n *parse.IfNode, treeSet map[string]*parse.Tree, blockNames map[string]bool, path []string) (*If, error) {
	branch := Branch{CondText: pipeText(n.Pipe), Cond: n.Pipe}

	var err error

	branch.Body, err = f.fuseSubList(n.List, treeSet, blockNames, path)
	if err != nil {
		return nil, err
	}

	out := &If{Branches: []Branch{branch}}

	if n.ElseList != nil && len(n.ElseList.Nodes) == 1 {
		if nested, ok := n.ElseList.Nodes[0].(*parse.IfNode); ok {
			nestedIf, nestedErr := f.buildIf(nested, treeSet, blockNames, path)
			if nestedErr != nil {
				return nil, nestedErr
			}

			out.Branches = append(out.Branches, nestedIf.Branches...)
			out.Else = nestedIf.Else

			return out, nil
		}
	}

	if n.ElseList != nil {
		out.Else, err = f.fuseSubList(n.ElseList, treeSet, blockNames, path)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (f *fuser) buildRange(n *parse.RangeNode, treeSet map[string]*parse.Tree, blockNames map[string]bool, path []string) (*Range, error) {
	out := &Range{CondText: pipeText(n.Pipe), Cond: n.Pipe}

	if n.Pipe != nil {
		switch len(n.Pipe.Decl) {
		case 1:
			out.ValueVar = varName(n.Pipe.Decl[0])
		case 2:
			out.KeyVar = varName(n.Pipe.Decl[0])
			out.ValueVar = varName(n.Pipe.Decl[1])
		}
	}

	var err error

	out.Body, err = f.fuseSubList(n.List, treeSet, blockNames, path)
	if err != nil {
		return nil, err
	}

	if n.ElseList != nil {
		out.Else, err = f.fuseSubList(n.ElseList, treeSet, blockNames, path)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (f *fuser) buildWith(n *parse.WithNode, treeSet map[string]*parse.Tree, blockNames map[string]bool, path []string) (*With, error) {
	out := &With{CondText: pipeText(n.Pipe), Cond: n.Pipe}

	var err error

	out.Body, err = f.fuseSubList(n.List, treeSet, blockNames, path)
	if err != nil {
		return nil, err
	}

	if n.ElseList != nil {
		out.Else, err = f.fuseSubList(n.ElseList, treeSet, blockNames, path)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// fuseSubList flattens a nested control-flow body to a YAML node of its
// own: it recurses fully (sentinels resolved immediately, since a nested
// body is self-contained YAML once its own actions are replaced) rather
// than deferring to the outer flatten pass, because the outer pass only
// ever sees the single sentinel standing in for this whole branch.
func (f *fuser) fuseSubList(list *parse.ListNode, treeSet map[string]*parse.Tree, blockNames map[string]bool, path []string) (Node, error) {
	var buf strings.Builder

	if err := f.flatten(&buf, list, treeSet, blockNames, path); err != nil {
		return nil, err
	}

	return parseYAMLBody(buf.String(), f)
}

func varName(v *parse.VariableNode) string {
	if v == nil || len(v.Ident) == 0 {
		return ""
	}

	return strings.TrimPrefix(v.Ident[0], "$")
}

func pipeText(p *parse.PipeNode) string {
	if p == nil {
		return ""
	}

	return p.String()
}

// blockNamesIn scans raw for `{{ block "name" ... }}` actions, since the
// standard parser's treeSet does not otherwise distinguish a block's
// named tree from a plain define's.
func blockNamesIn(raw string) map[string]bool {
	out := make(map[string]bool)

	const kw = "block"

	for i := 0; i < len(raw); {
		j := strings.Index(raw[i:], "{{")
		if j < 0 {
			break
		}

		start := i + j + 2
		k := strings.Index(raw[start:], "}}")
		if k < 0 {
			break
		}

		action := strings.TrimSpace(strings.Trim(raw[start:start+k], "- \t\r\n"))
		if strings.HasPrefix(action, kw) {
			rest := strings.TrimSpace(action[len(kw):])
			if name, ok := leadingQuotedString(rest); ok {
				out[name] = true
			}
		}

		i = start + k + 2
	}

	return out
}

func leadingQuotedString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || s[0] != '"' {
		return "", false
	}

	for i := 1; i < len(s); i++ {
		if s[i] == '"' && s[i-1] != '\\' {
			unquoted, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return s[1:i], true
			}

			return unquoted, true
		}
	}

	return "", false
}
