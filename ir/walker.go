package ir

import (
	"strings"
	"text/template/parse"

	"github.com/chartschema/chartschema/ast"
)

// maxWalkDepth bounds recursion of the symbolic walker itself, separate
// from the schema provider's $ref expansion cap.
const maxWalkDepth = 512

// maxVisitedDefines is a defensive ceiling: visited_defines is a set, so
// this only guards against the set itself growing unboundedly across a
// single recursion branch (practically, chart helper chains are a few
// levels deep at most).
const maxVisitedDefines = 256

type state struct {
	path      YamlPath
	guards    []Guard
	dot       dot
	variables map[string]dot
	resource  *ResourceRef
	visited   map[string]bool
	depth     int
}

func (s state) child() state {
	return state{
		path:      s.path,
		guards:    s.guards,
		dot:       s.dot,
		variables: s.variables,
		resource:  s.resource,
		visited:   s.visited,
		depth:     s.depth + 1,
	}
}

func (s state) withPath(p YamlPath) state {
	c := s
	c.path = p

	return c
}

func (s state) withGuard(g Guard) state {
	c := s
	c.guards = append(slicesClone(s.guards), g)

	return c
}

func (s state) withDot(d dot) state {
	c := s
	c.dot = d

	return c
}

func (s state) withVar(name string, d dot) state {
	c := s
	vars := make(map[string]dot, len(s.variables)+1)

	for k, v := range s.variables {
		vars[k] = v
	}

	vars[name] = d
	c.variables = vars

	return c
}

func slicesClone[T any](in []T) []T {
	if in == nil {
		return nil
	}

	out := make([]T, len(in))
	copy(out, in)

	return out
}

// collector accumulates emitted uses and the active DefineIndex for
// include/template expansion.
type collector struct {
	uses    []ValueUse
	defines *ast.DefineIndex
}

func (c *collector) emit(u ValueUse) {
	c.uses = append(c.uses, u)
}

// Generate walks a single fused template tree and produces its sorted,
// deduplication-free list of value uses. defines may be nil if the
// template is known not to use include/template.
func Generate(root ast.Node, defines *ast.DefineIndex) ([]ValueUse, error) {
	c := &collector{defines: defines}
	st := state{dot: rootDot(), variables: map[string]dot{}, visited: map[string]bool{}}

	walk(c, st, root)

	out := c.uses
	SortValueUses(out)

	return out, nil
}

func walk(c *collector, st state, n ast.Node) {
	if n == nil || st.depth > maxWalkDepth {
		return
	}

	switch v := n.(type) {
	case *ast.Stream:
		for _, d := range v.Documents {
			walk(c, st.child(), d)
		}
	case *ast.Document:
		doc := st.child()
		doc.resource = detectResource(v.Body)
		walk(c, doc, v.Body)
	case *ast.Mapping:
		walkMapping(c, st, v)
	case *ast.Sequence:
		walkSequence(c, st, v)
	case *ast.If:
		walkIf(c, st, v)
	case *ast.Range:
		walkRange(c, st, v)
	case *ast.With:
		walkWith(c, st, v)
	case *ast.HelmExpr:
		emitExprAtStatementPosition(c, st, v)
	case *ast.TemplateCall:
		handleCallStatement(c, st, v)
	case *ast.Define:
		walk(c, st.child(), v.Body)
	case *ast.Block:
		walk(c, st.child(), v.Body)
	case *ast.Unknown:
		for _, ch := range v.Children {
			walk(c, st.child(), ch)
		}
	case *ast.Scalar, *ast.HelmComment:
		// No selector here.
	}
}

func walkMapping(c *collector, st state, m *ast.Mapping) {
	for _, item := range m.Items {
		switch v := item.(type) {
		case *ast.Pair:
			walkPair(c, st, v)
		case *ast.TemplateCall:
			handleCallStatement(c, st, v)
		default:
			// *ast.If / *ast.Range / *ast.With wrapping one or more whole
			// sibling entries: walk at the unchanged current path, so the
			// guard it contributes scopes exactly the entries it wraps.
			walk(c, st.child(), v)
		}
	}
}

func walkPair(c *collector, st state, p *ast.Pair) {
	if p == nil {
		return
	}

	var childPath YamlPath

	switch k := p.Key.(type) {
	case *ast.Scalar:
		childPath = st.path.Append(k.Text)
	case *ast.HelmExpr:
		// Dynamic key: value uses still count, but the path segment is
		// elided, so the sub-walk continues at the parent's own path.
		emitExprValue(c, st, k, st.path)
		childPath = st.path
	default:
		childPath = st.path
	}

	if p.Value == nil {
		return
	}

	childState := st.child().withPath(childPath)
	walkValue(c, childState, p.Value)
}

// walkValue walks a node that occupies a YAML-scalar-or-structure value
// position (a Pair's value, or a Sequence item), so a HelmExpr found here
// emits a placed use rather than an unplaced, statement-position one.
func walkValue(c *collector, st state, n ast.Node) {
	switch v := n.(type) {
	case *ast.HelmExpr:
		emitExprValue(c, st, v, st.path)
	case *ast.TemplateCall:
		handleCallValue(c, st, v, st.path)
	default:
		walk(c, st, n)
	}
}

func walkSequence(c *collector, st state, seq *ast.Sequence) {
	itemPath := st.path.AsArrayElement()

	for _, item := range seq.Items {
		if item == nil || item.Value == nil {
			continue
		}

		walkValue(c, st.child().withPath(itemPath), item.Value)
	}
}

func walkIf(c *collector, st state, n *ast.If) {
	cur := st

	for _, br := range n.Branches {
		guard, ok := buildGuard(br.Cond, cur.dot, cur.variables)
		if ok {
			emitGuardUses(c, cur, guard)

			thenState := cur.child().withGuard(guard)
			walk(c, thenState, br.Body)
		} else {
			walk(c, cur.child(), br.Body)
		}

		if ok {
			if neg, hasNeg := guard.Negate(); hasNeg {
				cur = cur.withGuard(neg)
			}
		}
	}

	if n.Else != nil {
		walk(c, cur.child(), n.Else)
	}
}

func walkWith(c *collector, st state, n *ast.With) {
	path, ok := selectorPath(pipeHead(n.Cond), st.dot, st.variables)

	child := st.child()

	if ok {
		emitGuardUses(c, st, Truthy(path))
		child = child.withGuard(Truthy(path)).withDot(dot{underValues: true, path: path})
	} else {
		child = child.withDot(dot{underValues: false})
	}

	walk(c, child, n.Body)

	if n.Else != nil {
		walk(c, st.child(), n.Else)
	}
}

func walkRange(c *collector, st state, n *ast.Range) {
	path, ok := selectorPath(pipeHead(n.Cond), st.dot, st.variables)

	child := st.child()

	if ok {
		emitGuardUses(c, st, Truthy(path))

		elemPath := st.path
		if path != "" {
			elemPath = YamlPath(strings.Split(path, "."))
		}

		elemPath = elemPath.AsArrayElement()

		child = child.withGuard(Truthy(path)).
			withDot(dot{underValues: true, path: path}).
			withPath(elemPath)

		if n.ValueVar != "" {
			child = child.withVar(n.ValueVar, dot{underValues: true, path: path})
		}

		if n.KeyVar != "" {
			child = child.withVar(n.KeyVar, dot{underValues: false})
		}
	} else {
		child = child.withDot(dot{underValues: false})
	}

	walk(c, child, n.Body)

	if n.Else != nil {
		walk(c, st.child(), n.Else)
	}
}

func pipeHead(p *parse.PipeNode) *parse.PipeNode { return p }

// buildGuard classifies an if/with/range condition pipeline into one of
// the four Guard shapes, defaulting to Truthy on the first selector found
// for anything more complex (spec's deliberate under-approximation).
func buildGuard(p *parse.PipeNode, d dot, vars map[string]dot) (Guard, bool) {
	if p == nil || len(p.Cmds) == 0 {
		return Guard{}, false
	}

	cmd := p.Cmds[0]

	switch classify(cmd) {
	case cmdNot:
		if len(cmd.Args) < 2 {
			return Guard{}, false
		}

		path, ok := selectorPath(cmd.Args[1], d, vars)
		if !ok {
			return Guard{}, false
		}

		return Not(path), true
	case cmdEq:
		if len(cmd.Args) < 3 {
			return Guard{}, false
		}

		path, ok := selectorPath(cmd.Args[1], d, vars)
		if !ok {
			path, ok = selectorPath(cmd.Args[2], d, vars)
			if !ok {
				return Guard{}, false
			}

			lit, litOK := literalText(cmd.Args[1])
			if !litOK {
				return Truthy(path), true
			}

			return Eq(path, lit), true
		}

		lit, litOK := literalText(cmd.Args[2])
		if !litOK {
			return Truthy(path), true
		}

		return Eq(path, lit), true
	case cmdOr:
		var paths []string

		for _, arg := range cmd.Args[1:] {
			if path, ok := selectorPath(arg, d, vars); ok {
				paths = append(paths, path)
			}
		}

		if len(paths) == 0 {
			return Guard{}, false
		}

		return Or(paths), true
	default:
		if path, ok := firstSelectorInPipe(p, d, vars); ok {
			return Truthy(path), true
		}

		return Guard{}, false
	}
}

// emitGuardUses implements spec's rule that every `.Values.*` path tested
// by a guard also contributes an unplaced, unguarded-by-itself use (but
// still carrying the guards active before this one).
func emitGuardUses(c *collector, st state, g Guard) {
	for _, path := range g.ValuePaths() {
		c.emit(ValueUse{
			SourceExpr: path,
			Path:       nil,
			Kind:       KindScalar,
			Guards:     slicesClone(st.guards),
			Resource:   nil,
		})
	}
}

func emitExprAtStatementPosition(c *collector, st state, e *ast.HelmExpr) {
	handleExpr(c, st, e, nil, true)
}

func emitExprValue(c *collector, st state, e *ast.HelmExpr, path YamlPath) {
	handleExpr(c, st, e, path, false)
}

func handleCallStatement(c *collector, st state, t *ast.TemplateCall) {
	expandCall(c, st, t, nil)
}

func handleCallValue(c *collector, st state, t *ast.TemplateCall, path YamlPath) {
	expandCall(c, st, t, path)
}

// handleExpr tokenizes a captured HelmExpr's pipeline and emits the
// appropriate ValueUse(s), per spec's expression-parsing rules. statement
// is unused directly -- callers already encode statement-vs-value
// position via path being nil -- but is kept for readability at call
// sites.
func handleExpr(c *collector, st state, e *ast.HelmExpr, path YamlPath, statement bool) {
	_ = statement

	p := e.Pipe
	if p == nil {
		p = reparsePipe(e.Text)
	}

	if p == nil || len(p.Cmds) == 0 {
		return
	}

	head := p.Cmds[0]

	switch classify(head) {
	case cmdInclude, cmdTemplate:
		handleIncludeLikeCommand(c, st, head, path)
	case cmdDefault, cmdCoalesce:
		for _, arg := range head.Args[1:] {
			if valuePath, ok := selectorPath(arg, st.dot, st.variables); ok {
				emitUse(c, st, valuePath, path, KindScalar)
			}
		}
	case cmdToYAML, cmdToJSON:
		if len(head.Args) > 1 {
			if valuePath, ok := selectorPath(head.Args[1], st.dot, st.variables); ok {
				emitUse(c, st, valuePath, path, KindFragment)
			}
		}
	default:
		if valuePath, ok := selectorPath(head.Args[0], st.dot, st.variables); ok {
			kind := KindScalar
			if hasTrailingFragmentFilter(p) {
				kind = KindFragment
			}

			emitUseWithHint(c, st, valuePath, path, kind, trailingTypeHint(p))
		}
	}
}

func hasTrailingFragmentFilter(p *parse.PipeNode) bool {
	if len(p.Cmds) == 0 {
		return false
	}

	last := p.Cmds[len(p.Cmds)-1]

	switch classify(last) {
	case cmdIndent:
		return len(p.Cmds) >= 2 && classify(p.Cmds[len(p.Cmds)-2]) == cmdToYAML
	default:
		return false
	}
}

// emitUse records a use keyed by its resolved .Values-relative dotted
// path (valuePath becomes SourceExpr, the property this use contributes
// to in the synthesized values schema). path is the use's placement in
// the rendered manifest, consulted only by the schema provider for a
// type hint; nil for a statement-position reference.
func emitUse(c *collector, st state, valuePath string, path YamlPath, kind ValueKind) {
	emitUseWithHint(c, st, valuePath, path, kind, HintNone)
}

// emitUseWithHint is emitUse plus a type hint derived from the
// expression's own pipeline filters (spec step 3), applied by the
// synthesizer when the schema provider has nothing more specific to say.
func emitUseWithHint(c *collector, st state, valuePath string, path YamlPath, kind ValueKind, hint TypeHint) {
	c.emit(ValueUse{
		SourceExpr: valuePath,
		Path:       path,
		Kind:       kind,
		Guards:     slicesClone(st.guards),
		Resource:   st.resource,
		TypeHint:   hint,
	})
}

// handleIncludeLikeCommand expands `include "name" arg` / `template "name" arg`
// into a synthetic sub-walk over the named define's body, with dot rebound
// to the evaluated arg expression and cycle-breaking via visited_defines.
func handleIncludeLikeCommand(c *collector, st state, cmd *parse.CommandNode, path YamlPath) {
	if c.defines == nil || len(cmd.Args) < 2 {
		return
	}

	name, ok := literalText(cmd.Args[1])
	if !ok {
		return
	}

	if st.visited[name] || len(st.visited) > maxVisitedDefines {
		return
	}

	body, ok := c.defines.Lookup(name)
	if !ok {
		return
	}

	var argDot dot

	if len(cmd.Args) > 2 {
		if p, isPipe := cmd.Args[2].(*parse.PipeNode); isPipe {
			if ap, aok := selectorPath(p, st.dot, st.variables); aok {
				argDot = dot{underValues: true, path: ap}
			}
		} else if ap, aok := selectorPath(cmd.Args[2], st.dot, st.variables); aok {
			argDot = dot{underValues: true, path: ap}
		}
	} else {
		argDot = st.dot
	}

	sub := st.child()
	sub.path = path
	sub.dot = argDot
	sub.visited = withVisited(st.visited, name)

	walk(c, sub, body)
}

func expandCall(c *collector, st state, t *ast.TemplateCall, path YamlPath) {
	if c.defines == nil || t.Name == "" {
		return
	}

	if st.visited[t.Name] || len(st.visited) > maxVisitedDefines {
		return
	}

	body, ok := c.defines.Lookup(t.Name)
	if !ok {
		return
	}

	argDot := st.dot

	if t.Arg != nil {
		if ap, aok := selectorPath(t.Arg, st.dot, st.variables); aok {
			argDot = dot{underValues: true, path: ap}
		}
	}

	sub := st.child()
	sub.path = path
	sub.dot = argDot
	sub.visited = withVisited(st.visited, t.Name)

	walk(c, sub, body)
}

func withVisited(in map[string]bool, name string) map[string]bool {
	out := make(map[string]bool, len(in)+1)

	for k, v := range in {
		out[k] = v
	}

	out[name] = true

	return out
}
