// Package ir defines the symbolic intermediate representation produced by
// walking a fused Helm template AST: a flat, deterministically ordered list
// of value uses, each describing where a `.Values.*` path was referenced,
// what shape it takes in the rendered manifest, and under what guards.
package ir

import (
	"strings"
)

// YamlPath is an ordered sequence of path segments from the manifest root
// to a position in the rendered YAML. A segment suffixed "[*]" denotes "any
// element of an array at this key." Keys that are themselves template
// expressions are elided from the path.
type YamlPath []string

// String renders the path in dotted form, e.g. "spec.ports[*].targetPort".
func (p YamlPath) String() string {
	return strings.Join(p, ".")
}

// Append returns a new YamlPath with seg appended. The receiver is never
// mutated, so callers may freely share a YamlPath across sibling recursion
// branches.
func (p YamlPath) Append(seg string) YamlPath {
	out := make(YamlPath, len(p), len(p)+1)
	copy(out, p)

	return append(out, seg)
}

// AsArrayElement returns a new YamlPath where the last segment (or, if p is
// empty, a synthetic root segment) is marked as an array element by
// appending "[*]" to it.
func (p YamlPath) AsArrayElement() YamlPath {
	if len(p) == 0 {
		return YamlPath{"[*]"}
	}

	out := make(YamlPath, len(p))
	copy(out, p)
	out[len(out)-1] += "[*]"

	return out
}

// Equal reports whether p and other have identical segments.
func (p YamlPath) Equal(other YamlPath) bool {
	if len(p) != len(other) {
		return false
	}

	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}

	return true
}

// Less reports whether p sorts before other, lexicographically by segment.
func (p YamlPath) Less(other YamlPath) bool {
	for i := 0; i < len(p) && i < len(other); i++ {
		if p[i] != other[i] {
			return p[i] < other[i]
		}
	}

	return len(p) < len(other)
}

// ValueKind distinguishes a single-scalar value use from one that may
// expand to a multi-line YAML fragment (e.g. via `toYaml | nindent`).
type ValueKind int

const (
	// KindScalar is a value placed as a single YAML scalar.
	KindScalar ValueKind = iota
	// KindFragment is a value that may render as an arbitrary YAML subtree.
	KindFragment
)

// String implements fmt.Stringer.
func (k ValueKind) String() string {
	if k == KindFragment {
		return "fragment"
	}

	return "scalar"
}

// ResourceRef identifies the Kubernetes resource type a manifest template
// produces, as detected from literal apiVersion/kind scalars.
type ResourceRef struct {
	APIVersion string
	Kind       string
	// APIVersionCandidates holds alternative apiVersion values observed in
	// if/else branches that select API versions by cluster capability.
	APIVersionCandidates []string
}

// Empty reports whether no resource was detected.
func (r *ResourceRef) Empty() bool {
	return r == nil || (r.APIVersion == "" && r.Kind == "")
}

// GuardKind tags the variant of a Guard.
type GuardKind int

const (
	// GuardTruthy is `if .Values.X` / `with .Values.X` / `range .Values.X`.
	GuardTruthy GuardKind = iota
	// GuardNot is `if not .Values.X`.
	GuardNot
	// GuardEq is `if eq .Values.X "literal"`.
	GuardEq
	// GuardOr is `if or .Values.A .Values.B ...`.
	GuardOr
)

// Guard is a boolean condition gating a template block. Exactly one of the
// fields is meaningful, selected by Kind: Path for Truthy/Not/Eq, Paths for
// Or, Value for Eq.
type Guard struct {
	Kind  GuardKind
	Path  string
	Value string
	Paths []string
}

// Truthy constructs a GuardTruthy guard.
func Truthy(path string) Guard { return Guard{Kind: GuardTruthy, Path: path} }

// Not constructs a GuardNot guard.
func Not(path string) Guard { return Guard{Kind: GuardNot, Path: path} }

// Eq constructs a GuardEq guard.
func Eq(path, value string) Guard { return Guard{Kind: GuardEq, Path: path, Value: value} }

// Or constructs a GuardOr guard.
func Or(paths []string) Guard { return Guard{Kind: GuardOr, Paths: paths} }

// ValuePaths returns every `.Values.*` sub-path this guard tests.
func (g Guard) ValuePaths() []string {
	switch g.Kind {
	case GuardTruthy, GuardNot, GuardEq:
		if g.Path == "" {
			return nil
		}

		return []string{g.Path}
	case GuardOr:
		return g.Paths
	default:
		return nil
	}
}

// Negate returns the guard to push on the else-branch of the if that
// pushed g on its then-branch, following spec.md's table: Truthy -> Not,
// Not -> Truthy, Eq -> no guard, Or -> no guard.
func (g Guard) Negate() (Guard, bool) {
	switch g.Kind {
	case GuardTruthy:
		return Not(g.Path), true
	case GuardNot:
		return Truthy(g.Path), true
	case GuardEq, GuardOr:
		return Guard{}, false
	default:
		return Guard{}, false
	}
}

// Equal reports whether g and other are the same guard.
func (g Guard) Equal(other Guard) bool {
	if g.Kind != other.Kind || g.Path != other.Path || g.Value != other.Value {
		return false
	}

	if len(g.Paths) != len(other.Paths) {
		return false
	}

	for i := range g.Paths {
		if g.Paths[i] != other.Paths[i] {
			return false
		}
	}

	return true
}

// TypeHint narrows a value use's inferred leaf type from a pipeline
// filter recognized at the tail of its expression, per spec step 3:
// numeric filters (`int`, `atoi`, `int64`, `float64`) hint a numeric
// type, string filters (`quote`, `upper`, `lower`, `trim`,
// `trimPrefix`, `trimSuffix`) hint string. HintNone leaves leaf-type
// inference entirely to the schema provider.
type TypeHint int

const (
	// HintNone carries no type information from the expression itself.
	HintNone TypeHint = iota
	// HintInteger marks a use piped through an integer-coercing filter.
	HintInteger
	// HintNumber marks a use piped through a float-coercing filter.
	HintNumber
	// HintString marks a use piped through a string-coercing filter.
	HintString
)

// JSONType returns the Draft-07 "type" keyword value this hint implies,
// or "" for HintNone.
func (h TypeHint) JSONType() string {
	switch h {
	case HintInteger:
		return "integer"
	case HintNumber:
		return "number"
	case HintString:
		return "string"
	default:
		return ""
	}
}

// ValueUse is a single use of a `.Values.*` path found while walking a
// template: what expression produced it, where it landed in the rendered
// YAML, what shape it takes, what guards were active, which Kubernetes
// resource (if any) encloses it, and any type hint its pipeline filters
// imply.
type ValueUse struct {
	SourceExpr string
	Path       YamlPath
	Kind       ValueKind
	Guards     []Guard
	Resource   *ResourceRef
	TypeHint   TypeHint
}

// Unguarded reports whether this use has no active guards -- the condition
// spec.md's required-computation rule keys off of.
func (u ValueUse) Unguarded() bool {
	return len(u.Guards) == 0
}

// SortValueUses sorts uses in place, lexicographically by SourceExpr then
// by Path, as required for deterministic IR generation (spec.md §3).
func SortValueUses(uses []ValueUse) {
	sortUses(uses)
}
