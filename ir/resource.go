package ir

import "github.com/chartschema/chartschema/ast"

// detectResource scans a Document body's top-level pairs for literal
// apiVersion/kind scalars, implementing the walker's up-front resource
// detection (the scan never descends into a nested mapping's own
// fields, only through the control-flow wrappers a manifest's top level
// commonly uses). A conditional apiVersion -- several branches of a
// top-level if each supplying a different literal value -- records the
// first then-branch's value as primary and the rest as candidates.
func detectResource(body ast.Node) *ResourceRef {
	var kind, apiVersion string

	var candidates []string

	recordKind := func(v string) {
		if kind == "" {
			kind = v
		}
	}

	recordAPIVersion := func(v string) {
		switch {
		case apiVersion == "":
			apiVersion = v
		case v != apiVersion:
			candidates = append(candidates, v)
		}
	}

	var scanScalarField func(key string, val ast.Node)

	scanScalarField = func(key string, val ast.Node) {
		switch vv := val.(type) {
		case *ast.Scalar:
			switch key {
			case "kind":
				recordKind(vv.Text)
			case "apiVersion":
				recordAPIVersion(vv.Text)
			}
		case *ast.If:
			for _, br := range vv.Branches {
				scanScalarField(key, br.Body)
			}

			if vv.Else != nil {
				scanScalarField(key, vv.Else)
			}
		case *ast.Unknown:
			for _, ch := range vv.Children {
				scanScalarField(key, ch)
			}
		}
	}

	var scan func(n ast.Node)

	scan = func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Mapping:
			for _, item := range v.Items {
				switch it := item.(type) {
				case *ast.Pair:
					key, ok := it.Key.(*ast.Scalar)
					if !ok || it.Value == nil {
						continue
					}

					scanScalarField(key.Text, it.Value)
				case *ast.If, *ast.Range, *ast.With:
					scan(it)
				}
			}
		case *ast.If:
			for _, br := range v.Branches {
				scan(br.Body)
			}

			if v.Else != nil {
				scan(v.Else)
			}
		case *ast.Unknown:
			for _, ch := range v.Children {
				scan(ch)
			}
		case *ast.Stream:
			for _, d := range v.Documents {
				scan(d)
			}
		case *ast.Document:
			scan(v.Body)
		}
	}

	scan(body)

	if kind == "" && apiVersion == "" {
		return nil
	}

	return &ResourceRef{
		APIVersion:           apiVersion,
		Kind:                 kind,
		APIVersionCandidates: candidates,
	}
}
