package ast

import (
	"fmt"
	"strings"
	"text/template/parse"
	"unicode/utf8"

	goyaml "github.com/goccy/go-yaml/ast"
	goyamlparser "github.com/goccy/go-yaml/parser"
)

// Definition is implemented by Define and Block, the two fused-tree node
// kinds that register a named, callable template body.
type Definition interface {
	Node
	DefName() string
	DefBody() Node
}

// DefName implements Definition.
func (d *Define) DefName() string { return d.Name }

// DefBody implements Definition.
func (d *Define) DefBody() Node { return d.Body }

// DefName implements Definition.
func (b *Block) DefName() string { return b.Name }

// DefBody implements Definition.
func (b *Block) DefBody() Node { return b.Body }

// Parse fuses the Go-template grammar and the YAML grammar of a single
// template file into one tree, without executing anything. name is used
// only in parse error messages. It returns the document tree (nil if the
// source renders to nothing) plus every named {{define}}/{{block}} found
// anywhere in the file.
func Parse(name string, src []byte) (Node, []Definition, error) {
	if !utf8.Valid(src) {
		return nil, nil, fmt.Errorf("%w: %s", ErrEncoding, name)
	}

	text := string(src)

	treeSet, err := parse.Parse(name, text, "{{", "}}", templateFuncs())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrParse, name, err)
	}

	root, ok := treeSet[name]
	if !ok || root == nil || root.Root == nil {
		return nil, nil, nil
	}

	blockNames := blockNamesIn(text)
	f := newFuser()

	var buf strings.Builder

	if err := f.flatten(&buf, root.Root, treeSet, blockNames, nil); err != nil {
		return nil, nil, err
	}

	doc, err := parseYAMLBody(buf.String(), f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}

	var defs []Definition

	for tname, tree := range treeSet {
		if tname == name || tree == nil {
			continue
		}

		var dbuf strings.Builder
		if err := f.flatten(&dbuf, tree.Root, treeSet, blockNames, nil); err != nil {
			return nil, nil, err
		}

		body, err := parseYAMLBody(dbuf.String(), f)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: define %q: %w", ErrMalformed, name, tname, err)
		}

		if blockNames[tname] {
			defs = append(defs, &Block{Name: tname, Body: body})
		} else {
			defs = append(defs, &Define{Name: tname, Body: body})
		}
	}

	return doc, defs, nil
}

// parseYAMLBody parses a flattened, sentinel-substituted body with the
// YAML grammar and converts the result into the fused tree, reattaching
// every sentinel's original HelmExpr/HelmComment/control node.
func parseYAMLBody(body string, f *fuser) (Node, error) {
	if isBlankYAML(body) {
		return nil, nil
	}

	file, err := goyamlparser.ParseBytes([]byte(body), 0)
	if err != nil {
		return nil, err
	}

	if len(file.Docs) == 0 {
		return nil, nil
	}

	if len(file.Docs) == 1 {
		return convertDocument(file.Docs[0], f)
	}

	docs := make([]*Document, 0, len(file.Docs))

	for _, d := range file.Docs {
		cd, err := convertDocument(d, f)
		if err != nil {
			return nil, err
		}

		doc, _ := cd.(*Document)
		if doc == nil {
			doc = &Document{Body: cd}
		}

		docs = append(docs, doc)
	}

	return &Stream{Documents: docs}, nil
}

func convertDocument(d *goyaml.DocumentNode, f *fuser) (Node, error) {
	if d == nil || d.Body == nil {
		return &Document{}, nil
	}

	anchors := buildAnchorMap(d.Body)

	body, err := convertNode(d.Body, anchors, f, 0)
	if err != nil {
		return nil, err
	}

	return &Document{Body: body}, nil
}

func isBlankYAML(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return false
		}
	}

	return true
}
