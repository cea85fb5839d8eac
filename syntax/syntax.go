// Copyright © 2024 The wat-lsp authors

// Package syntax defines the tree capability the analysis engine consumes.
//
// Any concrete-syntax-tree provider can back the engine as long as it exposes
// nodes with the WAT grammar's kind names, byte ranges, row/column points,
// ordered children and parent links.  Two providers live in this module: the
// in-memory recursive descent parser in parser/watparser and the tree-sitter
// adapter in parser/tsparser.
package syntax

import "fmt"

// Point is a zero-based row and byte column in a source document.
type Point struct {
	Row    int
	Column int
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// Less reports whether p precedes q.
func (p Point) Less(q Point) bool {
	if p.Row != q.Row {
		return p.Row < q.Row
	}
	return p.Column < q.Column
}

// Node is a node in a concrete syntax tree.
//
// Implementations must return an untyped nil (not a typed nil pointer) from
// Parent, Child and ChildByFieldName when there is no such node.
type Node interface {
	// Kind returns the grammar's name for the node (e.g. "module_field_func").
	Kind() string
	StartByte() int
	EndByte() int
	StartPoint() Point
	EndPoint() Point
	// Parent returns nil for the root node.
	Parent() Node
	ChildCount() int
	Child(i int) Node
	// ChildByFieldName returns the child playing the named role, if the
	// provider records roles.
	ChildByFieldName(name string) Node
	// IsError reports whether the node covers text the parser could not
	// fit into the grammar.
	IsError() bool
	// IsMissing reports whether the node was inserted by error recovery and
	// covers no text.
	IsMissing() bool
}

// Tree is the result of parsing one version of a document.  Trees are
// immutable once returned by a Parser.
type Tree interface {
	Root() Node
}

// Parser produces trees from document text.  A previous tree for the same
// document may be supplied to allow incremental reparsing; providers that
// cannot reuse it parse from scratch.
type Parser interface {
	Parse(text []byte, prev Tree) (Tree, error)
}
