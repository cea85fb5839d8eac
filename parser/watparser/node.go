// Copyright © 2024 The wat-lsp authors

package watparser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Node is a node in a tree produced by Parser.  Anonymous tokens such as
// parentheses and structural keywords are kept as leaves whose kind is their
// literal text, mirroring tree-sitter trees.
type Node struct {
	kind     string
	field    string // role in the parent, if any
	start    int
	end      int
	startPt  syntax.Point
	endPt    syntax.Point
	parent   *Node
	children []*Node
	missing  bool
	anon     bool // literal token such as "(" or "func"
}

var _ syntax.Node = (*Node)(nil)

func (n *Node) Kind() string             { return n.kind }
func (n *Node) StartByte() int           { return n.start }
func (n *Node) EndByte() int             { return n.end }
func (n *Node) StartPoint() syntax.Point { return n.startPt }
func (n *Node) EndPoint() syntax.Point   { return n.endPt }
func (n *Node) ChildCount() int          { return len(n.children) }
func (n *Node) IsError() bool            { return n.kind == "ERROR" }
func (n *Node) IsMissing() bool          { return n.missing }

func (n *Node) Parent() syntax.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Child(i int) syntax.Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *Node) ChildByFieldName(name string) syntax.Node {
	for _, c := range n.children {
		if c.field == name {
			return c
		}
	}
	return nil
}

// String renders the subtree as an s-expression of named node kinds, the
// format tree-sitter uses in its corpus tests.
func (n *Node) String() string {
	var b strings.Builder
	n.sexp(&b)
	return b.String()
}

func (n *Node) sexp(b *strings.Builder) {
	if n.missing {
		fmt.Fprintf(b, "(MISSING %q)", n.kind)
		return
	}
	b.WriteString("(")
	b.WriteString(n.kind)
	for _, c := range n.children {
		if !c.named() {
			continue
		}
		b.WriteString(" ")
		c.sexp(b)
	}
	b.WriteString(")")
}

// named reports whether n is a grammar node rather than an anonymous token.
func (n *Node) named() bool {
	return n.missing || !n.anon
}

// Tree is a parsed WAT document.
type Tree struct {
	root  *Node
	lines []int // byte offset of the start of each line
}

var _ syntax.Tree = (*Tree)(nil)

func (t *Tree) Root() syntax.Node {
	return t.root
}

// RootNode returns the concrete root node.
func (t *Tree) RootNode() *Node {
	return t.root
}

func lineStarts(src []byte) []int {
	lines := []int{0}
	for i, c := range src {
		if c == '\n' {
			lines = append(lines, i+1)
		}
	}
	return lines
}

func (t *Tree) point(offset int) syntax.Point {
	row := sort.Search(len(t.lines), func(i int) bool { return t.lines[i] > offset }) - 1
	if row < 0 {
		row = 0
	}
	return syntax.Point{Row: row, Column: offset - t.lines[row]}
}
