// Copyright © 2024 The wat-lsp authors

// Package tsparser adapts go-tree-sitter to the syntax capability interface.
//
// The WAT grammar itself is supplied by the embedder as a
// *tree_sitter.Language (for example from a tree-sitter-wat Go binding), so
// this module carries no C grammar of its own.
package tsparser

import (
	"errors"
	"runtime"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// ErrNoTree is returned when tree-sitter does not produce a tree, which
// happens when parsing is cancelled or no language is configured.
var ErrNoTree = errors.New("tree-sitter produced no tree")

// Parser is a syntax.Parser backed by tree-sitter.  Parse calls are
// serialized because a tree-sitter parser is not safe for concurrent use.
type Parser struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
}

var _ syntax.Parser = (*Parser)(nil)

// New returns a parser for the given grammar.
func New(lang *tree_sitter.Language) (*Parser, error) {
	if lang == nil {
		return nil, errors.New("tsparser: nil language")
	}
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, err
	}
	parser := &Parser{parser: p}
	runtime.SetFinalizer(parser, func(p *Parser) { p.parser.Close() })
	return parser, nil
}

// Parse implements syntax.Parser.  When prev was produced by this package the
// old tree is edited with the single changed span between the two texts and
// handed to tree-sitter for incremental reparsing.
func (p *Parser) Parse(text []byte, prev syntax.Tree) (syntax.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var old *tree_sitter.Tree
	if pt, ok := prev.(*Tree); ok && pt != nil {
		old = pt.tree.Clone()
		defer old.Close()
		edit := diffEdit(pt.src, text)
		old.Edit(&edit)
	}
	t := p.parser.Parse(text, old)
	if t == nil {
		return nil, ErrNoTree
	}
	tree := &Tree{tree: t, src: text}
	runtime.SetFinalizer(tree, func(t *Tree) { t.tree.Close() })
	return tree, nil
}

// diffEdit describes the change from old to text as one replaced span,
// bounded by their common prefix and suffix.
func diffEdit(old, text []byte) tree_sitter.InputEdit {
	prefix := 0
	for prefix < len(old) && prefix < len(text) && old[prefix] == text[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(text)-prefix &&
		old[len(old)-1-suffix] == text[len(text)-1-suffix] {
		suffix++
	}
	oldEnd := len(old) - suffix
	newEnd := len(text) - suffix
	return tree_sitter.InputEdit{
		StartByte:      uint(prefix),
		OldEndByte:     uint(oldEnd),
		NewEndByte:     uint(newEnd),
		StartPosition:  pointAt(old, prefix),
		OldEndPosition: pointAt(old, oldEnd),
		NewEndPosition: pointAt(text, newEnd),
	}
}

func pointAt(src []byte, offset int) tree_sitter.Point {
	var row, col uint
	for _, c := range src[:offset] {
		if c == '\n' {
			row++
			col = 0
		} else {
			col++
		}
	}
	return tree_sitter.Point{Row: row, Column: col}
}

// Tree wraps a tree-sitter tree and the text it was parsed from.
type Tree struct {
	tree *tree_sitter.Tree
	src  []byte
}

var _ syntax.Tree = (*Tree)(nil)

func (t *Tree) Root() syntax.Node {
	return wrap(t, t.tree.RootNode())
}

// Node adapts a tree-sitter node.  It holds its tree so the underlying C
// memory outlives every node handed out.
type Node struct {
	tree *Tree
	node *tree_sitter.Node
}

var _ syntax.Node = Node{}

func wrap(t *Tree, n *tree_sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}
	return Node{tree: t, node: n}
}

func (n Node) Kind() string {
	if n.node.IsError() {
		return "ERROR"
	}
	if n.node.Parent() == nil {
		return "ROOT"
	}
	return n.node.Kind()
}

func (n Node) StartByte() int { return int(n.node.StartByte()) }
func (n Node) EndByte() int   { return int(n.node.EndByte()) }

func (n Node) StartPoint() syntax.Point { return convertPoint(n.node.StartPosition()) }
func (n Node) EndPoint() syntax.Point   { return convertPoint(n.node.EndPosition()) }

func (n Node) Parent() syntax.Node { return wrap(n.tree, n.node.Parent()) }
func (n Node) ChildCount() int     { return int(n.node.ChildCount()) }

func (n Node) Child(i int) syntax.Node {
	if i < 0 {
		return nil
	}
	return wrap(n.tree, n.node.Child(uint(i)))
}

func (n Node) ChildByFieldName(name string) syntax.Node {
	return wrap(n.tree, n.node.ChildByFieldName(name))
}

func (n Node) IsError() bool   { return n.node.IsError() }
func (n Node) IsMissing() bool { return n.node.IsMissing() }

func convertPoint(p tree_sitter.Point) syntax.Point {
	return syntax.Point{Row: int(p.Row), Column: int(p.Column)}
}
