// Copyright © 2024 The wat-lsp authors

// Package astutil provides shared syntax tree walking utilities.
//
// These helpers are used by the analysis, lint and lsp packages for
// traversing trees produced by any syntax.Parser.
package astutil

import (
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Walk calls fn for every node in the tree, depth-first in document order.
// parent is nil for the root.
func Walk(root syntax.Node, fn func(node syntax.Node, parent syntax.Node, depth int)) {
	if root == nil {
		return
	}
	walkNode(root, nil, 0, fn)
}

func walkNode(node syntax.Node, parent syntax.Node, depth int, fn func(syntax.Node, syntax.Node, int)) {
	fn(node, parent, depth)
	for i := 0; i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		walkNode(child, node, depth+1, fn)
	}
}

// Inspect traverses the tree depth-first.  If fn returns false the children
// of the node are skipped.
func Inspect(root syntax.Node, fn func(node syntax.Node) bool) {
	if root == nil || !fn(root) {
		return
	}
	for i := 0; i < root.ChildCount(); i++ {
		if child := root.Child(i); child != nil {
			Inspect(child, fn)
		}
	}
}

// Children returns the direct children of n.
func Children(n syntax.Node) []syntax.Node {
	if n == nil {
		return nil
	}
	children := make([]syntax.Node, 0, n.ChildCount())
	for i := 0; i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// FirstChild returns the first direct child of n whose kind is one of kinds.
func FirstChild(n syntax.Node, kinds ...string) syntax.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && hasKind(child, kinds) {
			return child
		}
	}
	return nil
}

// ChildrenOfKind returns all direct children of n with the given kind.
func ChildrenOfKind(n syntax.Node, kinds ...string) []syntax.Node {
	var out []syntax.Node
	for _, child := range Children(n) {
		if hasKind(child, kinds) {
			out = append(out, child)
		}
	}
	return out
}

// Ancestor returns the nearest proper ancestor of n whose kind is one of
// kinds, or nil.
func Ancestor(n syntax.Node, kinds ...string) syntax.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if hasKind(p, kinds) {
			return p
		}
	}
	return nil
}

// Text returns the source text covered by n.
func Text(n syntax.Node, src []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start < 0 || end > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}

// HeadToken returns the first whitespace-delimited token of n's text.  For
// plain instructions this is the opcode.
func HeadToken(n syntax.Node, src []byte) string {
	fields := strings.Fields(Text(n, src))
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimLeft(fields[0], "(")
}

// Contains reports whether offset lies within n's byte range, end exclusive.
func Contains(n syntax.Node, offset int) bool {
	return n.StartByte() <= offset && offset < n.EndByte()
}

// NodeAt returns the deepest node covering offset.  A child whose range
// properly contains offset is preferred over one that merely ends at it, so
// a cursor placed right after an identifier still finds the identifier.
func NodeAt(root syntax.Node, offset int) syntax.Node {
	if root == nil {
		return nil
	}
	if offset < root.StartByte() || offset > root.EndByte() {
		return nil
	}
	node := root
	for {
		var touching syntax.Node
		var next syntax.Node
		for i := 0; i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil || child.IsMissing() {
				continue
			}
			if Contains(child, offset) {
				next = child
				break
			}
			if touching == nil && child.EndByte() == offset && child.StartByte() < offset {
				touching = child
			}
		}
		if next == nil {
			next = touching
		}
		if next == nil {
			return node
		}
		node = next
	}
}

// IsComment reports whether n is a line or block comment.
func IsComment(n syntax.Node) bool {
	switch n.Kind() {
	case "comment_line", "comment_block":
		return true
	}
	return false
}

// IsInsideComment reports whether offset falls inside a comment node.
func IsInsideComment(root syntax.Node, offset int) bool {
	for n := NodeAt(root, offset); n != nil; n = n.Parent() {
		if IsComment(n) {
			return Contains(n, offset) || n.EndByte() == offset
		}
	}
	return false
}

func hasKind(n syntax.Node, kinds []string) bool {
	if len(kinds) == 0 {
		return true
	}
	k := n.Kind()
	for _, kind := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
