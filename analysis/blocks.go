// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"fmt"

	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// BlockFrame is one enclosing structured control instruction.
type BlockFrame struct {
	Label     string // "" when the block has no label
	Kind      string // block, loop, if or try_table
	Line      int
	StartByte int
}

// Name returns the label, or "@<line>" for an unlabeled block.
func (f *BlockFrame) Name() string {
	if f.Label != "" {
		return f.Label
	}
	return fmt.Sprintf("@%d", f.Line)
}

var blockKinds = map[string]string{
	"block_block":     "block",
	"block_loop":      "loop",
	"block_if":        "if",
	"block_try_table": "try_table",
	"expr1_block":     "block",
	"expr1_loop":      "loop",
	"expr1_if":        "if",
	"expr1_try_table": "try_table",
}

// blockKind reports whether a node kind opens a branch target, and which.
func blockKind(nodeKind string) (string, bool) {
	kind, ok := blockKinds[nodeKind]
	return kind, ok
}

// IsBlockNode reports whether n is a block, loop, if or try_table in either
// flat or folded form.
func IsBlockNode(n syntax.Node) bool {
	_, ok := blockKind(n.Kind())
	return ok
}

// blockLabelNode returns the identifier that labels a block node.
func blockLabelNode(n syntax.Node) syntax.Node {
	if id := n.ChildByFieldName("label"); id != nil {
		return id
	}
	return astutil.FirstChild(n, "identifier")
}

func newFrame(n syntax.Node, src []byte) BlockFrame {
	kind, _ := blockKind(n.Kind())
	return BlockFrame{
		Label:     astutil.Text(blockLabelNode(n), src),
		Kind:      kind,
		Line:      n.StartPoint().Row,
		StartByte: n.StartByte(),
	}
}

// BuildBlockStack returns the blocks enclosing offset, outermost first.
func BuildBlockStack(root syntax.Node, offset int, src []byte) []BlockFrame {
	var stack []BlockFrame
	for n := root; n != nil; {
		var next syntax.Node
		for _, child := range astutil.Children(n) {
			if astutil.Contains(child, offset) {
				next = child
				break
			}
		}
		if next != nil && IsBlockNode(next) {
			stack = append(stack, newFrame(next, src))
		}
		n = next
	}
	return stack
}

// ResolveDepth returns the frame a branch of the given depth targets.
// Depth 0 is the innermost block.  The result is nil when depth is out of
// range.
func ResolveDepth(depth int, stack []BlockFrame) *BlockFrame {
	if depth < 0 || depth >= len(stack) {
		return nil
	}
	return &stack[len(stack)-1-depth]
}
