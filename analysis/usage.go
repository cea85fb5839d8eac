// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Usage is one token that refers to a definition: an identifier or a
// number in a reference-bearing position.
type Usage struct {
	// Token is an identifier or nat node.
	Token   syntax.Node
	Context Context
	// Stack holds the blocks that a branch depth at Token is relative to.
	// It is only valid for the duration of the callback.
	Stack []BlockFrame
	// Owner is the start byte of the enclosing function, or -1 outside of
	// functions.
	Owner int
}

// Usages calls fn for every usage in tree.  Tokens of one instruction are
// reported before the tokens of instructions nested in it.
func Usages(tree syntax.Tree, src []byte, fn func(Usage)) {
	if tree == nil || tree.Root() == nil || fn == nil {
		return
	}
	w := &usageWalker{src: src, owner: -1, fn: fn}
	w.walk(tree.Root())
}

// pick selects which immediates of an instruction refer to its context.
type pick int

const (
	pickAll pick = iota
	pickFirst
	pickLast
)

// pickFor returns the immediates an instruction of the given context names.
// Only the first immediate of call or struct.get is a function or type; the
// data or elem segment of memory.init and table.init is always the last.
func pickFor(ctx Context) pick {
	switch ctx {
	case ContextCall, ContextType:
		return pickFirst
	case ContextData, ContextElem:
		return pickLast
	}
	return pickAll
}

type usageWalker struct {
	src   []byte
	stack []BlockFrame
	owner int
	fn    func(Usage)
}

func (w *usageWalker) walk(n syntax.Node) {
	kind := n.Kind()
	if kind == "module_field_func" {
		saved := w.owner
		w.owner = n.StartByte()
		defer func() { w.owner = saved }()
	}
	if IsBlockNode(n) {
		w.stack = append(w.stack, newFrame(n, w.src))
		defer func() { w.stack = w.stack[:len(w.stack)-1] }()
		w.checkClosingLabels(n)
	}
	switch kind {
	case "export_desc_func", "module_field_start", "elem_list":
		w.check(n, ContextCall, pickAll)
	case "export_desc_global":
		w.check(n, ContextGlobal, pickAll)
	case "export_desc_table", "table_use":
		w.check(n, ContextTable, pickAll)
	case "export_desc_memory", "memory_use":
		w.check(n, ContextMemory, pickAll)
	case "export_desc_tag":
		w.check(n, ContextTag, pickAll)
	case "catch_clause":
		w.checkCatch(n)
		return
	default:
		if ctx := ClassifyNode(n, w.src); ctx != ContextGeneral {
			w.check(n, ctx, pickFor(ctx))
		}
	}
	for _, child := range astutil.Children(n) {
		w.walk(child)
	}
}

// checkClosingLabels reports the labels repeated after else and end of a
// flat block.  They name the block itself, which is already on the stack.
func (w *usageWalker) checkClosingLabels(block syntax.Node) {
	prev := ""
	for _, c := range astutil.Children(block) {
		if astutil.IsComment(c) {
			continue
		}
		if c.Kind() == "identifier" && (prev == "end" || prev == "else") {
			w.fn(Usage{Token: c, Context: ContextBranch, Stack: w.stack, Owner: w.owner})
		}
		prev = c.Kind()
	}
}

// checkCatch reports the indices of a catch clause.  The tag of catch and
// catch_ref is a Tag; labels resolve outside the enclosing try_table.
func (w *usageWalker) checkCatch(clause syntax.Node) {
	tagged := astutil.FirstChild(clause, "catch", "catch_ref") != nil
	stack := w.stack
	if len(stack) > 0 {
		stack = stack[:len(stack)-1]
	}
	for i, idx := range astutil.ChildrenOfKind(clause, "index") {
		tok := indexToken(idx)
		if tok == nil {
			continue
		}
		ctx := ContextBranch
		if tagged && i == 0 {
			ctx = ContextTag
		}
		w.fn(Usage{Token: tok, Context: ctx, Stack: stack, Owner: w.owner})
	}
}

// check reports the index tokens that belong directly to n.  Nested
// instructions and type uses are left for the walk to visit on their own.
func (w *usageWalker) check(n syntax.Node, ctx Context, p pick) {
	tokens := w.tokens(n, nil)
	switch {
	case len(tokens) == 0:
		return
	case p == pickFirst:
		tokens = tokens[:1]
	case p == pickLast:
		tokens = tokens[len(tokens)-1:]
	}
	for _, tok := range tokens {
		w.fn(Usage{Token: tok, Context: ctx, Stack: w.stack, Owner: w.owner})
	}
}

func (w *usageWalker) tokens(n syntax.Node, out []syntax.Node) []syntax.Node {
	for _, c := range astutil.Children(n) {
		switch c.Kind() {
		case "index":
			if tok := indexToken(c); tok != nil {
				out = append(out, tok)
			}
			continue
		case "identifier":
			out = append(out, c)
			continue
		case "nat", "expr", "instr", "instr_plain", "expr1_plain", "elem_expr", "offset", "catch_clause":
			continue
		}
		if IsBlockNode(c) || ClassifyNode(c, w.src) != ContextGeneral {
			continue
		}
		out = w.tokens(c, out)
	}
	return out
}

// indexToken returns the identifier or number inside an index node.
func indexToken(idx syntax.Node) syntax.Node {
	if tok := astutil.FirstChild(idx, "identifier", "nat"); tok != nil {
		return tok
	}
	if idx.ChildCount() == 0 {
		return idx
	}
	return nil
}

// ResolveUsage resolves a usage to its definition, or returns nil when
// nothing in st matches.  Unlike ResolveNamed and ResolveIndexed the
// enclosing function and block stack come from the usage itself rather
// than from a position.
func ResolveUsage(u Usage, st *SymbolTable, src []byte) *Target {
	if st == nil || u.Token == nil {
		return nil
	}
	text := astutil.Text(u.Token, src)
	fn := functionAt(st, u.Owner)
	if strings.HasPrefix(text, "$") {
		switch u.Context {
		case ContextLocal:
			return namedLocal(fn, text)
		case ContextBranch:
			for i := len(u.Stack) - 1; i >= 0; i-- {
				if u.Stack[i].Label == text {
					return labelTarget(&u.Stack[i], u.Owner)
				}
			}
			return nil
		}
		return ResolveNamed(text, st, u.Context, Position{})
	}
	n, ok := ParseNat(text)
	if !ok {
		return nil
	}
	switch u.Context {
	case ContextLocal:
		return indexedLocal(fn, int(n))
	case ContextBranch:
		if frame := ResolveDepth(int(n), u.Stack); frame != nil {
			return labelTarget(frame, u.Owner)
		}
		return nil
	}
	return ResolveIndexed(int(n), st, u.Context, Position{}, nil, nil)
}

func labelTarget(frame *BlockFrame, owner int) *Target {
	return &Target{Kind: TargetBlockLabel, Name: frame.Name(), Owner: owner, Line: frame.Line}
}
