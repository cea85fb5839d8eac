// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Context is the kind of reference an identifier or index denotes at a
// position.
type Context int

const (
	ContextGeneral Context = iota
	ContextCall
	ContextGlobal
	ContextLocal
	ContextBranch
	ContextBlock
	ContextTable
	ContextMemory
	ContextType
	ContextTag
	ContextFunction
	ContextData
	ContextElem
)

func (c Context) String() string {
	switch c {
	case ContextCall:
		return "call"
	case ContextGlobal:
		return "global"
	case ContextLocal:
		return "local"
	case ContextBranch:
		return "branch"
	case ContextBlock:
		return "block"
	case ContextTable:
		return "table"
	case ContextMemory:
		return "memory"
	case ContextType:
		return "type"
	case ContextTag:
		return "tag"
	case ContextFunction:
		return "function"
	case ContextData:
		return "data"
	case ContextElem:
		return "elem"
	default:
		return "general"
	}
}

// isPlainInstr reports whether n is a single instruction with its
// immediates.
func isPlainInstr(n syntax.Node) bool {
	switch n.Kind() {
	case "instr_plain", "expr1_plain":
		return true
	}
	return false
}

// Classify determines the context of node by walking up its ancestors.  The
// first plain instruction, block, definition or type use on the way to the
// root decides; reaching the root yields ContextGeneral.
func Classify(node syntax.Node, src []byte) Context {
	if node == nil {
		return ContextGeneral
	}
	if ctx, ok := classifyCatch(node); ok {
		return ctx
	}
	for n := node; n != nil; n = n.Parent() {
		if isPlainInstr(n) {
			if ctx := instrContext(instructionText(n, src)); ctx != ContextGeneral {
				return ctx
			}
			continue
		}
		if IsBlockNode(n) {
			return ContextBlock
		}
		switch n.Kind() {
		case "module_field_func":
			return ContextFunction
		case "module_field_type", "type_use":
			return ContextType
		case "module_field_tag":
			return ContextTag
		case "memory_use":
			return ContextMemory
		case "table_use":
			return ContextTable
		case "module_field_data":
			return ContextData
		case "module_field_elem":
			return ContextElem
		}
	}
	return ContextGeneral
}

// instructionText returns the text of an instruction with identifiers and
// string literals removed, so that a name such as $recall cannot look like
// a call.
func instructionText(n syntax.Node, src []byte) string {
	fields := strings.Fields(astutil.Text(n, src))
	kept := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "()")
		if f == "" || strings.HasPrefix(f, "$") || strings.HasPrefix(f, `"`) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// instrContext maps instruction text to the context of its immediates.
func instrContext(text string) Context {
	switch {
	case strings.Contains(text, "call_indirect"):
		return ContextTable
	case strings.Contains(text, "call_ref"):
		return ContextType
	case strings.Contains(text, "call") || strings.Contains(text, "ref.func"):
		return ContextCall
	case strings.Contains(text, "local."):
		return ContextLocal
	case strings.Contains(text, "global."):
		return ContextGlobal
	case strings.HasPrefix(text, "br") || strings.Contains(text, " br"):
		return ContextBranch
	case strings.Contains(text, "memory.init") || strings.Contains(text, "data.drop"):
		return ContextData
	case strings.Contains(text, "table.init") || strings.Contains(text, "elem.drop"):
		return ContextElem
	case strings.Contains(text, "table."):
		return ContextTable
	case strings.Contains(text, "memory.") || strings.Contains(text, ".load") || strings.Contains(text, ".store"):
		return ContextMemory
	case strings.Contains(text, "struct.") || strings.Contains(text, "array.") ||
		strings.Contains(text, "ref.cast") || strings.Contains(text, "ref.test"):
		return ContextType
	case strings.Contains(text, "rethrow"):
		return ContextBranch
	case strings.Contains(text, "throw"):
		return ContextTag
	}
	return ContextGeneral
}

// classifyCatch handles indices inside (catch $tag $label) clauses: the tag
// of catch and catch_ref is a Tag, every other index a branch label.
func classifyCatch(node syntax.Node) (Context, bool) {
	var index syntax.Node
	for n := node; n != nil; n = n.Parent() {
		switch n.Kind() {
		case "index":
			index = n
		case "catch_clause":
			if index == nil {
				return ContextGeneral, false
			}
			return catchIndexContext(n, index), true
		case "identifier", "nat":
		default:
			return ContextGeneral, false
		}
	}
	return ContextGeneral, false
}

func catchIndexContext(clause, index syntax.Node) Context {
	op := ""
	for _, c := range astutil.Children(clause) {
		if c.Kind() == "catch" || c.Kind() == "catch_ref" {
			op = c.Kind()
			break
		}
	}
	if op != "" {
		if first := astutil.FirstChild(clause, "index"); first != nil && sameNode(first, index) {
			return ContextTag
		}
	}
	return ContextBranch
}

func sameNode(a, b syntax.Node) bool {
	return a.Kind() == b.Kind() && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// ClassifyNode determines the context of a single node without looking at
// its ancestors.  Plain instructions are classified by their opcode.  The
// reference search uses this to decide which subtrees hold references.
func ClassifyNode(n syntax.Node, src []byte) Context {
	switch n.Kind() {
	case "type_use", "ref_type":
		return ContextType
	case "instr_plain", "expr1_plain":
	default:
		return ContextGeneral
	}
	op := astutil.HeadToken(n, src)
	switch {
	case strings.HasPrefix(op, "struct.") || strings.HasPrefix(op, "array.") ||
		strings.HasPrefix(op, "ref.cast") || strings.HasPrefix(op, "ref.test") ||
		op == "call_ref" || op == "return_call_ref":
		return ContextType
	case strings.HasPrefix(op, "br") || op == "rethrow":
		return ContextBranch
	case op == "call" || op == "return_call" || op == "ref.func":
		return ContextCall
	case op == "call_indirect" || op == "return_call_indirect":
		return ContextTable
	case strings.HasPrefix(op, "local."):
		return ContextLocal
	case strings.HasPrefix(op, "global."):
		return ContextGlobal
	case op == "memory.init" || op == "data.drop":
		return ContextData
	case op == "table.init" || op == "elem.drop":
		return ContextElem
	case strings.HasPrefix(op, "table."):
		return ContextTable
	case strings.HasPrefix(op, "memory.") || strings.Contains(op, ".load") || strings.Contains(op, ".store"):
		return ContextMemory
	case op == "throw":
		return ContextTag
	}
	return ContextGeneral
}

// ClassifyLine determines a context from the raw text of one line.  It is
// the fallback when no syntax node covers a position.
func ClassifyLine(line string) Context {
	switch {
	case containsKeyword(line, "call"):
		return ContextCall
	case containsKeyword(line, "global"):
		return ContextGlobal
	case containsKeyword(line, "local"):
		return ContextLocal
	case containsKeyword(line, "br"):
		return ContextBranch
	case containsKeyword(line, "block") || containsKeyword(line, "loop"):
		return ContextBlock
	case containsKeyword(line, "data"):
		return ContextData
	case containsKeyword(line, "elem"):
		return ContextElem
	case containsKeyword(line, "table"):
		return ContextTable
	case containsKeyword(line, "memory"):
		return ContextMemory
	case containsKeyword(line, "type") || containsKeyword(line, "struct") ||
		containsKeyword(line, "array") || strings.Contains(line, "ref."):
		return ContextType
	case containsKeyword(line, "throw") || containsKeyword(line, "tag") || containsKeyword(line, "catch"):
		return ContextTag
	case containsKeyword(line, "func"):
		return ContextFunction
	}
	return ContextGeneral
}

// containsKeyword reports whether keyword occurs in line as an instruction
// family prefix: not preceded by a word character or '$', and followed by
// nothing, a separator, '.', or '_' (as in br_if or call_indirect).
func containsKeyword(line, keyword string) bool {
	for i := 0; ; {
		j := strings.Index(line[i:], keyword)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(keyword)
		before := start == 0 || !isWordByte(line[start-1])
		after := end == len(line) || !isWordByte(line[end]) || line[end] == '_'
		if before && after {
			return true
		}
		i = start + 1
	}
}

func isWordByte(c byte) bool {
	return c == '$' || c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// A ContextStrategy determines the context at a position, returning
// ContextGeneral when it cannot tell.
type ContextStrategy func(tree syntax.Tree, src []byte, pos Position) Context

// ASTStrategy classifies the deepest node at pos by its ancestors.
func ASTStrategy(tree syntax.Tree, src []byte, pos Position) Context {
	if tree == nil {
		return ContextGeneral
	}
	offset, ok := PositionToOffset(src, pos)
	if !ok {
		return ContextGeneral
	}
	return Classify(astutil.NodeAt(tree.Root(), offset), src)
}

// LineStrategy classifies the text of the line containing pos.
func LineStrategy(tree syntax.Tree, src []byte, pos Position) Context {
	return ClassifyLine(LineAt(src, pos.Line))
}

// Fallback combines strategies: the first that yields something other than
// ContextGeneral decides.
func Fallback(strategies ...ContextStrategy) ContextStrategy {
	return func(tree syntax.Tree, src []byte, pos Position) Context {
		for _, s := range strategies {
			if ctx := s(tree, src, pos); ctx != ContextGeneral {
				return ctx
			}
		}
		return ContextGeneral
	}
}

// DefaultContextPolicy consults the syntax tree first and the line text
// second.
var DefaultContextPolicy = Fallback(ASTStrategy, LineStrategy)
