// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// TargetKind classifies the definition a reference resolves to.
type TargetKind int

const (
	TargetFunction TargetKind = iota
	TargetGlobal
	TargetLocal
	TargetParameter
	TargetBlockLabel
	TargetTable
	TargetMemory
	TargetType
	TargetTag
	TargetData
	TargetElem
)

func (k TargetKind) String() string {
	switch k {
	case TargetFunction:
		return "function"
	case TargetGlobal:
		return "global"
	case TargetLocal:
		return "local"
	case TargetParameter:
		return "parameter"
	case TargetBlockLabel:
		return "label"
	case TargetTable:
		return "table"
	case TargetMemory:
		return "memory"
	case TargetType:
		return "type"
	case TargetTag:
		return "tag"
	case TargetData:
		return "data"
	case TargetElem:
		return "elem"
	default:
		return "unknown"
	}
}

// Target identifies one definition.  Locals, parameters and block labels
// are scoped to the function whose start byte is Owner; for every other
// kind Owner is -1.
type Target struct {
	Kind TargetKind
	// Name is the identifier, "" for unnamed definitions, or "@<line>" for an
	// unlabeled block.
	Name string
	// Index is the position in the target's index space.  For locals it is
	// the combined index, counting parameters first.
	Index int
	Owner int
	// Line is the declaration line of a block label.
	Line int
}

// scoped reports whether the target is only visible inside one function.
func (t *Target) scoped() bool {
	switch t.Kind {
	case TargetLocal, TargetParameter, TargetBlockLabel:
		return true
	}
	return false
}

func moduleTarget(kind TargetKind, name string, index int) *Target {
	return &Target{Kind: kind, Name: name, Index: index, Owner: -1}
}

// ResolveNamed resolves an identifier used in context ctx at pos.
func ResolveNamed(word string, st *SymbolTable, ctx Context, pos Position) *Target {
	if st == nil || word == "" {
		return nil
	}
	switch ctx {
	case ContextCall:
		return namedFunction(st, word)
	case ContextFunction:
		// Names in a function header are its parameters and locals as often
		// as the function itself.
		if t := namedFunction(st, word); t != nil {
			return t
		}
		return searchNamed(word, st, pos)
	case ContextGlobal:
		if g := st.Globals.Lookup(word); g != nil {
			return moduleTarget(TargetGlobal, g.Name, g.Index)
		}
	case ContextLocal:
		return namedLocal(st.ContainingFunction(pos.Line), word)
	case ContextBranch, ContextBlock:
		return namedLabel(st.ContainingFunction(pos.Line), word)
	case ContextTable:
		if t := st.Tables.Lookup(word); t != nil {
			return moduleTarget(TargetTable, t.Name, t.Index)
		}
	case ContextMemory:
		if m := st.Memories.Lookup(word); m != nil {
			return moduleTarget(TargetMemory, m.Name, m.Index)
		}
	case ContextType:
		if td := st.Types.Lookup(word); td != nil {
			return moduleTarget(TargetType, td.Name, td.Index)
		}
	case ContextTag:
		if tag := st.Tags.Lookup(word); tag != nil {
			return moduleTarget(TargetTag, tag.Name, tag.Index)
		}
	case ContextData:
		if d := st.Data.Lookup(word); d != nil {
			return moduleTarget(TargetData, d.Name, d.Index)
		}
	case ContextElem:
		if e := st.Elems.Lookup(word); e != nil {
			return moduleTarget(TargetElem, e.Name, e.Index)
		}
	default:
		return searchNamed(word, st, pos)
	}
	return nil
}

func namedFunction(st *SymbolTable, word string) *Target {
	if fn := st.Functions.Lookup(word); fn != nil {
		return moduleTarget(TargetFunction, fn.Name, fn.Index)
	}
	return nil
}

func namedLocal(fn *Function, word string) *Target {
	if fn == nil {
		return nil
	}
	for _, p := range fn.Params {
		if p.Name == word {
			return &Target{Kind: TargetParameter, Name: p.Name, Index: p.Index, Owner: fn.StartByte}
		}
	}
	for _, l := range fn.Locals {
		if l.Name == word {
			return &Target{Kind: TargetLocal, Name: l.Name, Index: len(fn.Params) + l.Index, Owner: fn.StartByte}
		}
	}
	return nil
}

func namedLabel(fn *Function, word string) *Target {
	if fn == nil {
		return nil
	}
	for _, b := range fn.Blocks {
		if b.Label == word {
			return &Target{Kind: TargetBlockLabel, Name: b.Label, Owner: fn.StartByte, Line: b.Line}
		}
	}
	return nil
}

// searchNamed tries every kind of definition in a fixed order, for
// identifiers whose context is unknown.
func searchNamed(word string, st *SymbolTable, pos Position) *Target {
	if t := namedFunction(st, word); t != nil {
		return t
	}
	fn := st.ContainingFunction(pos.Line)
	if t := namedLocal(fn, word); t != nil {
		return t
	}
	if t := namedLabel(fn, word); t != nil {
		return t
	}
	for _, ctx := range []Context{ContextGlobal, ContextTable, ContextMemory, ContextType, ContextTag, ContextData, ContextElem} {
		if t := ResolveNamed(word, st, ctx, pos); t != nil {
			return t
		}
	}
	return nil
}

// ResolveIndexed resolves a numeric index used in context ctx at pos.
// Branch depths are resolved against the blocks enclosing pos in tree.
// Bare numbers in an unknown context do not resolve.
func ResolveIndexed(index int, st *SymbolTable, ctx Context, pos Position, tree syntax.Tree, src []byte) *Target {
	if st == nil || index < 0 {
		return nil
	}
	switch ctx {
	case ContextCall, ContextFunction:
		if fn := st.Functions.At(index); fn != nil {
			return moduleTarget(TargetFunction, fn.Name, fn.Index)
		}
	case ContextGlobal:
		if g := st.Globals.At(index); g != nil {
			return moduleTarget(TargetGlobal, g.Name, g.Index)
		}
	case ContextLocal:
		return indexedLocal(st.ContainingFunction(pos.Line), index)
	case ContextBranch:
		return indexedLabel(index, st, pos, tree, src)
	case ContextTable:
		if t := st.Tables.At(index); t != nil {
			return moduleTarget(TargetTable, t.Name, t.Index)
		}
	case ContextMemory:
		if m := st.Memories.At(index); m != nil {
			return moduleTarget(TargetMemory, m.Name, m.Index)
		}
	case ContextType:
		if td := st.Types.At(index); td != nil {
			return moduleTarget(TargetType, td.Name, td.Index)
		}
	case ContextTag:
		if tag := st.Tags.At(index); tag != nil {
			return moduleTarget(TargetTag, tag.Name, tag.Index)
		}
	case ContextData:
		if d := st.Data.At(index); d != nil {
			return moduleTarget(TargetData, d.Name, d.Index)
		}
	case ContextElem:
		if e := st.Elems.At(index); e != nil {
			return moduleTarget(TargetElem, e.Name, e.Index)
		}
	}
	return nil
}

// indexedLocal applies the local index law: parameters take the indices
// below P, declared locals follow.
func indexedLocal(fn *Function, index int) *Target {
	if fn == nil || index < 0 {
		return nil
	}
	if index < len(fn.Params) {
		p := fn.Params[index]
		return &Target{Kind: TargetParameter, Name: p.Name, Index: index, Owner: fn.StartByte}
	}
	if i := index - len(fn.Params); i < len(fn.Locals) {
		return &Target{Kind: TargetLocal, Name: fn.Locals[i].Name, Index: index, Owner: fn.StartByte}
	}
	return nil
}

func indexedLabel(depth int, st *SymbolTable, pos Position, tree syntax.Tree, src []byte) *Target {
	if tree == nil {
		return nil
	}
	offset, ok := PositionToOffset(src, pos)
	if !ok {
		return nil
	}
	frame := ResolveDepth(depth, branchStack(tree.Root(), offset, src))
	if frame == nil {
		return nil
	}
	owner := -1
	if fn := st.ContainingFunction(pos.Line); fn != nil {
		owner = fn.StartByte
	}
	return labelTarget(frame, owner)
}

// branchStack returns the blocks a branch at offset can target.  Labels in
// a try_table's catch clauses are relative to the blocks around the
// try_table, so the try_table itself is excluded there.
func branchStack(root syntax.Node, offset int, src []byte) []BlockFrame {
	stack := BuildBlockStack(root, offset, src)
	if len(stack) > 0 && astutil.Ancestor(astutil.NodeAt(root, offset), "catch_clause") != nil {
		stack = stack[:len(stack)-1]
	}
	return stack
}

// DefinitionRange returns the range of the identifier that declares the
// target, or nil when the definition is unnamed or unknown.
func DefinitionRange(t *Target, st *SymbolTable) *Range {
	if t == nil || st == nil {
		return nil
	}
	switch t.Kind {
	case TargetFunction:
		if fn := st.Functions.At(t.Index); fn != nil {
			return fn.Range
		}
	case TargetGlobal:
		if g := st.Globals.At(t.Index); g != nil {
			return g.Range
		}
	case TargetParameter:
		if fn := functionAt(st, t.Owner); fn != nil && t.Index < len(fn.Params) {
			return fn.Params[t.Index].Range
		}
	case TargetLocal:
		if fn := functionAt(st, t.Owner); fn != nil {
			i := t.Index - len(fn.Params)
			if i >= 0 && i < len(fn.Locals) {
				return fn.Locals[i].Range
			}
		}
	case TargetBlockLabel:
		if fn := functionAt(st, t.Owner); fn != nil {
			for _, b := range fn.Blocks {
				if b.Line == t.Line && b.Label == t.Name {
					return b.Range
				}
			}
		}
	case TargetTable:
		if tbl := st.Tables.At(t.Index); tbl != nil {
			return tbl.Range
		}
	case TargetMemory:
		if m := st.Memories.At(t.Index); m != nil {
			return m.Range
		}
	case TargetType:
		if td := st.Types.At(t.Index); td != nil {
			return td.Range
		}
	case TargetTag:
		if tag := st.Tags.At(t.Index); tag != nil {
			return tag.Range
		}
	case TargetData:
		if d := st.Data.At(t.Index); d != nil {
			return d.Range
		}
	case TargetElem:
		if e := st.Elems.At(t.Index); e != nil {
			return e.Range
		}
	}
	return nil
}

// functionAt returns the function that starts at byte offset start.
func functionAt(st *SymbolTable, start int) *Function {
	if start < 0 {
		return nil
	}
	return st.byStart[start]
}
