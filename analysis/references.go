// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"sort"
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// FindReferences returns the ranges of every usage of target in tree.
// Definitions are not included.
func FindReferences(target *Target, tree syntax.Tree, src []byte) []Range {
	if target == nil {
		return nil
	}
	var found []Range
	Usages(tree, src, func(u Usage) {
		if usageMatches(target, u, src) {
			found = append(found, nodeRange(u.Token))
		}
	})
	return found
}

// References returns the usages of target sorted by position, preceded by
// its definition when includeDecl is set.  Duplicate ranges are removed.
func References(target *Target, tree syntax.Tree, src []byte, st *SymbolTable, includeDecl bool) []Range {
	var out []Range
	if includeDecl {
		if def := DefinitionRange(target, st); def != nil {
			out = append(out, *def)
		}
	}
	out = append(out, FindReferences(target, tree, src)...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	uniq := out[:0]
	for i, r := range out {
		if i > 0 && r == out[i-1] {
			continue
		}
		uniq = append(uniq, r)
	}
	return uniq
}

func kindMatches(ctx Context, kind TargetKind) bool {
	switch ctx {
	case ContextCall:
		return kind == TargetFunction
	case ContextGlobal:
		return kind == TargetGlobal
	case ContextLocal:
		return kind == TargetLocal || kind == TargetParameter
	case ContextBranch:
		return kind == TargetBlockLabel
	case ContextTable:
		return kind == TargetTable
	case ContextMemory:
		return kind == TargetMemory
	case ContextType:
		return kind == TargetType
	case ContextTag:
		return kind == TargetTag
	case ContextData:
		return kind == TargetData
	case ContextElem:
		return kind == TargetElem
	}
	return false
}

func usageMatches(t *Target, u Usage, src []byte) bool {
	if !kindMatches(u.Context, t.Kind) {
		return false
	}
	if t.scoped() && u.Owner != t.Owner {
		return false
	}
	text := astutil.Text(u.Token, src)
	if strings.HasPrefix(text, "$") {
		return t.Name != "" && text == t.Name
	}
	n, ok := ParseNat(text)
	if !ok {
		return false
	}
	if t.Kind == TargetBlockLabel {
		frame := ResolveDepth(int(n), u.Stack)
		if frame == nil {
			return false
		}
		if frame.Label != "" {
			return frame.Label == t.Name
		}
		return frame.Line == t.Line
	}
	return int(n) == t.Index
}
