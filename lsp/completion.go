// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"strings"

	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// textDocumentCompletion handles the textDocument/completion request.  The
// context of the cursor decides which index space is offered: a call
// completes function names, local.get completes locals, a branch completes
// the labels of enclosing blocks, and so on.
func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	span := s.startSpan("textDocument/completion", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil || snap.InComment(pos) {
		return nil, nil
	}
	prefix := wordPrefix(snap.Source, pos)
	if prefix != "" && !strings.HasPrefix(prefix, "$") {
		return nil, nil
	}

	items := []protocol.CompletionItem{}
	for _, t := range completionTargets(snap, pos) {
		if !strings.HasPrefix(t.Name, prefix) {
			continue
		}
		kind := mapCompletionItemKind(t.Kind)
		item := protocol.CompletionItem{
			Label: t.Name,
			Kind:  &kind,
		}
		if d := analysis.Describe(t, snap.Symbols); d != "" {
			item.Detail = strPtr(d)
		}
		items = append(items, item)
	}
	return items, nil
}

// wordPrefix returns the part of the word at pos that precedes pos.
func wordPrefix(src []byte, pos analysis.Position) string {
	word, r, ok := analysis.WordAt(src, pos)
	if !ok || pos.Character < r.Start.Character {
		return ""
	}
	n := min(pos.Character-r.Start.Character, len(word))
	return word[:n]
}

// completionTargets lists the named definitions visible at pos in the
// index space its context refers to.  A context that names no space
// offers every module-level definition.
func completionTargets(snap *analysis.Snapshot, pos analysis.Position) []*analysis.Target {
	st := snap.Symbols
	var out []*analysis.Target
	module := func(kind analysis.TargetKind, name string, index int) {
		if name != "" {
			out = append(out, &analysis.Target{Kind: kind, Name: name, Index: index, Owner: -1})
		}
	}
	ctx := snap.ContextAt(pos)
	switch ctx {
	case analysis.ContextLocal:
		fn := st.ContainingFunction(pos.Line)
		if fn == nil {
			return nil
		}
		for i, p := range fn.Params {
			if p.Name != "" {
				out = append(out, &analysis.Target{Kind: analysis.TargetParameter, Name: p.Name, Index: i, Owner: fn.StartByte})
			}
		}
		for i, l := range fn.Locals {
			if l.Name != "" {
				out = append(out, &analysis.Target{Kind: analysis.TargetLocal, Name: l.Name, Index: len(fn.Params) + i, Owner: fn.StartByte})
			}
		}
		return out
	case analysis.ContextBranch:
		offset, ok := analysis.PositionToOffset(snap.Source, pos)
		fn := st.ContainingFunction(pos.Line)
		if !ok || fn == nil || snap.Tree == nil {
			return nil
		}
		stack := analysis.BuildBlockStack(snap.Tree.Root(), offset, snap.Source)
		// Innermost label first.
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].Label != "" {
				out = append(out, &analysis.Target{
					Kind: analysis.TargetBlockLabel, Name: stack[i].Label, Index: -1,
					Owner: fn.StartByte, Line: stack[i].Line,
				})
			}
		}
		return out
	}

	all := ctx == analysis.ContextGeneral || ctx == analysis.ContextFunction || ctx == analysis.ContextBlock
	if all || ctx == analysis.ContextCall {
		for _, fn := range st.Functions.All() {
			module(analysis.TargetFunction, fn.Name, fn.Index)
		}
	}
	if all || ctx == analysis.ContextGlobal {
		for _, g := range st.Globals.All() {
			module(analysis.TargetGlobal, g.Name, g.Index)
		}
	}
	if all || ctx == analysis.ContextTable {
		for _, t := range st.Tables.All() {
			module(analysis.TargetTable, t.Name, t.Index)
		}
	}
	if all || ctx == analysis.ContextMemory {
		for _, m := range st.Memories.All() {
			module(analysis.TargetMemory, m.Name, m.Index)
		}
	}
	if all || ctx == analysis.ContextType {
		for _, td := range st.Types.All() {
			module(analysis.TargetType, td.Name, td.Index)
		}
	}
	if all || ctx == analysis.ContextTag {
		for _, tag := range st.Tags.All() {
			module(analysis.TargetTag, tag.Name, tag.Index)
		}
	}
	if all || ctx == analysis.ContextData {
		for _, d := range st.Data.All() {
			module(analysis.TargetData, d.Name, d.Index)
		}
	}
	if all || ctx == analysis.ContextElem {
		for _, e := range st.Elems.All() {
			module(analysis.TargetElem, e.Name, e.Index)
		}
	}
	return dedupeByName(out)
}

// dedupeByName keeps the last definition of each name in each space,
// matching how names resolve.
func dedupeByName(targets []*analysis.Target) []*analysis.Target {
	type key struct {
		kind analysis.TargetKind
		name string
	}
	last := make(map[key]int, len(targets))
	for i, t := range targets {
		last[key{t.Kind, t.Name}] = i
	}
	out := targets[:0]
	for i, t := range targets {
		if last[key{t.Kind, t.Name}] == i {
			out = append(out, t)
		}
	}
	return out
}

// mapCompletionItemKind converts an engine target kind to an LSP
// completion item kind.
func mapCompletionItemKind(kind analysis.TargetKind) protocol.CompletionItemKind {
	switch kind {
	case analysis.TargetFunction:
		return protocol.CompletionItemKindFunction
	case analysis.TargetGlobal, analysis.TargetLocal, analysis.TargetParameter:
		return protocol.CompletionItemKindVariable
	case analysis.TargetBlockLabel:
		return protocol.CompletionItemKindReference
	case analysis.TargetType:
		return protocol.CompletionItemKindStruct
	case analysis.TargetTag:
		return protocol.CompletionItemKindEvent
	case analysis.TargetTable, analysis.TargetMemory:
		return protocol.CompletionItemKindModule
	default:
		return protocol.CompletionItemKindConstant
	}
}
