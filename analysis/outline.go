// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// OutlineItem is one definition in a document outline.
type OutlineItem struct {
	// Name is the identifier, or "<kind> <index>" for unnamed definitions.
	Name     string     `json:"name"`
	Kind     TargetKind `json:"kind"`
	Index    int        `json:"index"`
	Detail   string     `json:"detail,omitempty"`
	Line     int        `json:"line"`
	EndLine  int        `json:"endLine"`
	Range    *Range     `json:"range,omitempty"`
	Imported bool       `json:"imported,omitempty"`
	// Children holds the parameters, locals and block labels of a function.
	Children []OutlineItem `json:"children,omitempty"`
}

// MarshalText renders the kind by name.
func (k TargetKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outline lists every definition of the symbol table in source order.
func Outline(st *SymbolTable) []OutlineItem {
	if st == nil {
		return nil
	}
	var items []OutlineItem
	add := func(kind TargetKind, name string, index, line int, r *Range, detail string, imported bool) {
		items = append(items, OutlineItem{
			Name:     outlineName(kind, name, index),
			Kind:     kind,
			Index:    index,
			Detail:   detail,
			Line:     line,
			EndLine:  line,
			Range:    r,
			Imported: imported,
		})
	}
	for _, td := range st.Types.All() {
		add(TargetType, td.Name, td.Index, td.Line, td.Range, td.Kind.String(), false)
	}
	for _, g := range st.Globals.All() {
		add(TargetGlobal, g.Name, g.Index, g.Line, g.Range, globalDetail(g), g.Imported)
	}
	for _, t := range st.Tables.All() {
		add(TargetTable, t.Name, t.Index, t.Line, t.Range, t.Limits.String()+" "+t.RefType.String(), t.Imported)
	}
	for _, m := range st.Memories.All() {
		add(TargetMemory, m.Name, m.Index, m.Line, m.Range, m.Limits.String(), m.Imported)
	}
	for _, tag := range st.Tags.All() {
		detail := ""
		if len(tag.Params) > 0 {
			detail = typeList("param", tag.Params)
		}
		add(TargetTag, tag.Name, tag.Index, tag.Line, tag.Range, detail, tag.Imported)
	}
	for _, d := range st.Data.All() {
		add(TargetData, d.Name, d.Index, d.Line, d.Range, "", false)
	}
	for _, e := range st.Elems.All() {
		add(TargetElem, e.Name, e.Index, e.Line, e.Range, strings.Join(e.Funcs, " "), false)
	}
	for _, fn := range st.Functions.All() {
		add(TargetFunction, fn.Name, fn.Index, fn.Line, fn.Range, fn.Signature(), fn.Imported)
		item := &items[len(items)-1]
		item.EndLine = max(fn.EndLine, fn.Line)
		item.Children = functionOutline(fn)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Line < items[j].Line })
	return items
}

func functionOutline(fn *Function) []OutlineItem {
	var children []OutlineItem
	for _, p := range fn.Params {
		if p.Name == "" {
			continue
		}
		children = append(children, OutlineItem{
			Name: p.Name, Kind: TargetParameter, Index: p.Index, Detail: p.Type.String(),
			Line: rangeLine(p.Range, fn.Line), EndLine: rangeLine(p.Range, fn.Line), Range: p.Range,
		})
	}
	for _, l := range fn.Locals {
		if l.Name == "" {
			continue
		}
		index := len(fn.Params) + l.Index
		children = append(children, OutlineItem{
			Name: l.Name, Kind: TargetLocal, Index: index, Detail: l.Type.String(),
			Line: rangeLine(l.Range, fn.Line), EndLine: rangeLine(l.Range, fn.Line), Range: l.Range,
		})
	}
	for _, b := range fn.Blocks {
		if b.Label == "" {
			continue
		}
		children = append(children, OutlineItem{
			Name: b.Label, Kind: TargetBlockLabel, Index: -1, Detail: b.Kind,
			Line: b.Line, EndLine: b.Line, Range: b.Range,
		})
	}
	return children
}

func outlineName(kind TargetKind, name string, index int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s %d", kind, index)
}

func globalDetail(g *Global) string {
	if g.Mutable {
		return "(mut " + g.Type.String() + ")"
	}
	return g.Type.String()
}

func rangeLine(r *Range, fallback int) int {
	if r == nil {
		return fallback
	}
	return r.Start.Line
}
