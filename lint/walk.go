// Copyright © 2024 The wat-lsp authors

package lint

import (
	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// WalkErrors calls fn for every ERROR node and every node inserted by error
// recovery.  The contents of an ERROR node are not visited.
func WalkErrors(root syntax.Node, fn func(n syntax.Node)) {
	astutil.Inspect(root, func(n syntax.Node) bool {
		if n.IsError() || n.IsMissing() {
			fn(n)
			return false
		}
		return true
	})
}

// definition is one named entry of an index space.
type definition struct {
	kind  string
	name  string
	line  int
	rng   *analysis.Range
	owner int // start byte of the function for parameters and locals, else -1
}

// moduleDefinitions returns every named module-level definition of st, one index
// space after the other, each in index order.
func moduleDefinitions(st *analysis.SymbolTable) [][]definition {
	var spaces [][]definition
	add := func(kind string, n int, at func(i int) (string, int, *analysis.Range)) {
		var defs []definition
		for i := 0; i < n; i++ {
			name, line, rng := at(i)
			if name != "" {
				defs = append(defs, definition{kind: kind, name: name, line: line, rng: rng, owner: -1})
			}
		}
		spaces = append(spaces, defs)
	}
	add("function", st.Functions.Len(), func(i int) (string, int, *analysis.Range) {
		fn := st.Functions.At(i)
		return fn.Name, fn.Line, fn.Range
	})
	add("global", st.Globals.Len(), func(i int) (string, int, *analysis.Range) {
		g := st.Globals.At(i)
		return g.Name, g.Line, g.Range
	})
	add("table", st.Tables.Len(), func(i int) (string, int, *analysis.Range) {
		t := st.Tables.At(i)
		return t.Name, t.Line, t.Range
	})
	add("memory", st.Memories.Len(), func(i int) (string, int, *analysis.Range) {
		m := st.Memories.At(i)
		return m.Name, m.Line, m.Range
	})
	add("type", st.Types.Len(), func(i int) (string, int, *analysis.Range) {
		td := st.Types.At(i)
		return td.Name, td.Line, td.Range
	})
	add("tag", st.Tags.Len(), func(i int) (string, int, *analysis.Range) {
		tag := st.Tags.At(i)
		return tag.Name, tag.Line, tag.Range
	})
	add("data segment", st.Data.Len(), func(i int) (string, int, *analysis.Range) {
		d := st.Data.At(i)
		return d.Name, d.Line, d.Range
	})
	add("elem segment", st.Elems.Len(), func(i int) (string, int, *analysis.Range) {
		e := st.Elems.At(i)
		return e.Name, e.Line, e.Range
	})
	return spaces
}

// localDefinitions returns the named parameters and locals of fn, which
// share one index space.
func localDefinitions(fn *analysis.Function) []definition {
	var defs []definition
	for _, p := range fn.Params {
		if p.Name != "" {
			defs = append(defs, definition{kind: "parameter", name: p.Name, line: rangeLine(p.Range, fn.Line), rng: p.Range, owner: fn.StartByte})
		}
	}
	for _, l := range fn.Locals {
		if l.Name != "" {
			defs = append(defs, definition{kind: "local", name: l.Name, line: rangeLine(l.Range, fn.Line), rng: l.Range, owner: fn.StartByte})
		}
	}
	return defs
}

func rangeLine(r *analysis.Range, fallback int) int {
	if r == nil {
		return fallback
	}
	return r.Start.Line
}
