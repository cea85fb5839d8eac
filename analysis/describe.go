// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"strings"
)

// Describe renders the declaration of a target as WAT text, for example
// "(func $add (param i32 i32) (result i32))".  It returns "" when the
// definition cannot be found.
func Describe(t *Target, st *SymbolTable) string {
	if t == nil || st == nil {
		return ""
	}
	switch t.Kind {
	case TargetFunction:
		if fn := st.Functions.At(t.Index); fn != nil {
			return declaration("func", fn.Name, fn.Signature())
		}
	case TargetParameter:
		if fn := functionAt(st, t.Owner); fn != nil && t.Index < len(fn.Params) {
			p := fn.Params[t.Index]
			return declaration("param", p.Name, p.Type.String())
		}
	case TargetLocal:
		if fn := functionAt(st, t.Owner); fn != nil {
			if i := t.Index - len(fn.Params); i >= 0 && i < len(fn.Locals) {
				l := fn.Locals[i]
				return declaration("local", l.Name, l.Type.String())
			}
		}
	case TargetBlockLabel:
		if fn := functionAt(st, t.Owner); fn != nil {
			for _, b := range fn.Blocks {
				if b.Line == t.Line {
					return strings.TrimSpace(b.Kind + " " + b.Label)
				}
			}
		}
	case TargetGlobal:
		if g := st.Globals.At(t.Index); g != nil {
			return declaration("global", g.Name, globalDetail(g))
		}
	case TargetTable:
		if tbl := st.Tables.At(t.Index); tbl != nil {
			return declaration("table", tbl.Name, tbl.Limits.String(), tbl.RefType.String())
		}
	case TargetMemory:
		if m := st.Memories.At(t.Index); m != nil {
			return declaration("memory", m.Name, m.Limits.String())
		}
	case TargetType:
		if td := st.Types.At(t.Index); td != nil {
			return declaration("type", td.Name, compositeType(td))
		}
	case TargetTag:
		if tag := st.Tags.At(t.Index); tag != nil {
			var params string
			if len(tag.Params) > 0 {
				params = typeList("param", tag.Params)
			}
			return declaration("tag", tag.Name, params)
		}
	case TargetData:
		if d := st.Data.At(t.Index); d != nil {
			return declaration("data", d.Name)
		}
	case TargetElem:
		if e := st.Elems.At(t.Index); e != nil {
			var funcs string
			if len(e.Funcs) > 0 {
				funcs = "func " + strings.Join(e.Funcs, " ")
			}
			return declaration("elem", e.Name, funcs)
		}
	}
	return ""
}

// declaration joins the non-empty parts into one parenthesized form.
func declaration(keyword string, parts ...string) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(keyword)
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(p)
	}
	b.WriteString(")")
	return b.String()
}

func compositeType(td *TypeDef) string {
	switch td.Kind {
	case TypeStruct:
		parts := make([]string, len(td.Fields))
		for i, f := range td.Fields {
			parts[i] = declaration("field", f.Name, fieldType(f))
		}
		return declaration("struct", parts...)
	case TypeArray:
		var elem string
		if len(td.Fields) > 0 {
			elem = fieldType(td.Fields[0])
		}
		return declaration("array", elem)
	default:
		var parts []string
		if len(td.Params) > 0 {
			parts = append(parts, typeList("param", td.Params))
		}
		if len(td.Results) > 0 {
			parts = append(parts, typeList("result", td.Results))
		}
		return declaration("func", parts...)
	}
}

func fieldType(f Field) string {
	if f.Mutable {
		return "(mut " + f.Type.String() + ")"
	}
	return f.Type.String()
}
