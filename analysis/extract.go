// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"strconv"
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Extract builds the symbol table of a parsed document.  Definitions are
// collected one kind at a time in a fixed order so that imports take the
// low indices of each index space.  Extraction never fails: missing names
// are left empty and unrecognized types become Unknown.
func Extract(tree syntax.Tree, src []byte) *SymbolTable {
	st := &SymbolTable{}
	if tree == nil || tree.Root() == nil {
		return st
	}
	x := &extractor{src: src, st: st, fields: moduleFields(tree.Root())}
	x.imports()
	x.globals()
	x.types()
	x.tables()
	x.memories()
	x.tags()
	x.functions()
	x.data()
	x.elems()
	st.indexFunctions()
	return st
}

type extractor struct {
	src    []byte
	st     *SymbolTable
	fields []syntax.Node
}

// moduleFields returns the definition nodes of a document, whether they sit
// inside (module ...) or at the top level.
func moduleFields(root syntax.Node) []syntax.Node {
	var fields []syntax.Node
	var collect func(n syntax.Node)
	collect = func(n syntax.Node) {
		for _, child := range astutil.Children(n) {
			switch kind := child.Kind(); {
			case kind == "module" || kind == "module_field" || kind == "ERROR":
				collect(child)
			case strings.HasPrefix(kind, "module_field_"):
				fields = append(fields, child)
			}
		}
	}
	collect(root)
	return fields
}

func (x *extractor) each(kind string, fn func(n syntax.Node)) {
	for _, field := range x.fields {
		if field.Kind() == kind {
			fn(field)
		}
	}
}

func (x *extractor) text(n syntax.Node) string {
	return astutil.Text(n, x.src)
}

// name returns a definition's identifier and its node.
func (x *extractor) name(n syntax.Node) (string, syntax.Node) {
	id := n.ChildByFieldName("name")
	if id == nil {
		id = astutil.FirstChild(n, "identifier")
	}
	if id == nil {
		return "", nil
	}
	return x.text(id), id
}

func (x *extractor) imports() {
	x.each("module_field_import", func(field syntax.Node) {
		desc := astutil.FirstChild(field, "import_desc")
		if desc == nil {
			return
		}
		for _, d := range astutil.Children(desc) {
			x.importDesc(field, d)
		}
	})
}

func (x *extractor) importDesc(field, desc syntax.Node) {
	name, id := x.name(desc)
	line := field.StartPoint().Row
	switch desc.Kind() {
	case "import_desc_func_type", "import_desc_type_use":
		fn := &Function{
			Name:      name,
			Index:     x.st.Functions.Len(),
			Line:      line,
			EndLine:   field.EndPoint().Row,
			StartByte: field.StartByte(),
			EndByte:   field.EndByte(),
			Range:     nodeRangePtr(id),
			Imported:  true,
		}
		x.signature(fn, desc)
		x.st.Functions.add(name, fn)
	case "import_desc_global_type":
		g := &Global{Name: name, Index: x.st.Globals.Len(), Line: line, Range: nodeRangePtr(id), Imported: true}
		g.Type, g.Mutable = x.globalType(astutil.FirstChild(desc, "global_type"))
		x.st.Globals.add(name, g)
	case "import_desc_table_type":
		t := &Table{Name: name, Index: x.st.Tables.Len(), Line: line, Range: nodeRangePtr(id), Imported: true}
		t.RefType, t.Limits = x.tableType(astutil.FirstChild(desc, "table_type"))
		x.st.Tables.add(name, t)
	case "import_desc_memory_type":
		m := &Memory{Name: name, Index: x.st.Memories.Len(), Line: line, Range: nodeRangePtr(id), Imported: true}
		m.Limits = x.limits(astutil.FirstChild(astutil.FirstChild(desc, "memory_type"), "limits"))
		x.st.Memories.add(name, m)
	case "import_desc_tag_type":
		tag := &Tag{Name: name, Index: x.st.Tags.Len(), Line: line, Range: nodeRangePtr(id), Imported: true}
		tag.Params = x.paramTypes(desc)
		x.st.Tags.add(name, tag)
	}
}

func (x *extractor) globals() {
	x.each("module_field_global", func(field syntax.Node) {
		name, id := x.name(field)
		g := &Global{
			Name:     name,
			Index:    x.st.Globals.Len(),
			Line:     field.StartPoint().Row,
			Range:    nodeRangePtr(id),
			Imported: astutil.FirstChild(field, "inline_import") != nil,
		}
		g.Type, g.Mutable = x.globalType(astutil.FirstChild(field, "global_type"))
		if init := astutil.FirstChild(field, "expr", "instr"); init != nil {
			g.Init = strings.Join(strings.Fields(x.text(init)), " ")
		}
		x.st.Globals.add(name, g)
	})
}

func (x *extractor) globalType(n syntax.Node) (ValueType, bool) {
	if n == nil {
		return Unknown, false
	}
	if mut := astutil.FirstChild(n, "global_type_mut"); mut != nil {
		return x.valueType(astutil.FirstChild(mut, "value_type")), true
	}
	return x.valueType(astutil.FirstChild(n, "value_type")), false
}

func (x *extractor) valueType(n syntax.Node) ValueType {
	if n == nil {
		return Unknown
	}
	return ParseValueType(x.text(n))
}

func (x *extractor) types() {
	for _, field := range x.fields {
		switch field.Kind() {
		case "module_field_type":
			x.typeDef(field)
		case "module_field_rec":
			for _, t := range astutil.ChildrenOfKind(field, "module_field_type") {
				x.typeDef(t)
			}
		}
	}
}

func (x *extractor) typeDef(field syntax.Node) {
	name, id := x.name(field)
	td := &TypeDef{
		Name:  name,
		Index: x.st.Types.Len(),
		Line:  field.StartPoint().Row,
		Range: nodeRangePtr(id),
	}
	comp := astutil.FirstChild(field, "type_field")
	if comp != nil {
		if inner := astutil.FirstChild(comp, "func_type", "struct_type", "array_type", "sub_type"); inner != nil {
			comp = inner
		}
	}
	for comp != nil && comp.Kind() == "sub_type" {
		comp = astutil.FirstChild(comp, "func_type", "struct_type", "array_type", "sub_type")
	}
	if comp != nil {
		switch comp.Kind() {
		case "struct_type":
			td.Kind = TypeStruct
			for _, f := range astutil.ChildrenOfKind(comp, "field_type") {
				td.Fields = append(td.Fields, x.fieldDecls(f)...)
			}
		case "array_type":
			td.Kind = TypeArray
			for _, f := range astutil.ChildrenOfKind(comp, "field_type") {
				td.Fields = append(td.Fields, x.fieldDecls(f)...)
			}
		default:
			td.Kind = TypeFunc
			td.Params = x.paramTypes(comp)
			td.Results = x.resultTypes(comp)
		}
	}
	x.st.Types.add(name, td)
}

// fieldDecls returns the fields declared by one (field ...) clause, which names
// at most one field but may declare several anonymous ones.
func (x *extractor) fieldDecls(n syntax.Node) []Field {
	name, _ := x.name(n)
	var out []Field
	for _, c := range astutil.Children(n) {
		switch c.Kind() {
		case "value_type":
			out = append(out, Field{Name: name, Type: x.valueType(c)})
		case "field_type_mut":
			out = append(out, Field{Name: name, Type: x.valueType(astutil.FirstChild(c, "value_type")), Mutable: true})
		}
	}
	return out
}

func (x *extractor) tables() {
	x.each("module_field_table", func(field syntax.Node) {
		name, id := x.name(field)
		t := &Table{
			Name:     name,
			Index:    x.st.Tables.Len(),
			Line:     field.StartPoint().Row,
			Range:    nodeRangePtr(id),
			Imported: astutil.FirstChild(field, "inline_import") != nil,
		}
		t.RefType, t.Limits = x.tableType(astutil.FirstChild(field, "table_type"))
		if elems := astutil.FirstChild(field, "elem_list"); elems != nil && !t.Limits.HasMax {
			n := uint64(len(astutil.ChildrenOfKind(elems, "index", "expr", "elem_expr")))
			t.Limits = Limits{Min: n, Max: n, HasMax: true}
		}
		x.st.Tables.add(name, t)
	})
}

func (x *extractor) tableType(n syntax.Node) (ValueType, Limits) {
	if n == nil {
		return Unknown, Limits{}
	}
	rt := Unknown
	if ref := astutil.FirstChild(n, "ref_type"); ref != nil {
		rt = ParseValueType(x.text(ref))
	}
	return rt, x.limits(astutil.FirstChild(n, "limits"))
}

func (x *extractor) limits(n syntax.Node) Limits {
	var l Limits
	if n == nil {
		return l
	}
	nats := astutil.ChildrenOfKind(n, "nat")
	if len(nats) > 0 {
		l.Min, _ = ParseNat(x.text(nats[0]))
	}
	if len(nats) > 1 {
		l.Max, _ = ParseNat(x.text(nats[1]))
		l.HasMax = true
	}
	return l
}

func (x *extractor) memories() {
	x.each("module_field_memory", func(field syntax.Node) {
		name, id := x.name(field)
		m := &Memory{
			Name:     name,
			Index:    x.st.Memories.Len(),
			Line:     field.StartPoint().Row,
			Range:    nodeRangePtr(id),
			Imported: astutil.FirstChild(field, "inline_import") != nil,
		}
		m.Limits = x.limits(astutil.FirstChild(astutil.FirstChild(field, "memory_type"), "limits"))
		x.st.Memories.add(name, m)
	})
}

func (x *extractor) tags() {
	x.each("module_field_tag", func(field syntax.Node) {
		name, id := x.name(field)
		tag := &Tag{
			Name:     name,
			Index:    x.st.Tags.Len(),
			Line:     field.StartPoint().Row,
			Range:    nodeRangePtr(id),
			Imported: astutil.FirstChild(field, "inline_import") != nil,
			Params:   x.paramTypes(field),
		}
		if len(tag.Params) == 0 {
			if td := x.typeUse(field); td != nil {
				tag.Params = td.Params
			}
		}
		x.st.Tags.add(name, tag)
	})
}

func (x *extractor) functions() {
	x.each("module_field_func", func(field syntax.Node) {
		name, id := x.name(field)
		fn := &Function{
			Name:      name,
			Index:     x.st.Functions.Len(),
			Line:      field.StartPoint().Row,
			EndLine:   field.EndPoint().Row,
			StartByte: field.StartByte(),
			EndByte:   field.EndByte(),
			Range:     nodeRangePtr(id),
			Imported:  astutil.FirstChild(field, "inline_import") != nil,
		}
		for _, exp := range astutil.ChildrenOfKind(field, "inline_export") {
			if s := astutil.FirstChild(exp, "string"); s != nil {
				fn.Exports = append(fn.Exports, strings.Trim(x.text(s), `"`))
			}
		}
		x.signature(fn, field)
		x.locals(fn, field)
		x.blocks(fn, field)
		x.st.Functions.add(name, fn)
	})
}

// signature fills in parameters and results.  A function that declares no
// parameters of its own takes them from its type use, so the local index
// space is correct for (func (type $t) ...).
func (x *extractor) signature(fn *Function, n syntax.Node) {
	if tu := astutil.FirstChild(n, "type_use"); tu != nil {
		fn.TypeUse = x.text(astutil.FirstChild(tu, "index"))
	}
	for _, group := range astutil.ChildrenOfKind(n, "func_type_params") {
		for _, c := range astutil.Children(group) {
			switch c.Kind() {
			case "func_type_params_one":
				pname, id := x.name(c)
				fn.Params = append(fn.Params, Parameter{
					Name:  pname,
					Type:  x.valueType(astutil.FirstChild(c, "value_type")),
					Index: len(fn.Params),
					Range: nodeRangePtr(id),
				})
			case "func_type_params_many":
				for _, vt := range astutil.ChildrenOfKind(c, "value_type") {
					fn.Params = append(fn.Params, Parameter{Type: x.valueType(vt), Index: len(fn.Params)})
				}
			}
		}
	}
	fn.Results = x.resultTypes(n)
	if len(fn.Params) == 0 && len(fn.Results) == 0 {
		if td := x.typeUse(n); td != nil {
			for _, t := range td.Params {
				fn.Params = append(fn.Params, Parameter{Type: t, Index: len(fn.Params)})
			}
			fn.Results = td.Results
		}
	}
}

// typeUse returns the type definition referenced by n's (type ...) clause.
func (x *extractor) typeUse(n syntax.Node) *TypeDef {
	tu := astutil.FirstChild(n, "type_use")
	if tu == nil {
		return nil
	}
	ref := x.text(astutil.FirstChild(tu, "index"))
	if strings.HasPrefix(ref, "$") {
		return x.st.Types.Lookup(ref)
	}
	i, ok := ParseNat(ref)
	if !ok {
		return nil
	}
	return x.st.Types.At(int(i))
}

func (x *extractor) paramTypes(n syntax.Node) []ValueType {
	var types []ValueType
	for _, group := range astutil.ChildrenOfKind(n, "func_type_params") {
		astutil.Inspect(group, func(c syntax.Node) bool {
			if c.Kind() == "value_type" {
				types = append(types, x.valueType(c))
				return false
			}
			return true
		})
	}
	return types
}

func (x *extractor) resultTypes(n syntax.Node) []ValueType {
	var types []ValueType
	for _, group := range astutil.ChildrenOfKind(n, "func_type_results") {
		for _, vt := range astutil.ChildrenOfKind(group, "value_type") {
			types = append(types, x.valueType(vt))
		}
	}
	return types
}

func (x *extractor) locals(fn *Function, field syntax.Node) {
	for _, group := range astutil.ChildrenOfKind(field, "func_locals") {
		for _, c := range astutil.Children(group) {
			switch c.Kind() {
			case "func_locals_one":
				lname, id := x.name(c)
				fn.Locals = append(fn.Locals, Variable{
					Name:  lname,
					Type:  x.valueType(astutil.FirstChild(c, "value_type")),
					Index: len(fn.Locals),
					Range: nodeRangePtr(id),
				})
			case "func_locals_many":
				for _, vt := range astutil.ChildrenOfKind(c, "value_type") {
					fn.Locals = append(fn.Locals, Variable{Type: x.valueType(vt), Index: len(fn.Locals)})
				}
			}
		}
	}
}

// blocks records every structured control instruction in the function body,
// in document order.
func (x *extractor) blocks(fn *Function, field syntax.Node) {
	astutil.Inspect(field, func(n syntax.Node) bool {
		kind, ok := blockKind(n.Kind())
		if !ok {
			return true
		}
		b := BlockLabel{Kind: kind, Line: n.StartPoint().Row}
		if id := blockLabelNode(n); id != nil {
			b.Label = x.text(id)
			b.Range = nodeRangePtr(id)
		}
		fn.Blocks = append(fn.Blocks, b)
		return true
	})
}

func (x *extractor) data() {
	x.each("module_field_data", func(field syntax.Node) {
		name, id := x.name(field)
		x.st.Data.add(name, &DataSegment{
			Name:  name,
			Index: x.st.Data.Len(),
			Line:  field.StartPoint().Row,
			Range: nodeRangePtr(id),
		})
	})
}

func (x *extractor) elems() {
	x.each("module_field_elem", func(field syntax.Node) {
		name, id := x.name(field)
		seg := &ElemSegment{
			Name:  name,
			Index: x.st.Elems.Len(),
			Line:  field.StartPoint().Row,
			Range: nodeRangePtr(id),
		}
		for _, idx := range astutil.ChildrenOfKind(astutil.FirstChild(field, "elem_list"), "index") {
			seg.Funcs = append(seg.Funcs, x.text(idx))
		}
		x.st.Elems.add(name, seg)
	})
}

// ParseNat parses a WAT unsigned integer literal: decimal or 0x hexadecimal
// with optional '_' separators.
func ParseNat(text string) (uint64, bool) {
	text = strings.ReplaceAll(text, "_", "")
	if text == "" {
		return 0, false
	}
	var v uint64
	var err error
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		v, err = strconv.ParseUint(text[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(text, 10, 64)
	}
	return v, err == nil
}
