// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"fmt"
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Position is a zero-based line and column in a document.  Columns are byte
// offsets within the line, as reported by the tree provider.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Range is a half-open span of a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (r Range) String() string {
	return fmt.Sprintf("%v-%v", r.Start, r.End)
}

func less(a, b Range) bool {
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Character < b.Start.Character
}

func nodeRange(n syntax.Node) Range {
	start, end := n.StartPoint(), n.EndPoint()
	return Range{
		Start: Position{Line: start.Row, Character: start.Column},
		End:   Position{Line: end.Row, Character: end.Column},
	}
}

func nodeRangePtr(n syntax.Node) *Range {
	if n == nil {
		return nil
	}
	r := nodeRange(n)
	return &r
}

// ValueType is a WebAssembly value or storage type.
type ValueType int

const (
	Unknown ValueType = iota
	I32
	I64
	F32
	F64
	V128
	I8
	I16
	Funcref
	Externref
	Anyref
	Eqref
	I31ref
	Structref
	Arrayref
	Exnref
	Nullref
	NullFuncref
	NullExternref
	NullExnref
	Ref // a reference to a concrete heap type, (ref $t)
)

var valueTypeNames = [...]string{
	Unknown:       "unknown",
	I32:           "i32",
	I64:           "i64",
	F32:           "f32",
	F64:           "f64",
	V128:          "v128",
	I8:            "i8",
	I16:           "i16",
	Funcref:       "funcref",
	Externref:     "externref",
	Anyref:        "anyref",
	Eqref:         "eqref",
	I31ref:        "i31ref",
	Structref:     "structref",
	Arrayref:      "arrayref",
	Exnref:        "exnref",
	Nullref:       "nullref",
	NullFuncref:   "nullfuncref",
	NullExternref: "nullexternref",
	NullExnref:    "nullexnref",
	Ref:           "ref",
}

func (t ValueType) String() string {
	if t < 0 || int(t) >= len(valueTypeNames) {
		return valueTypeNames[Unknown]
	}
	return valueTypeNames[t]
}

// ParseValueType maps the text of a value type to a ValueType.  Unrecognized
// text yields Unknown.
func ParseValueType(text string) ValueType {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "(") {
		return Ref
	}
	for i, name := range valueTypeNames {
		if i != int(Unknown) && name == text {
			return ValueType(i)
		}
	}
	return Unknown
}

// Parameter is a function parameter.  Index is its position among the
// function's parameters.
type Parameter struct {
	Name  string    `json:"name,omitempty"`
	Type  ValueType `json:"-"`
	Index int       `json:"index"`
	Range *Range    `json:"range,omitempty"`
}

// Variable is a function local.  Index is its position among the function's
// locals, not counting parameters.
type Variable struct {
	Name  string    `json:"name,omitempty"`
	Type  ValueType `json:"-"`
	Index int       `json:"index"`
	Range *Range    `json:"range,omitempty"`
}

// BlockLabel records a block, loop, if or try_table in a function.  Labels
// are kept flat in document order; depth resolution uses the tree instead.
type BlockLabel struct {
	Label string `json:"label,omitempty"`
	Kind  string `json:"kind"`
	Line  int    `json:"line"`
	Range *Range `json:"range,omitempty"`
}

type Function struct {
	Name      string       `json:"name,omitempty"`
	Index     int          `json:"index"`
	Params    []Parameter  `json:"params,omitempty"`
	Results   []ValueType  `json:"-"`
	Locals    []Variable   `json:"locals,omitempty"`
	Blocks    []BlockLabel `json:"blocks,omitempty"`
	Line      int          `json:"line"`
	EndLine   int          `json:"endLine"`
	StartByte int          `json:"-"`
	EndByte   int          `json:"-"`
	Range     *Range       `json:"range,omitempty"`
	Imported  bool         `json:"imported,omitempty"`
	Exports   []string     `json:"exports,omitempty"`
	TypeUse   string       `json:"typeUse,omitempty"`
}

// LocalCount returns the size of the function's combined local index space.
func (fn *Function) LocalCount() int {
	return len(fn.Params) + len(fn.Locals)
}

// Signature renders the function type, e.g. "(param i32 i32) (result i32)".
func (fn *Function) Signature() string {
	var parts []string
	if len(fn.Params) > 0 {
		types := make([]ValueType, len(fn.Params))
		for i, p := range fn.Params {
			types[i] = p.Type
		}
		parts = append(parts, typeList("param", types))
	}
	if len(fn.Results) > 0 {
		parts = append(parts, typeList("result", fn.Results))
	}
	return strings.Join(parts, " ")
}

func typeList(keyword string, types []ValueType) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(keyword)
	for _, t := range types {
		b.WriteString(" ")
		b.WriteString(t.String())
	}
	b.WriteString(")")
	return b.String()
}

type Global struct {
	Name     string    `json:"name,omitempty"`
	Index    int       `json:"index"`
	Type     ValueType `json:"-"`
	Mutable  bool      `json:"mutable,omitempty"`
	Init     string    `json:"init,omitempty"`
	Line     int       `json:"line"`
	Range    *Range    `json:"range,omitempty"`
	Imported bool      `json:"imported,omitempty"`
}

// Limits are the size bounds of a table or memory.
type Limits struct {
	Min    uint64 `json:"min"`
	Max    uint64 `json:"max,omitempty"`
	HasMax bool   `json:"-"`
}

func (l Limits) String() string {
	if l.HasMax {
		return fmt.Sprintf("%d %d", l.Min, l.Max)
	}
	return fmt.Sprint(l.Min)
}

type Table struct {
	Name     string    `json:"name,omitempty"`
	Index    int       `json:"index"`
	RefType  ValueType `json:"-"`
	Limits   Limits    `json:"limits"`
	Line     int       `json:"line"`
	Range    *Range    `json:"range,omitempty"`
	Imported bool      `json:"imported,omitempty"`
}

type Memory struct {
	Name     string `json:"name,omitempty"`
	Index    int    `json:"index"`
	Limits   Limits `json:"limits"`
	Line     int    `json:"line"`
	Range    *Range `json:"range,omitempty"`
	Imported bool   `json:"imported,omitempty"`
}

// TypeKind distinguishes the composite types a type definition can hold.
type TypeKind int

const (
	TypeFunc TypeKind = iota
	TypeStruct
	TypeArray
)

func (k TypeKind) String() string {
	switch k {
	case TypeStruct:
		return "struct"
	case TypeArray:
		return "array"
	default:
		return "func"
	}
}

// Field is a struct or array field.
type Field struct {
	Name    string    `json:"name,omitempty"`
	Type    ValueType `json:"-"`
	Mutable bool      `json:"mutable,omitempty"`
}

type TypeDef struct {
	Name    string      `json:"name,omitempty"`
	Index   int         `json:"index"`
	Kind    TypeKind    `json:"-"`
	Params  []ValueType `json:"-"`
	Results []ValueType `json:"-"`
	Fields  []Field     `json:"fields,omitempty"`
	Line    int         `json:"line"`
	Range   *Range      `json:"range,omitempty"`
}

type Tag struct {
	Name     string      `json:"name,omitempty"`
	Index    int         `json:"index"`
	Params   []ValueType `json:"-"`
	Line     int         `json:"line"`
	Range    *Range      `json:"range,omitempty"`
	Imported bool        `json:"imported,omitempty"`
}

type DataSegment struct {
	Name  string `json:"name,omitempty"`
	Index int    `json:"index"`
	Line  int    `json:"line"`
	Range *Range `json:"range,omitempty"`
}

type ElemSegment struct {
	Name  string   `json:"name,omitempty"`
	Index int      `json:"index"`
	Funcs []string `json:"funcs,omitempty"`
	Line  int      `json:"line"`
	Range *Range   `json:"range,omitempty"`
}

// Space is one index space of a module: definitions in index order plus a
// name lookup.  Duplicate names keep every definition in the sequence while
// the name maps to the most recent one.
type Space[T any] struct {
	items []T
	names map[string]int
}

func (s *Space[T]) add(name string, item T) {
	if name != "" {
		if s.names == nil {
			s.names = make(map[string]int)
		}
		s.names[name] = len(s.items)
	}
	s.items = append(s.items, item)
}

// Len returns the number of definitions in the space.
func (s *Space[T]) Len() int {
	return len(s.items)
}

// At returns the definition with the given index, or the zero value.
func (s *Space[T]) At(index int) T {
	var zero T
	if index < 0 || index >= len(s.items) {
		return zero
	}
	return s.items[index]
}

// Lookup returns the definition most recently bound to name, or the zero
// value.
func (s *Space[T]) Lookup(name string) T {
	var zero T
	i, ok := s.names[name]
	if !ok {
		return zero
	}
	return s.items[i]
}

// All returns the definitions in index order.  The slice must not be
// modified.
func (s *Space[T]) All() []T {
	return s.items
}

// SymbolTable holds every index space of one document.  A table is built
// once by Extract and never modified afterwards.
type SymbolTable struct {
	Functions Space[*Function]
	Globals   Space[*Global]
	Tables    Space[*Table]
	Memories  Space[*Memory]
	Types     Space[*TypeDef]
	Tags      Space[*Tag]
	Data      Space[*DataSegment]
	Elems     Space[*ElemSegment]

	// byStart maps a function's start byte to the function.
	byStart map[int]*Function
}

// indexFunctions builds the start byte lookup used to find the function
// that owns a usage.
func (st *SymbolTable) indexFunctions() {
	st.byStart = make(map[int]*Function, st.Functions.Len())
	for _, fn := range st.Functions.All() {
		st.byStart[fn.StartByte] = fn
	}
}

// ContainingFunction returns the function a line belongs to: the last
// function, in declaration order, that starts on or before the line.
func (st *SymbolTable) ContainingFunction(line int) *Function {
	var found *Function
	for _, fn := range st.Functions.All() {
		if fn.Line <= line {
			found = fn
		}
	}
	return found
}
