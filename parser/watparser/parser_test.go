// Copyright © 2024 The wat-lsp authors

package watparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		sexp   string
	}{
		{
			"flat function",
			`(module (func $f (param $a i32) (result i32) local.get $a))`,
			`(ROOT (module (module_field (module_field_func (identifier) (func_type_params (func_type_params_one (identifier) (value_type (num_type)))) (func_type_results (value_type (num_type))) (instr (instr_plain (op) (index (identifier))))))))`,
		},
		{
			"folded call without module",
			`(func (call $f (i32.const 1)))`,
			`(ROOT (module_field (module_field_func (expr (expr1_plain (op) (index (identifier))) (expr (expr1_plain (op) (nat)))))))`,
		},
		{
			"nested flat blocks",
			`(func block $b loop br 1 end end)`,
			`(ROOT (module_field (module_field_func (instr (block_block (identifier) (instr (block_loop (instr (instr_plain (op) (index (nat)))))))))))`,
		},
		{
			"unclosed forms",
			`(module (func $f`,
			`(ROOT (module (module_field (module_field_func (identifier) (MISSING ")"))) (MISSING ")")))`,
		},
		{
			"unknown field",
			`(module (bogus 1) (func))`,
			`(ROOT (module (ERROR (nat)) (module_field (module_field_func))))`,
		},
		{
			"comment",
			"(module ;; hi\n (func))",
			`(ROOT (module (comment_line) (module_field (module_field_func))))`,
		},
		{
			"import",
			`(import "env" "log" (func $log (param i32)))`,
			`(ROOT (module_field (module_field_import (string) (string) (import_desc (import_desc_func_type (identifier) (func_type_params (func_type_params_many (value_type (num_type)))))))))`,
		},
		{
			"export",
			`(export "main" (func $main))`,
			`(ROOT (module_field (module_field_export (string) (export_desc_func (index (identifier))))))`,
		},
		{
			"mutable global",
			`(global $g (mut i32) (i32.const 0))`,
			`(ROOT (module_field (module_field_global (identifier) (global_type (global_type_mut (value_type (num_type)))) (expr (expr1_plain (op) (nat))))))`,
		},
		{
			"struct type",
			`(type $p (struct (field $x i32) (field (mut f64))))`,
			`(ROOT (module_field (module_field_type (identifier) (type_field (struct_type (field_type (identifier) (value_type (num_type))) (field_type (field_type_mut (value_type (num_type)))))))))`,
		},
		{
			"folded if",
			`(func (if (local.get 0) (then (br 0)) (else nop)))`,
			`(ROOT (module_field (module_field_func (expr (expr1_if (expr (expr1_plain (op) (index (nat)))) (if_then (expr (expr1_plain (op) (index (nat))))) (if_else (instr (instr_plain (op)))))))))`,
		},
		{
			"try_table catch",
			`(func try_table $h (catch $e 0) end)`,
			`(ROOT (module_field (module_field_func (instr (block_try_table (identifier) (catch_clause (index (identifier)) (index (nat))))))))`,
		},
		{
			"table with inline elem",
			`(table $t funcref (elem $a $b))`,
			`(ROOT (module_field (module_field_table (identifier) (table_type (ref_type)) (elem_list (index (identifier)) (index (identifier))))))`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tree := Parse(test.source)
			assert.Equal(t, test.sexp, tree.RootNode().String())
		})
	}
}

func TestParsePositions(t *testing.T) {
	src := "(module\n  (func $add (param $a i32)))"
	tree := Parse(src)
	root := tree.Root()
	require.NotNil(t, root)
	assert.Nil(t, root.Parent())
	assert.Equal(t, 0, root.StartByte())
	assert.Equal(t, len(src), root.EndByte())

	var names []syntax.Node
	var walk func(n syntax.Node)
	walk = func(n syntax.Node) {
		if n.Kind() == "identifier" {
			names = append(names, n)
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	require.Len(t, names, 2)

	add := names[0]
	assert.Equal(t, "$add", src[add.StartByte():add.EndByte()])
	assert.Equal(t, syntax.Point{Row: 1, Column: 8}, add.StartPoint())
	assert.Equal(t, syntax.Point{Row: 1, Column: 12}, add.EndPoint())
	assert.Equal(t, "module_field_func", add.Parent().Kind())
	assert.Equal(t, add, add.Parent().ChildByFieldName("name"))
}

func TestParseMissingAndError(t *testing.T) {
	tree := Parse(`(module (func $f) ))`)
	root := tree.Root()
	var errs, missing int
	var walk func(n syntax.Node)
	walk = func(n syntax.Node) {
		if n.IsError() {
			errs++
		}
		if n.IsMissing() {
			missing++
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	assert.Equal(t, 1, errs)
	assert.Equal(t, 0, missing)
	assert.Nil(t, root.Child(root.ChildCount()))
}

func TestParserInterface(t *testing.T) {
	var p syntax.Parser = New()
	tree, err := p.Parse([]byte(`(module)`), nil)
	require.NoError(t, err)
	again, err := p.Parse([]byte(`(module (func))`), tree)
	require.NoError(t, err)
	assert.Equal(t, "(ROOT (module (module_field (module_field_func))))", again.Root().(*Node).String())
}
