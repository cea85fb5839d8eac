// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/parser/watparser"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

const contextSource = `(module
  (global $g (mut i32) (i32.const 0))
  (func $f (param $p i32) (local $l i32)
    (call $f (local.get $p))
    global.set $g
    local.get $callback
    block $out
      br_if $out (local.get $l)
    end))`

func TestClassify_AST(t *testing.T) {
	snap := parseSnapshot(t, contextSource)
	tests := []struct {
		name   string
		needle string
		nth    int
		want   Context
	}{
		{"call site", "$f", 1, ContextCall},
		{"function name", "$f", 0, ContextFunction},
		{"parameter name", "$p", 0, ContextFunction},
		{"local.get operand", "$p", 1, ContextLocal},
		{"global.set operand", "$g", 1, ContextGlobal},
		{"identifier containing call", "$callback", 0, ContextLocal},
		{"block label", "$out", 0, ContextBlock},
		{"branch label", "$out", 1, ContextBranch},
		{"operand of a branch condition", "$l", 1, ContextLocal},
		{"global definition", "$g", 0, ContextGeneral},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pos := at(t, contextSource, test.needle, test.nth)
			assert.Equal(t, test.want, ASTStrategy(snap.Tree, snap.Source, pos))
		})
	}
}

func TestClassify_DefaultPolicy(t *testing.T) {
	snap := parseSnapshot(t, contextSource)
	pos := at(t, contextSource, "$g", 0)
	assert.Equal(t, ContextGeneral, ASTStrategy(snap.Tree, snap.Source, pos))
	assert.Equal(t, ContextGlobal, snap.ContextAt(pos), "the line text decides when the tree cannot")

	assert.Equal(t, ContextGeneral, ASTStrategy(nil, snap.Source, pos))
	assert.Equal(t, ContextGeneral, ASTStrategy(snap.Tree, snap.Source, Position{Line: 99}))
	assert.Equal(t, ContextGeneral, Classify(nil, snap.Source))
}

func TestClassify_Catch(t *testing.T) {
	source := `(module
  (tag $e (param i32))
  (func
    block $outer
      try_table $h (catch $e 0) (catch_all 0)
      end
    end))`
	snap := parseSnapshot(t, source)
	assert.Equal(t, ContextTag, snap.ContextAt(at(t, source, "$e", 1)))
	zero := at(t, source, "0)", 0)
	assert.Equal(t, ContextBranch, snap.ContextAt(zero))
	zero = at(t, source, "0)", 1)
	assert.Equal(t, ContextBranch, snap.ContextAt(zero))
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want Context
	}{
		{"call $foo", ContextCall},
		{"  (call_indirect (type $t))", ContextCall},
		{"local.tee $x", ContextLocal},
		{"(global.get $g)", ContextGlobal},
		{"br_if 0", ContextBranch},
		{"block $b", ContextBlock},
		{"loop", ContextBlock},
		{"(table.get $t (i32.const 0))", ContextTable},
		{"memory.grow", ContextMemory},
		{"(data $d \"abc\")", ContextData},
		{"(elem $e func $f)", ContextElem},
		{"struct.new $point", ContextType},
		{"ref.cast (ref $t)", ContextType},
		{"throw $exn", ContextTag},
		{"(func $f", ContextFunction},
		{"$recall", ContextGeneral},
		{"i32.add", ContextGeneral},
		{"", ContextGeneral},
	}
	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			assert.Equal(t, test.want, ClassifyLine(test.line))
		})
	}
}

// firstPlainInstr returns the first plain instruction in a parsed function.
func firstPlainInstr(t *testing.T, body string) (syntax.Node, []byte) {
	t.Helper()
	src := []byte("(func " + body + ")")
	tree := watparser.New().ParseTree(src)
	var found syntax.Node
	astutil.Inspect(tree.Root(), func(n syntax.Node) bool {
		if found == nil && n.Kind() == "instr_plain" {
			found = n
		}
		return found == nil
	})
	require.NotNil(t, found, body)
	return found, src
}

func TestClassifyNode(t *testing.T) {
	tests := []struct {
		instr string
		want  Context
	}{
		{"call $f", ContextCall},
		{"return_call 0", ContextCall},
		{"ref.func $f", ContextCall},
		{"call_indirect $t (type 0)", ContextTable},
		{"call_ref $sig", ContextType},
		{"struct.get $s 0", ContextType},
		{"array.new_fixed $a 3", ContextType},
		{"br 0", ContextBranch},
		{"br_table 0 1 2", ContextBranch},
		{"local.set 0", ContextLocal},
		{"global.get $g", ContextGlobal},
		{"memory.init $d", ContextData},
		{"data.drop 0", ContextData},
		{"table.init $e", ContextElem},
		{"elem.drop 0", ContextElem},
		{"table.get $t", ContextTable},
		{"memory.size", ContextMemory},
		{"i64.load offset=8", ContextMemory},
		{"f32.store", ContextMemory},
		{"throw $e", ContextTag},
		{"rethrow 0", ContextBranch},
		{"i32.add", ContextGeneral},
		{"i32.const 7", ContextGeneral},
	}
	for _, test := range tests {
		t.Run(test.instr, func(t *testing.T) {
			n, src := firstPlainInstr(t, test.instr)
			assert.Equal(t, test.want, ClassifyNode(n, src))
		})
	}
}

func TestFallback(t *testing.T) {
	calls := 0
	general := func(syntax.Tree, []byte, Position) Context {
		calls++
		return ContextGeneral
	}
	memory := func(syntax.Tree, []byte, Position) Context {
		calls++
		return ContextMemory
	}
	never := func(syntax.Tree, []byte, Position) Context {
		t.Fatal("strategies after a conclusive one must not run")
		return ContextGeneral
	}
	policy := Fallback(general, memory, never)
	assert.Equal(t, ContextMemory, policy(nil, nil, Position{}))
	assert.Equal(t, 2, calls)
	assert.Equal(t, ContextGeneral, Fallback()(nil, nil, Position{}))
	assert.Equal(t, ContextGeneral, Fallback(general)(nil, nil, Position{}))
}

func TestContextString(t *testing.T) {
	assert.Equal(t, "call", ContextCall.String())
	assert.Equal(t, "elem", ContextElem.String())
	assert.Equal(t, "general", Context(-1).String())
}
