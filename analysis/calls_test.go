// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallSites(t *testing.T) {
	src := `(module
  (func $leaf)
  (func $mid
    call $leaf
    (return_call 0))
  (func $top
    call $mid
    call $missing)
  (export "leaf" (func $leaf))
  (elem (i32.const 0) func $leaf))`
	snap := parseSnapshot(t, src)

	sites := CallSites(snap.Tree, snap.Source, snap.Symbols)
	require.Len(t, sites, 3, "exports, elem segments and unresolved calls are not call sites")

	assert.Equal(t, "$mid", sites[0].Caller.Name)
	assert.Equal(t, "$leaf", sites[0].Callee.Name)
	assert.Equal(t, at(t, src, "$leaf", 1), sites[0].Range.Start)

	assert.Equal(t, "$mid", sites[1].Caller.Name)
	assert.Equal(t, "$leaf", sites[1].Callee.Name)
	assert.Equal(t, 4, sites[1].Range.Start.Line)

	assert.Equal(t, "$top", sites[2].Caller.Name)
	assert.Equal(t, "$mid", sites[2].Callee.Name)
}

func TestCallSites_Nil(t *testing.T) {
	snap := parseSnapshot(t, "(module)")
	assert.Nil(t, CallSites(snap.Tree, snap.Source, nil))
	assert.Empty(t, CallSites(snap.Tree, snap.Source, snap.Symbols))
}
