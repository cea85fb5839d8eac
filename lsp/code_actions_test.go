// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const actionSource = `(module
  (func $main
    (local $scratch i32)
    call $missing))
`

func lintDiag(analyzer string, start, end protocol.Position) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:   protocol.Range{Start: start, End: end},
		Source:  strPtr(lintSource),
		Code:    &protocol.IntegerOrString{Value: analyzer},
		Message: analyzer,
	}
}

func codeActions(t *testing.T, s *Server, uri string, only []string, diags ...protocol.Diagnostic) []protocol.CodeAction {
	t.Helper()
	result, err := s.textDocumentCodeAction(mockContext(), &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Context:      protocol.CodeActionContext{Diagnostics: diags, Only: only},
	})
	require.NoError(t, err)
	if result == nil {
		return nil
	}
	actions, ok := result.([]protocol.CodeAction)
	require.True(t, ok, "got %T", result)
	return actions
}

func TestCodeActionSuppressLint(t *testing.T) {
	s := testServer()
	uri := "file:///actions.wat"
	openDoc(t, s, uri, actionSource)

	start := posOf(t, actionSource, "$missing", 0, 0)
	end := posOf(t, actionSource, "$missing", 0, 8)
	actions := codeActions(t, s, uri, nil, lintDiag("undefined-reference", start, end))
	require.Len(t, actions, 1)

	action := actions[0]
	assert.Equal(t, "Suppress with ;; nolint:undefined-reference", action.Title)
	require.NotNil(t, action.Kind)
	assert.Equal(t, protocol.CodeActionKindQuickFix, *action.Kind)
	require.Len(t, action.Diagnostics, 1)

	edits := action.Edit.Changes[uri]
	require.Len(t, edits, 1)
	eol := protocol.Position{Line: 3, Character: 19}
	assert.Equal(t, protocol.Range{Start: eol, End: eol}, edits[0].Range)
	assert.Equal(t, " ;; nolint:undefined-reference", edits[0].NewText)
}

func TestCodeActionRemoveUnusedLocal(t *testing.T) {
	s := testServer()
	uri := "file:///unused.wat"
	openDoc(t, s, uri, actionSource)

	start := posOf(t, actionSource, "$scratch", 0, 0)
	end := posOf(t, actionSource, "$scratch", 0, 8)
	actions := codeActions(t, s, uri, nil, lintDiag("unused-local", start, end))
	require.Len(t, actions, 2)

	remove := actions[0]
	assert.Equal(t, "Remove unused local $scratch", remove.Title)
	edits := remove.Edit.Changes[uri]
	require.Len(t, edits, 1)
	// The declaration is alone on its line so the whole line goes.
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 2, Character: 0},
		End:   protocol.Position{Line: 3, Character: 0},
	}, edits[0].Range)
	assert.Empty(t, edits[0].NewText)

	assert.Equal(t, "Suppress with ;; nolint:unused-local", actions[1].Title)
}

func TestCodeActionRemoveUnusedLocal_SharedLine(t *testing.T) {
	src := "(module (func $f (local $x i32) (local $y i32) local.get $y drop))"
	s := testServer()
	uri := "file:///shared.wat"
	openDoc(t, s, uri, src)

	start := posOf(t, src, "$x", 0, 0)
	actions := codeActions(t, s, uri, nil, lintDiag("unused-local", start, start))
	require.Len(t, actions, 2)

	edits := actions[0].Edit.Changes[uri]
	require.Len(t, edits, 1)
	// The removal takes the space before the form.
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 16},
		End:   protocol.Position{Line: 0, Character: 31},
	}, edits[0].Range)
}

func TestCodeActionNoDiagnostics(t *testing.T) {
	s := testServer()
	uri := "file:///clean.wat"
	openDoc(t, s, uri, actionSource)

	assert.Empty(t, codeActions(t, s, uri, nil))

	// Diagnostics from other sources get no fixes.
	other := protocol.Diagnostic{Source: strPtr("wat"), Message: "syntax"}
	assert.Empty(t, codeActions(t, s, uri, nil, other))
	assert.Empty(t, codeActions(t, s, "file:///missing.wat", nil))
}

func TestCodeActionOnlyFilter(t *testing.T) {
	s := testServer()
	uri := "file:///only.wat"
	openDoc(t, s, uri, actionSource)

	start := posOf(t, actionSource, "$missing", 0, 0)
	diag := lintDiag("undefined-reference", start, start)
	assert.Empty(t, codeActions(t, s, uri, []string{protocol.CodeActionKindRefactor}, diag))
	assert.Len(t, codeActions(t, s, uri, []string{protocol.CodeActionKindQuickFix}, diag), 1)
}
