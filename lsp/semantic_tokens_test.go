// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const tokenSource = `(module
  ;; counter
  (global $g i32 (i32.const 7))
  (func $f (export "f") (param $p i32) (local $l i32)
    block $out
      local.get $p
      local.set $l
      br $out
    end
    call $nowhere))`

// decodeTokens reverses deltaEncode.
func decodeTokens(data []protocol.UInteger) []rawToken {
	var tokens []rawToken
	line, char := 0, 0
	for i := 0; i+4 < len(data); i += 5 {
		if data[i] > 0 {
			line += int(data[i])
			char = int(data[i+1])
		} else {
			char += int(data[i+1])
		}
		tokens = append(tokens, rawToken{
			line:      line,
			startChar: char,
			length:    int(data[i+2]),
			tokenType: int(data[i+3]),
			modifiers: int(data[i+4]),
		})
	}
	return tokens
}

func semanticTokens(t *testing.T, s *Server, uri string) []rawToken {
	t.Helper()
	result, err := s.textDocumentSemanticTokensFull(mockContext(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return decodeTokens(result.Data)
}

// tokenAt returns the token starting at pos.
func tokenAt(t *testing.T, tokens []rawToken, pos protocol.Position) rawToken {
	t.Helper()
	for _, tok := range tokens {
		if tok.line == int(pos.Line) && tok.startChar == int(pos.Character) {
			return tok
		}
	}
	require.Failf(t, "no token", "no token at %d:%d", pos.Line, pos.Character)
	return rawToken{}
}

func TestSemanticTokensFull(t *testing.T) {
	s := testServer()
	uri := "file:///tokens.wat"
	openDoc(t, s, uri, tokenSource)
	tokens := semanticTokens(t, s, uri)

	tests := []struct {
		name      string
		needle    string
		nth       int
		length    int
		tokenType int
		modifiers int
	}{
		{"module keyword", "module", 0, 6, semTokenKeyword, 0},
		{"line comment", ";; counter", 0, 10, semTokenComment, 0},
		{"immutable global", "$g", 0, 2, semTokenVariable, semModDefinition | semModReadonly},
		{"value type", "i32", 0, 3, semTokenType, 0},
		{"number", "7", 0, 1, semTokenNumber, 0},
		{"function definition", "$f", 0, 2, semTokenFunction, semModDefinition},
		{"export name", `"f"`, 0, 3, semTokenString, 0},
		{"parameter definition", "$p", 0, 2, semTokenParameter, semModDefinition},
		{"local definition", "$l", 0, 2, semTokenVariable, semModDefinition},
		{"label definition", "$out", 0, 4, semTokenNamespace, semModDefinition},
		{"instruction", "local.get", 0, 9, semTokenKeyword, 0},
		{"parameter use", "$p", 1, 2, semTokenParameter, 0},
		{"local use", "$l", 1, 2, semTokenVariable, 0},
		{"label use", "$out", 1, 4, semTokenNamespace, 0},
		{"unresolved call", "$nowhere", 0, 8, semTokenFunction, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := tokenAt(t, tokens, posOf(t, tokenSource, tt.needle, tt.nth, 0))
			assert.Equal(t, tt.length, tok.length)
			assert.Equal(t, tt.tokenType, tok.tokenType)
			assert.Equal(t, tt.modifiers, tok.modifiers)
		})
	}
}

func TestSemanticTokensFull_Sorted(t *testing.T) {
	s := testServer()
	uri := "file:///sorted.wat"
	openDoc(t, s, uri, tokenSource)
	tokens := semanticTokens(t, s, uri)
	require.NotEmpty(t, tokens)
	for i := 1; i < len(tokens); i++ {
		prev, cur := tokens[i-1], tokens[i]
		assert.True(t, prev.line < cur.line || (prev.line == cur.line && prev.startChar < cur.startChar),
			"token %d out of order", i)
	}
}

func TestSemanticTokensFull_BlockCommentSplitsLines(t *testing.T) {
	s := testServer()
	uri := "file:///block.wat"
	openDoc(t, s, uri, "(module\n  (; one\n  two ;))")
	tokens := semanticTokens(t, s, uri)

	var comments []rawToken
	for _, tok := range tokens {
		if tok.tokenType == semTokenComment {
			comments = append(comments, tok)
		}
	}
	require.Len(t, comments, 2)
	assert.Equal(t, rawToken{line: 1, startChar: 2, length: 6, tokenType: semTokenComment}, comments[0])
	assert.Equal(t, rawToken{line: 2, startChar: 0, length: 8, tokenType: semTokenComment}, comments[1])
}

func TestSemanticTokensFull_MissingDocument(t *testing.T) {
	s := testServer()
	result, err := s.textDocumentSemanticTokensFull(mockContext(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///missing.wat"},
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDeltaEncode(t *testing.T) {
	tokens := []rawToken{
		{line: 0, startChar: 0, length: 3, tokenType: semTokenKeyword, modifiers: 0},
		{line: 0, startChar: 5, length: 4, tokenType: semTokenFunction, modifiers: semModDefinition},
		{line: 1, startChar: 2, length: 1, tokenType: semTokenVariable, modifiers: 0},
	}
	data := deltaEncode(tokens)
	require.Len(t, data, 15)

	assert.Equal(t, []protocol.UInteger{0, 0, 3, semTokenKeyword, 0}, data[0:5])
	assert.Equal(t, []protocol.UInteger{0, 5, 4, semTokenFunction, semModDefinition}, data[5:10])
	// The character resets on a new line.
	assert.Equal(t, []protocol.UInteger{1, 2, 1, semTokenVariable, 0}, data[10:15])

	assert.Equal(t, tokens, decodeTokens(data))
	assert.Empty(t, deltaEncode(nil))
}

func TestSemanticTokenLegend(t *testing.T) {
	legend := semanticTokenLegend()
	require.Len(t, legend.TokenTypes, semTokenNumber+1)
	assert.Equal(t, "namespace", legend.TokenTypes[semTokenNamespace])
	assert.Equal(t, "function", legend.TokenTypes[semTokenFunction])
	assert.Equal(t, "event", legend.TokenTypes[semTokenEvent])
	assert.Equal(t, "number", legend.TokenTypes[semTokenNumber])
	assert.Equal(t, []string{"definition", "readonly"}, legend.TokenModifiers)
}
