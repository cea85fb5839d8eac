// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

const sampleSource = `(module
  (global $counter (mut i32) (i32.const 0))
  (func $add (param $a i32) (param $b i32) (result i32)
    local.get $a
    local.get $b
    i32.add)
  (func $main (export "main") (result i32)
    (local $tmp i32)
    block $done
      (call $add (i32.const 1) (i32.const 2))
      local.set $tmp
      br $done
    end
    call $add
    local.get $tmp))`

// testServer creates a server that analyzes changes without delay and
// never exits the process.
func testServer(opts ...Option) *Server {
	s := New(append([]Option{WithDebounce(0)}, opts...)...)
	s.exitFn = func(int) {}
	return s
}

// openDoc opens a document in the test server and returns its snapshot.
func openDoc(t *testing.T, s *Server, uri, content string) *analysis.Snapshot {
	t.Helper()
	snap, err := s.docs.Open(uri, 1, content)
	require.NoError(t, err)
	return snap
}

// mockContext returns a minimal glsp.Context for testing.
func mockContext() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {},
	}
}

// diagnosticsCapture records published diagnostics.  Publishing may happen
// on a debounce timer so access is synchronized.
type diagnosticsCapture struct {
	mu        sync.Mutex
	published []*protocol.PublishDiagnosticsParams
}

func (c *diagnosticsCapture) all() []*protocol.PublishDiagnosticsParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*protocol.PublishDiagnosticsParams(nil), c.published...)
}

// capturingContext returns a context that captures published diagnostics.
func capturingContext() (*glsp.Context, *diagnosticsCapture) {
	c := &diagnosticsCapture{}
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				c.mu.Lock()
				c.published = append(c.published, params.(*protocol.PublishDiagnosticsParams))
				c.mu.Unlock()
			}
		},
	}
	return ctx, c
}

// posOf returns the position of the nth occurrence of needle in src plus
// delta characters.  Test sources are ASCII so bytes and UTF-16 units agree.
func posOf(t *testing.T, src, needle string, nth, delta int) protocol.Position {
	t.Helper()
	offset := -1
	for i := 0; i <= nth; i++ {
		next := strings.Index(src[offset+1:], needle)
		require.GreaterOrEqual(t, next, 0, "occurrence %d of %q", nth, needle)
		offset += next + 1
	}
	p := analysis.OffsetToPosition([]byte(src), offset+delta)
	return protocol.Position{Line: safeUint(p.Line), Character: safeUint(p.Character)}
}

func positionParams(uri string, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
}

// completionLabels extracts labels from a completion result.
func completionLabels(t *testing.T, result any) []string {
	t.Helper()
	require.NotNil(t, result, "completion result should not be nil")
	items, ok := result.([]protocol.CompletionItem)
	require.True(t, ok, "completion result should be []CompletionItem, got %T", result)
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	return labels
}

// --- Position conversion tests ---

func TestPositionConversion_UTF16(t *testing.T) {
	src := []byte("a\U0001F600b\ncd")

	// The emoji is four bytes and two UTF-16 units.
	assert.Equal(t, protocol.Position{Line: 0, Character: 3},
		toProtocolPosition(src, analysis.Position{Line: 0, Character: 5}))
	assert.Equal(t, analysis.Position{Line: 0, Character: 5},
		fromProtocolPosition(src, protocol.Position{Line: 0, Character: 3}))

	// A position inside a surrogate pair snaps to the start of the rune.
	assert.Equal(t, analysis.Position{Line: 0, Character: 1},
		fromProtocolPosition(src, protocol.Position{Line: 0, Character: 2}))

	// Positions past the end of a line clamp on the way out.
	assert.Equal(t, protocol.Position{Line: 1, Character: 2},
		toProtocolPosition(src, analysis.Position{Line: 1, Character: 99}))
}

func TestPositionConversion_RoundTrip(t *testing.T) {
	src := []byte(";; café\n(func $f)")
	for _, p := range []analysis.Position{
		{Line: 0, Character: 0},
		{Line: 0, Character: 8},
		{Line: 1, Character: 6},
	} {
		assert.Equal(t, p, fromProtocolPosition(src, toProtocolPosition(src, p)))
	}
}

func TestMapSymbolKind(t *testing.T) {
	assert.Equal(t, protocol.SymbolKindFunction, mapSymbolKind(analysis.TargetFunction))
	assert.Equal(t, protocol.SymbolKindVariable, mapSymbolKind(analysis.TargetLocal))
	assert.Equal(t, protocol.SymbolKindStruct, mapSymbolKind(analysis.TargetType))
	assert.Equal(t, protocol.SymbolKindEvent, mapSymbolKind(analysis.TargetTag))
}

// --- Document store tests ---

func TestDocumentStore_Versions(t *testing.T) {
	s := testServer()
	uri := "file:///store.wat"

	_, err := s.docs.Open(uri, 1, "(module)")
	require.NoError(t, err)

	snap, err := s.docs.Change(uri, 3, "(module (func $f))")
	require.NoError(t, err)
	assert.Equal(t, int32(3), snap.Version)

	_, err = s.docs.Change(uri, 2, "(module (func $old))")
	assert.ErrorIs(t, err, ErrStaleVersion)
	_, err = s.docs.Change(uri, 3, "(module (func $same))")
	assert.ErrorIs(t, err, ErrStaleVersion)

	current := s.docs.Get(uri)
	require.NotNil(t, current)
	assert.Equal(t, "(module (func $f))", string(current.Source))
	assert.True(t, s.docs.IsCurrent(uri, 3))
	assert.False(t, s.docs.IsCurrent(uri, 1))

	s.docs.Close(uri)
	assert.Nil(t, s.docs.Get(uri))
	assert.False(t, s.docs.IsCurrent(uri, 3))
}

func TestDocumentStore_URIsSorted(t *testing.T) {
	s := testServer()
	openDoc(t, s, "file:///b.wat", "(module)")
	openDoc(t, s, "file:///a.wat", "(module)")
	assert.Equal(t, []string{"file:///a.wat", "file:///b.wat"}, s.docs.URIs())
}

// --- Diagnostics tests ---

func TestDiagnostics_PublishedOnOpen(t *testing.T) {
	s := testServer()
	ctx, captured := capturingContext()
	uri := "file:///diag.wat"
	src := "(module\n  (func\n    call $nope))"

	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "wat", Version: 1, Text: src},
	})
	require.NoError(t, err)

	published := captured.all()
	require.Len(t, published, 1)
	assert.Equal(t, uri, published[0].URI)
	require.NotNil(t, published[0].Version)
	assert.Equal(t, protocol.UInteger(1), *published[0].Version)
	require.Len(t, published[0].Diagnostics, 1)

	d := published[0].Diagnostics[0]
	assert.Contains(t, d.Message, "undefined function $nope")
	assert.Equal(t, "undefined-reference", d.Code.Value)
	require.NotNil(t, d.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, posOf(t, src, "$nope", 0, 0), d.Range.Start)
	assert.Equal(t, posOf(t, src, "$nope", 0, 5), d.Range.End)
}

func TestDiagnostics_CleanDocumentPublishesEmptyList(t *testing.T) {
	s := testServer()
	ctx, captured := capturingContext()
	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: "file:///clean.wat", Version: 1, Text: sampleSource},
	})
	require.NoError(t, err)
	published := captured.all()
	require.Len(t, published, 1)
	assert.NotNil(t, published[0].Diagnostics)
	assert.Empty(t, published[0].Diagnostics)
}

func TestDiagnostics_DebouncedChange(t *testing.T) {
	s := testServer(WithDebounce(10 * time.Millisecond))
	ctx, captured := capturingContext()
	uri := "file:///debounce.wat"
	require.NoError(t, s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: "(module)"},
	}))

	for v, text := range []string{"(module (func", "(module (func call $x))"} {
		require.NoError(t, s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
				Version:                protocol.Integer(v + 2),
			},
			ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
		}))
	}

	// Only the last change is analyzed.
	require.Eventually(t, func() bool { return len(captured.all()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	published := captured.all()
	require.Len(t, published, 2)
	assert.Equal(t, protocol.UInteger(3), *published[1].Version)
	require.Len(t, published[1].Diagnostics, 1)
	assert.Contains(t, published[1].Diagnostics[0].Message, "$x")
}

func TestDiagnostics_OutOfOrderChangeIgnored(t *testing.T) {
	s := testServer()
	uri := "file:///order.wat"
	_, err := s.docs.Open(uri, 5, "(module (func $new))")
	require.NoError(t, err)

	err = s.textDocumentDidChange(mockContext(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                4,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "(module (func $old))"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "(module (func $new))", string(s.docs.Get(uri).Source))
}

func TestDiagnostics_StaleResultsDiscarded(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	s := testServer(WithTracerProvider(tp))
	ctx, captured := capturingContext()
	s.captureNotify(ctx)
	uri := "file:///stale.wat"

	old := openDoc(t, s, uri, "(module (func call $a))")
	_, err := s.docs.Change(uri, 2, "(module (func call $b))")
	require.NoError(t, err)

	s.analyzeAndPublish(uri, old)
	assert.Empty(t, captured.all(), "diagnostics for a superseded version must not be published")

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	last := spans[len(spans)-1]
	assert.Equal(t, "textDocument/publishDiagnostics", last.Name)
	assert.Contains(t, last.Attributes, attribute.Bool("lsp.stale", true))
}

func TestDiagnostics_ClearedOnClose(t *testing.T) {
	s := testServer()
	ctx, captured := capturingContext()
	uri := "file:///close.wat"
	require.NoError(t, s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: "(module (func call $x))"},
	}))
	require.NoError(t, s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))

	published := captured.all()
	require.Len(t, published, 2)
	assert.Empty(t, published[1].Diagnostics)
	assert.Nil(t, s.docs.Get(uri))
}

func TestConvertLintDiagnostic_Notes(t *testing.T) {
	s := testServer()
	src := "(module\n  (func\n    br 3))"
	snap := openDoc(t, s, "file:///notes.wat", src)
	diags, err := s.linter.LintSnapshot(snap, "notes.wat")
	require.NoError(t, err)
	require.Len(t, diags, 1)

	d := convertLintDiagnostic(snap.Source, diags[0])
	assert.Contains(t, d.Message, "branch depth 3 is out of range")
	assert.Contains(t, d.Message, "\n0 enclosing block(s)")
	require.NotNil(t, d.Source)
	assert.Equal(t, "wat-lint", *d.Source)
	assert.Equal(t, posOf(t, src, "3", 0, 0), d.Range.Start)
}

// --- Navigation tests ---

func TestDefinition(t *testing.T) {
	s := testServer()
	uri := "file:///def.wat"
	openDoc(t, s, uri, sampleSource)

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$add", 1, 2)),
	})
	require.NoError(t, err)
	loc, ok := result.(protocol.Location)
	require.True(t, ok, "definition should be a Location, got %T", result)
	assert.Equal(t, uri, loc.URI)
	assert.Equal(t, posOf(t, sampleSource, "$add", 0, 0), loc.Range.Start)
	assert.Equal(t, posOf(t, sampleSource, "$add", 0, 4), loc.Range.End)
}

func TestDefinition_Label(t *testing.T) {
	s := testServer()
	uri := "file:///label.wat"
	openDoc(t, s, uri, sampleSource)

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "br $done", 0, 4)),
	})
	require.NoError(t, err)
	loc, ok := result.(protocol.Location)
	require.True(t, ok)
	assert.Equal(t, posOf(t, sampleSource, "$done", 0, 0), loc.Range.Start)
}

func TestDefinition_NothingAtCursor(t *testing.T) {
	s := testServer()
	uri := "file:///none.wat"
	openDoc(t, s, uri, sampleSource)

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "i32.add", 0, 1)),
	})
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: positionParams("file:///missing.wat", protocol.Position{}),
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestReferences(t *testing.T) {
	s := testServer()
	uri := "file:///refs.wat"
	openDoc(t, s, uri, sampleSource)
	pos := posOf(t, sampleSource, "$add", 0, 1)

	locs, err := s.textDocumentReferences(mockContext(), &protocol.ReferenceParams{
		TextDocumentPositionParams: positionParams(uri, pos),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: false},
	})
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, protocol.UInteger(9), locs[0].Range.Start.Line)
	assert.Equal(t, protocol.UInteger(13), locs[1].Range.Start.Line)

	locs, err = s.textDocumentReferences(mockContext(), &protocol.ReferenceParams{
		TextDocumentPositionParams: positionParams(uri, pos),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	})
	require.NoError(t, err)
	require.Len(t, locs, 3)
	assert.Equal(t, protocol.UInteger(2), locs[0].Range.Start.Line)
}

func TestDocumentHighlight(t *testing.T) {
	s := testServer()
	uri := "file:///highlight.wat"
	openDoc(t, s, uri, sampleSource)

	highlights, err := s.textDocumentDocumentHighlight(mockContext(), &protocol.DocumentHighlightParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$tmp", 1, 1)),
	})
	require.NoError(t, err)
	require.Len(t, highlights, 3)
	require.NotNil(t, highlights[0].Kind)
	assert.Equal(t, protocol.DocumentHighlightKindWrite, *highlights[0].Kind)
	for _, h := range highlights[1:] {
		require.NotNil(t, h.Kind)
		assert.Equal(t, protocol.DocumentHighlightKindRead, *h.Kind)
	}
}

// --- Rename tests ---

func TestPrepareRename(t *testing.T) {
	s := testServer()
	uri := "file:///prepare.wat"
	openDoc(t, s, uri, sampleSource)

	result, err := s.textDocumentPrepareRename(mockContext(), &protocol.PrepareRenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$add", 2, 2)),
	})
	require.NoError(t, err)
	r, ok := result.(*protocol.RangeWithPlaceholder)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, "$add", r.Placeholder)
	assert.Equal(t, posOf(t, sampleSource, "$add", 2, 0), r.Range.Start)

	// Keywords are not renameable.
	result, err = s.textDocumentPrepareRename(mockContext(), &protocol.PrepareRenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "local.get", 0, 2)),
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestPrepareRename_UnnamedTarget(t *testing.T) {
	s := testServer()
	uri := "file:///unnamed.wat"
	src := "(module\n  (func)\n  (func\n    call 0))"
	openDoc(t, s, uri, src)

	result, err := s.textDocumentPrepareRename(mockContext(), &protocol.PrepareRenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "call 0", 0, 5)),
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestRename(t *testing.T) {
	s := testServer()
	uri := "file:///rename.wat"
	openDoc(t, s, uri, sampleSource)

	edit, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$add", 0, 1)),
		NewName:                    "sum",
	})
	require.NoError(t, err)
	require.NotNil(t, edit)
	edits := edit.Changes[uri]
	require.Len(t, edits, 3)
	for _, e := range edits {
		assert.Equal(t, "$sum", e.NewText)
	}
}

func TestRename_NumericIndexRewritten(t *testing.T) {
	s := testServer()
	uri := "file:///rename-index.wat"
	src := "(module\n  (func $f)\n  (func\n    call 0))"
	openDoc(t, s, uri, src)

	edit, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "$f", 0, 1)),
		NewName:                    "$g",
	})
	require.NoError(t, err)
	edits := edit.Changes[uri]
	require.Len(t, edits, 2)
	assert.Equal(t, posOf(t, src, "0", 0, 0), edits[1].Range.Start)
	assert.Equal(t, "$g", edits[1].NewText)
}

func TestRename_BlockLabelWithClosingLabel(t *testing.T) {
	s := testServer()
	uri := "file:///rename-label.wat"
	src := "(module\n  (func\n    block $l\n      br $l\n    end $l))"
	openDoc(t, s, uri, src)

	edit, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "$l", 0, 1)),
		NewName:                    "$exit",
	})
	require.NoError(t, err)
	require.NotNil(t, edit)
	edits := edit.Changes[uri]
	require.Len(t, edits, 3)
	for i, e := range edits {
		assert.Equal(t, posOf(t, src, "$l", i, 0), e.Range.Start)
		assert.Equal(t, "$exit", e.NewText)
	}
}

func TestRename_SegmentMemory(t *testing.T) {
	s := testServer()
	uri := "file:///rename-memory.wat"
	src := "(module\n  (memory $m 1)\n  (data (memory $m) (i32.const 0) \"x\"))"
	openDoc(t, s, uri, src)

	edit, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "$m", 0, 1)),
		NewName:                    "$heap",
	})
	require.NoError(t, err)
	require.NotNil(t, edit)
	edits := edit.Changes[uri]
	require.Len(t, edits, 2)
	assert.Equal(t, posOf(t, src, "$m", 1, 0), edits[1].Range.Start)
}

func TestRename_InvalidName(t *testing.T) {
	s := testServer()
	uri := "file:///rename-bad.wat"
	openDoc(t, s, uri, sampleSource)

	_, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$add", 0, 1)),
		NewName:                    "a b",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid identifier")

	_, err = s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "i32.add", 0, 1)),
		NewName:                    "$x",
	})
	assert.Error(t, err)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, validIdentifier("$x"))
	assert.True(t, validIdentifier("$my_func.1"))
	assert.False(t, validIdentifier("$"))
	assert.False(t, validIdentifier("x"))
	assert.False(t, validIdentifier("$a(b"))
}

// --- Hover tests ---

func TestHover_Function(t *testing.T) {
	s := testServer()
	uri := "file:///hover.wat"
	openDoc(t, s, uri, sampleSource)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$add", 1, 1)),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindPlainText, content.Kind)
	assert.Equal(t, "(func $add (param i32 i32) (result i32))\nfunction 0", content.Value)
	require.NotNil(t, hover.Range)
	assert.Equal(t, posOf(t, sampleSource, "$add", 1, 0), hover.Range.Start)
}

func TestHover_ExportedFunction(t *testing.T) {
	s := testServer()
	uri := "file:///hover-export.wat"
	openDoc(t, s, uri, sampleSource)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$main", 0, 1)),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content := hover.Contents.(protocol.MarkupContent)
	assert.Contains(t, content.Value, "function 1")
	assert.Contains(t, content.Value, `exported as "main"`)
}

func TestHover_LocalAndGlobal(t *testing.T) {
	s := testServer()
	uri := "file:///hover-vars.wat"
	openDoc(t, s, uri, sampleSource)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$tmp", 2, 1)),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "(local $tmp i32)\nlocal 0", hover.Contents.(protocol.MarkupContent).Value)

	hover, err = s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$counter", 0, 1)),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Contains(t, hover.Contents.(protocol.MarkupContent).Value, "(global $counter (mut i32))")
}

func TestHover_Whitespace(t *testing.T) {
	s := testServer()
	uri := "file:///hover-ws.wat"
	openDoc(t, s, uri, sampleSource)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(uri, protocol.Position{Line: 3, Character: 1}),
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

// --- Document symbol tests ---

func TestDocumentSymbol(t *testing.T) {
	s := testServer()
	uri := "file:///symbols.wat"
	openDoc(t, s, uri, sampleSource)

	result, err := s.textDocumentDocumentSymbol(mockContext(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	syms, ok := result.([]protocol.DocumentSymbol)
	require.True(t, ok, "got %T", result)
	require.Len(t, syms, 3)

	assert.Equal(t, "$counter", syms[0].Name)
	assert.Equal(t, protocol.SymbolKindVariable, syms[0].Kind)

	add := syms[1]
	assert.Equal(t, "$add", add.Name)
	assert.Equal(t, protocol.SymbolKindFunction, add.Kind)
	assert.Equal(t, protocol.UInteger(2), add.Range.Start.Line)
	assert.Equal(t, protocol.UInteger(5), add.Range.End.Line)
	assert.Equal(t, posOf(t, sampleSource, "$add", 0, 0), add.SelectionRange.Start)
	require.Len(t, add.Children, 2)
	assert.Equal(t, "$a", add.Children[0].Name)
	assert.Equal(t, "$b", add.Children[1].Name)

	main := syms[2]
	assert.Equal(t, "$main", main.Name)
	var children []string
	for _, c := range main.Children {
		children = append(children, c.Name)
	}
	assert.Equal(t, []string{"$tmp", "$done"}, children)
}

// --- Completion tests ---

func TestCompletion_Call(t *testing.T) {
	s := testServer()
	uri := "file:///complete-call.wat"
	src := "(module\n  (func $add)\n  (func $apply)\n  (global $g i32 (i32.const 0))\n  (func $run\n    call $a))"
	openDoc(t, s, uri, src)

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "call $a", 0, 7)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"$add", "$apply"}, completionLabels(t, result))

	items := result.([]protocol.CompletionItem)
	require.NotNil(t, items[0].Kind)
	assert.Equal(t, protocol.CompletionItemKindFunction, *items[0].Kind)
	require.NotNil(t, items[0].Detail)
	assert.Equal(t, "(func $add)", *items[0].Detail)
}

func TestCompletion_Locals(t *testing.T) {
	s := testServer()
	uri := "file:///complete-local.wat"
	src := "(module\n  (func $other (param $z i32))\n  (func $run (param $x i32) (local $y i32)\n    local.get $x))"
	openDoc(t, s, uri, src)

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "local.get $x", 0, 11)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"$x", "$y"}, completionLabels(t, result))
}

func TestCompletion_Labels(t *testing.T) {
	s := testServer()
	uri := "file:///complete-label.wat"
	src := "(module\n  (func\n    block $outer\n      block $inner\n        br $inner\n      end\n    end))"
	openDoc(t, s, uri, src)

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "br $inner", 0, 4)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"$inner", "$outer"}, completionLabels(t, result))
}

func TestCompletion_NotInComments(t *testing.T) {
	s := testServer()
	uri := "file:///complete-comment.wat"
	src := "(module\n  ;; call $f\n  (func $f))"
	openDoc(t, s, uri, src)

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "$f", 0, 1)),
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDedupeByName(t *testing.T) {
	targets := []*analysis.Target{
		{Kind: analysis.TargetFunction, Name: "$f", Index: 0},
		{Kind: analysis.TargetGlobal, Name: "$f", Index: 0},
		{Kind: analysis.TargetFunction, Name: "$f", Index: 1},
	}
	out := dedupeByName(targets)
	require.Len(t, out, 2)
	assert.Equal(t, analysis.TargetGlobal, out[0].Kind)
	assert.Equal(t, 1, out[1].Index)
}

// --- Signature help tests ---

func TestSignatureHelp_Folded(t *testing.T) {
	s := testServer()
	uri := "file:///sig.wat"
	src := "(module\n  (func $add (param $a i32) (param $b i32) (result i32) local.get $a)\n  (func\n    (call $add (i32.const 1) (i32.const 2))))"
	openDoc(t, s, uri, src)

	help, err := s.textDocumentSignatureHelp(mockContext(), &protocol.SignatureHelpParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "(i32.const 2", 0, 1)),
	})
	require.NoError(t, err)
	require.NotNil(t, help)
	require.Len(t, help.Signatures, 1)
	sig := help.Signatures[0]
	assert.Equal(t, "(func $add (param $a i32) (param $b i32) (result i32))", sig.Label)
	require.Len(t, sig.Parameters, 2)
	assert.Equal(t, []protocol.UInteger{11, 25}, sig.Parameters[0].Label)
	require.NotNil(t, help.ActiveParameter)
	assert.Equal(t, protocol.UInteger(1), *help.ActiveParameter)
}

func TestSignatureHelp_Flat(t *testing.T) {
	s := testServer()
	uri := "file:///sig-flat.wat"
	src := "(module\n  (func $f (param i32))\n  (func\n    i32.const 1\n    call $f))"
	openDoc(t, s, uri, src)

	help, err := s.textDocumentSignatureHelp(mockContext(), &protocol.SignatureHelpParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, src, "call $f", 0, 6)),
	})
	require.NoError(t, err)
	require.NotNil(t, help)
	assert.Equal(t, "(func $f (param i32))", help.Signatures[0].Label)
	assert.Equal(t, protocol.UInteger(0), *help.ActiveParameter)
}

func TestSignatureHelp_OutsideCall(t *testing.T) {
	s := testServer()
	uri := "file:///sig-none.wat"
	openDoc(t, s, uri, sampleSource)

	help, err := s.textDocumentSignatureHelp(mockContext(), &protocol.SignatureHelpParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "i32.add", 0, 1)),
	})
	require.NoError(t, err)
	assert.Nil(t, help)
}

// --- Server tests ---

func TestInitialize_Capabilities(t *testing.T) {
	s := testServer()
	result, err := s.initialize(mockContext(), &protocol.InitializeParams{})
	require.NoError(t, err)
	init, ok := result.(protocol.InitializeResult)
	require.True(t, ok, "got %T", result)
	require.NotNil(t, init.ServerInfo)
	assert.Equal(t, "wat-lsp", init.ServerInfo.Name)
	caps := init.Capabilities
	assert.NotNil(t, caps.DefinitionProvider)
	assert.NotNil(t, caps.ReferencesProvider)
	assert.NotNil(t, caps.RenameProvider)
	assert.NotNil(t, caps.HoverProvider)
	require.NotNil(t, caps.CompletionProvider)
	assert.Contains(t, caps.CompletionProvider.TriggerCharacters, "$")
	assert.NotNil(t, caps.CodeActionProvider)
	tokens, ok := caps.SemanticTokensProvider.(*protocol.SemanticTokensOptions)
	require.True(t, ok, "got %T", caps.SemanticTokensProvider)
	assert.Equal(t, semanticTokenLegend(), tokens.Legend)
	assert.Equal(t, true, tokens.Full)
}

func TestTracing_HandlerSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	s := testServer(WithTracerProvider(tp))
	uri := "file:///trace.wat"
	openDoc(t, s, uri, sampleSource)

	_, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$add", 1, 1)),
	})
	require.NoError(t, err)
	_, err = s.textDocumentReferences(mockContext(), &protocol.ReferenceParams{
		TextDocumentPositionParams: positionParams(uri, posOf(t, sampleSource, "$add", 1, 1)),
	})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "textDocument/definition", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("lsp.uri", uri))
	assert.Equal(t, "textDocument/references", spans[1].Name)
	assert.Contains(t, spans[1].Attributes, attribute.Int("lsp.references", 2))
}
