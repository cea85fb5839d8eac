// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"errors"
	"time"

	"github.com/tliron/glsp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/lint"
)

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	uri := params.TextDocument.URI
	snap, err := s.docs.Open(uri, int32(params.TextDocument.Version), params.TextDocument.Text)
	if err != nil {
		s.log.Warn("parse failed", zap.String("uri", uri), zap.Error(err))
	}
	s.log.Debug("opened", zap.String("uri", uri), zap.Int32("version", snap.Version))
	s.analyzeAndPublish(uri, snap)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	uri := params.TextDocument.URI
	snap, err := s.docs.Change(uri, int32(params.TextDocument.Version), content)
	if errors.Is(err, ErrStaleVersion) {
		s.log.Debug("dropped out-of-order change",
			zap.String("uri", uri), zap.Int32("version", int32(params.TextDocument.Version)))
		return nil
	}
	if err != nil {
		s.log.Warn("parse failed", zap.String("uri", uri), zap.Error(err))
	}

	// Debounce: delay analysis to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
	}
	s.debounce[uri] = time.AfterFunc(s.debounceDelay, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("lint panicked", zap.String("uri", uri), zap.Any("panic", r))
			}
		}()
		s.analyzeAndPublish(uri, snap)
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	// Cancel any pending debounce and publish immediately.
	s.cancelDebounce(params.TextDocument.URI)
	if snap := s.docs.Get(params.TextDocument.URI); snap != nil {
		s.analyzeAndPublish(params.TextDocument.URI, snap)
	}
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.cancelDebounce(uri)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.docs.Close(uri)
	s.log.Debug("closed", zap.String("uri", uri))
	return nil
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// analyzeAndPublish lints a snapshot and publishes the resulting
// diagnostics, unless the document has moved on to a newer version in the
// meantime.
func (s *Server) analyzeAndPublish(uri string, snap *analysis.Snapshot) {
	span := s.startSpan("textDocument/publishDiagnostics", uri)
	defer span.End()

	diags := []protocol.Diagnostic{}
	if snap.Tree != nil {
		lintDiags, err := s.linter.LintSnapshot(snap, uriToPath(uri))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Warn("lint failed", zap.String("uri", uri), zap.Error(err))
		}
		for _, d := range lintDiags {
			diags = append(diags, convertLintDiagnostic(snap.Source, d))
		}
	}

	if !s.docs.IsCurrent(uri, snap.Version) {
		span.SetAttributes(attribute.Bool("lsp.stale", true))
		s.log.Debug("discarded stale diagnostics",
			zap.String("uri", uri), zap.Int32("version", snap.Version))
		return
	}
	span.SetAttributes(attribute.Int("lsp.diagnostics", len(diags)))
	version := protocol.UInteger(snap.Version) // #nosec G115 -- client versions are non-negative
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: diags,
	})
}

// convertLintDiagnostic converts a lint.Diagnostic, whose positions are
// one-based byte columns, to an LSP Diagnostic.
func convertLintDiagnostic(src []byte, d lint.Diagnostic) protocol.Diagnostic {
	start := lintPosition(d.Pos)
	end := start // Default: zero-width range.
	if d.EndPos.Line > 0 {
		end = lintPosition(d.EndPos)
	}
	sev := mapLintSeverity(d.Severity)
	message := d.Message
	for _, n := range d.Notes {
		message += "\n" + n
	}
	return protocol.Diagnostic{
		Range:    toProtocolRange(src, analysis.Range{Start: start, End: end}),
		Severity: &sev,
		Source:   strPtr(lintSource),
		Code:     &protocol.IntegerOrString{Value: d.Analyzer},
		Message:  message,
	}
}

func lintPosition(pos lint.Position) analysis.Position {
	line, col := pos.Line, pos.Col
	if line > 0 {
		line--
	}
	if col > 0 {
		col--
	}
	return analysis.Position{Line: line, Character: col}
}

// mapLintSeverity converts a lint.Severity to a protocol.DiagnosticSeverity.
func mapLintSeverity(sev lint.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case lint.SeverityError:
		return protocol.DiagnosticSeverityError
	case lint.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

func strPtr(s string) *string {
	return &s
}
