// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"github.com/tliron/glsp"
	"go.opentelemetry.io/otel/attribute"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// textDocumentReferences handles the textDocument/references request.
// References never leave the requesting document: a WAT module is a single
// file.
func (s *Server) textDocumentReferences(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	span := s.startSpan("textDocument/references", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil {
		return nil, nil
	}
	refs := snap.References(pos, params.Context.IncludeDeclaration)
	span.SetAttributes(attribute.Int("lsp.references", len(refs)))

	locations := make([]protocol.Location, 0, len(refs))
	for _, r := range refs {
		locations = append(locations, protocol.Location{
			URI:   params.TextDocument.URI,
			Range: toProtocolRange(snap.Source, r),
		})
	}
	return locations, nil
}

// textDocumentDocumentHighlight handles the textDocument/documentHighlight
// request.  The declaration is highlighted as a write, every use as a read.
func (s *Server) textDocumentDocumentHighlight(_ *glsp.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	span := s.startSpan("textDocument/documentHighlight", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil {
		return nil, nil
	}
	target, _ := snap.TargetAt(pos)
	if target == nil {
		return nil, nil
	}
	def := analysis.DefinitionRange(target, snap.Symbols)
	refs := analysis.References(target, snap.Tree, snap.Source, snap.Symbols, true)

	highlights := make([]protocol.DocumentHighlight, 0, len(refs))
	for _, r := range refs {
		kind := protocol.DocumentHighlightKindRead
		if def != nil && r == *def {
			kind = protocol.DocumentHighlightKindWrite
		}
		highlights = append(highlights, protocol.DocumentHighlight{
			Range: toProtocolRange(snap.Source, r),
			Kind:  &kind,
		})
	}
	return highlights, nil
}
