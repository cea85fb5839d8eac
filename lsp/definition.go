// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// snapshotAt returns the current snapshot of the document named in params
// along with the request position converted to an engine position.
func (s *Server) snapshotAt(params protocol.TextDocumentPositionParams) (*analysis.Snapshot, analysis.Position) {
	snap := s.docs.Get(params.TextDocument.URI)
	if snap == nil {
		return nil, analysis.Position{}
	}
	return snap, fromProtocolPosition(snap.Source, params.Position)
}

// textDocumentDefinition handles the textDocument/definition request.
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	span := s.startSpan("textDocument/definition", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil {
		return nil, nil
	}
	def := snap.Definition(pos)
	if def == nil {
		return nil, nil
	}
	return protocol.Location{
		URI:   params.TextDocument.URI,
		Range: toProtocolRange(snap.Source, *def),
	}, nil
}
