// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// textDocumentDocumentSymbol handles the textDocument/documentSymbol request.
// Functions carry their named parameters, locals and block labels as
// children.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	span := s.startSpan("textDocument/documentSymbol", params.TextDocument.URI)
	defer span.End()

	snap := s.docs.Get(params.TextDocument.URI)
	if snap == nil {
		return nil, nil
	}
	symbols := []protocol.DocumentSymbol{}
	for _, item := range analysis.Outline(snap.Symbols) {
		symbols = append(symbols, documentSymbol(snap.Source, item))
	}
	// Return as []DocumentSymbol (the preferred hierarchical form).
	return symbols, nil
}

func documentSymbol(src []byte, item analysis.OutlineItem) protocol.DocumentSymbol {
	sel := selectionRange(src, item)
	full := protocol.Range{
		Start: protocol.Position{Line: safeUint(item.Line)},
		End: toProtocolPosition(src, analysis.Position{
			Line:      item.EndLine,
			Character: len(analysis.LineAt(src, item.EndLine)),
		}),
	}
	sym := protocol.DocumentSymbol{
		Name:           item.Name,
		Kind:           mapSymbolKind(item.Kind),
		Range:          full,
		SelectionRange: sel,
	}
	if item.Detail != "" {
		sym.Detail = strPtr(item.Detail)
	}
	for _, child := range item.Children {
		sym.Children = append(sym.Children, documentSymbol(src, child))
	}
	return sym
}

// selectionRange is the identifier of a definition, or the start of its
// line when it has none.
func selectionRange(src []byte, item analysis.OutlineItem) protocol.Range {
	if item.Range != nil {
		return toProtocolRange(src, *item.Range)
	}
	start := protocol.Position{Line: safeUint(item.Line)}
	return protocol.Range{Start: start, End: start}
}
