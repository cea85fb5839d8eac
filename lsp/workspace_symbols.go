// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"strings"

	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// workspaceSymbol handles the workspace/symbol request.
// It returns the module-level definitions of every open document that
// match the query string. An empty query returns all symbols.
func (s *Server) workspaceSymbol(_ *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	span := s.startSpan("workspace/symbol", "")
	defer span.End()

	query := strings.ToLower(params.Query)
	var results []protocol.SymbolInformation
	for _, uri := range s.docs.URIs() {
		snap := s.docs.Get(uri)
		if snap == nil {
			continue
		}
		for _, item := range analysis.Outline(snap.Symbols) {
			if item.Range == nil || !matchesQuery(item.Name, query) {
				continue
			}
			results = append(results, protocol.SymbolInformation{
				Name: item.Name,
				Kind: mapSymbolKind(item.Kind),
				Location: protocol.Location{
					URI:   uri,
					Range: toProtocolRange(snap.Source, *item.Range),
				},
			})
		}
	}
	return results, nil
}

// matchesQuery performs case-insensitive substring matching. An empty query
// matches everything (an empty string requests all symbols).
func matchesQuery(name, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), lowerQuery)
}
