// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// textDocumentPrepareRename validates that the symbol under the cursor
// is renameable and returns its range.
func (s *Server) textDocumentPrepareRename(_ *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	span := s.startSpan("textDocument/prepareRename", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil {
		return nil, nil
	}
	target, word := snap.TargetAt(pos)
	// Per the protocol, prepareRename returns null (not error) for
	// non-renameable symbols.  Unnamed definitions have nothing to rename.
	if !renameable(target) {
		return nil, nil
	}
	return &protocol.RangeWithPlaceholder{
		Range:       toProtocolRange(snap.Source, word),
		Placeholder: target.Name,
	}, nil
}

// textDocumentRename handles the textDocument/rename request.  Every
// usage is rewritten to the new name, including numeric indices.
func (s *Server) textDocumentRename(_ *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	span := s.startSpan("textDocument/rename", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil {
		return nil, fmt.Errorf("document not found: %s", params.TextDocument.URI)
	}
	target, _ := snap.TargetAt(pos)
	if !renameable(target) {
		return nil, fmt.Errorf("no renameable symbol at %d:%d", params.Position.Line, params.Position.Character)
	}
	newName := params.NewName
	if !strings.HasPrefix(newName, "$") {
		newName = "$" + newName
	}
	if !validIdentifier(newName) {
		return nil, fmt.Errorf("invalid identifier %q", params.NewName)
	}

	refs := analysis.References(target, snap.Tree, snap.Source, snap.Symbols, true)
	edits := make([]protocol.TextEdit, 0, len(refs))
	for _, r := range refs {
		edits = append(edits, protocol.TextEdit{
			Range:   toProtocolRange(snap.Source, r),
			NewText: newName,
		})
	}
	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			params.TextDocument.URI: edits,
		},
	}, nil
}

func renameable(t *analysis.Target) bool {
	return t != nil && strings.HasPrefix(t.Name, "$")
}

// validIdentifier reports whether name is a WAT identifier.
func validIdentifier(name string) bool {
	if len(name) < 2 || name[0] != '$' {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !analysis.IsWordChar(name[i]) {
			return false
		}
	}
	return true
}
