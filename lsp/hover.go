// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// textDocumentHover handles the textDocument/hover request.  The hover
// shows the declaration of the definition under the cursor as plain text.
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	span := s.startSpan("textDocument/hover", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil {
		return nil, nil
	}
	target, word := snap.TargetAt(pos)
	content := buildHoverContent(target, snap.Symbols)
	if content == "" {
		return nil, nil
	}
	r := toProtocolRange(snap.Source, word)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindPlainText,
			Value: content,
		},
		Range: &r,
	}, nil
}

// buildHoverContent renders the declaration followed by the index of the
// definition in its space.
func buildHoverContent(t *analysis.Target, st *analysis.SymbolTable) string {
	decl := analysis.Describe(t, st)
	if decl == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(decl)
	switch t.Kind {
	case analysis.TargetBlockLabel:
		fmt.Fprintf(&sb, "\nlabel on line %d", t.Line+1)
	default:
		fmt.Fprintf(&sb, "\n%s %d", t.Kind, t.Index)
	}
	if t.Kind == analysis.TargetFunction {
		if fn := st.Functions.At(t.Index); fn != nil {
			if fn.Imported {
				sb.WriteString(" (imported)")
			}
			for _, name := range fn.Exports {
				fmt.Fprintf(&sb, "\nexported as %q", name)
			}
		}
	}
	return sb.String()
}
