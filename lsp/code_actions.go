// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	"go.opentelemetry.io/otel/attribute"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/astutil"
)

const lintSource = "wat-lint"

// textDocumentCodeAction handles the textDocument/codeAction request.
// It returns quick-fix actions for lint diagnostics in the request context.
func (s *Server) textDocumentCodeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	uri := params.TextDocument.URI
	span := s.startSpan("textDocument/codeAction", uri)
	defer span.End()

	snap := s.docs.Get(uri)
	if snap == nil {
		return nil, nil
	}

	// If the client only wants specific kinds, check we support them.
	if len(params.Context.Only) > 0 {
		if !slicesContains(params.Context.Only, protocol.CodeActionKindQuickFix) {
			return nil, nil
		}
	}

	var actions []protocol.CodeAction
	for _, diag := range params.Context.Diagnostics {
		if diag.Source == nil || *diag.Source != lintSource || diag.Code == nil {
			continue
		}
		analyzer := fmt.Sprintf("%v", diag.Code.Value)
		if analyzer == "" {
			continue
		}
		if analyzer == "unused-local" {
			if action, ok := removeLocalAction(uri, diag, snap); ok {
				actions = append(actions, action)
			}
		}
		actions = append(actions, suppressLintAction(uri, diag, analyzer, snap.Source))
	}
	span.SetAttributes(attribute.Int("lsp.actions", len(actions)))

	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

// suppressLintAction creates a code action that adds a ;; nolint:analyzer
// comment to the end of the diagnostic line.
func suppressLintAction(uri string, diag protocol.Diagnostic, analyzer string, src []byte) protocol.CodeAction {
	line := analysis.LineAt(src, int(diag.Range.Start.Line))
	lineEnd := utf16Len(strings.TrimSuffix(line, "\r"))

	insertPos := protocol.Position{Line: diag.Range.Start.Line, Character: safeUint(lineEnd)}
	return quickFix(
		fmt.Sprintf("Suppress with ;; nolint:%s", analyzer),
		uri, diag,
		protocol.TextEdit{
			Range:   protocol.Range{Start: insertPos, End: insertPos},
			NewText: " ;; nolint:" + analyzer,
		})
}

// removeLocalAction deletes the (local ...) declaration the diagnostic
// points at.  Declarations naming a local hold exactly one local, so the
// whole form goes.  A form alone on its line takes the line with it.
func removeLocalAction(uri string, diag protocol.Diagnostic, snap *analysis.Snapshot) (protocol.CodeAction, bool) {
	if snap.Tree == nil {
		return protocol.CodeAction{}, false
	}
	src := snap.Source
	offset, ok := analysis.PositionToOffset(src, fromProtocolPosition(src, diag.Range.Start))
	if !ok {
		return protocol.CodeAction{}, false
	}
	id := astutil.NodeAt(snap.Tree.Root(), offset)
	if id == nil || id.Kind() != "identifier" {
		return protocol.CodeAction{}, false
	}
	form := astutil.Ancestor(id, "func_locals")
	if form == nil || id.Parent() == nil || id.Parent().Kind() != "func_locals_one" {
		return protocol.CodeAction{}, false
	}

	start, end := form.StartByte(), form.EndByte()
	for start > 0 && (src[start-1] == ' ' || src[start-1] == '\t') {
		start--
	}
	rest := end
	for rest < len(src) && (src[rest] == ' ' || src[rest] == '\t' || src[rest] == '\r') {
		rest++
	}
	if (start == 0 || src[start-1] == '\n') && rest < len(src) && src[rest] == '\n' {
		end = rest + 1
	}

	r := analysis.Range{
		Start: analysis.OffsetToPosition(src, start),
		End:   analysis.OffsetToPosition(src, end),
	}
	name := astutil.Text(id, src)
	return quickFix(
		fmt.Sprintf("Remove unused local %s", name),
		uri, diag,
		protocol.TextEdit{Range: toProtocolRange(src, r), NewText: ""}), true
}

func quickFix(title, uri string, diag protocol.Diagnostic, edit protocol.TextEdit) protocol.CodeAction {
	kind := protocol.CodeActionKindQuickFix
	return protocol.CodeAction{
		Title:       title,
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{diag},
		Edit: &protocol.WorkspaceEdit{
			Changes: map[string][]protocol.TextEdit{
				uri: {edit},
			},
		},
	}
}

// slicesContains checks if a string slice contains a value.
func slicesContains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
