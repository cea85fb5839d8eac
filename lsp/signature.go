// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"strings"

	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// textDocumentSignatureHelp handles textDocument/signatureHelp requests.
// It finds the call instruction enclosing the cursor, looks up the callee
// and returns its parameters.  In a folded call the operand expressions
// that end before the cursor select the active parameter.
func (s *Server) textDocumentSignatureHelp(_ *glsp.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	span := s.startSpan("textDocument/signatureHelp", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil || snap.Tree == nil {
		return nil, nil
	}
	offset, ok := analysis.PositionToOffset(snap.Source, pos)
	if !ok {
		return nil, nil
	}
	call, argIdx := enclosingCall(snap.Tree.Root(), offset, snap.Source)
	if call == nil {
		return nil, nil
	}
	fn := resolveCallee(snap, call, pos)
	if fn == nil {
		return nil, nil
	}
	return buildSignatureHelp(fn, argIdx), nil
}

// enclosingCall returns the innermost call or return_call instruction
// around offset along with the number of operand expressions that end
// before offset.
func enclosingCall(root syntax.Node, offset int, src []byte) (syntax.Node, int) {
	for n := astutil.NodeAt(root, offset); n != nil; n = n.Parent() {
		switch n.Kind() {
		case "instr_plain":
			if isCallOp(astutil.HeadToken(n, src)) {
				return n, 0
			}
		case "expr":
			head := astutil.FirstChild(n, "expr1_plain")
			if head == nil || !isCallOp(astutil.HeadToken(head, src)) {
				continue
			}
			args := 0
			for _, arg := range astutil.ChildrenOfKind(n, "expr") {
				if arg.EndByte() <= offset {
					args++
				}
			}
			return head, args
		}
	}
	return nil, 0
}

func isCallOp(op string) bool {
	return op == "call" || op == "return_call"
}

// resolveCallee resolves the first immediate of a call instruction.
func resolveCallee(snap *analysis.Snapshot, call syntax.Node, pos analysis.Position) *analysis.Function {
	idx := astutil.FirstChild(call, "index")
	if idx == nil {
		return nil
	}
	text := strings.TrimSpace(astutil.Text(idx, snap.Source))
	var t *analysis.Target
	if strings.HasPrefix(text, "$") {
		t = analysis.ResolveNamed(text, snap.Symbols, analysis.ContextCall, pos)
	} else if n, ok := analysis.ParseNat(text); ok {
		t = analysis.ResolveIndexed(int(n), snap.Symbols, analysis.ContextCall, pos, snap.Tree, snap.Source)
	}
	if t == nil || t.Kind != analysis.TargetFunction {
		return nil
	}
	return snap.Symbols.Functions.At(t.Index)
}

// buildSignatureHelp renders the function type with one labeled span per
// parameter.
func buildSignatureHelp(fn *analysis.Function, argIdx int) *protocol.SignatureHelp {
	var label strings.Builder
	label.WriteString("(func")
	if fn.Name != "" {
		label.WriteString(" " + fn.Name)
	}
	var params []protocol.ParameterInformation
	for _, p := range fn.Params {
		label.WriteString(" ")
		start := utf16Len(label.String())
		label.WriteString("(param ")
		if p.Name != "" {
			label.WriteString(p.Name + " ")
		}
		label.WriteString(p.Type.String() + ")")
		end := utf16Len(label.String())
		params = append(params, protocol.ParameterInformation{
			Label: []protocol.UInteger{safeUint(start), safeUint(end)},
		})
	}
	for _, r := range fn.Results {
		label.WriteString(" (result " + r.String() + ")")
	}
	label.WriteString(")")

	if len(params) > 0 && argIdx >= len(params) {
		argIdx = len(params) - 1
	}
	active := safeUint(argIdx)
	var zero protocol.UInteger
	return &protocol.SignatureHelp{
		Signatures: []protocol.SignatureInformation{{
			Label:      label.String(),
			Parameters: params,
		}},
		ActiveSignature: &zero,
		ActiveParameter: &active,
	}
}
