// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"strconv"

	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// callHierarchyData is stored in CallHierarchyItem.Data to carry context
// between prepare and incoming/outgoing calls requests.  Functions are
// identified by index because they need not be named.
type callHierarchyData struct {
	URI   string `json:"uri"`
	Index int    `json:"index"`
}

// textDocumentPrepareCallHierarchy handles the textDocument/prepareCallHierarchy request.
func (s *Server) textDocumentPrepareCallHierarchy(_ *glsp.Context, params *protocol.CallHierarchyPrepareParams) ([]protocol.CallHierarchyItem, error) {
	span := s.startSpan("textDocument/prepareCallHierarchy", params.TextDocument.URI)
	defer span.End()

	snap, pos := s.snapshotAt(params.TextDocumentPositionParams)
	if snap == nil {
		return nil, nil
	}
	target, _ := snap.TargetAt(pos)
	// Only functions have a call hierarchy.
	if target == nil || target.Kind != analysis.TargetFunction {
		return nil, nil
	}
	fn := snap.Symbols.Functions.At(target.Index)
	if fn == nil {
		return nil, nil
	}
	return []protocol.CallHierarchyItem{functionItem(snap.Source, fn, params.TextDocument.URI)}, nil
}

// callHierarchyIncomingCalls handles the callHierarchy/incomingCalls request.
// It finds all functions that call the target function.
func (s *Server) callHierarchyIncomingCalls(_ *glsp.Context, params *protocol.CallHierarchyIncomingCallsParams) ([]protocol.CallHierarchyIncomingCall, error) {
	data := decodeCallHierarchyData(params.Item.Data)
	if data == nil {
		return nil, nil
	}
	span := s.startSpan("callHierarchy/incomingCalls", data.URI)
	defer span.End()

	snap := s.docs.Get(data.URI)
	if snap == nil {
		return nil, nil
	}

	// Group call sites by the calling function, in order of first call.
	var order []*analysis.Function
	callers := make(map[*analysis.Function][]protocol.Range)
	for _, site := range analysis.CallSites(snap.Tree, snap.Source, snap.Symbols) {
		if site.Callee.Index != data.Index {
			continue
		}
		if _, ok := callers[site.Caller]; !ok {
			order = append(order, site.Caller)
		}
		callers[site.Caller] = append(callers[site.Caller], toProtocolRange(snap.Source, site.Range))
	}

	result := make([]protocol.CallHierarchyIncomingCall, 0, len(order))
	for _, fn := range order {
		result = append(result, protocol.CallHierarchyIncomingCall{
			From:       functionItem(snap.Source, fn, data.URI),
			FromRanges: callers[fn],
		})
	}
	return result, nil
}

// callHierarchyOutgoingCalls handles the callHierarchy/outgoingCalls request.
// It finds all functions called from within the target function.
func (s *Server) callHierarchyOutgoingCalls(_ *glsp.Context, params *protocol.CallHierarchyOutgoingCallsParams) ([]protocol.CallHierarchyOutgoingCall, error) {
	data := decodeCallHierarchyData(params.Item.Data)
	if data == nil {
		return nil, nil
	}
	span := s.startSpan("callHierarchy/outgoingCalls", data.URI)
	defer span.End()

	snap := s.docs.Get(data.URI)
	if snap == nil {
		return nil, nil
	}

	var order []*analysis.Function
	callees := make(map[*analysis.Function][]protocol.Range)
	for _, site := range analysis.CallSites(snap.Tree, snap.Source, snap.Symbols) {
		if site.Caller.Index != data.Index {
			continue
		}
		if _, ok := callees[site.Callee]; !ok {
			order = append(order, site.Callee)
		}
		callees[site.Callee] = append(callees[site.Callee], toProtocolRange(snap.Source, site.Range))
	}

	result := make([]protocol.CallHierarchyOutgoingCall, 0, len(order))
	for _, fn := range order {
		result = append(result, protocol.CallHierarchyOutgoingCall{
			To:         functionItem(snap.Source, fn, data.URI),
			FromRanges: callees[fn],
		})
	}
	return result, nil
}

// functionItem creates a CallHierarchyItem for a function.
func functionItem(src []byte, fn *analysis.Function, uri string) protocol.CallHierarchyItem {
	item := analysis.OutlineItem{
		Name:    fn.Name,
		Kind:    analysis.TargetFunction,
		Index:   fn.Index,
		Line:    fn.Line,
		EndLine: max(fn.EndLine, fn.Line),
		Range:   fn.Range,
	}
	if item.Name == "" {
		item.Name = "func " + strconv.Itoa(fn.Index)
	}
	sym := documentSymbol(src, item)
	var detail *string
	if sig := fn.Signature(); sig != "" {
		detail = &sig
	}
	return protocol.CallHierarchyItem{
		Name:           item.Name,
		Kind:           protocol.SymbolKindFunction,
		Detail:         detail,
		URI:            uri,
		Range:          sym.Range,
		SelectionRange: sym.SelectionRange,
		Data: callHierarchyData{
			URI:   uri,
			Index: fn.Index,
		},
	}
}

// decodeCallHierarchyData extracts callHierarchyData from the item's
// Data field, which arrives as a map after a JSON round trip.
func decodeCallHierarchyData(data any) *callHierarchyData {
	if data == nil {
		return nil
	}
	// Direct struct (in-process / test path).
	if d, ok := data.(callHierarchyData); ok {
		return &d
	}
	if d, ok := data.(*callHierarchyData); ok {
		return d
	}
	// JSON-deserialized path (over the wire).
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	uri, _ := m["uri"].(string)
	index, ok := m["index"].(float64)
	if uri == "" || !ok {
		return nil
	}
	return &callHierarchyData{URI: uri, Index: int(index)}
}
