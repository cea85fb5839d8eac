// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"sort"
	"strings"

	"github.com/tliron/glsp"
	"go.opentelemetry.io/otel/attribute"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Semantic token type indices.  Must match the order in semanticTokenLegend().
const (
	semTokenNamespace = iota
	semTokenType
	semTokenParameter
	semTokenVariable
	semTokenFunction
	semTokenEvent
	semTokenProperty
	semTokenKeyword
	semTokenComment
	semTokenString
	semTokenNumber
)

// Semantic token modifier bit flags.  Must match the order in semanticTokenLegend().
const (
	semModDefinition = 1 << iota
	semModReadonly
)

// semanticTokenLegend returns the legend that the client uses to decode tokens.
func semanticTokenLegend() protocol.SemanticTokensLegend {
	return protocol.SemanticTokensLegend{
		TokenTypes: []string{
			"namespace", // 0 block labels
			"type",      // 1
			"parameter", // 2
			"variable",  // 3 locals and globals
			"function",  // 4
			"event",     // 5 tags
			"property",  // 6 tables, memories, data and elem segments
			"keyword",   // 7
			"comment",   // 8
			"string",    // 9
			"number",    // 10
		},
		TokenModifiers: []string{
			"definition", // bit 0
			"readonly",   // bit 1 immutable globals
		},
	}
}

// rawToken is an intermediate representation before delta encoding.
// Columns and lengths are in UTF-16 code units.
type rawToken struct {
	line      int // 0-based
	startChar int // 0-based
	length    int
	tokenType int
	modifiers int
}

// textDocumentSemanticTokensFull handles the textDocument/semanticTokens/full request.
func (s *Server) textDocumentSemanticTokensFull(_ *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	span := s.startSpan("textDocument/semanticTokens/full", params.TextDocument.URI)
	defer span.End()

	snap := s.docs.Get(params.TextDocument.URI)
	if snap == nil || snap.Tree == nil {
		return nil, nil
	}
	tokens := collectSemanticTokens(snap)

	// Sort by position (line, then character).
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].line != tokens[j].line {
			return tokens[i].line < tokens[j].line
		}
		return tokens[i].startChar < tokens[j].startChar
	})
	span.SetAttributes(attribute.Int("lsp.tokens", len(tokens)))
	return &protocol.SemanticTokens{Data: deltaEncode(tokens)}, nil
}

// tokenClass is the type and modifiers of one identifier.
type tokenClass struct {
	tokenType int
	modifiers int
}

// collectSemanticTokens walks the tree and classifies every leaf.
// Identifiers take the kind of the definition they declare or resolve to.
func collectSemanticTokens(snap *analysis.Snapshot) []rawToken {
	src := snap.Source
	idents := identifierClasses(snap)

	var tokens []rawToken
	emit := func(n syntax.Node, class tokenClass) {
		tokens = appendNodeTokens(tokens, src, n, class)
	}
	astutil.Inspect(snap.Tree.Root(), func(n syntax.Node) bool {
		if n.IsMissing() {
			return false
		}
		if astutil.IsComment(n) {
			emit(n, tokenClass{tokenType: semTokenComment})
			return false
		}
		if n.ChildCount() > 0 || n.IsError() {
			return true
		}
		switch n.Kind() {
		case "identifier":
			class, ok := idents[n.StartByte()]
			if !ok {
				class = tokenClass{tokenType: semTokenVariable}
			}
			emit(n, class)
		case "string":
			emit(n, tokenClass{tokenType: semTokenString})
		case "nat", "int", "float":
			emit(n, tokenClass{tokenType: semTokenNumber})
		case "num_type":
			emit(n, tokenClass{tokenType: semTokenType})
		case "op":
			emit(n, tokenClass{tokenType: semTokenKeyword})
		default:
			if isKeywordLeaf(n, src) {
				emit(n, tokenClass{tokenType: semTokenKeyword})
			}
		}
		return false
	})
	return tokens
}

// isKeywordLeaf reports whether n is an anonymous keyword token such as
// "module", "func" or "funcref".  Anonymous leaves are named by their text.
func isKeywordLeaf(n syntax.Node, src []byte) bool {
	kind := n.Kind()
	if kind == "" || kind[0] < 'a' || kind[0] > 'z' {
		return false
	}
	return astutil.Text(n, src) == kind
}

// identifierClasses maps the start byte of each defining or referring
// identifier to its token class.
func identifierClasses(snap *analysis.Snapshot) map[int]tokenClass {
	st := snap.Symbols
	src := snap.Source
	classes := make(map[int]tokenClass)

	var define func(items []analysis.OutlineItem)
	define = func(items []analysis.OutlineItem) {
		for _, item := range items {
			if item.Range != nil {
				if off, ok := analysis.PositionToOffset(src, item.Range.Start); ok {
					classes[off] = tokenClass{
						tokenType: kindTokenType(item.Kind),
						modifiers: semModDefinition | readonlyModifier(st, item.Kind, item.Index),
					}
				}
			}
			define(item.Children)
		}
	}
	define(analysis.Outline(st))

	analysis.Usages(snap.Tree, src, func(u analysis.Usage) {
		if u.Token.Kind() != "identifier" {
			return
		}
		if _, ok := classes[u.Token.StartByte()]; ok {
			return
		}
		if t := analysis.ResolveUsage(u, st, src); t != nil {
			classes[u.Token.StartByte()] = tokenClass{
				tokenType: kindTokenType(t.Kind),
				modifiers: readonlyModifier(st, t.Kind, t.Index),
			}
			return
		}
		classes[u.Token.StartByte()] = tokenClass{tokenType: contextTokenType(u.Context)}
	})
	return classes
}

// kindTokenType converts an engine target kind to a semantic token type.
func kindTokenType(kind analysis.TargetKind) int {
	switch kind {
	case analysis.TargetFunction:
		return semTokenFunction
	case analysis.TargetParameter:
		return semTokenParameter
	case analysis.TargetBlockLabel:
		return semTokenNamespace
	case analysis.TargetType:
		return semTokenType
	case analysis.TargetTag:
		return semTokenEvent
	case analysis.TargetTable, analysis.TargetMemory, analysis.TargetData, analysis.TargetElem:
		return semTokenProperty
	default:
		return semTokenVariable
	}
}

// contextTokenType classifies an identifier that resolves to nothing by
// the kind its instruction expects.
func contextTokenType(ctx analysis.Context) int {
	switch ctx {
	case analysis.ContextCall, analysis.ContextFunction:
		return semTokenFunction
	case analysis.ContextBranch:
		return semTokenNamespace
	case analysis.ContextType:
		return semTokenType
	case analysis.ContextTag:
		return semTokenEvent
	case analysis.ContextTable, analysis.ContextMemory, analysis.ContextData, analysis.ContextElem:
		return semTokenProperty
	default:
		return semTokenVariable
	}
}

func readonlyModifier(st *analysis.SymbolTable, kind analysis.TargetKind, index int) int {
	if kind != analysis.TargetGlobal {
		return 0
	}
	if g := st.Globals.At(index); g != nil && !g.Mutable {
		return semModReadonly
	}
	return 0
}

// appendNodeTokens appends one token per line covered by n.  Clients are
// not required to support tokens that span lines.
func appendNodeTokens(tokens []rawToken, src []byte, n syntax.Node, class tokenClass) []rawToken {
	text := astutil.Text(n, src)
	start := toProtocolPosition(src, analysis.OffsetToPosition(src, n.StartByte()))
	line, char := int(start.Line), int(start.Character)
	for i, piece := range strings.Split(text, "\n") {
		piece = strings.TrimSuffix(piece, "\r")
		if i > 0 {
			line++
			char = 0
		}
		if length := utf16Len(piece); length > 0 {
			tokens = append(tokens, rawToken{
				line: line, startChar: char, length: length,
				tokenType: class.tokenType, modifiers: class.modifiers,
			})
		}
	}
	return tokens
}

// deltaEncode converts sorted raw tokens into the LSP delta-encoded format.
// Each token is 5 integers: [deltaLine, deltaStartChar, length, tokenType, tokenModifiers].
func deltaEncode(tokens []rawToken) []protocol.UInteger {
	data := make([]protocol.UInteger, 0, len(tokens)*5)
	prevLine := 0
	prevChar := 0
	for _, tok := range tokens {
		deltaLine := tok.line - prevLine
		deltaChar := tok.startChar
		if deltaLine == 0 {
			deltaChar = tok.startChar - prevChar
		}
		data = append(data,
			safeUint(deltaLine),
			safeUint(deltaChar),
			safeUint(tok.length),
			safeUint(tok.tokenType),
			safeUint(tok.modifiers),
		)
		prevLine = tok.line
		prevChar = tok.startChar
	}
	return data
}
