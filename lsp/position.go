// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// fromProtocolPosition converts an LSP position, whose character counts
// UTF-16 code units, into an engine position counting bytes.  Characters
// past the end of the line are carried over unchanged so that the engine
// sees a position beyond the line's last byte.
func fromProtocolPosition(src []byte, pos protocol.Position) analysis.Position {
	line := analysis.LineAt(src, int(pos.Line))
	units := int(pos.Character)
	col := 0
	for col < len(line) && units > 0 {
		r, size := utf8.DecodeRuneInString(line[col:])
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		if units < n {
			break
		}
		units -= n
		col += size
	}
	if col == len(line) {
		col += units
	}
	return analysis.Position{Line: int(pos.Line), Character: col}
}

// toProtocolPosition converts an engine position into an LSP position.
func toProtocolPosition(src []byte, pos analysis.Position) protocol.Position {
	line := analysis.LineAt(src, pos.Line)
	col := pos.Character
	if col > len(line) {
		col = len(line)
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{
		Line:      safeUint(pos.Line),
		Character: safeUint(utf16Len(line[:col])),
	}
}

// toProtocolRange converts an engine range into an LSP range.
func toProtocolRange(src []byte, r analysis.Range) protocol.Range {
	return protocol.Range{
		Start: toProtocolPosition(src, r.Start),
		End:   toProtocolPosition(src, r.End),
	}
}

// utf16Len returns the number of UTF-16 code units needed to encode s.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if k := utf16.RuneLen(r); k > 0 {
			n += k
		} else {
			n++
		}
	}
	return n
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}

// mapSymbolKind converts an engine target kind to an LSP symbol kind.
func mapSymbolKind(kind analysis.TargetKind) protocol.SymbolKind {
	switch kind {
	case analysis.TargetFunction:
		return protocol.SymbolKindFunction
	case analysis.TargetGlobal:
		return protocol.SymbolKindVariable
	case analysis.TargetLocal, analysis.TargetParameter:
		return protocol.SymbolKindVariable
	case analysis.TargetBlockLabel:
		return protocol.SymbolKindKey
	case analysis.TargetTable:
		return protocol.SymbolKindArray
	case analysis.TargetMemory:
		return protocol.SymbolKindObject
	case analysis.TargetType:
		return protocol.SymbolKindStruct
	case analysis.TargetTag:
		return protocol.SymbolKindEvent
	case analysis.TargetData, analysis.TargetElem:
		return protocol.SymbolKindConstant
	default:
		return protocol.SymbolKindVariable
	}
}
