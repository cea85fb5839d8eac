// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"bytes"
	"strings"
)

// PositionToOffset converts a position to a byte offset in src.  A column
// past the end of its line is clamped to the line end.  It returns false
// when the line does not exist.
func PositionToOffset(src []byte, pos Position) (int, bool) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, false
	}
	start := 0
	for line := 0; line < pos.Line; line++ {
		i := bytes.IndexByte(src[start:], '\n')
		if i < 0 {
			return 0, false
		}
		start += i + 1
	}
	end := bytes.IndexByte(src[start:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += start
	}
	return min(start+pos.Character, end), true
}

// OffsetToPosition converts a byte offset in src to a position.
func OffsetToPosition(src []byte, offset int) Position {
	offset = max(0, min(offset, len(src)))
	line := bytes.Count(src[:offset], []byte{'\n'})
	lineStart := bytes.LastIndexByte(src[:offset], '\n') + 1
	return Position{Line: line, Character: offset - lineStart}
}

// LineAt returns the text of a zero-based line without its terminator, or
// "" when the line does not exist.
func LineAt(src []byte, line int) string {
	if line < 0 {
		return ""
	}
	for i := 0; i < line; i++ {
		j := bytes.IndexByte(src, '\n')
		if j < 0 {
			return ""
		}
		src = src[j+1:]
	}
	if j := bytes.IndexByte(src, '\n'); j >= 0 {
		src = src[:j]
	}
	return strings.TrimSuffix(string(src), "\r")
}

// IsWordChar reports whether c can be part of a WAT identifier or keyword.
func IsWordChar(c byte) bool {
	if c <= ' ' || c > '~' {
		return false
	}
	return !strings.ContainsRune("\"(),;[]{}", rune(c))
}

// WordAt returns the identifier, keyword or number touching pos along with
// its range.  A cursor just past the end of a word selects that word.
func WordAt(src []byte, pos Position) (string, Range, bool) {
	line := LineAt(src, pos.Line)
	col := min(max(pos.Character, 0), len(line))
	start := col
	for start > 0 && IsWordChar(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && IsWordChar(line[end]) {
		end++
	}
	if start == end {
		return "", Range{}, false
	}
	return line[start:end], Range{
		Start: Position{Line: pos.Line, Character: start},
		End:   Position{Line: pos.Line, Character: end},
	}, true
}
