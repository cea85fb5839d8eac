// Copyright © 2024 The wat-lsp authors

package token

import (
	"bytes"
	"unicode/utf8"
)

// Scanner facilitates construction of tokens from an in-memory document.
// Token locations carry byte offsets so that parse trees can report exact
// byte ranges.
type Scanner struct {
	file string
	src  []byte

	start     int // start of the current token
	startLine int
	startCol  int

	pos  int // offset of the next unscanned byte
	line int // line number at pos
	col  int // byte column at pos
	c    rune
}

// NewScanner initializes and returns a new Scanner over src.
func NewScanner(file string, src []byte) *Scanner {
	return &Scanner{
		file:      file,
		src:       src,
		line:      1,
		col:       1,
		startLine: 1,
		startCol:  1,
	}
}

// EmitToken returns a token containing the text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) EmitToken(typ Type) *Token {
	tok := &Token{
		Type:   typ,
		Text:   s.Text(),
		Source: s.LocStart(),
	}
	s.Ignore()
	return tok
}

// Ignore causes the scanner to skip all text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) Ignore() {
	s.start = s.pos
	s.startLine = s.line
	s.startCol = s.col
}

// Text returns a string containing text scanned since the last call to either
// EmitToken or Ignore.
func (s *Scanner) Text() string {
	return string(s.src[s.start:s.pos])
}

// Rune returns the last rune scanned.
func (s *Scanner) Rune() rune {
	return s.c
}

// EOF returns true if all input has been scanned.
func (s *Scanner) EOF() bool {
	return s.pos >= len(s.src)
}

// Peek returns the next rune to be scanned without consuming it.  Peek
// returns false at the end of input.
func (s *Scanner) Peek() (rune, bool) {
	if s.EOF() {
		return 0, false
	}
	c, _ := utf8.DecodeRune(s.src[s.pos:])
	return c, true
}

// HasPrefix reports whether the unscanned input begins with literal.
func (s *Scanner) HasPrefix(literal string) bool {
	return bytes.HasPrefix(s.src[s.pos:], []byte(literal))
}

// ScanRune consumes one rune.  It returns false at the end of input.
// Invalid utf-8 bytes are consumed one at a time as utf8.RuneError.
func (s *Scanner) ScanRune() bool {
	if s.EOF() {
		return false
	}
	c, n := utf8.DecodeRune(s.src[s.pos:])
	s.pos += n
	s.c = c
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col += n
	}
	return true
}

// Accept scans the next rune if it satisfies fn.
func (s *Scanner) Accept(fn func(rune) bool) bool {
	c, ok := s.Peek()
	if !ok || !fn(c) {
		return false
	}
	return s.ScanRune()
}

// AcceptRune scans the next rune if it is c.
func (s *Scanner) AcceptRune(c rune) bool {
	return s.Accept(func(r rune) bool { return r == c })
}

// AcceptSeq scans runes as long as they satisfy fn and returns the number of
// runes scanned.
func (s *Scanner) AcceptSeq(fn func(rune) bool) int {
	n := 0
	for s.Accept(fn) {
		n++
	}
	return n
}

// AcceptString scans literal if the unscanned input begins with it.
func (s *Scanner) AcceptString(literal string) bool {
	if !s.HasPrefix(literal) {
		return false
	}
	for range literal {
		s.ScanRune()
	}
	return true
}

// LocStart returns a Location referencing the beginning of the current token.
func (s *Scanner) LocStart() *Location {
	return &Location{
		File: s.file,
		Pos:  s.start,
		Line: s.startLine,
		Col:  s.startCol,
	}
}

// Loc returns a Location referencing the current scanner position.
func (s *Scanner) Loc() *Location {
	return &Location{
		File: s.file,
		Pos:  s.pos,
		Line: s.line,
		Col:  s.col,
	}
}
