// Copyright © 2024 The wat-lsp authors

// Package lexer splits WebAssembly text into tokens.
package lexer

import (
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/parser/token"
)

type LexFn func(*Lexer) *token.Token

type Lexer struct {
	scanner *token.Scanner
	lex     LexFn
}

func New(s *token.Scanner) *Lexer {
	return &Lexer{
		scanner: s,
		lex:     (*Lexer).readToken,
	}
}

// Tokenize returns every token in src, comments included, terminated by an
// EOF token.
func Tokenize(file string, src []byte) []*token.Token {
	lex := New(token.NewScanner(file, src))
	var toks []*token.Token
	for {
		tok := lex.ReadToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (lex *Lexer) ReadToken() *token.Token {
	return lex.lex(lex)
}

func (lex *Lexer) readToken() *token.Token {
	lex.skipWhitespace()
	switch {
	case lex.scanner.EOF():
		return lex.scanner.EmitToken(token.EOF)
	case lex.scanner.AcceptString(";;"):
		lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
		return lex.scanner.EmitToken(token.COMMENT_LINE)
	case lex.scanner.AcceptString("(;"):
		return lex.readBlockComment()
	case lex.scanner.AcceptRune('('):
		return lex.scanner.EmitToken(token.PAREN_L)
	case lex.scanner.AcceptRune(')'):
		return lex.scanner.EmitToken(token.PAREN_R)
	case lex.scanner.AcceptRune('"'):
		return lex.readString()
	case lex.scanner.AcceptSeq(isIDChar) > 0:
		return lex.scanner.EmitToken(classifyAtom(lex.scanner.Text()))
	default:
		// A rune that can never start a token (e.g. ',' or '{').
		lex.scanner.ScanRune()
		return lex.scanner.EmitToken(token.INVALID)
	}
}

// readBlockComment scans a possibly nested (; ... ;) comment.  An
// unterminated comment extends to the end of input and is reported as an
// error token.
func (lex *Lexer) readBlockComment() *token.Token {
	depth := 1
	for depth > 0 {
		switch {
		case lex.scanner.AcceptString("(;"):
			depth++
		case lex.scanner.AcceptString(";)"):
			depth--
		case !lex.scanner.ScanRune():
			return lex.scanner.EmitToken(token.ERROR)
		}
	}
	return lex.scanner.EmitToken(token.COMMENT_BLOCK)
}

// readString scans a string literal whose opening quote has been accepted.
// Escapes are not decoded; a string left open at the end of the line is an
// error token.
func (lex *Lexer) readString() *token.Token {
	for {
		c, ok := lex.scanner.Peek()
		switch {
		case !ok || c == '\n':
			return lex.scanner.EmitToken(token.ERROR)
		case c == '"':
			lex.scanner.ScanRune()
			return lex.scanner.EmitToken(token.STRING)
		case c == '\\':
			lex.scanner.ScanRune()
			lex.scanner.Accept(func(c rune) bool { return c != '\n' })
		default:
			lex.scanner.ScanRune()
		}
	}
}

func (lex *Lexer) skipWhitespace() {
	if lex.scanner.AcceptSeq(isSpace) > 0 {
		lex.scanner.Ignore()
	}
}

func classifyAtom(text string) token.Type {
	switch {
	case strings.HasPrefix(text, "$"):
		if len(text) == 1 {
			return token.RESERVED
		}
		return token.ID
	case text[0] >= 'a' && text[0] <= 'z':
		if isFloatKeyword(text) {
			return token.FLOAT
		}
		return token.KEYWORD
	case isNat(text):
		return token.NAT
	case (text[0] == '+' || text[0] == '-') && isNat(text[1:]):
		return token.INT
	case isFloat(text):
		return token.FLOAT
	}
	return token.RESERVED
}

// IsNat reports whether text is an unsigned WAT integer literal (decimal or
// 0x hexadecimal, with optional '_' separators).
func IsNat(text string) bool {
	return isNat(text)
}

func isNat(text string) bool {
	digits := text
	hex := false
	if strings.HasPrefix(text, "0x") {
		digits = text[2:]
		hex = true
	}
	if digits == "" || digits[0] == '_' || digits[len(digits)-1] == '_' {
		return false
	}
	for _, c := range digits {
		switch {
		case c == '_':
		case isDigit(c):
		case hex && isHexLetter(c):
		default:
			return false
		}
	}
	return true
}

func isFloatKeyword(text string) bool {
	return text == "inf" || text == "nan" || strings.HasPrefix(text, "nan:0x")
}

func isFloat(text string) bool {
	if text[0] == '+' || text[0] == '-' {
		text = text[1:]
	}
	if text == "" {
		return false
	}
	if isFloatKeyword(text) {
		return true
	}
	hex := strings.HasPrefix(text, "0x")
	if hex {
		text = text[2:]
	}
	sawDigit := false
	for _, c := range text {
		switch {
		case isDigit(c), hex && isHexLetter(c):
			sawDigit = true
		case c == '_', c == '.', c == '+', c == '-':
		case !hex && (c == 'e' || c == 'E'):
		case hex && (c == 'p' || c == 'P'):
		default:
			return false
		}
	}
	return sawDigit
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// isIDChar reports whether c may appear in a keyword, identifier or number.
func isIDChar(c rune) bool {
	if c <= ' ' || c > '~' {
		return false
	}
	return !strings.ContainsRune("\"(),;[]{}", c)
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isHexLetter(c rune) bool {
	return ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
