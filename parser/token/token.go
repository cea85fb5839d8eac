// Copyright © 2024 The wat-lsp authors

package token

import "fmt"

// Source is an abstract stream of tokens which allows one token lookahead.
type Source interface {
	// Token returns the current token.  Token returns nil if Scan has not been
	// called.
	Token() *Token
	// Peek returns the next token in the stream.  At the end of the stream
	// Peek should return a value to indicate the lack of a token (EOF).
	Peek() *Token
	// Scan advances the token stream if possible.  If there are no tokens
	// remaining Scan returns false.
	Scan() bool
}

type Token struct {
	Type   Type
	Text   string
	Source *Location
}

// End returns the byte offset just past the token.
func (tok *Token) End() int {
	return tok.Source.Pos + len(tok.Text)
}

type Type uint

// Type constants used for the WAT lexer/parser.
const (
	INVALID Type = iota
	ERROR
	EOF

	// Atoms
	KEYWORD // module, func, i32.add, offset=4 ...
	ID      // $name
	NAT
	INT // signed integer
	FLOAT
	STRING
	RESERVED // anything else the text format reserves

	COMMENT_LINE
	COMMENT_BLOCK

	// Delimiters
	PAREN_L
	PAREN_R

	numTokenTypes
)

func (typ Type) String() string {
	typeStrings := [numTokenTypes]string{
		INVALID:       "invalid",
		ERROR:         "error",
		EOF:           "EOF",
		KEYWORD:       "keyword",
		ID:            "id",
		NAT:           "nat",
		INT:           "int",
		FLOAT:         "float",
		STRING:        "string",
		RESERVED:      "reserved",
		COMMENT_LINE:  ";;",
		COMMENT_BLOCK: "(;",
		PAREN_L:       "(",
		PAREN_R:       ")",
	}
	if typ >= numTokenTypes {
		return typeStrings[INVALID]
	}
	return typeStrings[typ]
}

// IsComment reports whether typ is one of the comment token types.
func (typ Type) IsComment() bool {
	return typ == COMMENT_LINE || typ == COMMENT_BLOCK
}

type Location struct {
	File string // a name representing the source stream
	Pos  int    // byte offset
	Line int    // line number (starting at 1)
	Col  int    // byte column (starting at 1)
}

func (loc *Location) String() string {
	switch {
	case loc.Pos < 0:
		return loc.File
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

type LocationError struct {
	Err    error
	Source *Location
}

func (err *LocationError) Error() string {
	return fmt.Sprintf("%s: %s", err.Source, err.Err)
}

func (err *LocationError) Unwrap() error {
	return err.Err
}
