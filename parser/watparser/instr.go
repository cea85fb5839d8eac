// Copyright © 2024 The wat-lsp authors

package watparser

import (
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/parser/token"
)

var (
	stopEnd     = map[string]bool{"end": true}
	stopElseEnd = map[string]bool{"else": true, "end": true}
)

var simdShapes = map[string]bool{
	"i8x16": true, "i16x8": true, "i32x4": true, "i64x2": true,
	"f32x4": true, "f64x2": true,
}

// parseInstrs parses flat and folded instructions until the closing paren of
// the enclosing form, the end of input, or a keyword in stop.
func (s *state) parseInstrs(stop map[string]bool) {
	for {
		tok := s.lookahead(0)
		switch tok.Type {
		case token.EOF, token.PAREN_R:
			return
		case token.PAREN_L:
			s.parseExpr()
		case token.KEYWORD:
			if stop[tok.Text] {
				return
			}
			s.parseFlatInstr()
		default:
			s.errorToken()
		}
	}
}

func (s *state) parseFlatInstr() {
	op := s.lookahead(0).Text
	switch op {
	case "end", "else", "then":
		s.errorToken()
		return
	}
	s.open("instr")
	switch op {
	case "block", "loop":
		s.parseFlatBlock("block_" + op)
	case "if":
		s.parseFlatIf()
	case "try_table":
		s.parseFlatTryTable()
	default:
		s.open("instr_plain")
		s.parsePlainBody()
		s.close()
	}
	s.close()
}

func (s *state) parseFlatBlock(kind string) {
	s.open(kind)
	s.token()
	s.optionalLabel()
	s.parseBlockType()
	s.parseInstrs(stopEnd)
	s.parseEnd()
	s.close()
}

func (s *state) parseFlatIf() {
	s.open("block_if")
	s.token()
	s.optionalLabel()
	s.parseBlockType()
	s.parseInstrs(stopElseEnd)
	if s.isKeyword("else") {
		s.token()
		if s.lookahead(0).Type == token.ID {
			s.leaf("identifier")
		}
		s.parseInstrs(stopEnd)
	}
	s.parseEnd()
	s.close()
}

func (s *state) parseFlatTryTable() {
	s.open("block_try_table")
	s.token()
	s.optionalLabel()
	s.parseBlockType()
	s.parseCatchClauses()
	s.parseInstrs(stopEnd)
	s.parseEnd()
	s.close()
}

func (s *state) parseEnd() {
	if !s.isKeyword("end") {
		s.missing("end")
		return
	}
	s.token()
	if s.lookahead(0).Type == token.ID {
		s.leaf("identifier")
	}
}

func (s *state) parseBlockType() {
	if !s.isForm("type") && !s.isForm("param") && !s.isForm("result") {
		return
	}
	s.open("block_type")
	s.parseSignature()
	s.close()
}

func (s *state) parseCatchClauses() {
	for s.isForm("catch") || s.isForm("catch_ref") || s.isForm("catch_all") || s.isForm("catch_all_ref") {
		s.openForm("catch_clause")
		for s.parseIndex() {
		}
		s.finish()
	}
}

// parsePlainBody parses an opcode and its immediates.
func (s *state) parsePlainBody() {
	opText := s.lookahead(0).Text
	s.leaf("op").field = "op"
	literal := isLiteralOp(opText)
	for {
		tok := s.lookahead(0)
		switch tok.Type {
		case token.ID:
			s.parseIndex()
			continue
		case token.NAT:
			if literal {
				s.leaf("nat")
			} else {
				s.parseIndex()
			}
			continue
		case token.INT:
			s.leaf("int")
			continue
		case token.FLOAT:
			s.leaf("float")
			continue
		case token.KEYWORD:
			switch {
			case strings.HasPrefix(tok.Text, "offset=") || strings.HasPrefix(tok.Text, "align="):
				s.leaf("memarg")
				continue
			case heapTypes[tok.Text]:
				s.parseHeapType()
				continue
			case refTypeAbbrevs[tok.Text]:
				s.parseRefType()
				continue
			case simdShapes[tok.Text]:
				s.token()
				continue
			}
		case token.PAREN_L:
			switch {
			case s.isForm("type"):
				s.parseTypeUse()
				continue
			case s.isForm("param"):
				s.parseParams("param", "func_type_params", "func_type_params_one", "func_type_params_many")
				continue
			case s.isForm("result"):
				s.parseResults()
				continue
			case s.isForm("ref"):
				s.parseRefType()
				continue
			}
		}
		return
	}
}

// isLiteralOp reports whether the numeric immediates of op are constants
// rather than indices.
func isLiteralOp(op string) bool {
	return strings.HasSuffix(op, ".const") || strings.HasSuffix(op, ".shuffle")
}

// parseExpr parses a folded instruction.
func (s *state) parseExpr() {
	s.open("expr")
	s.token()
	tok := s.lookahead(0)
	if tok.Type != token.KEYWORD {
		s.finish()
		return
	}
	switch tok.Text {
	case "block", "loop":
		s.parseFoldedBlock("expr1_" + tok.Text)
	case "if":
		s.parseFoldedIf()
	case "try_table":
		s.parseFoldedTryTable()
	default:
		s.open("expr1_plain")
		s.parsePlainBody()
		s.close()
		for s.lookahead(0).Type == token.PAREN_L {
			s.parseExpr()
		}
	}
	s.finish()
}

func (s *state) parseFoldedBlock(kind string) {
	s.open(kind)
	s.token()
	s.optionalLabel()
	s.parseBlockType()
	s.parseInstrs(nil)
	s.close()
}

func (s *state) parseFoldedIf() {
	s.open("expr1_if")
	s.token()
	s.optionalLabel()
	s.parseBlockType()
	for s.lookahead(0).Type == token.PAREN_L && !s.isForm("then") && !s.isForm("else") {
		s.parseExpr()
	}
	if s.isForm("then") {
		s.openForm("if_then")
		s.parseInstrs(nil)
		s.finish()
	}
	if s.isForm("else") {
		s.openForm("if_else")
		s.parseInstrs(nil)
		s.finish()
	}
	s.close()
}

func (s *state) parseFoldedTryTable() {
	s.open("expr1_try_table")
	s.token()
	s.optionalLabel()
	s.parseBlockType()
	s.parseCatchClauses()
	s.parseInstrs(nil)
	s.close()
}
