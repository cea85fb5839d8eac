// Copyright © 2024 The wat-lsp authors

package watparser

import "github.com/EmNudge/wat-lsp-sub000/parser/token"

// peek returns the next significant token.  Comments in front of it are
// attached to the innermost open node.
func (s *state) peek() *token.Token {
	for s.toks[s.i].Type.IsComment() {
		tok := s.toks[s.i]
		kind := "comment_line"
		if tok.Type == token.COMMENT_BLOCK {
			kind = "comment_block"
		}
		s.appendLeaf(kind, tok, false)
		s.i++
	}
	return s.toks[s.i]
}

// lookahead returns the n-th significant token after the cursor without
// consuming anything.
func (s *state) lookahead(n int) *token.Token {
	for j := s.i; ; j++ {
		tok := s.toks[j]
		if tok.Type == token.EOF {
			return tok
		}
		if tok.Type.IsComment() {
			continue
		}
		if n == 0 {
			return tok
		}
		n--
	}
}

// isForm reports whether the cursor is at "(" followed by keyword.
func (s *state) isForm(keyword string) bool {
	kw := s.lookahead(1)
	return s.lookahead(0).Type == token.PAREN_L && kw.Type == token.KEYWORD && kw.Text == keyword
}

func (s *state) isKeyword(keyword string) bool {
	tok := s.lookahead(0)
	return tok.Type == token.KEYWORD && tok.Text == keyword
}

func (s *state) top() *Node {
	return s.stack[len(s.stack)-1]
}

func (s *state) appendChild(parent, child *Node) {
	child.parent = parent
	parent.children = append(parent.children, child)
}

// open starts a node at the next significant token.  Tokens consumed until
// the matching close become its descendants.
func (s *state) open(kind string) *Node {
	tok := s.peek()
	n := &Node{kind: kind, start: tok.Source.Pos}
	s.appendChild(s.top(), n)
	s.stack = append(s.stack, n)
	return n
}

// openForm opens a node and consumes the "(" and keyword that begin it.
func (s *state) openForm(kind string) *Node {
	n := s.open(kind)
	s.token()
	if s.lookahead(0).Type == token.KEYWORD {
		s.token()
	}
	return n
}

func (s *state) close() *Node {
	n := s.top()
	s.stack = s.stack[:len(s.stack)-1]
	n.end = max(n.start, s.lastEnd)
	n.startPt = s.tree.point(n.start)
	n.endPt = s.tree.point(n.end)
	return n
}

// finish closes the current parenthesized form.  Unexpected content before
// the closing paren becomes an ERROR node.
func (s *state) finish() {
	s.recoverUntilClose()
	s.expectClose()
	s.close()
}

func (s *state) appendLeaf(kind string, tok *token.Token, anon bool) *Node {
	n := &Node{
		kind:    kind,
		start:   tok.Source.Pos,
		end:     tok.End(),
		startPt: s.tree.point(tok.Source.Pos),
		endPt:   s.tree.point(tok.End()),
		anon:    anon,
	}
	s.appendChild(s.top(), n)
	s.lastEnd = n.end
	return n
}

// leaf consumes the next token as a named leaf.
func (s *state) leaf(kind string) *Node {
	tok := s.peek()
	s.i++
	return s.appendLeaf(kind, tok, false)
}

// token consumes the next token as an anonymous leaf named by its text.
func (s *state) token() *Node {
	tok := s.peek()
	s.i++
	return s.appendLeaf(tok.Text, tok, true)
}

// atom consumes the next token with the kind its token type implies.
func (s *state) atom() *Node {
	switch s.lookahead(0).Type {
	case token.ID:
		return s.leaf("identifier")
	case token.NAT:
		return s.leaf("nat")
	case token.INT:
		return s.leaf("int")
	case token.FLOAT:
		return s.leaf("float")
	case token.STRING:
		return s.leaf("string")
	case token.ERROR, token.INVALID, token.RESERVED:
		return s.leaf("ERROR")
	}
	return s.token()
}

func (s *state) missing(kind string) {
	n := &Node{
		kind:    kind,
		start:   s.lastEnd,
		end:     s.lastEnd,
		startPt: s.tree.point(s.lastEnd),
		endPt:   s.tree.point(s.lastEnd),
		missing: true,
		anon:    true,
	}
	s.appendChild(s.top(), n)
}

func (s *state) expectClose() {
	if s.lookahead(0).Type == token.PAREN_R {
		s.token()
		return
	}
	s.missing(")")
}

// consumeBalanced consumes tokens up to, not including, the ")" that closes
// the current form.
func (s *state) consumeBalanced() {
	depth := 0
	for {
		switch s.lookahead(0).Type {
		case token.EOF:
			return
		case token.PAREN_R:
			if depth == 0 {
				return
			}
			depth--
		case token.PAREN_L:
			depth++
		}
		s.atom()
	}
}

func (s *state) recoverUntilClose() {
	switch s.lookahead(0).Type {
	case token.PAREN_R, token.EOF:
		return
	}
	s.open("ERROR")
	s.consumeBalanced()
	s.close()
}

// errorForm wraps a whole parenthesized form in an ERROR node.
func (s *state) errorForm() {
	s.open("ERROR")
	s.token()
	s.consumeBalanced()
	s.expectClose()
	s.close()
}

func (s *state) errorToken() {
	s.open("ERROR")
	s.atom()
	s.close()
}

func (s *state) optionalName() {
	if s.lookahead(0).Type == token.ID {
		s.leaf("identifier").field = "name"
	}
}

func (s *state) optionalLabel() {
	if s.lookahead(0).Type == token.ID {
		s.leaf("identifier").field = "label"
	}
}

// parseIndex parses an index (identifier or nat) if one is next.
func (s *state) parseIndex() bool {
	var kind string
	switch s.lookahead(0).Type {
	case token.ID:
		kind = "identifier"
	case token.NAT:
		kind = "nat"
	default:
		return false
	}
	s.open("index")
	s.leaf(kind)
	s.close()
	return true
}
