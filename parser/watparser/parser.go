// Copyright © 2024 The wat-lsp authors

// Package watparser is a recursive descent parser for the WebAssembly text
// format.  It produces trees that use the node kinds of the tree-sitter-wat
// grammar so the analysis engine can run without a native parser.
package watparser

import (
	"github.com/EmNudge/wat-lsp-sub000/parser/lexer"
	"github.com/EmNudge/wat-lsp-sub000/parser/token"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Parser parses WebAssembly text.  Parsing never fails: text that does not
// fit the grammar is wrapped in ERROR nodes and forms left open at the end of
// input are terminated by zero-width MISSING ")" nodes.
type Parser struct {
	// File names the source in token locations.
	File string
}

var _ syntax.Parser = (*Parser)(nil)

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse implements syntax.Parser.  The previous tree is not reused; every
// call parses the full text.
func (p *Parser) Parse(text []byte, prev syntax.Tree) (syntax.Tree, error) {
	return p.ParseTree(text), nil
}

// ParseTree parses text and returns the concrete tree.
func (p *Parser) ParseTree(text []byte) *Tree {
	s := &state{
		tree: &Tree{lines: lineStarts(text)},
		toks: lexer.Tokenize(p.File, text),
	}
	s.parseRoot(len(text))
	return s.tree
}

// Parse parses a WAT document held in a string.
func Parse(text string) *Tree {
	return New().ParseTree([]byte(text))
}

type state struct {
	tree    *Tree
	toks    []*token.Token
	i       int
	stack   []*Node
	lastEnd int
}

func (s *state) parseRoot(size int) {
	root := &Node{kind: "ROOT"}
	s.tree.root = root
	s.stack = []*Node{root}
	for {
		tok := s.peek()
		switch {
		case tok.Type == token.EOF:
			root.end = size
			root.startPt = s.tree.point(0)
			root.endPt = s.tree.point(size)
			return
		case tok.Type == token.PAREN_L && s.isForm("module"):
			s.parseModule()
		case tok.Type == token.PAREN_L:
			s.parseModuleField()
		default:
			s.errorToken()
		}
	}
}

func (s *state) parseModule() {
	s.open("module")
	s.token()
	s.token()
	s.optionalName()
	for {
		tok := s.lookahead(0)
		if tok.Type == token.PAREN_R || tok.Type == token.EOF {
			break
		}
		if tok.Type == token.PAREN_L {
			s.parseModuleField()
			continue
		}
		s.errorToken()
	}
	s.expectClose()
	s.close()
}

func (s *state) parseModuleField() {
	kw := s.lookahead(1)
	if kw.Type != token.KEYWORD {
		s.errorForm()
		return
	}
	var parse func()
	switch kw.Text {
	case "func":
		parse = s.parseFunc
	case "global":
		parse = s.parseGlobal
	case "type":
		parse = s.parseType
	case "rec":
		parse = s.parseRec
	case "table":
		parse = s.parseTable
	case "memory":
		parse = s.parseMemory
	case "tag":
		parse = s.parseTag
	case "import":
		parse = s.parseImport
	case "export":
		parse = s.parseExport
	case "start":
		parse = s.parseStart
	case "data":
		parse = s.parseData
	case "elem":
		parse = s.parseElem
	default:
		s.errorForm()
		return
	}
	s.open("module_field")
	parse()
	s.close()
}

func (s *state) parseFunc() {
	s.openForm("module_field_func")
	s.optionalName()
	s.parseInlineExportImport()
	s.parseSignature()
	s.parseLocals()
	s.parseInstrs(nil)
	s.finish()
}

func (s *state) parseGlobal() {
	s.openForm("module_field_global")
	s.optionalName()
	s.parseInlineExportImport()
	s.parseGlobalType()
	s.parseInstrs(nil)
	s.finish()
}

func (s *state) parseType() {
	s.openForm("module_field_type")
	s.optionalName()
	if s.lookahead(0).Type == token.PAREN_L {
		s.open("type_field")
		s.parseCompType()
		s.close()
	}
	s.finish()
}

func (s *state) parseRec() {
	s.openForm("module_field_rec")
	for s.isForm("type") {
		s.parseType()
	}
	s.finish()
}

func (s *state) parseTable() {
	s.openForm("module_field_table")
	s.optionalName()
	s.parseInlineExportImport()
	s.parseTableType()
	if s.isForm("elem") {
		s.openForm("elem_list")
		s.parseElemItems()
		s.finish()
	}
	s.parseInstrs(nil)
	s.finish()
}

func (s *state) parseMemory() {
	s.openForm("module_field_memory")
	s.optionalName()
	s.parseInlineExportImport()
	s.parseMemoryType()
	if s.isForm("data") {
		s.openForm("inline_data")
		s.parseStrings()
		s.finish()
	}
	s.finish()
}

func (s *state) parseTag() {
	s.openForm("module_field_tag")
	s.optionalName()
	s.parseInlineExportImport()
	s.parseSignature()
	s.finish()
}

func (s *state) parseImport() {
	s.openForm("module_field_import")
	s.parseStrings()
	if s.lookahead(0).Type == token.PAREN_L {
		s.parseImportDesc()
	}
	s.finish()
}

func (s *state) parseImportDesc() {
	var kind string
	switch s.lookahead(1).Text {
	case "func":
		kind = "import_desc_func_type"
	case "global":
		kind = "import_desc_global_type"
	case "table":
		kind = "import_desc_table_type"
	case "memory":
		kind = "import_desc_memory_type"
	case "tag":
		kind = "import_desc_tag_type"
	default:
		s.errorForm()
		return
	}
	s.open("import_desc")
	s.openForm(kind)
	s.optionalName()
	switch kind {
	case "import_desc_func_type", "import_desc_tag_type":
		s.parseSignature()
	case "import_desc_global_type":
		s.parseGlobalType()
	case "import_desc_table_type":
		s.parseTableType()
	case "import_desc_memory_type":
		s.parseMemoryType()
	}
	s.finish()
	s.close()
}

func (s *state) parseExport() {
	s.openForm("module_field_export")
	s.parseStrings()
	if s.lookahead(0).Type == token.PAREN_L {
		switch kw := s.lookahead(1).Text; kw {
		case "func", "global", "table", "memory", "tag":
			s.openForm("export_desc_" + kw)
			s.parseIndex()
			s.finish()
		default:
			s.errorForm()
		}
	}
	s.finish()
}

func (s *state) parseStart() {
	s.openForm("module_field_start")
	s.parseIndex()
	s.finish()
}

func (s *state) parseData() {
	s.openForm("module_field_data")
	s.optionalName()
	if s.isForm("memory") {
		s.openForm("memory_use")
		s.parseIndex()
		s.finish()
	}
	s.parseOffset()
	s.parseStrings()
	s.finish()
}

func (s *state) parseElem() {
	s.openForm("module_field_elem")
	s.optionalName()
	if s.isForm("table") {
		s.openForm("table_use")
		s.parseIndex()
		s.finish()
	}
	if !s.isForm("item") && !s.isForm("ref") {
		s.parseOffset()
	}
	if s.isKeyword("declare") {
		s.token()
	}
	s.open("elem_list")
	s.parseElemItems()
	s.close()
	s.finish()
}

// parseOffset parses an active segment offset, either (offset instr*) or a
// single folded expression.
func (s *state) parseOffset() {
	if s.lookahead(0).Type != token.PAREN_L || s.lookahead(1).Type != token.KEYWORD {
		return
	}
	if s.isForm("offset") {
		s.openForm("offset")
		s.parseInstrs(nil)
		s.finish()
		return
	}
	s.open("offset")
	s.parseExpr()
	s.close()
}

func (s *state) parseElemItems() {
	for {
		tok := s.lookahead(0)
		switch {
		case tok.Type == token.EOF || tok.Type == token.PAREN_R:
			return
		case s.isKeyword("func"):
			s.token()
		case s.isRefTypeStart():
			s.parseRefType()
		case tok.Type == token.ID || tok.Type == token.NAT:
			s.parseIndex()
		case s.isForm("item"):
			s.openForm("elem_expr")
			s.parseInstrs(nil)
			s.finish()
		case tok.Type == token.PAREN_L:
			s.parseExpr()
		default:
			s.errorToken()
		}
	}
}

func (s *state) parseStrings() {
	for s.lookahead(0).Type == token.STRING {
		s.leaf("string")
	}
}

func (s *state) parseInlineExportImport() {
	for {
		switch {
		case s.isForm("export"):
			s.openForm("inline_export")
			s.parseStrings()
			s.finish()
		case s.isForm("import"):
			s.openForm("inline_import")
			s.parseStrings()
			s.finish()
		default:
			return
		}
	}
}
