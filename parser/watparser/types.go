// Copyright © 2024 The wat-lsp authors

package watparser

import "github.com/EmNudge/wat-lsp-sub000/parser/token"

var numTypes = map[string]bool{
	"i32": true, "i64": true, "f32": true, "f64": true, "v128": true,
	"i8": true, "i16": true,
}

var refTypeAbbrevs = map[string]bool{
	"funcref": true, "externref": true, "anyref": true, "eqref": true,
	"i31ref": true, "structref": true, "arrayref": true, "exnref": true,
	"nullref": true, "nullfuncref": true, "nullexternref": true,
	"nullexnref": true,
}

var heapTypes = map[string]bool{
	"func": true, "extern": true, "any": true, "eq": true, "i31": true,
	"struct": true, "array": true, "exn": true, "none": true,
	"nofunc": true, "noextern": true, "noexn": true,
}

func (s *state) isRefTypeStart() bool {
	tok := s.lookahead(0)
	return (tok.Type == token.KEYWORD && refTypeAbbrevs[tok.Text]) || s.isForm("ref")
}

func (s *state) isValueTypeStart() bool {
	tok := s.lookahead(0)
	return (tok.Type == token.KEYWORD && numTypes[tok.Text]) || s.isRefTypeStart()
}

func (s *state) parseValueType() {
	s.open("value_type")
	if tok := s.lookahead(0); tok.Type == token.KEYWORD && numTypes[tok.Text] {
		s.leaf("num_type")
	} else {
		s.parseRefType()
	}
	s.close()
}

func (s *state) parseRefType() {
	if s.isForm("ref") {
		s.openForm("ref_type")
		if s.isKeyword("null") {
			s.token()
		}
		s.parseHeapType()
		s.finish()
		return
	}
	s.open("ref_type")
	s.token()
	s.close()
}

func (s *state) parseHeapType() {
	tok := s.lookahead(0)
	switch tok.Type {
	case token.ID, token.NAT:
		s.open("heap_type")
		s.parseIndex()
		s.close()
	case token.KEYWORD:
		s.open("heap_type")
		s.token()
		s.close()
	}
}

// parseSignature parses an optional type use followed by parameter and
// result declarations.
func (s *state) parseSignature() {
	s.parseTypeUse()
	s.parseParams("param", "func_type_params", "func_type_params_one", "func_type_params_many")
	s.parseResults()
}

func (s *state) parseTypeUse() {
	if !s.isForm("type") {
		return
	}
	s.openForm("type_use")
	s.parseIndex()
	s.finish()
}

func (s *state) parseLocals() {
	s.parseParams("local", "func_locals", "func_locals_one", "func_locals_many")
}

// parseParams parses (param $x t) and (param t*) style declarations, which
// share their shape with local declarations.
func (s *state) parseParams(keyword, kind, one, many string) {
	for s.isForm(keyword) {
		s.openForm(kind)
		if s.lookahead(0).Type == token.ID {
			s.open(one)
			s.leaf("identifier").field = "name"
			if s.isValueTypeStart() {
				s.parseValueType()
			}
			s.close()
		} else if s.isValueTypeStart() {
			s.open(many)
			for s.isValueTypeStart() {
				s.parseValueType()
			}
			s.close()
		}
		s.finish()
	}
}

func (s *state) parseResults() {
	for s.isForm("result") {
		s.openForm("func_type_results")
		for s.isValueTypeStart() {
			s.parseValueType()
		}
		s.finish()
	}
}

func (s *state) parseGlobalType() {
	s.open("global_type")
	switch {
	case s.isForm("mut"):
		s.openForm("global_type_mut")
		if s.isValueTypeStart() {
			s.parseValueType()
		}
		s.finish()
	case s.isValueTypeStart():
		s.parseValueType()
	}
	s.close()
}

func (s *state) parseAddrType() {
	if s.isKeyword("i32") || s.isKeyword("i64") {
		s.token()
	}
}

func (s *state) parseLimits() {
	if s.lookahead(0).Type != token.NAT {
		return
	}
	s.open("limits")
	for s.lookahead(0).Type == token.NAT {
		s.leaf("nat")
	}
	s.close()
}

func (s *state) parseTableType() {
	s.open("table_type")
	s.parseAddrType()
	s.parseLimits()
	if s.isRefTypeStart() {
		s.parseRefType()
	}
	s.close()
}

func (s *state) parseMemoryType() {
	s.open("memory_type")
	s.parseAddrType()
	s.parseLimits()
	if s.isKeyword("shared") {
		s.token()
	}
	s.close()
}

// parseCompType parses a function, struct, array or sub type definition.
func (s *state) parseCompType() {
	switch s.lookahead(1).Text {
	case "func":
		s.openForm("func_type")
		s.parseParams("param", "func_type_params", "func_type_params_one", "func_type_params_many")
		s.parseResults()
		s.finish()
	case "struct":
		s.openForm("struct_type")
		for s.isForm("field") {
			s.parseField()
		}
		s.finish()
	case "array":
		s.openForm("array_type")
		if s.isForm("field") {
			s.parseField()
		} else if s.isStorageTypeStart() {
			s.open("field_type")
			s.parseStorageType()
			s.close()
		}
		s.finish()
	case "sub":
		s.openForm("sub_type")
		if s.isKeyword("final") {
			s.token()
		}
		for s.parseIndex() {
		}
		if s.lookahead(0).Type == token.PAREN_L {
			s.parseCompType()
		}
		s.finish()
	default:
		s.errorForm()
	}
}

func (s *state) isStorageTypeStart() bool {
	return s.isValueTypeStart() || s.isForm("mut")
}

func (s *state) parseField() {
	s.openForm("field_type")
	s.optionalName()
	for s.isStorageTypeStart() {
		s.parseStorageType()
	}
	s.finish()
}

func (s *state) parseStorageType() {
	if s.isForm("mut") {
		s.openForm("field_type_mut")
		if s.isValueTypeStart() {
			s.parseValueType()
		}
		s.finish()
		return
	}
	s.parseValueType()
}
