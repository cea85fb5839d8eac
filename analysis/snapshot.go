// Copyright © 2024 The wat-lsp authors

package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// ErrNoParser is returned when a snapshot is requested without a parser.
var ErrNoParser = errors.New("analysis: no parser")

// Snapshot is the analyzed state of one document version.  A snapshot is
// never modified after NewSnapshot returns, so it may be shared between
// goroutines freely.
type Snapshot struct {
	Version int32
	Source  []byte
	Tree    syntax.Tree
	Symbols *SymbolTable
}

// NewSnapshot parses and analyzes text.  The previous snapshot of the same
// document, if any, lets the parser reuse work.  A parse failure is returned
// with a usable snapshot whose tree is nil and whose symbol table is empty.
func NewSnapshot(p syntax.Parser, version int32, text []byte, prev *Snapshot) (*Snapshot, error) {
	snap := &Snapshot{Version: version, Source: text, Symbols: &SymbolTable{}}
	if p == nil {
		return snap, ErrNoParser
	}
	var prevTree syntax.Tree
	if prev != nil {
		prevTree = prev.Tree
	}
	tree, err := p.Parse(text, prevTree)
	if err != nil {
		return snap, fmt.Errorf("parse: %w", err)
	}
	snap.Tree = tree
	snap.Symbols = Extract(tree, text)
	return snap, nil
}

// ContextAt returns the reference context at pos.
func (s *Snapshot) ContextAt(pos Position) Context {
	return DefaultContextPolicy(s.Tree, s.Source, pos)
}

// InComment reports whether pos lies inside a comment.
func (s *Snapshot) InComment(pos Position) bool {
	if s.Tree == nil {
		return false
	}
	offset, ok := PositionToOffset(s.Source, pos)
	if !ok {
		return false
	}
	return astutil.IsInsideComment(s.Tree.Root(), offset)
}

// TargetAt resolves the word at pos to the definition it refers to.  It
// also returns the range of the word.  Words inside comments, keywords and
// unresolvable names yield a nil target.
func (s *Snapshot) TargetAt(pos Position) (*Target, Range) {
	word, wr, ok := WordAt(s.Source, pos)
	if !ok || s.InComment(pos) {
		return nil, wr
	}
	ctx := s.ContextAt(pos)
	if strings.HasPrefix(word, "$") {
		return ResolveNamed(word, s.Symbols, ctx, pos), wr
	}
	n, ok := ParseNat(word)
	if !ok {
		return nil, wr
	}
	t := ResolveIndexed(int(n), s.Symbols, ctx, pos, s.Tree, s.Source)
	if t == nil && ctx == ContextFunction {
		// A number inside a function body that no instruction claims, such
		// as one in a malformed instruction, may still be classified by the
		// text of its line.
		if lc := LineStrategy(s.Tree, s.Source, pos); lc != ContextGeneral && lc != ContextFunction {
			t = ResolveIndexed(int(n), s.Symbols, lc, pos, s.Tree, s.Source)
		}
	}
	return t, wr
}

// Definition returns the declaring range of the word at pos.
func (s *Snapshot) Definition(pos Position) *Range {
	t, _ := s.TargetAt(pos)
	return DefinitionRange(t, s.Symbols)
}

// References returns the usages of the word at pos.
func (s *Snapshot) References(pos Position, includeDecl bool) []Range {
	t, _ := s.TargetAt(pos)
	if t == nil {
		return nil
	}
	return References(t, s.Tree, s.Source, s.Symbols, includeDecl)
}
