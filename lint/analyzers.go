// Copyright © 2024 The wat-lsp authors

package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// maxErrorText bounds how much of an unparsable span is quoted.
const maxErrorText = 24

// AnalyzerSyntaxError reports text the parser could not fit into the
// grammar and closing parentheses it had to insert.
var AnalyzerSyntaxError = &Analyzer{
	Name:     "syntax-error",
	Doc:      "Report text that does not parse as WebAssembly text.\n\nEach ERROR node of the syntax tree becomes one diagnostic, as does each closing parenthesis that error recovery had to insert at the end of an unterminated form.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		src := pass.Snapshot.Source
		WalkErrors(pass.Snapshot.Tree.Root(), func(n syntax.Node) {
			if n.IsMissing() {
				pass.ReportNode(n, "missing %q", n.Kind())
				return
			}
			text := strings.Join(strings.Fields(astutil.Text(n, src)), " ")
			if len(text) > maxErrorText {
				text = text[:maxErrorText] + "..."
			}
			if text == "" {
				pass.ReportNode(n, "syntax error")
				return
			}
			pass.ReportNode(n, "syntax error: unexpected %q", text)
		})
		return nil
	},
}

// AnalyzerUndefinedReference reports identifiers and indices that do not
// resolve to any definition in their context.
var AnalyzerUndefinedReference = &Analyzer{
	Name:     "undefined-reference",
	Doc:      "Report references that resolve to no definition.\n\nNamed references must match a definition of the kind their instruction expects (a function for call, a local for local.get, an enclosing block for br). Numeric indices must be within the index space, and branch depths must not exceed the number of enclosing blocks.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		snap := pass.Snapshot
		analysis.Usages(snap.Tree, snap.Source, func(u analysis.Usage) {
			if analysis.ResolveUsage(u, snap.Symbols, snap.Source) != nil {
				return
			}
			text := astutil.Text(u.Token, snap.Source)
			if u.Context == analysis.ContextBranch && u.Owner >= 0 {
				// The body of a function is the outermost branch target.
				if n, ok := analysis.ParseNat(text); ok && int(n) == len(u.Stack) {
					return
				}
			}
			noun := referenceNoun(u.Context)
			switch {
			case strings.HasPrefix(text, "$"):
				pass.ReportNode(u.Token, "undefined %s %s", noun, text)
			case u.Context == analysis.ContextBranch:
				r := nodeRange(u.Token)
				pass.ReportWithNotes(Diagnostic{
					Pos:     convertPosition(r.Start),
					EndPos:  convertPosition(r.End),
					Message: fmt.Sprintf("branch depth %s is out of range", text),
				}, fmt.Sprintf("%d enclosing block(s) at this point", len(u.Stack)))
			default:
				pass.ReportNode(u.Token, "%s index %s is out of range", noun, text)
			}
		})
		return nil
	},
}

// referenceNoun names the kind of definition a context expects.
func referenceNoun(ctx analysis.Context) string {
	switch ctx {
	case analysis.ContextCall:
		return "function"
	case analysis.ContextLocal:
		return "local"
	case analysis.ContextBranch:
		return "label"
	case analysis.ContextData:
		return "data segment"
	case analysis.ContextElem:
		return "elem segment"
	}
	return ctx.String()
}

// AnalyzerDuplicateDefinition reports names bound more than once in one
// index space.
var AnalyzerDuplicateDefinition = &Analyzer{
	Name:     "duplicate-definition",
	Doc:      "Report names defined more than once in the same index space.\n\nA module-level name that is bound twice refers to its last definition; every earlier definition can then only be reached by index. Parameters and locals of one function share an index space, where the first definition of a name wins.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		st := pass.Snapshot.Symbols
		for _, defs := range moduleDefinitions(st) {
			reportDuplicates(pass, defs, true)
		}
		for _, fn := range st.Functions.All() {
			reportDuplicates(pass, localDefinitions(fn), false)
		}
		return nil
	},
}

// reportDuplicates reports every definition in defs, which must be in
// declaration order, that a name lookup can never reach.  Module-level
// names bind to their last definition; parameter and local names to their
// first.
func reportDuplicates(pass *Pass, defs []definition, lastWins bool) {
	winner := make(map[string]definition, len(defs))
	for _, d := range defs {
		if _, seen := winner[d.name]; !seen || lastWins {
			winner[d.name] = d
		}
	}
	for _, d := range defs {
		w := winner[d.name]
		if w.rng == d.rng || d.rng == nil {
			continue
		}
		pass.ReportWithNotes(Diagnostic{
			Pos:     convertPosition(d.rng.Start),
			EndPos:  convertPosition(d.rng.End),
			Message: fmt.Sprintf("%s %s is defined more than once", d.kind, d.name),
		}, fmt.Sprintf("references to %s resolve to the definition on line %d", d.name, w.line+1))
	}
}

// AnalyzerUnusedLocal reports named locals that no instruction refers to.
var AnalyzerUnusedLocal = &Analyzer{
	Name:     "unused-local",
	Doc:      "Report declared locals that are never used.\n\nA local counts as used when an instruction names it or refers to its index. Parameters are not checked because a function's signature is often fixed by its callers.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		snap := pass.Snapshot
		for _, fn := range snap.Symbols.Functions.All() {
			if fn.Imported {
				continue
			}
			for _, l := range fn.Locals {
				if l.Name == "" || l.Range == nil {
					continue
				}
				target := &analysis.Target{
					Kind:  analysis.TargetLocal,
					Name:  l.Name,
					Index: len(fn.Params) + l.Index,
					Owner: fn.StartByte,
				}
				if len(analysis.FindReferences(target, snap.Tree, snap.Source)) == 0 {
					pass.Reportf(*l.Range, "local %s is never used", l.Name)
				}
			}
		}
		return nil
	},
}

// DefaultAnalyzers returns the built-in set of lint checks.
func DefaultAnalyzers() []*Analyzer {
	return []*Analyzer{
		AnalyzerSyntaxError,
		AnalyzerUndefinedReference,
		AnalyzerDuplicateDefinition,
		AnalyzerUnusedLocal,
	}
}

// AnalyzerNames returns the sorted names of all default analyzers.
func AnalyzerNames() []string {
	analyzers := DefaultAnalyzers()
	names := make([]string, len(analyzers))
	for i, a := range analyzers {
		names[i] = a.Name
	}
	sort.Strings(names)
	return names
}

// AnalyzerDoc returns a formatted documentation string for all analyzers.
func AnalyzerDoc() string {
	var b strings.Builder
	for _, a := range DefaultAnalyzers() {
		fmt.Fprintf(&b, "  %s\n", a.Name)
		lines := strings.Split(a.Doc, "\n")
		fmt.Fprintf(&b, "    %s\n\n", lines[0])
	}
	return b.String()
}
