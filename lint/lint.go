// Copyright © 2024 The wat-lsp authors

// Package lint provides static checks for WebAssembly text files.
//
// The linter is modeled after go vet: each check is an independent Analyzer
// that receives a parsed snapshot of one document and reports diagnostics.
// The framework handles parsing, running analyzers, suppression comments,
// ordering and output formatting.
package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/parser/watparser"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Severity indicates the severity level of a lint diagnostic.
type Severity int

const (
	severityUnset Severity = iota // unexported zero sentinel for default detection
	SeverityError
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as a JSON string.
// An unset severity (zero value) is marshaled as "warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == severityUnset {
		return json.Marshal("warning")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity: %q", str)
	}
	return nil
}

// Analyzer defines a single lint check.
type Analyzer struct {
	// Name is a short identifier for this check (e.g. "unused-local").
	Name string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Severity is the default severity for diagnostics from this analyzer.
	Severity Severity

	// Run executes the check. It should call pass.Report() for each finding.
	Run func(pass *Pass) error
}

// Pass provides context to a running analyzer.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// Filename is the source file being analyzed.
	Filename string

	// Snapshot holds the text, tree and symbol table of the document.  The
	// tree is never nil inside a pass.
	Snapshot *analysis.Snapshot

	// diagnostics collects reported findings.
	diagnostics []Diagnostic
}

// Report records a diagnostic finding.
func (p *Pass) Report(d Diagnostic) {
	d.Analyzer = p.Analyzer.Name
	if d.Severity == severityUnset {
		d.Severity = p.Analyzer.Severity
	}
	p.diagnostics = append(p.diagnostics, d)
}

// ReportWithNotes records a diagnostic with additional hint text.
func (p *Pass) ReportWithNotes(d Diagnostic, notes ...string) {
	d.Notes = append(d.Notes, notes...)
	p.Report(d)
}

// Reportf is a convenience for reporting a diagnostic over a range.
func (p *Pass) Reportf(r analysis.Range, format string, args ...interface{}) {
	p.Report(Diagnostic{
		Pos:     convertPosition(r.Start),
		EndPos:  convertPosition(r.End),
		Message: fmt.Sprintf(format, args...),
	})
}

// ReportNode reports a diagnostic covering a syntax node.
func (p *Pass) ReportNode(n syntax.Node, format string, args ...interface{}) {
	p.Reportf(nodeRange(n), format, args...)
}

// convertPosition turns a zero-based engine position into a one-based
// lint position.
func convertPosition(pos analysis.Position) Position {
	return Position{Line: pos.Line + 1, Col: pos.Character + 1}
}

func nodeRange(n syntax.Node) analysis.Range {
	start, end := n.StartPoint(), n.EndPoint()
	return analysis.Range{
		Start: analysis.Position{Line: start.Row, Character: start.Column},
		End:   analysis.Position{Line: end.Row, Character: end.Column},
	}
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	// Pos is the source location of the problem.
	Pos Position `json:"pos"`

	// EndPos is the end of the offending span, when known.
	EndPos Position `json:"end_pos,omitempty"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`

	// Analyzer is the name of the check that found this problem.
	Analyzer string `json:"analyzer"`

	// Severity is the severity level of the diagnostic.
	Severity Severity `json:"severity"`

	// Notes are optional hint text lines for the user.
	Notes []string `json:"notes,omitempty"`
}

// Position identifies a location in source code.  Line and Col are
// one-based; Col counts bytes.
type Position struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// String returns the position in file:line format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// String returns the diagnostic in go vet style: file:line: message (analyzer)
// with optional note lines appended.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (%s)", d.Pos, d.Message, d.Analyzer)
	for _, n := range d.Notes {
		s += "\n  = note: " + n
	}
	return s
}

// Linter runs a set of analyzers over source files.
type Linter struct {
	Analyzers []*Analyzer

	// Parser produces syntax trees.  The in-memory WAT parser is used when
	// it is nil.
	Parser syntax.Parser
}

// LintFile parses a single source file and returns all diagnostics.
func (l *Linter) LintFile(source []byte, filename string) ([]Diagnostic, error) {
	parser := l.Parser
	if parser == nil {
		parser = watparser.New()
	}
	snap, err := analysis.NewSnapshot(parser, 0, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return l.LintSnapshot(snap, filename)
}

// LintSnapshot runs the analyzers over an already parsed document.  The
// language server uses it to lint the snapshot it serves queries from.
func (l *Linter) LintSnapshot(snap *analysis.Snapshot, filename string) ([]Diagnostic, error) {
	if snap == nil || snap.Tree == nil {
		return nil, fmt.Errorf("%s: no syntax tree", filename)
	}

	var all []Diagnostic

	for _, analyzer := range l.Analyzers {
		pass := &Pass{
			Analyzer: analyzer,
			Filename: filename,
			Snapshot: snap,
		}
		if err := analyzer.Run(pass); err != nil {
			return nil, fmt.Errorf("%s: analyzer %s: %w", filename, analyzer.Name, err)
		}
		// Set file on diagnostics that don't have one
		for i := range pass.diagnostics {
			if pass.diagnostics[i].Pos.File == "" {
				pass.diagnostics[i].Pos.File = filename
			}
			if pass.diagnostics[i].EndPos.Line > 0 && pass.diagnostics[i].EndPos.File == "" {
				pass.diagnostics[i].EndPos.File = filename
			}
		}
		all = append(all, pass.diagnostics...)
	}

	// Filter suppressed diagnostics (;; nolint comments)
	all = filterSuppressed(all, snap)

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Pos.File != all[j].Pos.File {
			return all[i].Pos.File < all[j].Pos.File
		}
		if all[i].Pos.Line != all[j].Pos.Line {
			return all[i].Pos.Line < all[j].Pos.Line
		}
		return all[i].Pos.Col < all[j].Pos.Col
	})

	return all, nil
}

// filterSuppressed removes diagnostics on lines with nolint comments.
func filterSuppressed(diags []Diagnostic, snap *analysis.Snapshot) []Diagnostic {
	// line -> "" (all) or "analyzer1,analyzer2"
	nolintLines := nolintDirectives(snap.Tree.Root(), snap.Source)

	var filtered []Diagnostic
	for _, d := range diags {
		directive, ok := nolintLines[d.Pos.Line]
		if !ok {
			filtered = append(filtered, d)
			continue
		}
		// Empty directive = suppress all
		if directive == "" {
			continue
		}
		suppressed := false
		for _, name := range strings.Split(directive, ",") {
			if strings.TrimSpace(name) == d.Analyzer {
				suppressed = true
				break
			}
		}
		if !suppressed {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// nolintDirectives maps one-based line numbers to the nolint directive of
// a comment on that line.
func nolintDirectives(root syntax.Node, src []byte) map[int]string {
	lines := make(map[int]string)
	astutil.Walk(root, func(n, _ syntax.Node, _ int) {
		if !astutil.IsComment(n) {
			return
		}
		text := astutil.Text(n, src)
		switch n.Kind() {
		case "comment_line":
			text = strings.TrimLeft(text, ";")
		case "comment_block":
			text = strings.TrimSuffix(strings.TrimPrefix(text, "(;"), ";)")
		}
		text = strings.TrimSpace(text)
		if !strings.HasPrefix(text, "nolint") {
			return
		}
		line := n.StartPoint().Row + 1
		rest := strings.TrimPrefix(text, "nolint")
		if rest == "" {
			lines[line] = ""
			return
		}
		if strings.HasPrefix(rest, ":") {
			lines[line] = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		}
	})
	return lines
}

// FormatText writes diagnostics in go vet text format.
func FormatText(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatJSON writes diagnostics as JSON.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}
