// Copyright © 2024 The wat-lsp authors

// Package diagnostic prints findings as source excerpts with the offending
// text underlined.  It imports nothing from the rest of the module, so the
// CLI and the REPL share it.
package diagnostic

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

var severityNames = [...]string{
	SeverityError:   "error",
	SeverityWarning: "warning",
	SeverityNote:    "note",
}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// Span points at the text a diagnostic is about.  Line and Col count from
// 1.  EndCol is the last column underlined; when it is zero the renderer
// underlines the whole token that begins at Col.  A File that cannot be
// read is still printed as the location.
type Span struct {
	File   string
	Line   int
	Col    int
	EndCol int
	Label  string
}

// Diagnostic is one finding.  Spans print in order, followed by Notes.
type Diagnostic struct {
	Severity Severity
	// Code is the name of the check that raised the finding.  Empty for
	// syntax errors.
	Code    string
	Message string
	Spans   []Span
	Notes   []string
}
