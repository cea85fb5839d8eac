// Copyright © 2024 The wat-lsp authors

package repl

import (
	"io"

	"github.com/EmNudge/wat-lsp-sub000/diagnostic"
	"github.com/EmNudge/wat-lsp-sub000/lint"
)

// renderLint renders lint findings against the in-memory source so the
// snippets match the snapshot being queried, not the file on disk.
func renderLint(w io.Writer, src []byte, diags []lint.Diagnostic) {
	r := &diagnostic.Renderer{
		Color: diagnostic.ColorAuto,
		SourceReader: func(string) ([]byte, error) {
			return src, nil
		},
	}
	ds := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, ld := range diags {
		ds = append(ds, lintToDiag(ld))
	}
	_ = r.RenderAll(w, ds)
}

// lintToDiag converts a lint finding to a Diagnostic for display.
func lintToDiag(ld lint.Diagnostic) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: diagnostic.SeverityWarning,
		Code:     ld.Analyzer,
		Message:  ld.Message,
		Notes:    append([]string(nil), ld.Notes...),
	}
	switch ld.Severity {
	case lint.SeverityError:
		d.Severity = diagnostic.SeverityError
	case lint.SeverityInfo:
		d.Severity = diagnostic.SeverityNote
	}
	if ld.Pos.Line > 0 {
		span := diagnostic.Span{
			File: ld.Pos.File,
			Line: ld.Pos.Line,
			Col:  ld.Pos.Col,
		}
		// EndPos is exclusive; spans end on their last column.
		if ld.EndPos.Line == ld.Pos.Line && ld.EndPos.Col > ld.Pos.Col {
			span.EndCol = ld.EndPos.Col - 1
		}
		d.Spans = append(d.Spans, span)
	}
	return d
}
