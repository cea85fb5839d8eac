// Copyright © 2024 The wat-lsp authors

package cmd

import (
	"io"

	"github.com/spf13/viper"

	"github.com/EmNudge/wat-lsp-sub000/diagnostic"
	lintpkg "github.com/EmNudge/wat-lsp-sub000/lint"
)

// colorMode reads the color setting.  Unknown values mean auto.
func colorMode(v *viper.Viper) diagnostic.ColorMode {
	mode, err := diagnostic.ParseColorMode(v.GetString(keyColor))
	if err != nil {
		return diagnostic.ColorAuto
	}
	return mode
}

func newRenderer(v *viper.Viper) *diagnostic.Renderer {
	return &diagnostic.Renderer{Color: colorMode(v)}
}

// lintDiagToDiagnostic converts a lint.Diagnostic to a diagnostic.Diagnostic.
func lintDiagToDiagnostic(ld lintpkg.Diagnostic) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: diagnostic.SeverityWarning,
		Code:     ld.Analyzer,
		Message:  ld.Message,
	}
	switch ld.Severity {
	case lintpkg.SeverityError:
		d.Severity = diagnostic.SeverityError
	case lintpkg.SeverityInfo:
		d.Severity = diagnostic.SeverityNote
	}
	if ld.Pos.Line > 0 {
		span := diagnostic.Span{
			File: ld.Pos.File,
			Line: ld.Pos.Line,
			Col:  ld.Pos.Col,
		}
		if ld.EndPos.Line == ld.Pos.Line && ld.EndPos.Col > ld.Pos.Col {
			span.EndCol = ld.EndPos.Col - 1
		}
		d.Spans = append(d.Spans, span)
	}
	d.Notes = append(d.Notes, ld.Notes...)
	d.Notes = append(d.Notes, "to suppress: add \";; nolint:"+ld.Analyzer+"\" as a comment on this line")
	return d
}

// renderLintDiagnostics renders lint diagnostics with diagnostic formatting.
func renderLintDiagnostics(w io.Writer, r *diagnostic.Renderer, diags []lintpkg.Diagnostic) error {
	ds := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, ld := range diags {
		ds = append(ds, lintDiagToDiagnostic(ld))
	}
	return r.RenderAll(w, ds)
}
