// Copyright © 2024 The wat-lsp authors

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EmNudge/wat-lsp-sub000/diagnostic"
	"github.com/EmNudge/wat-lsp-sub000/lint"
)

// errProblems is the exit status 1 result of a lint run that reported
// findings.
var errProblems = &exitError{code: 1}

// LintCommand creates the "lint" cobra command with optional embedder
// configuration.
func LintCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		jsonOut  bool
		checks   string
		listAll  bool
		excludes []string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "lint [flags] [files...]",
		Short: "Run static analysis checks on WAT source files",
		Long: `Run static analysis checks on WebAssembly text files.

The linter reports likely mistakes: syntax errors, names that resolve to
nothing, names defined twice in one index space and unused locals.  It does
not validate types or stack effects.

With no files, reads from stdin. With files, analyzes each file and reports
all findings to stderr.

Exit codes:
  0  No problems found
  1  One or more problems were reported
  2  Bad invocation (invalid flags, unreadable files)

To suppress a specific diagnostic, add a comment on the same line:
  (local $scratch i32) ;; nolint:unused-local

To suppress all checks on a line:
  call $maybe_missing ;; nolint

Available checks (use --checks to select specific ones):
` + lint.AnalyzerDoc() + `
Examples:
  wat-lsp lint file.wat                               # Lint a single file
  wat-lsp lint *.wat                                  # Lint multiple files
  wat-lsp lint --json file.wat                        # Output diagnostics as JSON
  wat-lsp lint --checks=syntax-error file.wat         # Run only specific checks
  wat-lsp lint --list                                 # List available checks
  wat-lsp lint --exclude='build' ./...                # Exclude directories
  wat-lsp lint --watch ./...                          # Re-lint files as they change
  cat file.wat | wat-lsp lint                         # Lint from stdin`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listAll {
				for _, name := range lint.AnalyzerNames() {
					fmt.Fprintln(out, name) //nolint:errcheck // best-effort output
				}
				return nil
			}

			v := cfg.config()
			if !cmd.Flags().Changed("checks") {
				checks = v.GetString(keyLintChecks)
			}
			analyzers, err := selectAnalyzers(checks)
			if err != nil {
				return usageError(fmt.Errorf("wat-lsp lint: %w", err))
			}
			r := &lintRun{
				linter:   &lint.Linter{Analyzers: analyzers, Parser: cfg.resolveParser()},
				json:     jsonOut,
				out:      out,
				errOut:   cmd.ErrOrStderr(),
				renderer: newRenderer(v),
			}

			if len(args) == 0 {
				if watch {
					return usageError(errors.New("wat-lsp lint: --watch needs files"))
				}
				return r.stdin(cmd.InOrStdin())
			}

			paths, err := expandArgs(args, excludes)
			if err != nil {
				return usageError(err)
			}
			if !watch {
				return r.files(paths)
			}
			if err := r.files(paths); err != nil && err != errProblems {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchFiles(ctx, cfg.resolveLogger(), paths, func(path string) {
				if err := r.files([]string{path}); err != nil && err != errProblems {
					fmt.Fprintln(r.errOut, err) //nolint:errcheck // best-effort output
				}
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false,
		"Output diagnostics as JSON.")
	cmd.Flags().StringVar(&checks, "checks", "",
		"Comma-separated list of checks to run (default: all).")
	cmd.Flags().BoolVar(&listAll, "list", false,
		"List available checks and exit.")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	cmd.Flags().BoolVar(&watch, "watch", false,
		"Keep running and re-lint files when they change.")

	return cmd
}

// selectAnalyzers returns the default analyzers named in a comma-separated
// list, or all of them for an empty list.
func selectAnalyzers(checks string) ([]*lint.Analyzer, error) {
	analyzers := lint.DefaultAnalyzers()
	if strings.TrimSpace(checks) == "" {
		return analyzers, nil
	}
	selected := make(map[string]bool)
	for _, name := range strings.Split(checks, ",") {
		if name = strings.TrimSpace(name); name != "" {
			selected[name] = true
		}
	}
	var filtered []*lint.Analyzer
	for _, a := range analyzers {
		if selected[a.Name] {
			filtered = append(filtered, a)
			delete(selected, a.Name)
		}
	}
	for name := range selected {
		return nil, fmt.Errorf("unknown check: %s", name)
	}
	return filtered, nil
}

// lintRun lints inputs and reports findings in the selected format.
type lintRun struct {
	linter   *lint.Linter
	json     bool
	out      io.Writer
	errOut   io.Writer
	renderer *diagnostic.Renderer
}

func (r *lintRun) stdin(in io.Reader) error {
	src, err := io.ReadAll(in)
	if err != nil {
		return usageError(fmt.Errorf("reading stdin: %w", err))
	}
	diags, err := r.linter.LintFile(src, "<stdin>")
	if err != nil {
		return usageError(err)
	}
	// The renderer cannot reread stdin, so snippets come from memory.
	renderer := *r.renderer
	renderer.SourceReader = func(string) ([]byte, error) { return src, nil }
	return r.report(&renderer, diags)
}

func (r *lintRun) files(paths []string) error {
	var all []lint.Diagnostic
	for _, path := range paths {
		src, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
		if err != nil {
			return usageError(fmt.Errorf("%s: %w", path, err))
		}
		diags, err := r.linter.LintFile(src, path)
		if err != nil {
			return usageError(err)
		}
		all = append(all, diags...)
	}
	return r.report(r.renderer, all)
}

func (r *lintRun) report(renderer *diagnostic.Renderer, diags []lint.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	if r.json {
		if err := lint.FormatJSON(r.out, diags); err != nil {
			return usageError(err)
		}
	} else if err := renderLintDiagnostics(r.errOut, renderer, diags); err != nil {
		return usageError(err)
	}
	return errProblems
}

func init() {
	rootCmd.AddCommand(LintCommand())
}
