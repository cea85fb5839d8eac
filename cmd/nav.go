// Copyright © 2024 The wat-lsp authors

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/repl"
)

// ErrBadPosition is returned for a position argument that is not LINE:COL.
var ErrBadPosition = repl.ErrBadPosition

// openSession parses path for a one-shot query that writes to w.
func openSession(cfg *cmdConfig, path string, w io.Writer) (*repl.Session, error) {
	s, err := repl.NewSession(path, repl.WithStdout(w), repl.WithParser(cfg.resolveParser()))
	if err != nil {
		return nil, usageError(err)
	}
	return s, nil
}

// execQuery runs one query shell command against path.
func execQuery(cfg *cmdConfig, cmd *cobra.Command, path, line string) error {
	s, err := openSession(cfg, path, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := s.Exec(line); err != nil {
		if errors.Is(err, ErrBadPosition) {
			return usageError(err)
		}
		return &exitError{code: 1, err: err}
	}
	return nil
}

// SymbolsCommand creates the "symbols" command, which prints the outline of
// a module.
func SymbolsCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "symbols [flags] FILE",
		Short: "Print the definitions of a WAT module",
		Long: `Print the definitions of a WAT module in source order, one per line with
its line number, kind, name and signature.  The parameters, locals and block
labels of each function are listed beneath it.

Examples:
  wat-lsp symbols file.wat
  wat-lsp symbols --json file.wat`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cfg, args[0], cmd.OutOrStdout())
			if err != nil {
				return err
			}
			items := analysis.Outline(s.Snapshot().Symbols)
			if !jsonOut {
				repl.FormatOutline(cmd.OutOrStdout(), items)
				return nil
			}
			if items == nil {
				items = []analysis.OutlineItem{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the outline as JSON.")
	return cmd
}

// DefinitionCommand creates the "def" command.
func DefinitionCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	return &cobra.Command{
		Use:   "def FILE LINE:COL",
		Short: "Print the definition of the name at a position",
		Long: `Print FILE:LINE:COL of the definition that the name at LINE:COL refers
to.  Lines and columns are counted from 1.

Example:
  wat-lsp def file.wat 14:11`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execQuery(cfg, cmd, args[0], "def "+args[1])
		},
	}
}

// ReferencesCommand creates the "refs" command.
func ReferencesCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var includeDecl bool

	cmd := &cobra.Command{
		Use:   "refs [flags] FILE LINE:COL",
		Short: "List references to the definition at a position",
		Long: `List every use of the definition that the name at LINE:COL refers to,
one FILE:LINE:COL per line followed by the source line.  Numeric indices that
refer to the same definition are included.

Examples:
  wat-lsp refs file.wat 2:9
  wat-lsp refs --include-declaration file.wat 2:9`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := fmt.Sprintf("refs %s", args[1])
			if includeDecl {
				line += " decl"
			}
			return execQuery(cfg, cmd, args[0], line)
		},
	}
	cmd.Flags().BoolVar(&includeDecl, "include-declaration", false,
		"Also list the definition itself.")
	return cmd
}

func init() {
	rootCmd.AddCommand(SymbolsCommand())
	rootCmd.AddCommand(DefinitionCommand())
	rootCmd.AddCommand(ReferencesCommand())
}
