// Copyright © 2024 The wat-lsp authors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EmNudge/wat-lsp-sub000/lsp"
)

// LSPCommand creates the "lsp" cobra command with optional embedder
// configuration. Embedders can pass WithParser to serve documents with a
// tree-sitter grammar instead of the built-in parser.
func LSPCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		stdio bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the WAT Language Server Protocol server",
		Long: `Start an LSP server for WebAssembly text files.

The language server provides diagnostics, hover, go-to-definition, find
references, document highlights, rename, document and workspace symbols,
folding ranges, call hierarchy, completion and signature help.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  wat-lsp lsp                        Start with stdio transport
  wat-lsp lsp --stdio                Same as above (explicit)
  wat-lsp lsp --port 7998            Start with TCP on port 7998

Editor configuration (VS Code):
  Install a generic LSP client extension and configure it to run
  "wat-lsp lsp --stdio" for .wat files.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			serverOpts, err := lspServerOptions(cfg)
			if err != nil {
				return usageError(err)
			}
			log := cfg.resolveLogger()
			defer log.Sync() //nolint:errcheck // best-effort flush

			srv := lsp.New(serverOpts...)

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				log.Info("wat-lsp listening", zap.String("addr", addr))
				if err := srv.RunTCP(addr); err != nil {
					return &exitError{code: 1, err: fmt.Errorf("lsp server error: %w", err)}
				}
				return nil
			}
			if err := srv.RunStdio(); err != nil {
				return &exitError{code: 1, err: fmt.Errorf("lsp server error: %w", err)}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")

	return cmd
}

// lspServerOptions translates the command configuration into server
// options.
func lspServerOptions(cfg *cmdConfig) ([]lsp.Option, error) {
	v := cfg.config()
	analyzers, err := selectAnalyzers(v.GetString(keyLintChecks))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyLintChecks, err)
	}
	return []lsp.Option{
		lsp.WithLogger(cfg.resolveLogger()),
		lsp.WithParser(cfg.resolveParser()),
		lsp.WithDebounce(v.GetDuration(keyLSPDebounce)),
		lsp.WithAnalyzers(analyzers),
	}, nil
}

func init() {
	rootCmd.AddCommand(LSPCommand())
}
