// Copyright © 2024 The wat-lsp authors

package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EmNudge/wat-lsp-sub000/repl"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query FILE",
	Short: "Query a WAT file interactively",
	Long: `Start an interactive shell over one WAT file.  Positions are LINE:COL,
counted from 1.  Line editing, completion of command and definition names,
and command history are supported via readline.  Use Ctrl-D or quit to exit.

Example session:
  wat> symbols
  2	function $add (param i32 i32) (result i32)
  wat> def 9:15
  add.wat:2:9
  wat> refs 2:9 decl
  add.wat:2:9: (func $add (param $a i32) (param $b i32) (result i32)
  add.wat:9:15: (call $add (i32.const 1) (i32.const 2))
  wat> describe 9:15
  (func $add (param i32 i32) (result i32))
  wat> reload
  reloaded add.wat (version 2)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.TrimSuffix(filepath.Base(os.Args[0]), "-lsp") + "> "
		err := repl.Run(args[0], prompt, repl.WithStdout(cmd.OutOrStdout()))
		if err != nil {
			return usageError(err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
