// Copyright © 2024 The wat-lsp authors

package main

import "github.com/EmNudge/wat-lsp-sub000/cmd"

func main() {
	cmd.Execute()
}
