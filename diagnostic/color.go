// Copyright © 2024 The wat-lsp authors

package diagnostic

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ColorMode selects whether output carries ANSI escapes.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // color a terminal unless NO_COLOR is set
	ColorAlways
	ColorNever
)

// ParseColorMode parses "auto", "always" or "never".
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

// palette is the set of escapes one pass uses.  The zero palette prints
// plain text.
type palette struct {
	bold     string
	yellow   string
	boldRed  string
	boldBlue string
	boldCyan string
	reset    string
}

var ansiPalette = palette{
	bold:     "\033[1m",
	yellow:   "\033[33m",
	boldRed:  "\033[1;31m",
	boldBlue: "\033[1;34m",
	boldCyan: "\033[1;36m",
	reset:    "\033[0m",
}

func (p palette) severity(s Severity) string {
	switch s {
	case SeverityError:
		return p.boldRed
	case SeverityWarning:
		return p.yellow
	case SeverityNote:
		return p.boldCyan
	}
	return ""
}

// choosePalette resolves mode against f, which is nil when output does not
// go to a file.
func choosePalette(mode ColorMode, f *os.File) palette {
	switch {
	case mode == ColorAlways:
		return ansiPalette
	case mode == ColorNever, os.Getenv("NO_COLOR") != "", !isTerminal(f):
		return palette{}
	}
	return ansiPalette
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd())) // #nosec G115 -- descriptors fit in int
}

// terminalWidth is the column count of the terminal behind f, or 0.
func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd())) // #nosec G115
	if err != nil {
		return 0
	}
	return w
}
