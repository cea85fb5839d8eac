// Copyright © 2024 The wat-lsp authors

package repl

import (
	"sort"
	"strings"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

// commandCompleter implements readline.AutoCompleter.  The first word of
// a line completes to a command name; the argument of find completes to
// the names defined in the current file.
type commandCompleter struct {
	session *Session
}

func (c *commandCompleter) Do(line []rune, pos int) ([][]rune, int) {
	// Extract the word being typed (backwards from cursor to whitespace).
	start := pos
	for start > 0 {
		ch := line[start-1]
		if ch == ' ' || ch == '\t' {
			break
		}
		start--
	}
	prefix := string(line[start:pos])
	before := strings.Fields(string(line[:start]))

	var candidates []string
	switch {
	case len(before) == 0:
		candidates = commandNames(prefix)
	case len(before) == 1 && before[0] == "find":
		candidates = c.definedNames(prefix)
	}
	if len(candidates) == 0 {
		return nil, 0
	}

	// Build completions: each entry is the suffix to append.
	result := make([][]rune, 0, len(candidates))
	for _, name := range candidates {
		result = append(result, []rune(name[len(prefix):]))
	}
	return result, len(prefix)
}

func commandNames(prefix string) []string {
	var names []string
	for _, c := range commands {
		if strings.HasPrefix(c.name, prefix) {
			names = append(names, c.name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *commandCompleter) definedNames(prefix string) []string {
	if c.session == nil || c.session.snap == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && strings.HasPrefix(name, "$") && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, item := range analysis.Outline(c.session.snap.Symbols) {
		add(item.Name)
		for _, child := range item.Children {
			add(child.Name)
		}
	}
	sort.Strings(names)
	return names
}
