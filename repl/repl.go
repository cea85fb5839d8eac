// Copyright © 2024 The wat-lsp authors

// Package repl implements an interactive shell for querying one WAT file:
// the context at a position, definitions, references, declarations and the
// outline of the module.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ergochat/readline"
	"github.com/muesli/reflow/indent"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/lint"
	"github.com/EmNudge/wat-lsp-sub000/parser/watparser"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// ErrBadPosition is returned for a position argument that is not
// LINE:COL with positive numbers.
var ErrBadPosition = errors.New("bad position")

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

type config struct {
	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.WriteCloser
	parser syntax.Parser
}

func newConfig(opts ...Option) *config {
	config := &config{}
	for _, opt := range opts {
		opt(config)
	}
	if config.parser == nil {
		config.parser = watparser.New()
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStdout allows overriding where query results are written.
func WithStdout(stdout io.Writer) Option {
	return func(c *config) {
		c.stdout = stdout
	}
}

// WithStderr allows overriding the output to the REPL.
func WithStderr(stderr io.WriteCloser) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithParser selects the tree provider used to parse the file.
func WithParser(p syntax.Parser) Option {
	return func(c *config) {
		c.parser = p
	}
}

// Session holds the current snapshot of the file being queried.
type Session struct {
	path   string
	parser syntax.Parser
	out    io.Writer
	snap   *analysis.Snapshot
}

// NewSession parses the file at path.
func NewSession(path string, opts ...Option) (*Session, error) {
	cfg := newConfig(opts...)
	out := cfg.stdout
	if out == nil {
		out = os.Stdout
	}
	s := &Session{path: path, parser: cfg.parser, out: out}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the current snapshot.
func (s *Session) Snapshot() *analysis.Snapshot {
	return s.snap
}

// Reload re-reads the file and parses it against the previous tree.
func (s *Session) Reload() error {
	src, err := os.ReadFile(s.path) //nolint:gosec // the user names the file to query
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	var version int32 = 1
	if s.snap != nil {
		version = s.snap.Version + 1
	}
	snap, err := analysis.NewSnapshot(s.parser, version, src, s.snap)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	s.snap = snap
	return nil
}

// command is one shell command.  Positions are one-based.
type command struct {
	name  string
	usage string
	help  string
	run   func(s *Session, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"ctx", "ctx LINE:COL", "print the reference context at a position", (*Session).cmdContext},
		{"def", "def LINE:COL", "print the definition of the reference at a position", (*Session).cmdDefinition},
		{"refs", "refs LINE:COL [decl]", "list references to the definition at a position", (*Session).cmdReferences},
		{"describe", "describe LINE:COL", "print the declaration of the definition at a position", (*Session).cmdDescribe},
		{"find", "find NAME", "list definitions with a name", (*Session).cmdFind},
		{"symbols", "symbols", "print the module outline", (*Session).cmdSymbols},
		{"lint", "lint", "run the lint checks", (*Session).cmdLint},
		{"reload", "reload", "re-read the file from disk", (*Session).cmdReload},
		{"help", "help", "list commands", (*Session).cmdHelp},
		{"quit", "quit", "leave the shell", func(*Session, []string) error { return errQuit }},
	}
}

// Exec runs one command line.
func (s *Session) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := fields[0]
	if name == "exit" {
		name = "quit"
	}
	for _, c := range commands {
		if c.name == name {
			return c.run(s, fields[1:])
		}
	}
	return fmt.Errorf("unknown command %q (try help)", fields[0])
}

func (s *Session) positionArg(args []string) (analysis.Position, error) {
	if len(args) == 0 {
		return analysis.Position{}, fmt.Errorf("%w: missing LINE:COL", ErrBadPosition)
	}
	return ParsePosition(args[0])
}

// ParsePosition parses a one-based "LINE:COL" into an engine position.
func ParsePosition(arg string) (analysis.Position, error) {
	l, c, ok := strings.Cut(arg, ":")
	if !ok {
		return analysis.Position{}, fmt.Errorf("%w: %q is not LINE:COL", ErrBadPosition, arg)
	}
	line, err := strconv.Atoi(l)
	if err != nil || line < 1 {
		return analysis.Position{}, fmt.Errorf("%w: line %q", ErrBadPosition, l)
	}
	col, err := strconv.Atoi(c)
	if err != nil || col < 1 {
		return analysis.Position{}, fmt.Errorf("%w: column %q", ErrBadPosition, c)
	}
	return analysis.Position{Line: line - 1, Character: col - 1}, nil
}

// FormatPosition renders an engine position as one-based "LINE:COL".
func FormatPosition(p analysis.Position) string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

func (s *Session) printf(format string, a ...interface{}) {
	fmt.Fprintf(s.out, format, a...) //nolint:errcheck // best-effort REPL output
}

func (s *Session) cmdContext(args []string) error {
	pos, err := s.positionArg(args)
	if err != nil {
		return err
	}
	s.printf("%s\n", s.snap.ContextAt(pos))
	return nil
}

func (s *Session) cmdDefinition(args []string) error {
	pos, err := s.positionArg(args)
	if err != nil {
		return err
	}
	def := s.snap.Definition(pos)
	if def == nil {
		s.printf("no definition\n")
		return nil
	}
	s.printf("%s:%s\n", s.path, FormatPosition(def.Start))
	return nil
}

func (s *Session) cmdReferences(args []string) error {
	pos, err := s.positionArg(args)
	if err != nil {
		return err
	}
	includeDecl := len(args) > 1 && args[1] == "decl"
	refs := s.snap.References(pos, includeDecl)
	if len(refs) == 0 {
		s.printf("no references\n")
		return nil
	}
	for _, r := range refs {
		s.printf("%s:%s: %s\n", s.path, FormatPosition(r.Start), strings.TrimSpace(analysis.LineAt(s.snap.Source, r.Start.Line)))
	}
	return nil
}

func (s *Session) cmdDescribe(args []string) error {
	pos, err := s.positionArg(args)
	if err != nil {
		return err
	}
	target, _ := s.snap.TargetAt(pos)
	decl := analysis.Describe(target, s.snap.Symbols)
	if decl == "" {
		s.printf("nothing to describe\n")
		return nil
	}
	s.printf("%s\n", decl)
	return nil
}

func (s *Session) cmdFind(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: find NAME")
	}
	name := args[0]
	if !strings.HasPrefix(name, "$") {
		name = "$" + name
	}
	var found []analysis.OutlineItem
	for _, item := range analysis.Outline(s.snap.Symbols) {
		if item.Name == name {
			match := item
			match.Children = nil
			found = append(found, match)
		}
		for _, child := range item.Children {
			if child.Name == name {
				found = append(found, child)
			}
		}
	}
	if len(found) == 0 {
		s.printf("no definition named %s\n", name)
		return nil
	}
	FormatOutline(s.out, found)
	return nil
}

func (s *Session) cmdSymbols([]string) error {
	FormatOutline(s.out, analysis.Outline(s.snap.Symbols))
	return nil
}

func (s *Session) cmdLint([]string) error {
	l := &lint.Linter{Analyzers: lint.DefaultAnalyzers(), Parser: s.parser}
	diags, err := l.LintSnapshot(s.snap, s.path)
	if err != nil {
		return err
	}
	if len(diags) == 0 {
		s.printf("no problems\n")
		return nil
	}
	renderLint(s.out, s.snap.Source, diags)
	return nil
}

func (s *Session) cmdReload([]string) error {
	if err := s.Reload(); err != nil {
		return err
	}
	s.printf("reloaded %s (version %d)\n", s.path, s.snap.Version)
	return nil
}

func (s *Session) cmdHelp([]string) error {
	for _, c := range commands {
		s.printf("  %-22s %s\n", c.usage, c.help)
	}
	return nil
}

// FormatOutline writes one line per definition, with the members of a
// function indented beneath it.
func FormatOutline(w io.Writer, items []analysis.OutlineItem) {
	for _, item := range items {
		fmt.Fprintln(w, outlineLine(item)) //nolint:errcheck // best-effort output
		if len(item.Children) == 0 {
			continue
		}
		var b strings.Builder
		for _, child := range item.Children {
			b.WriteString(outlineLine(child))
			b.WriteString("\n")
		}
		fmt.Fprint(w, indent.String(b.String(), 4)) //nolint:errcheck // best-effort output
	}
}

func outlineLine(item analysis.OutlineItem) string {
	line := fmt.Sprintf("%d\t%s %s", item.Line+1, item.Kind, item.Name)
	if item.Detail != "" {
		line += " " + item.Detail
	}
	if item.Imported {
		line += " (imported)"
	}
	return line
}

// Run starts an interactive shell over the file at path.
func Run(path, prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	var stderr io.Writer = os.Stderr
	if cfg.stderr != nil {
		stderr = cfg.stderr
	}
	if cfg.stdout == nil {
		opts = append(opts, WithStdout(stderr))
	}
	s, err := NewSession(path, opts...)
	if err != nil {
		return err
	}

	history := historyPath()
	ensureHistoryFilePermissions(history)
	rlCfg := &readline.Config{
		Stdout:            stderr,
		Stderr:            stderr,
		Prompt:            prompt,
		HistoryFile:       history,
		HistorySearchFold: true,
		AutoComplete:      &commandCompleter{session: s},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return err
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	for {
		line, err := rl.ReadSlice()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			// EOF ends the session.
			return nil
		}
		err = s.Exec(string(line))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wat_lsp_history")
}

// ensureHistoryFilePermissions creates the history file if needed and
// makes it readable by its owner only.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // path is under the user's home
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0600)
}
