// Copyright © 2024 The wat-lsp authors

package diagnostic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// DefaultWidth is the note width used when output is not a terminal.
const DefaultWidth = 100

// notePrefix is len("   = note: ").
const notePrefix = 11

// tabWidth is the number of columns a tab expands to in excerpts.
const tabWidth = 4

// Renderer prints diagnostics as annotated source excerpts.  The zero value
// is ready to use.
type Renderer struct {
	// Color is ColorAuto unless set.
	Color ColorMode

	// Width is where notes wrap.  Zero means the terminal width, falling
	// back to DefaultWidth.
	Width int

	// SourceReader loads a span's file.  Nil reads from disk.
	SourceReader func(string) ([]byte, error)
}

// Render prints d to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	out := r.begin(w)
	out.diagnostic(d)
	return out.finish()
}

// RenderAll prints diags to w with a blank line between each.  Each source
// file is read at most once.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	out := r.begin(w)
	for i, d := range diags {
		if i > 0 {
			out.print("\n")
		}
		out.diagnostic(d)
	}
	return out.finish()
}

func (r *Renderer) begin(w io.Writer) *output {
	f, _ := w.(*os.File)
	read := r.SourceReader
	if read == nil {
		read = readFile
	}
	width := r.Width
	if width <= 0 {
		width = terminalWidth(f)
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return &output{
		buf:   bufio.NewWriter(w),
		pal:   choosePalette(r.Color, f),
		width: width,
		read:  read,
		files: make(map[string][]string),
	}
}

func readFile(name string) ([]byte, error) {
	return os.ReadFile(name) //nolint:gosec // the user named the file
}

// output is a single rendering pass.  Once a write fails every later write
// is skipped and finish reports the failure.
type output struct {
	buf   *bufio.Writer
	err   error
	pal   palette
	width int
	read  func(string) ([]byte, error)
	files map[string][]string
}

func (o *output) printf(format string, a ...any) {
	if o.err == nil {
		_, o.err = fmt.Fprintf(o.buf, format, a...)
	}
}

func (o *output) print(s string) {
	if o.err == nil {
		_, o.err = o.buf.WriteString(s)
	}
}

func (o *output) finish() error {
	if o.err != nil {
		return o.err
	}
	return o.buf.Flush()
}

func (o *output) diagnostic(d Diagnostic) {
	title := d.Severity.String()
	if d.Code != "" {
		title += "[" + d.Code + "]"
	}
	p := o.pal
	o.printf("%s%s%s%s: %s%s%s\n",
		p.severity(d.Severity), p.bold, title, p.reset,
		p.bold, d.Message, p.reset)
	for _, s := range d.Spans {
		o.span(s)
	}
	for _, n := range d.Notes {
		o.note(n)
	}
}

// gutter prints one excerpt row: the margin text, a bar, then body.
func (o *output) gutter(margin, body string) {
	if body == "" {
		o.printf(" %s%s |%s\n", o.pal.boldBlue, margin, o.pal.reset)
		return
	}
	o.printf(" %s%s |%s  %s\n", o.pal.boldBlue, margin, o.pal.reset, body)
}

func (o *output) span(s Span) {
	o.printf("  %s-->%s %s\n", o.pal.boldBlue, o.pal.reset, s.location())

	text, ok := o.line(s.File, s.Line)
	if !ok {
		o.gutter(" ", "")
		return
	}
	num := strconv.Itoa(s.Line)
	blank := strings.Repeat(" ", len(num))

	o.gutter(blank, "")
	o.gutter(num, strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth)))

	offset, length := s.underline(text)
	marks := strings.Repeat(" ", offset) + o.pal.boldRed + strings.Repeat("^", length) + o.pal.reset
	if s.Label != "" {
		marks += " " + o.pal.boldRed + s.Label + o.pal.reset
	}
	o.gutter(blank, marks)
	o.gutter(blank, "")
}

func (o *output) note(text string) {
	wrapped := wordwrap.String(text, max(o.width-notePrefix, 20))
	first, rest, _ := strings.Cut(wrapped, "\n")
	o.printf("   %s=%s note: %s\n", o.pal.boldCyan, o.pal.reset, first)
	if rest != "" {
		o.print(indent.String(rest, notePrefix) + "\n")
	}
}

// line returns the 1-based line n of file.  Files are split once per pass.
func (o *output) line(file string, n int) (string, bool) {
	if file == "" || n <= 0 {
		return "", false
	}
	lines, seen := o.files[file]
	if !seen {
		if data, err := o.read(file); err == nil {
			lines = splitLines(data)
		}
		o.files[file] = lines
	}
	if n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}

func splitLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// location formats the span as file, file:line or file:line:col.
func (s Span) location() string {
	switch {
	case s.Line <= 0:
		return s.File
	case s.Col <= 0:
		return s.File + ":" + strconv.Itoa(s.Line)
	default:
		return s.File + ":" + strconv.Itoa(s.Line) + ":" + strconv.Itoa(s.Col)
	}
}

// underline returns the display offset and width of the carets for s on
// text.  At least one caret is always drawn.
func (s Span) underline(text string) (offset, width int) {
	col := max(s.Col, 1)
	last := s.EndCol
	if last <= 0 {
		last = tokenEnd(text, col)
	}
	last = max(last, col)

	if col-1 <= len(text) {
		offset = columns(text[:col-1])
	}
	lo := min(col-1, len(text))
	hi := min(last, len(text))
	if hi <= lo {
		return offset, 1
	}
	return offset, columns(text[lo:hi])
}

// tokenEnd returns the last column of the token that starts at col.  WAT
// tokens end at whitespace, parentheses, quotes and comment starts.
func tokenEnd(text string, col int) int {
	if col <= 0 || col > len(text) {
		return col
	}
	i := col - 1
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if strings.ContainsRune(" \t()\";", r) {
			break
		}
		i += size
	}
	return max(i, col)
}

// columns is the display width of s with tabs expanded.
func columns(s string) int {
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += tabWidth
			continue
		}
		n++
	}
	return n
}
