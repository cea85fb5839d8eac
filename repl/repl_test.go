// Copyright © 2024 The wat-lsp authors

package repl

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
)

const testModule = `(module
  (func $add (param $a i32) (param $b i32) (result i32)
    local.get $a
    local.get $b
    i32.add)
  (func $main (result i32)
    (local $unused i32)
    i32.const 1
    i32.const 2
    call $add))
`

func writeModule(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wat")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestSession(t *testing.T) (*Session, *bytes.Buffer, string) {
	t.Helper()
	path := writeModule(t, testModule)
	var out bytes.Buffer
	s, err := NewSession(path, WithStdout(&out))
	require.NoError(t, err)
	return s, &out, path
}

func runReplWithString(t *testing.T, path, input string) string {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer inW.Close() //nolint:errcheck // test cleanup
		_, _ = io.WriteString(inW, input)
	}()

	go func() {
		err := Run(path, "wat> ", WithStdin(inR), WithStderr(outW))
		assert.NoError(t, err)
		inR.Close()  //nolint:errcheck,gosec // test cleanup
		outW.Close() //nolint:errcheck,gosec // test cleanup
	}()

	var output bytes.Buffer
	_, _ = io.Copy(&output, outR)
	outR.Close() //nolint:errcheck,gosec // test cleanup
	return output.String()
}

func TestEnsureHistoryFilePermissions_CreatesWithRestrictedMode(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".wat_lsp_history")

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err, "history file should be created")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "new history file should have mode 0600")
}

func TestEnsureHistoryFilePermissions_RestrictsExistingFile(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".wat_lsp_history")

	err := os.WriteFile(histFile, []byte("some history"), 0644)
	require.NoError(t, err)

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "existing history file should be restricted to 0600")

	data, err := os.ReadFile(histFile)
	require.NoError(t, err)
	assert.Equal(t, "some history", string(data))
}

func TestEnsureHistoryFilePermissions_EmptyPathNoOp(t *testing.T) {
	ensureHistoryFilePermissions("")
}

func TestParsePosition(t *testing.T) {
	pos, err := ParsePosition("3:10")
	require.NoError(t, err)
	assert.Equal(t, analysis.Position{Line: 2, Character: 9}, pos)
	assert.Equal(t, "3:10", FormatPosition(pos))

	for _, bad := range []string{"", "3", "0:1", "1:0", "x:1", "1:y", "-1:2"} {
		_, err := ParsePosition(bad)
		assert.ErrorIs(t, err, ErrBadPosition, "input %q", bad)
	}
}

func TestSession_Commands(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "context",
			input:    "ctx 10:11",
			expected: []string{"call\n"},
		},
		{
			name:     "definition",
			input:    "def 10:11",
			expected: []string{"test.wat:2:9\n"},
		},
		{
			name:     "no definition",
			input:    "def 5:6",
			expected: []string{"no definition\n"},
		},
		{
			name:     "references",
			input:    "refs 2:9",
			expected: []string{"test.wat:10:10: call $add))"},
		},
		{
			name:  "references with declaration",
			input: "refs 3:16 decl",
			expected: []string{
				"test.wat:2:21: (func $add (param $a i32)",
				"test.wat:3:15: local.get $a",
			},
		},
		{
			name:     "describe",
			input:    "describe 10:11",
			expected: []string{"(func $add (param i32 i32) (result i32))\n"},
		},
		{
			name:     "find",
			input:    "find add",
			expected: []string{"2\tfunction $add (param i32 i32) (result i32)\n"},
		},
		{
			name:  "symbols",
			input: "symbols",
			expected: []string{
				"2\tfunction $add (param i32 i32) (result i32)\n",
				"    2\tparameter $a i32\n",
				"6\tfunction $main (result i32)\n",
				"    7\tlocal $unused i32\n",
			},
		},
		{
			name:  "lint",
			input: "lint",
			expected: []string{
				"warning[unused-local]: local $unused is never used",
				"^^^^^^^",
			},
		},
		{
			name:     "help",
			input:    "help",
			expected: []string{"refs LINE:COL [decl]"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, out, _ := newTestSession(t)
			require.NoError(t, s.Exec(tc.input))
			for _, want := range tc.expected {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestSession_Errors(t *testing.T) {
	s, _, _ := newTestSession(t)

	err := s.Exec("def")
	assert.ErrorIs(t, err, ErrBadPosition)

	err = s.Exec("refs nowhere")
	assert.ErrorIs(t, err, ErrBadPosition)

	err = s.Exec("frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	assert.ErrorIs(t, s.Exec("quit"), errQuit)
	assert.ErrorIs(t, s.Exec("exit"), errQuit)
	assert.NoError(t, s.Exec("   "))
}

func TestSession_Reload(t *testing.T) {
	s, out, path := newTestSession(t)
	assert.Equal(t, int32(1), s.Snapshot().Version)

	require.NoError(t, os.WriteFile(path, []byte("(module\n  (func $renamed))\n"), 0600))
	require.NoError(t, s.Exec("reload"))
	assert.Contains(t, out.String(), "version 2")
	assert.Equal(t, int32(2), s.Snapshot().Version)

	out.Reset()
	require.NoError(t, s.Exec("find $renamed"))
	assert.Contains(t, out.String(), "function $renamed")
}

func TestNewSession_MissingFile(t *testing.T) {
	_, err := NewSession(filepath.Join(t.TempDir(), "missing.wat"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.wat")
}

func TestRun(t *testing.T) {
	path := writeModule(t, testModule)
	got := runReplWithString(t, path, "def 10:11\nbogus\nquit\n")
	assert.Contains(t, got, "test.wat:2:9")
	assert.Contains(t, got, `unknown command "bogus"`)
	assert.False(t, strings.Contains(got, "panic"))
}
