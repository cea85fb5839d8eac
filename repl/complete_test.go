// Copyright © 2024 The wat-lsp authors

package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandCompleter(t *testing.T) {
	s, _, _ := newTestSession(t)
	c := &commandCompleter{session: s}

	// "re" matches refs and reload.
	candidates, offset := c.Do([]rune("re"), 2)
	assert.Equal(t, 2, offset)
	assert.Equal(t, [][]rune{[]rune("fs"), []rune("load")}, candidates)

	// find completes defined names, including locals.
	candidates, offset = c.Do([]rune("find $un"), 8)
	assert.Equal(t, 3, offset)
	assert.Equal(t, [][]rune{[]rune("used")}, candidates)

	candidates, _ = c.Do([]rune("find $"), 6)
	assert.Len(t, candidates, 5, "$a $add $b $main $unused")

	// Positions are not completed.
	candidates, _ = c.Do([]rune("def 1"), 5)
	assert.Empty(t, candidates)

	candidates, _ = c.Do([]rune("zzz"), 3)
	assert.Empty(t, candidates)
}
