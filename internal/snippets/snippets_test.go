package snippets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = "# Components\n" +
	"\n" +
	"Intro text.\n" +
	"\n" +
	"```web id=card\n" +
	"$component Card\n" +
	"  *struct\n" +
	"    div.card\n" +
	"```\n" +
	"\n" +
	"```go\n" +
	"fmt.Println(\"not dotweb\")\n" +
	"```\n" +
	"\n" +
	"- list item\n" +
	"\n" +
	"  ```dotweb expect-error\n" +
	"  Card\n" +
	"    *n<number> x\n" +
	"  ```\n" +
	"\n" +
	"```\n" +
	"no language\n" +
	"```\n"

func TestExtract(t *testing.T) {
	snippets, err := Extract([]byte(doc))
	require.NoError(t, err)
	require.Len(t, snippets, 2)

	first := snippets[0]
	assert.Equal(t, "web", first.Language)
	assert.Equal(t, "$component Card\n  *struct\n    div.card\n", first.Content)
	assert.Equal(t, 6, first.Line)
	assert.Equal(t, "card", first.Name())
	assert.False(t, first.ExpectsError())

	second := snippets[1]
	assert.Equal(t, "dotweb", second.Language)
	assert.Equal(t, "Card\n  *n<number> x\n", second.Content)
	assert.Equal(t, 18, second.Line)
	assert.Equal(t, "line 18", second.Name())
	assert.True(t, second.ExpectsError())
}

func TestExtractNone(t *testing.T) {
	snippets, err := Extract([]byte("# Nothing here\n\n    indented code\n"))
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestExtractEmptyBlock(t *testing.T) {
	snippets, err := Extract([]byte("text\n\n```web\n```\n"))
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "", snippets[0].Content)
	assert.Equal(t, 4, snippets[0].Line)
}
