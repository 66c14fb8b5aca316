package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Render("# Title\n\nhello **world**\n\n<script>alert(1)</script>\n\n```go\nfmt.Println()\n```")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>world</strong>")
	assert.Contains(t, out, `class="language-go"`)
	assert.NotContains(t, out, "<script>")
}

func TestRender_Table(t *testing.T) {
	out, err := Render("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}
