package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKeepsSafeMarkup(t *testing.T) {
	assert.Equal(t, "<b>hi</b>", Sanitize(`<b>hi</b><script>alert(1)</script>`))
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Cats & Dogs", StripTags("  <em>Cats</em>   &amp; Dogs\n"))
	assert.Equal(t, "", StripTags("<script>x</script>"))
	assert.Equal(t, "a < b", StripTags("a &lt; b"))
}
