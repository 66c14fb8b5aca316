package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTempImagePath(t *testing.T) {
	p := NewTempImagePath("", ".PNG")
	assert.True(t, strings.HasPrefix(p, "temp/image/"))
	assert.True(t, strings.HasSuffix(p, ".png"))

	scoped := NewTempImagePath("abc", "jpg")
	assert.True(t, strings.HasPrefix(scoped, "temp/abc/image/"))
	assert.Equal(t, "abc", SessionOf(scoped))
	assert.Equal(t, "", SessionOf(p))
}

func TestPermanentPathFor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"temp/image/a.png", "permanent/image/a.png", true},
		{"temp/s1/image/a.png", "permanent/image/a.png", true},
		{"permanent/image/a.png", "", false},
		{"other/a.png", "", false},
	}
	for _, tt := range tests {
		got, ok := PermanentPathFor(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTempScope(t *testing.T) {
	assert.Equal(t, "temp/image/", TempScope(""))
	assert.Equal(t, "temp/s1/image/", TempScope(" s1 "))
}

func TestURLCodec(t *testing.T) {
	c := newURLCodec("https://cdn.example.com/media/")
	u := c.PublicURL("temp/image/a.png")
	assert.Equal(t, "https://cdn.example.com/media/temp/image/a.png", u)

	p, ok := c.PathFromURL(u + "?v=1")
	assert.True(t, ok)
	assert.Equal(t, "temp/image/a.png", p)

	p, ok = c.PathFromURL("https://cdn.example.com/media/temp/image/a%20b.png")
	assert.True(t, ok)
	assert.Equal(t, "temp/image/a b.png", p)

	_, ok = c.PathFromURL("https://elsewhere.org/temp/image/a.png")
	assert.False(t, ok)
	_, ok = c.PathFromURL("https://cdn.example.com/media/../secret")
	assert.False(t, ok)
}
