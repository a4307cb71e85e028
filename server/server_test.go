package server

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 500))

	long := strings.Repeat("x", 600)
	assert.Equal(t, long[:500], snippet(long, 500))
}

func TestSnippetMultibyte(t *testing.T) {
	long := strings.Repeat("µ", 600)

	cut := snippet(long, 500)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, 500, utf8.RuneCountInString(cut))
}
