package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReady(t *testing.T) {
	assert.True(t, isReady("== Running in chat mode. ==\n> "))
	assert.True(t, isReady(">"))
	assert.False(t, isReady("main: seed = 1680000000\n"))
	assert.False(t, isReady(""))
}

func TestSplitEndOfTurn(t *testing.T) {
	tests := []struct {
		name  string
		buf   string
		want  string
		found bool
	}{
		{
			name:  "reset code before prompt",
			buf:   "hello world\x1b[0m\n> ",
			want:  "hello world",
			found: true,
		},
		{
			name:  "prompt without trailing space",
			buf:   "hello world\x1b[0m\n>",
			want:  "hello world",
			found: true,
		},
		{
			name:  "colored reply",
			buf:   "\x1b[33mThe sky is blue.\x1b[0m\n> ",
			want:  "The sky is blue.",
			found: true,
		},
		{
			name:  "multi-line reply",
			buf:   "first line\nsecond line\x1b[0m\n> ",
			want:  "first line\nsecond line",
			found: true,
		},
		{
			name:  "escape on an earlier line",
			buf:   "\x1b[1mbold\x1b[0m\nplain\x1b[0m\n> ",
			want:  "bold\nplain",
			found: true,
		},
		{
			name: "no escape",
			buf:  "hello\n> ",
		},
		{
			name: "escape without prompt",
			buf:  "hello\x1b[0m\n",
		},
		{
			name: "prompt followed by more text",
			buf:  "hello\x1b[0m\n> more",
		},
		{
			name: "empty",
			buf:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := splitEndOfTurn(tt.buf)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrimPrompt(t *testing.T) {
	assert.Equal(t, "partial", trimPrompt("partial"))
	assert.Equal(t, "one two", trimPrompt("one two>"))
	assert.Equal(t, "\x1b[31mred\x1b[0m", trimPrompt("\x1b[31mred\x1b[0m"))
	assert.Equal(t, "a > b", trimPrompt("a > b"))
}
