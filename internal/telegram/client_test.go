package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitByBytesKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("ё", 10) // 2 bytes each
	parts := splitByBytes(text, 5)

	assert.Len(t, parts, 5)
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p))
		assert.LessOrEqual(t, len(p), 5)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitByBytesShortText(t *testing.T) {
	assert.Equal(t, []string{"hi"}, splitByBytes("hi", 4096))
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateByBytes("abc", 10))
	assert.Equal(t, "ёё", truncateByBytes("ёёё", 5))
}

func TestKeyboardMarkup(t *testing.T) {
	kb := Keyboard{
		{{Text: "1K", Data: "st:1:q:0"}, {Text: "2K", Data: "st:1:q:1"}},
		{{Text: "Back", Data: "st:1:menu:main"}},
	}
	m := kb.markup()

	assert.Len(t, m.InlineKeyboard, 2)
	assert.Len(t, m.InlineKeyboard[0], 2)
	assert.Equal(t, "2K", m.InlineKeyboard[0][1].Text)
	if assert.NotNil(t, m.InlineKeyboard[1][0].CallbackData) {
		assert.Equal(t, "st:1:menu:main", *m.InlineKeyboard[1][0].CallbackData)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "video.mp4", fileName("video", "application/x-unknown-type", ".mp4"))
	assert.True(t, strings.HasPrefix(fileName("image", "image/png", ".jpg"), "image."))
}
