package command

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest message the chat layer accepts.
const MaxMessageLength = 2000

// Chunk splits text into messages of at most limit runes, preferring to break
// after a newline. Empty text yields no messages.
func Chunk(text string, limit int) []string {
	if text == "" {
		return []string{}
	}
	if limit <= 0 {
		return []string{text}
	}

	var out []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			cut = nl + 1
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

func byteOffset(text string, runes int) int {
	n := 0
	for i := range text {
		if n == runes {
			return i
		}
		n++
	}
	return len(text)
}
