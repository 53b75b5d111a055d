package oracle

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a rough token count for mixed Chinese and Latin
// text: one token per Han character plus ~1.33 per Latin word. Only used
// for logging request sizes.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	han := 0
	var latin strings.Builder
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
			latin.WriteByte(' ')
			continue
		}
		latin.WriteRune(r)
	}
	words := len(strings.Fields(latin.String()))
	tokens := han + int(float64(words)*1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
