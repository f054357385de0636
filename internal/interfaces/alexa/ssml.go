package alexa

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxSpeechRunes caps spoken message text.
const DefaultMaxSpeechRunes = 6000

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeText makes arbitrary user text safe inside SSML.
func EscapeText(s string) string {
	return ssmlEscaper.Replace(s)
}

// Truncate 按 rune 截断
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}

// Digits speaks a code digit by digit.
func Digits(code string) string {
	return `<say-as interpret-as="digits">` + EscapeText(code) + `</say-as>`
}
