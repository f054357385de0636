package alexa

import (
	"testing"
	"time"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("привет мир", 6); got != "привет" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("short", 0); got != "short" {
		t.Fatalf("zero limit should not truncate, got %q", got)
	}
}

func TestEscapeText(t *testing.T) {
	if got := EscapeText(`a<b & "c" 'd'>`); got != "a&lt;b &amp; &quot;c&quot; &apos;d&apos;&gt;" {
		t.Fatalf("EscapeText = %q", got)
	}
}
