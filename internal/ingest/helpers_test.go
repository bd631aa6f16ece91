package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateText(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		maxLen int
		want   string
	}{
		{"short text untouched", "lidar survey", 100, "lidar survey"},
		{"exact length untouched", "abcde", 5, "abcde"},
		{"truncated with ellipsis", "abcdefghij", 8, "abcde..."},
		{"tiny budget no ellipsis", "abcdefghij", 3, "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateText(tc.text, tc.maxLen); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTruncateTextKeepsMultiByteRunesValid(t *testing.T) {
	// 4000 two-byte runes is 8000 bytes; a byte-indexed cut at 5000
	// would split a rune in half.
	text := strings.Repeat("é", 4000)

	got := TruncateText(text, maxDescriptionLen)
	if !utf8.ValidString(got) {
		t.Fatal("truncation produced invalid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n > maxDescriptionLen {
		t.Fatalf("got %d runes, want at most %d", n, maxDescriptionLen)
	}

	longer := strings.Repeat("é", maxDescriptionLen+100)
	got = TruncateText(longer, maxDescriptionLen)
	if !utf8.ValidString(got) {
		t.Fatal("truncation produced invalid UTF-8")
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatal("truncated text missing ellipsis")
	}
	if n := utf8.RuneCountInString(got); n != maxDescriptionLen {
		t.Fatalf("got %d runes, want exactly %d", n, maxDescriptionLen)
	}
}
