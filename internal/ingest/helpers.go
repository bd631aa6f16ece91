package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// normalizeSpace collapses multiple spaces into one and trims the string.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanText normalizes whitespace (alias for normalizeSpace)
func cleanText(s string) string {
	return normalizeSpace(s)
}

// TruncateText cuts a string to max length in runes, appending ellipsis
// if truncated. Cutting on a rune boundary keeps multi-byte text valid.
func TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return string(runes[:maxLen-3]) + "..."
	}
	return string(runes[:maxLen])
}

// HTMLToText converts HTML to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html // Fallback to original if parsing fails
	}
	return cleanText(doc.Text())
}

var sanitizePolicy = bluemonday.StrictPolicy()

// sanitizeText strips any markup and invalid UTF-8 from free text.
func sanitizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	if strings.ContainsAny(s, "<>&") {
		s = sanitizePolicy.Sanitize(s)
		s = HTMLToText(s)
	}
	return cleanText(s)
}

// mergeUniqueFold appends items to dst, dropping case-insensitive duplicates.
func mergeUniqueFold(dst []string, items []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		k := strings.ToLower(strings.TrimSpace(v))
		if k != "" {
			seen[k] = struct{}{}
		}
	}

	for _, v := range items {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		dst = append(dst, v)
		seen[k] = struct{}{}
	}

	return dst
}

// containsAnyFold reports whether text contains any of the given phrases,
// case-insensitively. Callers pass pre-lowered text for tight loops.
func containsAnyFold(loweredText string, phrases []string) bool {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(loweredText, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
