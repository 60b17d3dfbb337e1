package textutil

import (
	"regexp"
	"strings"
)

var (
	tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrimPattern   = regexp.MustCompile(`^-+|-+$`)
)

// Tokenize lowercases text, splits on non-alphanumeric runs, and drops tokens
// shorter than 3 characters.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	parts := tokenSplitPattern.Split(lowered, -1)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) >= 3 {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// Slug converts a title into a lowercase hyphenated identifier segment.
// Returns "chapter" when the input yields nothing usable.
func Slug(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	slug := tokenSplitPattern.ReplaceAllString(lowered, "-")
	slug = slugTrimPattern.ReplaceAllString(slug, "")
	if len(slug) > 64 {
		slug = strings.Trim(slug[:64], "-")
	}
	if slug == "" {
		return "chapter"
	}
	return slug
}

// LeadingWords returns the first n whitespace-separated words of text,
// suffixed with an ellipsis when the text was longer.
func LeadingWords(text string, n int) string {
	words := strings.Fields(text)
	if n <= 0 || len(words) == 0 {
		return ""
	}
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}

// Snippet truncates text to at most limit runes, appending an ellipsis when
// truncated. Interior newlines collapse to spaces.
func Snippet(text string, limit int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if limit <= 0 {
		return ""
	}
	runes := []rune(clean)
	if len(runes) <= limit {
		return clean
	}
	return string(runes[:limit]) + "..."
}
