package textutil

import (
	"strings"
	"testing"
)

func TestTokenizeDropsShortTokens(t *testing.T) {
	tokens := Tokenize("The Gates of Morning, Book 1!")
	want := []string{"the", "gates", "morning", "book"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	for i, token := range want {
		if tokens[i] != token {
			t.Fatalf("token %d: got %q want %q", i, tokens[i], token)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Gates of Morning / Chapter 1", "the-gates-of-morning-chapter-1"},
		{"  ---  ", "chapter"},
		{"", "chapter"},
		{strings.Repeat("long title ", 20), "long-title-long-title-long-title-long-title-long-title-long-titl"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Fatalf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLeadingWords(t *testing.T) {
	if got := LeadingWords("one two three four", 2); got != "one two..." {
		t.Fatalf("unexpected extract: %q", got)
	}
	if got := LeadingWords("one two", 5); got != "one two" {
		t.Fatalf("short text should not gain ellipsis: %q", got)
	}
	if got := LeadingWords("", 5); got != "" {
		t.Fatalf("empty text: %q", got)
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("line\none  line two", 100); got != "line one line two" {
		t.Fatalf("whitespace not collapsed: %q", got)
	}
	got := Snippet(strings.Repeat("a", 300), 10)
	if got != strings.Repeat("a", 10)+"..." {
		t.Fatalf("not truncated: %q", got)
	}
}
