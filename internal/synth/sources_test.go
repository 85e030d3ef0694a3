package synth

import (
	"strings"
	"testing"
	"unicode/utf8"

	"importscout/internal/providers"
)

func TestTruncateAtRune(t *testing.T) {
	if got := truncateAtRune("short", 200); got != "short" {
		t.Fatalf("got %q", got)
	}

	// "é" is 2 bytes; an odd byte limit lands mid-rune and must back up.
	got := truncateAtRune(strings.Repeat("é", 101), 201)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if len(got) != 200 {
		t.Fatalf("len = %d, want 200", len(got))
	}

	got = truncateAtRune(strings.Repeat("日", 100), 200)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	// 日 is 3 bytes; 200 is not a multiple of 3 so the cut must back up.
	if len(got) != 198 {
		t.Fatalf("len = %d, want 198", len(got))
	}
}

func TestFallbackSources_SnippetsStayValidUTF8(t *testing.T) {
	results := []providers.TavilyResult{{
		Title:   "aranceles",
		URL:     "https://www.aduana.gob.cl/aranceles",
		Content: strings.Repeat("ñ", 150),
		Score:   0.9,
	}}

	sources := fallbackSources(results)
	if len(sources) != 1 {
		t.Fatalf("sources = %d", len(sources))
	}
	snippet := sources[0].Snippet
	if !utf8.ValidString(snippet) {
		t.Fatalf("snippet is invalid UTF-8: %q", snippet)
	}
	if len(snippet) > 200 {
		t.Fatalf("snippet len = %d, want <= 200", len(snippet))
	}
}
