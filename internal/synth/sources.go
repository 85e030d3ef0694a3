package synth

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"importscout/internal/providers"
	"importscout/internal/research"
)

const fallbackSourceLimit = 5

// fallbackSources builds a best-effort citation list mechanically from raw
// search results, used by every synthesizer when extraction fails. Shared so
// degraded reports cite identically across facets.
func fallbackSources(results []providers.TavilyResult) []research.Source {
	if len(results) > fallbackSourceLimit {
		results = results[:fallbackSourceLimit]
	}
	out := make([]research.Source, 0, len(results))
	for _, r := range results {
		snippet := truncateAtRune(r.Content, 200)
		score := r.Score
		out = append(out, research.Source{
			Title:          r.Title,
			URL:            r.URL,
			Domain:         hostnameOf(r.URL),
			Snippet:        snippet,
			RelevanceScore: &score,
		})
	}
	return out
}

// truncateAtRune caps s at limit bytes without splitting a UTF-8 rune.
func truncateAtRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}

// formatSearchResults renders raw search hits into the numbered source
// blocks the synthesis prompts expect.
func formatSearchResults(results []providers.TavilyResult) string {
	if len(results) == 0 {
		return "No search results available."
	}
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("### Source %d: %s\nURL: %s\nContent: %s", i+1, r.Title, r.URL, r.Content))
	}
	return strings.Join(blocks, "\n---\n")
}

var sourceSchema = obj(map[string]any{
	"title":           str(),
	"url":             str(),
	"domain":          str(),
	"snippet":         str(),
	"relevance_score": num("Relevance from 0 to 1"),
}, "title", "url", "domain", "snippet")
