package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"importscout/internal/logger"
)

const tavilyTimeout = 20 * time.Second

// TavilyResult is one raw web-search hit.
type TavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type TavilyResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []TavilyResult `json:"results"`
}

// TavilyOptions narrows a search. Zero values fall back to the client
// defaults.
type TavilyOptions struct {
	IncludeDomains []string
	SearchDepth    string
	MaxResults     int
	IncludeAnswer  bool
}

// Tavily is the web-search client used for compliance, tax, and market
// research queries. Search returns errors; the per-query fan-outs in the
// orchestrator absorb them individually.
type Tavily struct {
	APIKey string

	log    *logger.Logger
	client *http.Client
}

func NewTavily(apiKey string, log *logger.Logger) *Tavily {
	return &Tavily{
		APIKey: apiKey,
		log:    log.With("service", "Tavily"),
		client: &http.Client{Timeout: tavilyTimeout},
	}
}

func (t *Tavily) Search(ctx context.Context, query string, opts TavilyOptions) (*TavilyResponse, error) {
	depth := opts.SearchDepth
	if depth == "" {
		depth = "basic"
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	body := map[string]any{
		"api_key":        t.APIKey,
		"query":          query,
		"search_depth":   depth,
		"max_results":    maxResults,
		"include_answer": opts.IncludeAnswer,
	}
	if len(opts.IncludeDomains) > 0 {
		body["include_domains"] = opts.IncludeDomains
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.tavily.com/search", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("tavily error %d: %s", resp.StatusCode, string(text))
	}

	var out TavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchQuery pairs one query with its own search options. Queries in one
// batch may target different domain allow-lists.
type BatchQuery struct {
	Query string
	Opts  TavilyOptions
}

// SearchBatch fans out multiple queries concurrently, absorbing per-query
// failures. Joined results keep query order with failed slots empty; the
// second return collects the non-empty AI answers in the same order.
func (t *Tavily) SearchBatch(ctx context.Context, queries []BatchQuery) ([]TavilyResult, []string) {
	batches := make([][]TavilyResult, len(queries))
	answers := make([]string, len(queries))
	fanOut(len(queries), func(i int) {
		resp, err := t.Search(ctx, queries[i].Query, queries[i].Opts)
		if err != nil {
			t.log.Error("search failed", "query", queries[i].Query, "error", err.Error())
			return
		}
		batches[i] = resp.Results
		answers[i] = resp.Answer
	})

	var joined []TavilyResult
	var joinedAnswers []string
	for i, b := range batches {
		joined = append(joined, b...)
		if answers[i] != "" {
			joinedAnswers = append(joinedAnswers, answers[i])
		}
	}
	return joined, joinedAnswers
}
