package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request describes one structured extraction call: a system/user prompt pair
// plus the JSON schema the model output must conform to.
type Request struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
	MaxTokens  int
}

// Provider performs a single model call and returns the raw JSON document
// produced under the request schema. Providers do not retry; retry policy
// lives in Client.
type Provider interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// HTTPError carries the upstream status code so the retry layer can classify
// rate limits and server overload as transient.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ai: http %d: %s", e.StatusCode, e.Body)
}

const defaultMaxTokens = 2048

func (r Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return defaultMaxTokens
}
