package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnthropicProvider calls the Anthropic Messages API and forces the response
// through a single tool whose input schema is the request schema, so the tool
// input IS the structured document.
type AnthropicProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewAnthropicProvider(baseURL, apiKey, model string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &AnthropicProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicReq struct {
	Model      string          `json:"model"`
	MaxTokens  int             `json:"max_tokens"`
	System     string          `json:"system,omitempty"`
	Messages   []anthropicMsg  `json:"messages"`
	Tools      []anthropicTool `json:"tools"`
	ToolChoice map[string]any  `json:"tool_choice"`
}

type anthropicResp struct {
	Content []struct {
		Type  string          `json:"type"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	if p.Client == nil {
		return nil, errors.New("anthropic: http client is nil")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	if req.SchemaName == "" || req.Schema == nil {
		return nil, errors.New("anthropic: schema name and schema are required")
	}

	reqBody := anthropicReq{
		Model:     p.Model,
		MaxTokens: req.maxTokens(),
		System:    req.System,
		Messages:  []anthropicMsg{{Role: "user", Content: req.User}},
		Tools: []anthropicTool{{
			Name:        req.SchemaName,
			Description: "Record the structured result of the analysis.",
			InputSchema: req.Schema,
		}},
		ToolChoice: map[string]any{"type": "tool", "name": req.SchemaName},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded anthropicResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, errors.New("anthropic: " + decoded.Error.Message)
	}

	for _, block := range decoded.Content {
		if block.Type == "tool_use" && block.Name == req.SchemaName && len(block.Input) > 0 {
			return block.Input, nil
		}
	}
	return nil, errors.New("anthropic: no tool_use block in response")
}
