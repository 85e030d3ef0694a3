package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaReq struct {
	Model    string         `json:"model"`
	Messages []ollamaMsg    `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   map[string]any `json:"format"`
}

type ollamaResp struct {
	Message ollamaMsg `json:"message"`
	Error   string    `json:"error,omitempty"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	if p.Client == nil {
		return nil, errors.New("ollama: http client is nil")
	}
	if req.Schema == nil {
		return nil, errors.New("ollama: schema is required")
	}

	msgs := make([]ollamaMsg, 0, 2)
	if req.System != "" {
		msgs = append(msgs, ollamaMsg{Role: "system", Content: req.System})
	}
	msgs = append(msgs, ollamaMsg{Role: "user", Content: req.User})

	reqBody := ollamaReq{
		Model:    p.Model,
		Messages: msgs,
		Stream:   false,
		Format:   req.Schema,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/chat", p.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("ollama status %d", resp.StatusCode)}
	}

	var decoded ollamaResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}

	content := strings.TrimSpace(decoded.Message.Content)
	if !json.Valid([]byte(content)) {
		return nil, errors.New("ollama: response is not valid JSON")
	}
	return json.RawMessage(content), nil
}
