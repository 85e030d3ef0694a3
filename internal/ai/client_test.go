package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"importscout/internal/logger"
)

type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (p *flakyProvider) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	_ = ctx
	_ = req
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func newTestClient(p Provider) *Client {
	c := NewClient(p, logger.NewNop())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestComplete_RetriesRateLimit(t *testing.T) {
	prov := &flakyProvider{failures: 2, err: &HTTPError{StatusCode: 429, Body: "rate limited"}}
	c := newTestClient(prov)

	raw, err := c.Complete(context.Background(), Request{SchemaName: "x"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("raw = %s", raw)
	}
	if prov.calls != 3 {
		t.Fatalf("calls = %d, want 3", prov.calls)
	}
}

func TestComplete_GivesUpAfterMaxAttempts(t *testing.T) {
	prov := &flakyProvider{failures: 10, err: &HTTPError{StatusCode: 529, Body: "overloaded"}}
	c := newTestClient(prov)

	_, err := c.Complete(context.Background(), Request{SchemaName: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if prov.calls != maxAttempts {
		t.Fatalf("calls = %d, want %d", prov.calls, maxAttempts)
	}
}

func TestComplete_NonRetryableFailsFast(t *testing.T) {
	prov := &flakyProvider{failures: 10, err: &HTTPError{StatusCode: 400, Body: "bad schema"}}
	c := newTestClient(prov)

	_, err := c.Complete(context.Background(), Request{SchemaName: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if prov.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on 4xx)", prov.calls)
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 400 {
		t.Fatalf("err = %v", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	if backoffDelay(0) != time.Second || backoffDelay(1) != 2*time.Second || backoffDelay(2) != 4*time.Second {
		t.Fatalf("unexpected backoff schedule: %v %v %v", backoffDelay(0), backoffDelay(1), backoffDelay(2))
	}
}

func TestIsRetryable(t *testing.T) {
	if isRetryable(errors.New("plain")) {
		t.Fatalf("plain errors are not retryable")
	}
	if !isRetryable(&HTTPError{StatusCode: 503}) {
		t.Fatalf("5xx is retryable")
	}
	if isRetryable(&HTTPError{StatusCode: 422}) {
		t.Fatalf("validation errors are not retryable")
	}
}
