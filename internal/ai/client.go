package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"syscall"
	"time"

	"importscout/internal/logger"
)

const (
	maxAttempts  = 3
	initialDelay = 1 * time.Second
)

// Client wraps a Provider with bounded retry. This is the single chokepoint
// for generative-model calls: every synthesizer goes through Complete.
type Client struct {
	provider Provider
	log      *logger.Logger

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(provider Provider, log *logger.Logger) *Client {
	return &Client{
		provider: provider,
		log:      log.With("service", "ExtractionClient"),
		sleep:    sleepCtx,
	}
}

// Complete issues the extraction call, retrying transient failures up to
// maxAttempts total with exponential backoff (1s, 2s, ...). Non-retryable
// errors and exhausted retries return the last error unchanged.
func (c *Client) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := c.provider.Complete(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxAttempts-1 {
			return nil, err
		}

		delay := backoffDelay(attempt)
		c.log.Warn("extraction call retrying",
			"schema", req.SchemaName,
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"delay", delay.String(),
			"error", err.Error(),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// backoffDelay returns initialDelay × 2^attempt.
func backoffDelay(attempt int) time.Duration {
	return initialDelay << attempt
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode
		return code == 429 || code == 529 || (code >= 500 && code <= 599)
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
