package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auditgraph/internal/review"
)

// retryable lists the failures worth another attempt: rate limiting, server
// errors, transport failures and unparseable output. Auth errors, other 4xx,
// cancellation and configuration problems fail immediately.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, review.ErrConfiguration) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	return errors.Is(err, review.ErrParse)
}

func (c *Client) retryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == c.cfg.MaxRetries-1 {
			return lastErr
		}

		delay := c.cfg.RetryDelay * time.Duration(1<<uint(attempt))
		c.logger.Warn("llm: retrying request",
			"attempt", attempt+1,
			"delay", delay,
			"error", lastErr,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
