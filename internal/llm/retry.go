package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"resume-editor/internal/shared/telemetry"
)

const (
	retryBaseDelay = 300 * time.Millisecond
	maxRetryAfter  = 5 * time.Second
)

type retryingClient struct {
	base  Client
	delay time.Duration
}

// WithRetry wraps base so transient failures are retried once after a short
// delay, or after the provider's Retry-After when it asks for longer.
func WithRetry(base Client, delay time.Duration) Client {
	if base == nil {
		return nil
	}
	if delay <= 0 {
		delay = retryBaseDelay
	}
	return retryingClient{base: base, delay: delay}
}

func (r retryingClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := r.base.Complete(ctx, prompt)
	if err == nil || !ShouldRetry(err) {
		return resp, err
	}

	wait := r.delay
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > wait {
		wait = min(statusErr.RetryAfter, maxRetryAfter)
	}
	telemetry.Warn("llm.retry", map[string]any{
		"attempt": 1,
		"wait_ms": wait.Milliseconds(),
		"error":   err.Error(),
	})
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.Complete(ctx, prompt)
}

// ShouldRetry reports whether err looks transient.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") || strings.Contains(msg, "overloaded") {
		return true
	}
	if strings.Contains(msg, "http status 429") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
